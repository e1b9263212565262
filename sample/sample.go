// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package sample defines the immutable unit of work handed to the scan
// engine: a byte buffer plus its classification string, reduced once to
// a closed category that drives pipeline eligibility.
package sample

import "strings"

// Category is the coarse classification of a sample. Pipelines declare
// eligibility against this enumeration instead of re-checking type
// string prefixes ad hoc.
type Category int

const (
	// Other covers everything without a more specific category.
	Other Category = iota
	// Archive samples are skipped entirely.
	Archive
	// Code samples (scripts, source) get a reduced pipeline set.
	Code
	// Executable samples (PE, ELF, Mach-O).
	Executable
	// OfficeDocument covers the document/office/* family.
	OfficeDocument
	// PDFDocument covers document/pdf.
	PDFDocument
	// Document covers remaining document/* types.
	Document
	// Image samples.
	Image
)

// String implements fmt.Stringer for log output.
func (c Category) String() string {
	switch c {
	case Archive:
		return "archive"
	case Code:
		return "code"
	case Executable:
		return "executable"
	case OfficeDocument:
		return "document/office"
	case PDFDocument:
		return "document/pdf"
	case Document:
		return "document"
	case Image:
		return "image"
	}
	return "other"
}

// Categorize maps a classification string such as "code/javascript" or
// "document/pdf" to its Category.
func Categorize(fileType string) Category {
	switch {
	case strings.HasPrefix(fileType, "archive/"):
		return Archive
	case strings.HasPrefix(fileType, "code"):
		return Code
	case strings.HasPrefix(fileType, "executable"):
		return Executable
	case strings.HasPrefix(fileType, "document/office"):
		return OfficeDocument
	case strings.HasPrefix(fileType, "document/pdf"):
		return PDFDocument
	case strings.HasPrefix(fileType, "document"):
		return Document
	case strings.HasPrefix(fileType, "image"):
		return Image
	}
	return Other
}

// Sample is one submitted file. The buffer is never modified by the
// engine; all pipelines read from it concurrently.
type Sample struct {
	// Data is the raw file content.
	Data []byte
	// Type is the caller-supplied classification string, e.g.
	// "document/pdf" or "code/vbs".
	Type string
	// Category is derived from Type once at construction.
	Category Category
	// Filename is the original name, used for report provenance only.
	Filename string
}

// New builds a Sample from raw bytes and a classification string.
func New(data []byte, fileType string, filename string) *Sample {
	return &Sample{
		Data:     data,
		Type:     fileType,
		Category: Categorize(fileType),
		Filename: filename,
	}
}

// IsOfficeOrPDF reports whether the sample is an Office or PDF
// document. The base64 pipeline suppresses its loosest heuristic for
// these since both formats produce too many false positives.
func (s *Sample) IsOfficeOrPDF() bool {
	return s.Category == OfficeDocument || s.Category == PDFDocument
}
