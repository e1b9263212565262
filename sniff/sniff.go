// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package sniff wraps libmagic-based file type detection behind a small
// interface so scan pipelines can be tested without cgo.
package sniff

import (
	"strings"

	"github.com/vimeo/go-magic/magic"
)

// Sniffer determines the type of a byte buffer. Implementations are
// best-effort and must never fail on malformed input; unknown content
// yields empty strings.
type Sniffer interface {
	// Sniff returns the MIME type and the descriptive type string for
	// the given buffer.
	Sniff(data []byte) (mime string, description string)
}

// Magic is the libmagic-backed Sniffer using the default magic
// database.
type Magic struct{}

// NewMagic returns the libmagic-backed Sniffer.
func NewMagic() *Magic {
	return &Magic{}
}

// Sniff implements Sniffer.
func (m *Magic) Sniff(data []byte) (string, string) {
	mimeCookie := magic.Open(magic.MAGIC_ERROR | magic.MAGIC_MIME_TYPE)
	defer magic.Close(mimeCookie)
	descCookie := magic.Open(magic.MAGIC_ERROR | magic.MAGIC_NONE)
	defer magic.Close(descCookie)
	if magic.Load(mimeCookie, "") != 0 || magic.Load(descCookie, "") != 0 {
		return "", ""
	}
	return magic.Buffer(mimeCookie, data), magic.Buffer(descCookie, data)
}

// ClassifyFile derives a classification string of the form used by the
// scan engine ("executable/windows", "document/pdf", ...) for the file
// at the given path, based on its magic type. Unknown content maps to
// "unknown".
func ClassifyFile(path string) string {
	cookie := magic.Open(magic.MAGIC_ERROR | magic.MAGIC_NONE)
	defer magic.Close(cookie)
	if magic.Load(cookie, "") != 0 {
		return "unknown"
	}
	return Classify(magic.File(cookie, path))
}

// Classify maps a libmagic descriptive string to the engine's
// classification taxonomy.
func Classify(desc string) string {
	switch {
	case strings.Contains(desc, "PE32") || strings.Contains(desc, "MS-DOS executable"):
		return "executable/windows"
	case strings.Contains(desc, "ELF"):
		return "executable/linux"
	case strings.Contains(desc, "Mach-O"):
		return "executable/mach-o"
	case strings.Contains(desc, "PDF document"):
		return "document/pdf"
	case strings.Contains(desc, "Microsoft Word") || strings.Contains(desc, "Microsoft Excel") ||
		strings.Contains(desc, "Microsoft PowerPoint") || strings.Contains(desc, "Composite Document File"):
		return "document/office"
	case strings.Contains(desc, "Rich Text Format"):
		return "document/office/rtf"
	case strings.Contains(desc, "Zip archive") || strings.Contains(desc, "RAR archive") ||
		strings.Contains(desc, "7-zip") || strings.Contains(desc, "tar archive") ||
		strings.Contains(desc, "gzip compressed") || strings.Contains(desc, "XZ compressed"):
		return "archive/generic"
	case strings.Contains(desc, "image data") || strings.Contains(desc, "PNG image") ||
		strings.Contains(desc, "JPEG image"):
		return "image/generic"
	case strings.Contains(desc, "HTML document"):
		return "code/html"
	case strings.Contains(desc, "script") || strings.Contains(desc, "source"):
		return "code/generic"
	case strings.Contains(desc, "text"):
		return "text/plain"
	case desc == "":
		return "unknown"
	}
	return "unknown"
}
