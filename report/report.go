// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package report defines the result document produced for every scanned
// sample, plus the file hash helper used to identify samples.
package report

import (
	"time"

	"github.com/DCSO/deepstrings/artifacts"
)

// Section is one titled block of human-readable scan output.
type Section struct {
	Title string
	Lines []string
}

// ScanReport is the full result of one engine invocation over a sample.
type ScanReport struct {
	Filename   string
	SensorID   string
	Time       time.Time
	Size       int64
	FileType   string
	Skipped    bool   `json:"Skipped,omitempty"`
	SkipReason string `json:"SkipReason,omitempty"`
	Hashes     HashInfo
	// Suspicious is set when any pipeline produced tags or artifacts.
	Suspicious bool
	// TaggedVia lists the pipelines that contributed output.
	TaggedVia []string `json:"TaggedVia,omitempty"`
	// Tags maps indicator types to sorted unique values.
	Tags map[string][]string `json:"Tags,omitempty"`
	// Sections carries the per-pipeline human-readable output.
	Sections []Section `json:"Sections,omitempty"`
	// Artifacts lists the content-addressed files extracted from the
	// sample during this scan.
	Artifacts []artifacts.Record `json:"Artifacts,omitempty"`
	// Uploaded and UploadLocation are filled by the uploader after the
	// artifacts have been shipped.
	Uploaded       bool   `json:"Uploaded,omitempty"`
	UploadLocation string `json:"UploadLocation,omitempty"`
}
