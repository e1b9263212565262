// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package carver locates and extracts executable containers embedded in
// larger byte buffers. Extent resolution uses the container's section
// table; when that fails, the Lenient policy over-captures to the end of
// the buffer rather than losing the artifact.
package carver

import (
	"bytes"
	"debug/pe"
	"errors"
	"regexp"

	"github.com/DCSO/deepstrings/artifacts"
)

// Policy selects how a failed section-table parse is handled.
type Policy int

const (
	// Strict drops the candidate when the section table cannot be
	// parsed.
	Strict Policy = iota
	// Lenient falls back to carving from the window start to the end of
	// the buffer.
	Lenient
)

var (
	// exeWindowRe matches the start of an executable container: the MZ
	// magic followed within 32 to 1024 bytes by the PE signature, and
	// everything after it.
	exeWindowRe = regexp.MustCompile(`(?s)MZ.{32,1000}.{0,24}PE\x00\x00.+`)
	// dosStubRe is the canonical DOS stub error string; requiring it
	// rejects coincidental signature collisions.
	dosStubRe = regexp.MustCompile(`This program cannot be run in DOS mode`)
)

// Window is a candidate container region; Start is its offset in the
// scanned buffer and Data runs from the MZ magic to the end of the
// buffer.
type Window struct {
	Start int
	Data  []byte
}

// FindWindows scans data for validated executable container windows.
// Matching starts at the given offset; windows are non-overlapping.
func FindWindows(data []byte, from int) []Window {
	if from >= len(data) {
		return nil
	}
	var windows []Window
	for _, loc := range exeWindowRe.FindAllIndex(data[from:], -1) {
		w := Window{Start: from + loc[0], Data: data[from+loc[0] : from+loc[1]]}
		if !dosStubRe.Match(w.Data) {
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

// ErrNoSections is returned when a container parses but declares no
// usable section extents.
var ErrNoSections = errors.New("no sections with raw data")

// Extent resolves the true length of the container at the start of
// data: the maximum over all sections of file offset plus raw size,
// clamped to the buffer length.
func Extent(data []byte) (int, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	largest := 0
	for _, section := range f.Sections {
		end := int(section.Offset) + int(section.Size)
		if end > largest {
			largest = end
		}
	}
	if largest == 0 {
		return 0, ErrNoSections
	}
	if largest > len(data) {
		largest = len(data)
	}
	return largest, nil
}

// Carve resolves the extent of the container at the start of data and
// persists it to the store. Under the Strict policy a failed parse
// drops the candidate; under Lenient the whole buffer is captured.
// It returns the stored record and true if an artifact was produced.
func Carve(store *artifacts.Store, data []byte, nameSuffix string,
	description string, pol Policy) (artifacts.Record, bool, error) {
	extent, err := Extent(data)
	if err != nil {
		if pol == Strict {
			return artifacts.Record{}, false, nil
		}
		extent = len(data)
	}
	if extent == 0 {
		return artifacts.Record{}, false, nil
	}
	rec, _, err := store.Put(data[:extent], nameSuffix, description)
	if err != nil {
		return artifacts.Record{}, false, err
	}
	return rec, true, nil
}
