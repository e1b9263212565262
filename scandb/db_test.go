// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package scandb

import (
	"os"
	"testing"
	"time"

	"github.com/DCSO/deepstrings/report"
)

func TestScanEntryRoundtrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "scandb")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	if err := InitDB(dir); err != nil {
		t.Fatal(err)
	}
	defer CloseDB()

	// no bucket exists before the first write
	if _, err := GetScanEntry("deadbeef"); err == nil {
		t.Error("expected error querying empty database")
	}

	rep := &report.ScanReport{
		Filename:   "sample.bin",
		Time:       time.Now().UTC(),
		Size:       1234,
		FileType:   "document/pdf",
		Suspicious: true,
		Hashes:     report.HashInfo{Sha512: "deadbeef"},
	}
	if err := CreateScanEntry(rep); err != nil {
		t.Fatal(err)
	}

	got, err := GetScanEntry("deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "sample.bin" || !got.Suspicious || got.Size != 1234 {
		t.Errorf("unexpected entry: %+v", got)
	}
	if !got.Time.Equal(rep.Time) {
		t.Errorf("timestamp not preserved: %v vs %v", got.Time, rep.Time)
	}

	// unknown hashes come back as zero values once the bucket exists
	got, err = GetScanEntry("cafebabe")
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "" || !got.Time.IsZero() {
		t.Errorf("expected zero entry, got %+v", got)
	}
}
