// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package uploader

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/report"
	"github.com/DCSO/deepstrings/submitter"
)

var regionReturn = `
<?xml version="1.0" encoding="UTF-8"?>
<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">TEST</LocationConstraint>
`

func TestUpload(t *testing.T) {
	hasArtifact := false
	hasReport := false

	s := submitter.MakeDummySubmitter()

	var apiStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		if strings.Contains(r.URL.String(), "12345.report.json") {
			w.WriteHeader(http.StatusOK)
			if !strings.Contains(string(buf), "Suspicious") {
				t.Fatal("incomplete report")
			} else {
				hasReport = true
			}
		} else if strings.Contains(r.URL.String(), "aabbcc") {
			w.WriteHeader(http.StatusOK)
			if string(buf) != "decoded payload" {
				t.Fatal("no artifact content")
			} else {
				hasArtifact = true
			}
		} else if strings.Contains(r.URL.String(), "location") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(regionReturn))
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer apiStub.Close()

	artdir, err := os.MkdirTemp("", "artdir")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(artdir)

	scratchdir, err := os.MkdirTemp("", "scratchdir")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(scratchdir)

	artifactPath := filepath.Join(artdir, "aabbcc")
	if err := os.WriteFile(artifactPath, []byte("decoded payload"), 0644); err != nil {
		t.Fatal(err)
	}

	u, err := MakeS3Uploader(S3Credentials{
		Endpoint:   strings.Replace(apiStub.URL, "http://", "", -1),
		BucketName: "incoming",
		Region:     "TEST",
	}, false, scratchdir, s)
	if err != nil {
		t.Fatal(err)
	}

	rep := &report.ScanReport{
		Filename:   "dropper.doc",
		Suspicious: true,
		Hashes:     report.HashInfo{Sha512: "12345"},
		Artifacts: []artifacts.Record{
			{SHA256: "aabbcc", Name: "12345_b64_decoded", Size: 15, Path: artifactPath},
		},
	}
	if err := u.Enqueue(rep); err != nil {
		t.Fatal(err)
	}

	u.Stop()

	if !hasArtifact || !hasReport {
		t.Fatal("no complete set of artifact and report")
	}
	if !rep.Uploaded || !strings.Contains(rep.UploadLocation, "incoming/12345") {
		t.Errorf("upload location not recorded: %+v", rep)
	}
	// the persisted queue entry is removed after a successful upload
	if _, err := os.Stat(filepath.Join(scratchdir, "12345.report.json")); !os.IsNotExist(err) {
		t.Error("scratch report not cleaned up")
	}
}

func TestUploaderBacklog(t *testing.T) {
	hasReport := false

	s := submitter.MakeDummySubmitter()

	var apiStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		if strings.Contains(r.URL.String(), "12345.report.json") {
			w.WriteHeader(http.StatusOK)
			if !strings.Contains(string(buf), "Suspicious") {
				t.Fatal("incomplete report")
			} else {
				hasReport = true
			}
		} else if strings.Contains(r.URL.String(), "location") {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(regionReturn))
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer apiStub.Close()

	scratchdir, err := os.MkdirTemp("", "scratchdir")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(scratchdir)

	rep := &report.ScanReport{
		Filename:   "dropper.doc",
		Suspicious: true,
		Hashes:     report.HashInfo{Sha512: "12345"},
	}
	reportJSON, _ := json.Marshal(rep)
	os.WriteFile(filepath.Join(scratchdir, "12345.report.json"), reportJSON, 0644)

	u, err := MakeS3Uploader(S3Credentials{
		Endpoint:   strings.Replace(apiStub.URL, "http://", "", -1),
		BucketName: "incoming",
		Region:     "TEST",
	}, false, scratchdir, s)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * time.Second)

	u.Stop()

	if !hasReport {
		t.Fatal("backlog report was not uploaded")
	}
}
