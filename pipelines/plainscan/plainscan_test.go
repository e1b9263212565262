// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package plainscan

import (
	"strings"
	"testing"

	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
)

func testEnv() *registry.Env {
	return &registry.Env{Patterns: patterns.NewMatcher()}
}

func TestScanPlainIOC(t *testing.T) {
	p := &Pipeline{}
	s := sample.New([]byte("malware calls home to http://evil.example.com/gate.php here"),
		"text/plain", "sample.txt")

	res, err := p.Scan(testEnv(), s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if res.Empty() {
		t.Fatal("expected tags")
	}
	if _, ok := res.Tags[patterns.TypeURI]; !ok {
		t.Error("URI tag missing")
	}
	if len(res.Sections) != 1 {
		t.Fatalf("expected one section, got %d", len(res.Sections))
	}
	if res.Sections[0].Title != "The following IOC were found in plain text in the file:" {
		t.Errorf("wrong section title: %s", res.Sections[0].Title)
	}
	found := false
	for _, l := range res.Sections[0].Lines {
		if l == "Found NETWORK STATIC URI string: http://evil.example.com/gate.php" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected URI line, got %v", res.Sections[0].Lines)
	}
}

func TestScanCodeSkipsLengthChecks(t *testing.T) {
	p := &Pipeline{}
	data := []byte("Set o = CreateObject x : o.Run VirtualAllocEx etc")

	// code samples are matched without the network-only fallback
	s := sample.New(data, "code/vbs", "script.vbs")
	res, err := p.Scan(testEnv(), s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Tags[patterns.TypeAPI]; !ok {
		t.Error("API tag missing for code sample")
	}

	// other samples with the default profile degrade to network-only
	s = sample.New(data, "text/plain", "note.txt")
	res, err = p.Scan(testEnv(), s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Tags[patterns.TypeAPI]; ok {
		t.Error("API tag present despite network-only fallback")
	}
}

func TestScanClean(t *testing.T) {
	p := &Pipeline{}
	s := sample.New([]byte("nothing interesting in this perfectly harmless text at all"),
		"text/plain", "clean.txt")
	res, err := p.Scan(testEnv(), s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result, got %v", res.Tags)
	}
}

func TestEligible(t *testing.T) {
	p := &Pipeline{}
	for _, c := range []sample.Category{sample.Other, sample.Code, sample.Executable,
		sample.OfficeDocument, sample.PDFDocument, sample.Image} {
		if !p.Eligible(c) {
			t.Errorf("category %v should be eligible", c)
		}
	}
}

func TestScanLongStringsCapped(t *testing.T) {
	p := &Pipeline{}
	// a single run beyond the length cap is skipped entirely
	data := []byte("padding " + strings.Repeat("x", 6000) + " http://evil.example.com/x")
	s := sample.New(data, "text/plain", "long.txt")
	res, err := p.Scan(testEnv(), s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result for overlong string, got %v", res.Tags)
	}
}
