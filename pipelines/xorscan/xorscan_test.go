// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package xorscan

import (
	"os"
	"strings"
	"testing"

	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
)

type stubCracker struct {
	hits      []bbcrack.Hit
	called    int
	lastLevel bbcrack.Level
}

func (c *stubCracker) Search(data []byte, level bbcrack.Level) []bbcrack.Hit {
	c.called++
	c.lastLevel = level
	return c.hits
}

func fakePE() []byte {
	data := append([]byte("MZ"), make([]byte, 40)...)
	data = append(data, []byte("PE\x00\x00")...)
	data = append(data, []byte("This program cannot be run in DOS mode and more")...)
	return data
}

func testEnv(t *testing.T, cracker bbcrack.Cracker) (*registry.Env, func()) {
	dir, err := os.MkdirTemp("", "xorscan")
	if err != nil {
		t.Fatal(err)
	}
	store, err := artifacts.NewStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return &registry.Env{Store: store, Cracker: cracker}, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

func TestScanReportsHits(t *testing.T) {
	pe := fakePE()
	cracker := &stubCracker{hits: []bbcrack.Hit{
		{Transform: "XOR 5A", SigName: bbcrack.SigExeHead, Offset: 16, Score: 46, Data: pe},
		{Transform: "XOR 5A", SigName: "network.static.uri", Offset: 600, Score: 28,
			Data: []byte("http://evil.example.com/gate")},
		{Transform: "ROL 3", SigName: "EXE_DOS", Offset: 20, Score: 38,
			Data: []byte("This program cannot be run in DOS mode")},
	}}
	env, cleanup := testEnv(t, cracker)
	defer cleanup()

	p := &Pipeline{}
	s := sample.New([]byte("masked sample content"), "unknown", "blob.bin")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(res.Artifacts))
	}
	if !strings.Contains(res.Artifacts[0].Name, "xorpe_decoded") {
		t.Errorf("wrong artifact name: %s", res.Artifacts[0].Name)
	}
	if res.Artifacts[0].Size != int64(len(pe)) {
		t.Errorf("wrong artifact size: %d", res.Artifacts[0].Size)
	}

	if _, ok := res.Tags["network.static.uri"]; !ok {
		t.Error("URI tag missing")
	}
	// executable-header heuristics are reported but never tagged
	if len(res.Tags) != 1 {
		t.Errorf("unexpected tags: %v", res.Tags)
	}

	if len(res.Sections) != 1 || res.Sections[0].Title != "BBCrack XOR'd Strings:" {
		t.Fatalf("unexpected sections: %+v", res.Sections)
	}
	// header, separator and three hit rows
	if len(res.Sections[0].Lines) != 5 {
		t.Fatalf("unexpected line count: %d", len(res.Sections[0].Lines))
	}
	if !strings.Contains(res.Sections[0].Lines[2], "[PE Header Detected. See Extracted files]") {
		t.Errorf("PE row missing: %v", res.Sections[0].Lines)
	}
}

func TestScanSizeGate(t *testing.T) {
	cracker := &stubCracker{}
	env, cleanup := testEnv(t, cracker)
	defer cleanup()

	pol := policy.Default()
	p := &Pipeline{}
	s := sample.New(make([]byte, pol.MaxXORSampleSize), "unknown", "big.bin")
	res, err := p.Scan(env, s, pol)
	if err != nil {
		t.Fatal(err)
	}
	if cracker.called != 0 {
		t.Error("cracker should not run above the size ceiling")
	}
	if !res.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestScanLevelSelection(t *testing.T) {
	cracker := &stubCracker{}
	env, cleanup := testEnv(t, cracker)
	defer cleanup()

	p := &Pipeline{}
	s := sample.New([]byte("small sample"), "unknown", "blob.bin")

	if _, err := p.Scan(env, s, policy.Default()); err != nil {
		t.Fatal(err)
	}
	if cracker.lastLevel != bbcrack.Level1 {
		t.Errorf("expected level 1 for default profile, got %v", cracker.lastLevel)
	}

	if _, err := p.Scan(env, s, policy.DeepScan()); err != nil {
		t.Fatal(err)
	}
	if cracker.lastLevel != bbcrack.Level2 {
		t.Errorf("expected level 2 for deep profile, got %v", cracker.lastLevel)
	}
}

func TestEligible(t *testing.T) {
	p := &Pipeline{}
	if p.Eligible(sample.Code) || p.Eligible(sample.Archive) {
		t.Error("code and archives should be excluded")
	}
	if !p.Eligible(sample.Executable) || !p.Eligible(sample.Other) {
		t.Error("executables and other samples should be eligible")
	}
}
