// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package hexscan

import (
	"bytes"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
)

type stubCracker struct {
	hits   []bbcrack.Hit
	called int
}

func (c *stubCracker) Search(data []byte, level bbcrack.Level) []bbcrack.Hit {
	c.called++
	return c.hits
}

func testEnv(t *testing.T, cracker bbcrack.Cracker) (*registry.Env, func()) {
	dir, err := os.MkdirTemp("", "hexscan")
	if err != nil {
		t.Fatal(err)
	}
	store, err := artifacts.NewStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	env := &registry.Env{
		Store:    store,
		Patterns: patterns.NewMatcher(),
		Cracker:  cracker,
	}
	return env, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

func TestScanDecodesIOC(t *testing.T) {
	env, cleanup := testEnv(t, &stubCracker{})
	defer cleanup()

	payload := []byte("connect to http://evil.example.com/x right now!!")
	data := []byte("stuff " + hex.EncodeToString(payload) + " more")

	p := &Pipeline{}
	s := sample.New(data, "document/pdf", "enc.pdf")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Tags[patterns.TypeURI]; !ok {
		t.Fatal("URI tag from decoded hex missing")
	}
	if len(res.Sections) != 1 || res.Sections[0].Title != "ASCII HEX DECODED IOC Strings:" {
		t.Fatalf("unexpected sections: %+v", res.Sections)
	}
	found := false
	for _, l := range res.Sections[0].Lines {
		if strings.Contains(l, "http://evil.example.com/x") {
			found = true
		}
	}
	if !found {
		t.Errorf("decoded IOC line missing: %v", res.Sections[0].Lines)
	}
}

func TestScanToleratesLineBreaks(t *testing.T) {
	env, cleanup := testEnv(t, &stubCracker{})
	defer cleanup()

	payload := []byte("connect to http://evil.example.com/x right now!!")
	hexStr := hex.EncodeToString(payload)
	var broken []byte
	for i := 0; i < len(hexStr); i += 2 {
		broken = append(broken, hexStr[i], hexStr[i+1], '\r', '\n')
	}

	p := &Pipeline{}
	s := sample.New(broken, "document/pdf", "enc.pdf")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Tags[patterns.TypeURI]; !ok {
		t.Fatal("URI tag from line-broken hex missing")
	}
}

func TestScanRejectsLowEntropy(t *testing.T) {
	env, cleanup := testEnv(t, &stubCracker{})
	defer cleanup()

	p := &Pipeline{}
	s := sample.New([]byte(strings.Repeat("41", 40)), "document/pdf", "enc.pdf")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result for constant decode, got %+v", res)
	}
}

func TestScanStoreNeedsEntropy(t *testing.T) {
	env, cleanup := testEnv(t, &stubCracker{})
	defer cleanup()

	// 501 decoded bytes but only 10 distinct values: dropped entirely
	payload := make([]byte, 501)
	for i := range payload {
		payload[i] = byte(i % 10)
	}
	p := &Pipeline{}
	s := sample.New([]byte(hex.EncodeToString(payload)), "document/pdf", "enc.pdf")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Empty() {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestScanStoresLargeDecode(t *testing.T) {
	env, cleanup := testEnv(t, &stubCracker{})
	defer cleanup()

	payload := make([]byte, 501)
	for i := range payload {
		payload[i] = byte(i % 97)
	}
	p := &Pipeline{}
	s := sample.New([]byte(hex.EncodeToString(payload)), "document/pdf", "enc.pdf")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(res.Artifacts))
	}
	if !strings.Contains(res.Artifacts[0].Name, "asciihex_decoded") {
		t.Errorf("wrong artifact name: %s", res.Artifacts[0].Name)
	}
	stored, err := os.ReadFile(res.Artifacts[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stored, payload) {
		t.Error("stored artifact does not round-trip the payload")
	}
	if len(res.Sections) != 1 ||
		res.Sections[0].Title != "Found Large Ascii Hex Strings in Non-Executable:" {
		t.Fatalf("unexpected sections: %+v", res.Sections)
	}
}

func TestScanXORFallbackFirstHitOnly(t *testing.T) {
	cracker := &stubCracker{hits: []bbcrack.Hit{
		{Transform: "XOR 4D", SigName: "network.static.uri", Offset: 0, Score: 24,
			Data: []byte("http://evil.example.com/")},
		{Transform: "XOR 4E", SigName: "network.static.ip", Offset: 0, Score: 7,
			Data: []byte("1.2.3.4")},
	}}
	env, cleanup := testEnv(t, cracker)
	defer cleanup()

	// 30 varied bytes with no direct IOC content
	payload := make([]byte, 30)
	for i := range payload {
		payload[i] = byte(128 + i)
	}
	p := &Pipeline{}
	s := sample.New([]byte(hex.EncodeToString(payload)), "code/vbs", "script.vbs")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if cracker.called != 1 {
		t.Fatalf("cracker called %d times", cracker.called)
	}
	if _, ok := res.Tags["network.static.uri"]; !ok {
		t.Error("first hit tag missing")
	}
	if _, ok := res.Tags["network.static.ip"]; ok {
		t.Error("only the first hit should be used")
	}
	if len(res.Sections) != 1 ||
		res.Sections[0].Title != "ASCII HEX AND XOR DECODED IOC Strings:" {
		t.Fatalf("unexpected sections: %+v", res.Sections)
	}
	foundTransform := false
	for _, l := range res.Sections[0].Lines {
		if strings.Contains(l, "masked with transform XOR 4D") {
			foundTransform = true
		}
	}
	if !foundTransform {
		t.Errorf("transform line missing: %v", res.Sections[0].Lines)
	}
}

func TestScanXORFallbackBlacklistsExeHits(t *testing.T) {
	cracker := &stubCracker{hits: []bbcrack.Hit{
		{Transform: "XOR 11", SigName: "EXE_DOS", Offset: 0, Score: 38,
			Data: []byte("This program cannot be run in DOS mode")},
	}}
	env, cleanup := testEnv(t, cracker)
	defer cleanup()

	payload := make([]byte, 30)
	for i := range payload {
		payload[i] = byte(128 + i)
	}
	p := &Pipeline{}
	s := sample.New([]byte(hex.EncodeToString(payload)), "code/vbs", "script.vbs")
	res, err := p.Scan(env, s, policy.Default())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Tags[patterns.TypeBlacklisted]; !ok {
		t.Error("executable-header hit should tag as blacklisted string")
	}
}

func TestEligible(t *testing.T) {
	p := &Pipeline{}
	for _, c := range []sample.Category{sample.Executable, sample.Code,
		sample.Archive, sample.OfficeDocument} {
		if p.Eligible(c) {
			t.Errorf("category %v should be excluded", c)
		}
	}
	if !p.Eligible(sample.PDFDocument) || !p.Eligible(sample.Other) {
		t.Error("PDF and other samples should be eligible")
	}
}
