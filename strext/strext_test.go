// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package strext

import (
	"bytes"
	"testing"
)

func wide(s string) []byte {
	out := make([]byte, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}

func TestExtractASCII(t *testing.T) {
	data := []byte("\x00\x01HelloWorldString\xff\x90abc\x00LongerRunHere!")
	strs := ExtractASCII(data, 7)
	if len(strs) != 2 {
		t.Fatalf("wrong number of strings: %d", len(strs))
	}
	if !bytes.Equal(strs[0].S, []byte("HelloWorldString")) {
		t.Fatalf("wrong first string: %q", strs[0].S)
	}
	if strs[0].Offset != 2 {
		t.Fatalf("wrong first offset: %d", strs[0].Offset)
	}
	if !bytes.Equal(strs[1].S, []byte("LongerRunHere!")) {
		t.Fatalf("wrong second string: %q", strs[1].S)
	}
}

func TestExtractASCIIMinLength(t *testing.T) {
	strs := ExtractASCII([]byte("\x00abc\x01def\x02"), 4)
	if len(strs) != 0 {
		t.Fatalf("expected no strings, got %d", len(strs))
	}
}

func TestExtractUnicode(t *testing.T) {
	data := append([]byte{0x00, 0x01}, wide("EvilDomain.com")...)
	data = append(data, 0xff)
	strs := ExtractUnicode(data, 7)
	if len(strs) != 1 {
		t.Fatalf("wrong number of strings: %d", len(strs))
	}
	if !bytes.Equal(strs[0].S, []byte("EvilDomain.com")) {
		t.Fatalf("wrong decoded string: %q", strs[0].S)
	}
	if strs[0].Offset != 2 {
		t.Fatalf("wrong offset: %d", strs[0].Offset)
	}
}

func TestExtractUnicodeIgnoresPlainASCII(t *testing.T) {
	strs := ExtractUnicode([]byte("just a plain ASCII string"), 7)
	if len(strs) != 0 {
		t.Fatalf("expected no strings, got %d", len(strs))
	}
}
