// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package strext extracts printable ASCII and UTF-16LE strings from raw
// byte buffers, in the manner of FLARE FLOSS static string extraction.
package strext

import (
	"fmt"
	"regexp"
	"sync"
)

// printable is the ASCII range accepted in extracted strings: space
// through tilde plus tab.
const printable = `\x20-\x7e\t`

// String is one extracted printable run and its position in the buffer.
type String struct {
	S      []byte
	Offset int
}

var (
	mutex          sync.Mutex
	asciiRegexps   = make(map[int]*regexp.Regexp)
	unicodeRegexps = make(map[int]*regexp.Regexp)
)

func cachedRe(cache map[int]*regexp.Regexp, format string, minLen int) *regexp.Regexp {
	mutex.Lock()
	defer mutex.Unlock()
	re, ok := cache[minLen]
	if !ok {
		re = regexp.MustCompile(fmt.Sprintf(format, printable, minLen))
		cache[minLen] = re
	}
	return re
}

func asciiRe(minLen int) *regexp.Regexp {
	return cachedRe(asciiRegexps, `[%s]{%d,}`, minLen)
}

func unicodeRe(minLen int) *regexp.Regexp {
	return cachedRe(unicodeRegexps, `(?:[%s]\x00){%d,}`, minLen)
}

// ExtractASCII returns all printable ASCII runs of at least minLen
// bytes, in buffer order.
func ExtractASCII(data []byte, minLen int) []String {
	if minLen < 1 {
		minLen = 1
	}
	var out []String
	for _, loc := range asciiRe(minLen).FindAllIndex(data, -1) {
		out = append(out, String{S: data[loc[0]:loc[1]], Offset: loc[0]})
	}
	return out
}

// ExtractUnicode returns all UTF-16LE runs of at least minLen printable
// characters, decoded to their ASCII byte values, in buffer order.
// Characters outside the printable ASCII range terminate a run, so the
// decode is a simple deinterleave.
func ExtractUnicode(data []byte, minLen int) []String {
	if minLen < 1 {
		minLen = 1
	}
	var out []String
	for _, loc := range unicodeRe(minLen).FindAllIndex(data, -1) {
		raw := data[loc[0]:loc[1]]
		s := make([]byte, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			s = append(s, raw[i])
		}
		out = append(out, String{S: s, Offset: loc[0]})
	}
	return out
}
