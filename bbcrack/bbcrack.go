// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package bbcrack searches byte buffers for strings and executable
// headers hidden behind simple byte-level masking (XOR, ROL, ADD and
// combinations). The search level trades transform-set depth for cost.
package bbcrack

import (
	"fmt"
	"regexp"
)

// Level selects the transform set used for the search.
type Level int

const (
	// LevelSmallString is the cheapest set, meant for short decoded
	// candidates: single-byte XOR keys only.
	LevelSmallString Level = iota
	// Level1 adds ROL and ADD transforms.
	Level1
	// Level2 additionally tries XOR+ROL combinations.
	Level2
)

// Hit is one signature match in a transformed buffer. Offset and Score
// semantics are internal to this package; consumers pass them through
// to reports unmodified.
type Hit struct {
	// Transform names the byte transform that unmasked the hit.
	Transform string
	// SigName is the matched signature. Names starting with "EXE_"
	// denote executable-header heuristics rather than taggable
	// indicator types.
	SigName string
	// Offset of the match within the transformed buffer.
	Offset int
	// Score is the match length; longer matches are stronger signals.
	Score int
	// Data holds the decoded match. For EXE_HEAD hits it holds the
	// whole unmasked buffer from the match offset onward, so a carver
	// can be applied at its start.
	Data []byte
}

// SigExeHead is the signature name flagging an unmasked executable
// header.
const SigExeHead = "EXE_HEAD"

type signature struct {
	name string
	re   *regexp.Regexp
}

var signatures = []signature{
	{SigExeHead, regexp.MustCompile(`(?s)MZ.{32,1000}.{0,24}PE\x00\x00`)},
	{"EXE_DOS", regexp.MustCompile(`This program cannot be run in DOS mode`)},
	{"network.static.uri", regexp.MustCompile(`(?:https?|ftp)://[\x21-\x7e]{6,}`)},
	{"network.static.ip", regexp.MustCompile(
		`(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`)},
	{"network.email.address", regexp.MustCompile(
		`\b[a-zA-Z0-9._%+-]{1,64}@(?:[a-zA-Z0-9-]{1,63}\.)+[a-zA-Z]{2,12}\b`)},
}

// Cracker is the brute-force search collaborator interface, kept small
// so scan environments can substitute a stub in tests.
type Cracker interface {
	Search(data []byte, level Level) []Hit
}

// BruteForcer is the standard Cracker implementation.
type BruteForcer struct{}

// Search applies every transform of the given level to data and scans
// the result for all signatures. Results are ordered by transform, then
// signature, then offset. The identity transform is never part of a
// set; plain-text hits are the plain-text pipelines' job.
func (b *BruteForcer) Search(data []byte, level Level) []Hit {
	var hits []Hit
	buf := make([]byte, len(data))
	for _, t := range transformSet(level) {
		t.apply(buf, data)
		for _, sig := range signatures {
			for _, loc := range sig.re.FindAllIndex(buf, -1) {
				hit := Hit{
					Transform: t.name(),
					SigName:   sig.name,
					Offset:    loc[0],
					Score:     loc[1] - loc[0],
				}
				if sig.name == SigExeHead {
					hit.Data = append([]byte(nil), buf[loc[0]:]...)
				} else {
					hit.Data = append([]byte(nil), buf[loc[0]:loc[1]]...)
				}
				hits = append(hits, hit)
			}
		}
	}
	return hits
}

type transform interface {
	name() string
	apply(dst, src []byte)
}

type xorTransform struct{ key byte }

func (t xorTransform) name() string { return fmt.Sprintf("XOR %02X", t.key) }

func (t xorTransform) apply(dst, src []byte) {
	for i, b := range src {
		dst[i] = b ^ t.key
	}
}

type rolTransform struct{ bits uint }

func (t rolTransform) name() string { return fmt.Sprintf("ROL %d", t.bits) }

func (t rolTransform) apply(dst, src []byte) {
	for i, b := range src {
		dst[i] = b<<t.bits | b>>(8-t.bits)
	}
}

type addTransform struct{ n byte }

func (t addTransform) name() string { return fmt.Sprintf("ADD %02X", t.n) }

func (t addTransform) apply(dst, src []byte) {
	for i, b := range src {
		dst[i] = b + t.n
	}
}

type xorRolTransform struct {
	key  byte
	bits uint
}

func (t xorRolTransform) name() string {
	return fmt.Sprintf("XOR %02X ROL %d", t.key, t.bits)
}

func (t xorRolTransform) apply(dst, src []byte) {
	for i, b := range src {
		x := b ^ t.key
		dst[i] = x<<t.bits | x>>(8-t.bits)
	}
}

func transformSet(level Level) []transform {
	var set []transform
	for k := 1; k < 256; k++ {
		set = append(set, xorTransform{key: byte(k)})
	}
	if level >= Level1 {
		for b := uint(1); b < 8; b++ {
			set = append(set, rolTransform{bits: b})
		}
		for n := 1; n < 256; n++ {
			set = append(set, addTransform{n: byte(n)})
		}
	}
	if level >= Level2 {
		for k := 1; k < 256; k++ {
			for b := uint(1); b < 8; b++ {
				set = append(set, xorRolTransform{key: byte(k), bits: b})
			}
		}
	}
	return set
}
