// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package unicodescan decodes payloads hidden in hex-encoded escape
// notation such as \u00XX, %uXXXX or &HXX runs. Each of five known
// escape markers is tried with four word sizes; words are stored
// little-endian, so hex digit pairs are read back-to-front within each
// word.
package unicodescan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync"

	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"

	log "github.com/sirupsen/logrus"
)

// Markers are the escape prefixes recognized in front of hex digit
// runs. &H is the hex notation used in VBA.
var Markers = []string{`\u`, `%u`, `\x`, `0x`, `&H`}

// wordDigits are the hex digit counts tried per marker, largest first:
// 8-, 4-, 2- and 1-byte little-endian words.
var wordDigits = []int{16, 8, 4, 2}

const (
	// minRepresentative is the minimum length of a selected encoded run
	// before decoding is attempted.
	minRepresentative = 50
	// minDecoded discards trivially short decodes.
	minDecoded = 30
	// storeThreshold is the decoded size at which content is persisted
	// instead of returned inline.
	storeThreshold = 500
	// sampleLen is the length of the encoded-text prefix kept for the
	// report.
	sampleLen = 200
)

var (
	mutex   sync.Mutex
	regexps = make(map[string]*regexp.Regexp)
)

func runRe(marker string, digits int) *regexp.Regexp {
	key := fmt.Sprintf("%s/%d", marker, digits)
	mutex.Lock()
	defer mutex.Unlock()
	re, ok := regexps[key]
	if !ok {
		re = regexp.MustCompile(fmt.Sprintf(`(?:%s[A-Fa-f0-9]{%d})+`,
			regexp.QuoteMeta(marker), digits))
		regexps[key] = re
	}
	return re
}

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "hexunicode" }

// Eligible excludes executables and code samples; both encode strings
// this way legitimately far too often.
func (p *Pipeline) Eligible(c sample.Category) bool {
	return c != sample.Executable && c != sample.Code && c != sample.Archive
}

// inlineResult is a decoded payload small enough to be reported inline
// and rescanned for IOCs.
type inlineResult struct {
	length  int
	sample  []byte
	content []byte
}

// Scan runs the decoder for every marker and accumulates stored and
// inline results.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	res := registry.NewResult()

	inline := make(map[string]inlineResult)
	var droppedLines []string

	for _, marker := range Markers {
		if !runRe(marker, 2).Match(s.Data) {
			continue
		}
		for _, digits := range wordDigits {
			encoded := selectRepresentative(runRe(marker, digits).FindAll(s.Data, -1))
			if len(encoded) <= minRepresentative {
				continue
			}
			decoded := decodeRuns(encoded, len(marker), digits/2)
			if len(decoded) <= minDecoded {
				continue
			}
			uniq := ioc.UniqueBytes(decoded)
			sum := fmt.Sprintf("%x", sha256.Sum256(decoded))
			if len(decoded) >= storeThreshold {
				if uniq <= 20 {
					continue
				}
				rec, _, err := env.Store.Put(decoded,
					fmt.Sprintf("enchex_%s_decoded", ioc.SafeString([]byte(marker))),
					"Extracted unicode file during deepstrings analysis")
				if err != nil {
					log.Errorf("could not store decoded unicode data: %s", err)
					continue
				}
				res.Artifacts = append(res.Artifacts, rec)
				droppedLines = append(droppedLines, fmt.Sprintf(
					"Extracted over 50 bytes of possible embedded unicode with "+
						"%s encoding. SHA256: %s. See extracted files.",
					ioc.SafeString([]byte(marker)), sum))
			} else if uniq > 6 {
				prefix := encoded
				if len(prefix) > sampleLen {
					prefix = prefix[:sampleLen]
				}
				inline[sum] = inlineResult{
					length:  len(decoded),
					sample:  prefix,
					content: decoded,
				}
			}
		}
	}

	if len(inline) == 0 && len(droppedLines) == 0 {
		return res, nil
	}

	var lines []string
	index := 0
	for sum, ir := range inline {
		index++
		lines = append(lines,
			fmt.Sprintf("Result %d", index),
			fmt.Sprintf("DECODED TEXT SIZE: %d", ir.length),
			fmt.Sprintf("ENCODED SAMPLE TEXT: %s[........]", ioc.SafeString(ir.sample)),
			fmt.Sprintf("DECODED SHA256: %s", sum),
			"DECODED ASCII DUMP:",
			ioc.SafeString(ir.content))
		hits := ioc.TagsFromData(ir.content, env.Patterns, pol, false)
		if !hits.Empty() {
			res.Tags.Merge(hits)
			lines = append(lines, "Suspicious string(s) found in decoded data.")
		}
	}
	lines = append(lines, droppedLines...)
	res.AddSection("Found Unicode-Like Strings in Non-Executable:", lines)

	return res, nil
}

// selectRepresentative picks the single run to decode for one word
// size: if every run has identical length the signal is their union, so
// all runs concatenate in discovery order; otherwise a single longest
// run wins if it exceeds the representative minimum; otherwise there is
// no usable signal.
func selectRepresentative(runs [][]byte) []byte {
	if len(runs) == 0 {
		return nil
	}
	longest := runs[0]
	allEqual := true
	for _, r := range runs[1:] {
		if len(r) != len(longest) {
			allEqual = false
		}
		if len(r) > len(longest) {
			longest = r
		}
	}
	if allEqual {
		var joined []byte
		for _, r := range runs {
			joined = append(joined, r...)
		}
		return joined
	}
	if len(longest) > minRepresentative {
		return longest
	}
	return nil
}

// decodeRuns reconstructs the payload from a run of marker-prefixed
// little-endian hex words: per word, hex digit pairs are decoded
// back-to-front; words concatenate in original order.
func decodeRuns(encoded []byte, markerLen int, wordBytes int) []byte {
	chunkLen := markerLen + 2*wordBytes
	decoded := make([]byte, 0, len(encoded)/chunkLen*wordBytes)
	for off := 0; off+chunkLen <= len(encoded); off += chunkLen {
		hexPart := encoded[off+markerLen : off+chunkLen]
		for i := wordBytes - 1; i >= 0; i-- {
			b, err := hex.DecodeString(string(hexPart[2*i : 2*i+2]))
			if err != nil {
				return nil
			}
			decoded = append(decoded, b...)
		}
	}
	return decoded
}
