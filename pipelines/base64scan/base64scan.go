// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package base64scan finds and decodes base64 blobs hidden in a sample,
// including blobs broken up by whitespace, line breaks or HTML line
// feed entities, and blobs embedded inside UTF-16 strings.
package base64scan

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
	"github.com/DCSO/deepstrings/strext"

	log "github.com/sirupsen/logrus"
)

var (
	// b64Re matches runs of base64 alphabet chunks with optional
	// padding, interleaved whitespace, line breaks and the HTML line
	// feed entities &#xA; / &#10;.
	b64Re = regexp.MustCompile(`[\x20]{0,2}(?:[A-Za-z0-9+/]{10,}={0,2}(?:&#[x1][A0];)?\r?\n?){2,}`)
	// b64WideRe is the same shape without entities, applied inside
	// extracted UTF-16 strings.
	b64WideRe = regexp.MustCompile(`[\x20]{0,2}(?:[A-Za-z0-9+/]{10,}={0,2}\r?\n?){2,}`)

	separatorReplacer = strings.NewReplacer(
		"\n", "", "\r", "", " ", "", "&#xA;", "", "&#10;", "")
)

// fileTypes are the sniffer categories considered interesting enough to
// extract a decoded blob as a standalone file.
var fileTypes = []string{
	"application",
	"document",
	"executable",
	"image",
	"Microsoft",
	"text",
}

const (
	minCandidateLen = 16
	// extraction bounds for the "possible file contents" branch
	minFileLen = 200
	maxFileLen = 10000000
	// placeholder dumps for extracted content
	msgFileContents  = "[Possible file contents. See extracted files.]"
	msgNonPrintable  = "[IOCs discovered with other non-printable data. See extracted files.]"
	sampleTextLength = 50
)

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "base64" }

// Eligible excludes code samples, which are handled by dedicated
// deobfuscation tooling, and archives.
func (p *Pipeline) Eligible(c sample.Category) bool {
	return c != sample.Code && c != sample.Archive
}

// entry is one reportable decode.
type entry struct {
	candidateLen int
	sampleText   []byte
	sha256       string
	dump         string
	tags         ioc.TagMap
}

// Scan collects base64 candidates from the raw sample and from UTF-16
// strings, deduplicates them globally, and decodes and classifies each.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	res := registry.NewResult()

	seen := make(map[string]bool)
	var candidates [][]byte
	for _, m := range b64Re.FindAll(s.Data, -1) {
		c := []byte(separatorReplacer.Replace(string(m)))
		if seen[string(c)] {
			continue
		}
		seen[string(c)] = true
		candidates = append(candidates, c)
	}
	for _, us := range strext.ExtractUnicode(s.Data, pol.MinStringLength) {
		for _, m := range b64WideRe.FindAll(us.S, -1) {
			c := []byte(separatorReplacer.Replace(string(m)))
			if seen[string(c)] {
				continue
			}
			seen[string(c)] = true
			candidates = append(candidates, c)
		}
	}

	var entries []entry
	for _, c := range candidates {
		// near-constant runs pass the shape regex but cannot be real
		// base64 payloads
		if ioc.UniqueBytes(c) <= 6 {
			continue
		}
		if e, ok := p.decode(env, s, pol, c, res); ok {
			entries = append(entries, e)
		}
	}

	if len(entries) == 0 {
		return res, nil
	}

	var lines []string
	var asciiContent [][]byte
	for i, e := range entries {
		res.Tags.Merge(e.tags)
		lines = append(lines,
			fmt.Sprintf("Result %d", i+1),
			fmt.Sprintf("BASE64 TEXT SIZE: %d", e.candidateLen),
			fmt.Sprintf("BASE64 SAMPLE TEXT: %s[........]", ioc.SafeString(e.sampleText)),
			fmt.Sprintf("DECODED SHA256: %s", e.sha256),
			"DECODED ASCII DUMP:",
			e.dump)
		if e.dump != msgFileContents && e.dump != msgNonPrintable {
			asciiContent = append(asciiContent, []byte(e.dump))
		}
	}
	res.AddSection("Base64 Strings:", lines)

	// all non-extracted decoded content goes into one collected file
	if len(asciiContent) > 0 {
		all := bytes.Join(asciiContent, []byte("\n"))
		rec, _, err := env.Store.Put(all, "misc_b64.txt", "all misc decoded b64 from sample")
		if err != nil {
			log.Errorf("error while adding extracted b64 content: %s", err)
		} else {
			res.Artifacts = append(res.Artifacts, rec)
		}
	}

	return res, nil
}

// decode attempts to decode one candidate and classify the result. A
// malformed candidate is dropped silently.
func (p *Pipeline) decode(env *registry.Env, s *sample.Sample, pol *policy.Policy,
	candidate []byte, res *registry.Result) (entry, bool) {
	if len(candidate) < minCandidateLen || len(candidate)%4 != 0 {
		return entry{}, false
	}
	decoded, err := base64.StdEncoding.DecodeString(string(candidate))
	if err != nil {
		return entry{}, false
	}
	sum := fmt.Sprintf("%x", sha256.Sum256(decoded))

	sampleText := candidate
	if len(sampleText) > sampleTextLength {
		sampleText = sampleText[:sampleTextLength]
	}
	e := entry{
		candidateLen: len(candidate),
		sampleText:   sampleText,
		sha256:       sum,
		tags:         make(ioc.TagMap),
	}

	// embedded files of interest are extracted and not inspected
	// further; recursive analysis of the stored artifact takes over
	if len(decoded) > minFileLen && len(decoded) < maxFileLen {
		mime, desc := env.Sniffer.Sniff(decoded)
		for _, ft := range fileTypes {
			if (strings.Contains(mime, ft) && !strings.Contains(mime, "octet-stream")) ||
				strings.Contains(desc, ft) {
				rec, _, err := env.Store.Put(decoded, "b64_decoded",
					"Extracted b64 file during deepstrings analysis")
				if err != nil {
					log.Errorf("could not store decoded b64 file: %s", err)
					return entry{}, false
				}
				res.Artifacts = append(res.Artifacts, rec)
				e.dump = msgFileContents
				return e, true
			}
		}
	}

	tags := ioc.TagsFromData(decoded, env.Patterns, pol, false)

	printable := make([]byte, 0, len(decoded))
	for _, b := range decoded {
		if b > 31 && b < 127 {
			printable = append(printable, b)
		}
	}

	if len(printable) > 0 {
		if !tags.Empty() {
			e.tags = tags
			e.dump = ioc.SafeString(printable)
			return e, true
		}
		// no indicator hits: report only when the printable content
		// looks interesting on its own; PDF and Office documents have
		// too many false positives here
		if !s.IsOfficeOrPDF() &&
			ioc.UniqueBytes(printable) > 12 && alnumLength(printable) > 50 {
			e.dump = ioc.SafeString(printable)
			return e, true
		}
		return entry{}, false
	}

	if !tags.Empty() {
		rec, _, err := env.Store.Put(decoded, "b64_decoded",
			"Extracted b64 file during deepstrings analysis")
		if err != nil {
			log.Errorf("could not store decoded b64 file: %s", err)
			return entry{}, false
		}
		res.Artifacts = append(res.Artifacts, rec)
		e.tags = tags
		e.dump = msgNonPrintable
		return e, true
	}

	return entry{}, false
}

func alnumLength(data []byte) int {
	n := 0
	for _, b := range data {
		if b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' {
			n++
		}
	}
	return n
}
