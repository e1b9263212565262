// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package hexscan decodes long ascii-hex runs. Large decodes are
// extracted for recursive analysis; small ones are matched for IOCs,
// with an XOR brute-force fallback for short masked strings in code
// samples.
package hexscan

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"

	log "github.com/sirupsen/logrus"
)

// hexRe matches runs of at least 16 hex digit pairs, tolerating
// embedded line breaks.
var hexRe = regexp.MustCompile(`(?:[0-9a-fA-F]{2}\r?\n?){16,}`)

const (
	// minUniqueBytes rejects near-constant decodes outright.
	minUniqueBytes = 7
	// storeThreshold is the decoded size above which content is
	// extracted instead of inspected; such payloads need the higher
	// storeUniqueBytes floor.
	storeThreshold   = 500
	storeUniqueBytes = 20
	// xorMin/xorMax bound the decode sizes handed to the XOR fallback.
	xorMin = 20
	xorMax = 128
)

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "asciihex" }

// Eligible excludes executables, code, archives and Office documents;
// Office formats drown this recognizer in false positives.
func (p *Pipeline) Eligible(c sample.Category) bool {
	return c != sample.Executable && c != sample.Code && c != sample.Archive &&
		c != sample.OfficeDocument
}

// Scan decodes every hex run and classifies the results.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	res := registry.NewResult()

	fileFound := false
	var iocLines []string
	var xorLines []string
	xorIndex := 0

	for _, m := range hexRe.FindAll(s.Data, -1) {
		hexString := []byte(strings.NewReplacer("\r", "", "\n", "").Replace(string(m)))
		if len(hexString)%2 != 0 {
			hexString = hexString[:len(hexString)-1]
		}
		binstr, err := hex.DecodeString(string(hexString))
		if err != nil {
			continue
		}
		uniq := ioc.UniqueBytes(binstr)
		if uniq < minUniqueBytes {
			continue
		}

		if len(binstr) > storeThreshold {
			if uniq < storeUniqueBytes {
				continue
			}
			rec, _, err := env.Store.Put(binstr, "asciihex_decoded",
				"Extracted ascii-hex file during deepstrings analysis")
			if err != nil {
				log.Errorf("could not store decoded ascii-hex data: %s", err)
				continue
			}
			res.Artifacts = append(res.Artifacts, rec)
			fileFound = true
			// no further inspection; recursive analysis of the
			// extracted file takes over
			continue
		}

		tags := ioc.TagsFromData(binstr, env.Patterns, pol, false)
		if !tags.Empty() {
			res.Tags.Merge(tags)
			sorted := tags.Sorted()
			for _, ty := range tags.Types() {
				for _, v := range sorted[ty] {
					iocLines = append(iocLines, fmt.Sprintf(
						"Found %s decoded HEX string: %s",
						strings.ReplaceAll(ty, "_", " "), ioc.SafeString([]byte(v))))
				}
			}
			continue
		}

		// short masked strings only show up in code samples; first hit
		// wins, later hits carry no verified signal
		if len(binstr) > xorMin && len(binstr) <= xorMax && s.Category == sample.Code {
			hits := env.Cracker.Search(binstr, bbcrack.LevelSmallString)
			if len(hits) == 0 {
				continue
			}
			hit := hits[0]
			indicatorType := hit.SigName
			if strings.HasPrefix(hit.SigName, "EXE_") {
				indicatorType = patterns.TypeBlacklisted
			}
			res.Tags.Add(indicatorType, string(hit.Data))
			xorIndex++
			xorLines = append(xorLines,
				fmt.Sprintf("Result %d", xorIndex),
				fmt.Sprintf("Found %s decoded HEX string, masked with transform %s:",
					strings.ReplaceAll(indicatorType, "_", " "), hit.Transform),
				"Decoded XOR string:",
				ioc.SafeString(hit.Data),
				"Original ASCII HEX String:",
				ioc.SafeString(hexString))
		}
	}

	if fileFound {
		res.AddSection("Found Large Ascii Hex Strings in Non-Executable:",
			[]string{"Extracted possible ascii-hex object(s). See extracted files."})
	}
	if len(iocLines) > 0 {
		res.AddSection("ASCII HEX DECODED IOC Strings:", iocLines)
	}
	if len(xorLines) > 0 {
		res.AddSection("ASCII HEX AND XOR DECODED IOC Strings:", xorLines)
	}

	return res, nil
}
