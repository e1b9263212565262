// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package xorscan runs the XOR brute-force collaborator over the whole
// sample and reports unmasked strings and executables.
package xorscan

import (
	"fmt"
	"strings"

	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/carver"
	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"

	log "github.com/sirupsen/logrus"
)

const rowFormat = "%-20s %-7v %-7v %-50s"

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "bbcrack" }

// Eligible excludes code samples and archives.
func (p *Pipeline) Eligible(c sample.Category) bool {
	return c != sample.Code && c != sample.Archive
}

// Scan brute-forces byte transforms over the sample. This is the most
// expensive pipeline, so it only runs below the policy's XOR size
// ceiling; deep scans search the wider transform set.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	res := registry.NewResult()

	if len(s.Data) >= pol.MaxXORSampleSize {
		log.Debugf("sample %s: %d bytes exceeds XOR search limit, skipping", s.Filename, len(s.Data))
		return res, nil
	}

	level := bbcrack.Level1
	if pol.DeepScan {
		level = bbcrack.Level2
	}

	var rows []string
	for _, hit := range env.Cracker.Search(s.Data, level) {
		if hit.SigName == bbcrack.SigExeHead {
			rec, extracted, err := carver.Carve(env.Store, hit.Data, "xorpe_decoded",
				"Extracted xor file during deepstrings analysis.", carver.Lenient)
			if err != nil {
				log.Errorf("could not store unmasked PE: %s", err)
				continue
			}
			if extracted {
				res.Artifacts = append(res.Artifacts, rec)
				rows = append(rows, fmt.Sprintf(rowFormat, hit.Transform, hit.Offset,
					hit.Score, "[PE Header Detected. See Extracted files]"))
			}
			continue
		}
		// raw executable-header heuristics are not tag-worthy
		if !strings.HasPrefix(hit.SigName, "EXE_") {
			res.Tags.Add(hit.SigName, string(hit.Data))
		}
		rows = append(rows, fmt.Sprintf(rowFormat, hit.Transform, hit.Offset,
			hit.Score, ioc.SafeString(hit.Data)))
	}

	if len(rows) > 0 {
		header := []string{"Transform", "Offset", "Score", "Decoded String"}
		lines := []string{
			fmt.Sprintf(rowFormat, header[0], header[1], header[2], header[3]),
			fmt.Sprintf(rowFormat,
				strings.Repeat("-", len(header[0])), strings.Repeat("-", len(header[1])),
				strings.Repeat("-", len(header[2])), strings.Repeat("-", len(header[3]))),
		}
		res.AddSection("BBCrack XOR'd Strings:", append(lines, rows...))
	}

	return res, nil
}
