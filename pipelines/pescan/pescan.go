// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package pescan finds executable containers smuggled inside a sample
// and extracts them as content-addressed artifacts.
package pescan

import (
	"github.com/DCSO/deepstrings/carver"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"

	log "github.com/sirupsen/logrus"
)

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "embeddedpe" }

// Eligible runs on everything the orchestrator lets through.
func (p *Pipeline) Eligible(c sample.Category) bool { return c != sample.Archive }

// Scan carves validated executable windows. Scanning starts at offset 1
// so a sample that is itself an executable does not re-extract itself.
// Carving is lenient: when the section table cannot be parsed the
// window is captured to the end of the sample rather than dropped.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	res := registry.NewResult()

	for _, w := range carver.FindWindows(s.Data, 1) {
		rec, extracted, err := carver.Carve(env.Store, w.Data, "embed_pe",
			"PE header strings discovered in sample", carver.Lenient)
		if err != nil {
			log.Errorf("could not store embedded PE at offset %d: %s", w.Start, err)
			continue
		}
		if extracted {
			res.Artifacts = append(res.Artifacts, rec)
		}
	}

	if len(res.Artifacts) > 0 {
		res.AddSection("Embedded PE header discovered in sample. See extracted files.", nil)
	}

	return res, nil
}
