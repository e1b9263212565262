// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package plainscan reports IOCs visible in plain ASCII or UTF-16 text
// without any decoding.
package plainscan

import (
	"fmt"
	"strings"

	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/registry"
	"github.com/DCSO/deepstrings/sample"
)

func init() {
	registry.RegisterPipeline(&Pipeline{})
}

// Pipeline is the helper struct to implement the registry interface.
type Pipeline struct{}

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return "plainstrings" }

// Eligible runs on every sample category.
func (p *Pipeline) Eligible(c sample.Category) bool { return true }

// Scan extracts printable strings and matches them against the IOC
// pattern library. Length capping is disabled for code samples, which
// are filtered differently downstream.
func (p *Pipeline) Scan(env *registry.Env, s *sample.Sample, pol *policy.Policy) (*registry.Result, error) {
	checkLength := s.Category != sample.Code

	tags := ioc.TagsFromData(s.Data, env.Patterns, pol, checkLength)
	res := registry.NewResult()
	if tags.Empty() {
		return res, nil
	}
	res.Tags = tags

	var lines []string
	sorted := tags.Sorted()
	for _, ty := range tags.Types() {
		label := strings.ToUpper(strings.ReplaceAll(ty, ".", " "))
		for _, v := range sorted[ty] {
			lines = append(lines, fmt.Sprintf("Found %s string: %s", label, ioc.SafeString([]byte(v))))
		}
	}
	res.AddSection("The following IOC were found in plain text in the file:", lines)
	return res, nil
}
