// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package registry

import (
	"github.com/DCSO/deepstrings/artifacts"
	"github.com/DCSO/deepstrings/bbcrack"
	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/report"
	"github.com/DCSO/deepstrings/sample"
	"github.com/DCSO/deepstrings/sniff"
)

// ScanPipelines is the iterable collection of all registered pipelines.
var ScanPipelines []Pipeline

// Pipeline is one decode-and-classify strategy run over a sample. All
// pipelines are read-only over the sample and policy; artifact
// persistence goes through the shared store in the Env.
type Pipeline interface {
	Name() string
	Eligible(c sample.Category) bool
	Scan(env *Env, s *sample.Sample, pol *policy.Policy) (*Result, error)
}

// RegisterPipeline makes a scan pipeline available for usage.
func RegisterPipeline(p Pipeline) {
	ScanPipelines = append(ScanPipelines, p)
}

// Env bundles the collaborators shared by all pipelines during one scan.
type Env struct {
	// Store receives extracted artifacts, deduplicated by content hash.
	Store *artifacts.Store
	// Patterns is the IOC pattern matcher.
	Patterns *patterns.Matcher
	// Sniffer is the file type detector used by the base64 pipeline.
	Sniffer sniff.Sniffer
	// Cracker is the XOR brute-force collaborator.
	Cracker bbcrack.Cracker
}

// Result is what a pipeline returns for one sample: tags, report
// sections and references to any artifacts it persisted. A nil or empty
// Result means the pipeline found nothing.
type Result struct {
	Tags      ioc.TagMap
	Sections  []report.Section
	Artifacts []artifacts.Record
}

// NewResult returns an empty Result ready for accumulation.
func NewResult() *Result {
	return &Result{Tags: make(ioc.TagMap)}
}

// Empty reports whether the pipeline produced no output at all.
func (r *Result) Empty() bool {
	return r == nil || (r.Tags.Empty() && len(r.Sections) == 0 && len(r.Artifacts) == 0)
}

// AddSection appends a titled block of report lines.
func (r *Result) AddSection(title string, lines []string) {
	r.Sections = append(r.Sections, report.Section{Title: title, Lines: lines})
}
