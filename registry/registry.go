// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package registry holds the scan pipeline registry and the per-sample
// orchestrator. Pipelines register themselves in their package init
// functions and are imported for side effects by the binary.
package registry

import (
	"bytes"
	"time"

	"github.com/DCSO/deepstrings/ioc"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/report"
	"github.com/DCSO/deepstrings/sample"
	"github.com/DCSO/deepstrings/submitter"

	log "github.com/sirupsen/logrus"
)

// ScanSample runs every eligible pipeline over the sample and collects
// the merged output into a report. Pipelines are independent; an error
// in one drops only that pipeline's output. Oversized samples and
// archives are skipped entirely, which mirrors the caller-side size
// precondition.
func ScanSample(env *Env, s *sample.Sample, pol *policy.Policy) (*report.ScanReport, error) {
	rep := &report.ScanReport{
		Filename: s.Filename,
		SensorID: submitter.SensorID,
		Time:     time.Now().UTC(),
		Size:     int64(len(s.Data)),
		FileType: s.Type,
	}

	hashes, err := report.CalculateBasicHashes(bytes.NewReader(s.Data))
	if err != nil {
		return nil, err
	}
	rep.Hashes = hashes

	if len(s.Data) >= pol.MaxSampleSize {
		log.Debugf("sample %s skipped: %d bytes exceeds scan limit", s.Filename, len(s.Data))
		rep.Skipped = true
		rep.SkipReason = "sample exceeds size limit"
		return rep, nil
	}
	if s.Category == sample.Archive {
		log.Debugf("sample %s skipped: archive", s.Filename)
		rep.Skipped = true
		rep.SkipReason = "archive sample"
		return rep, nil
	}

	tags := make(ioc.TagMap)
	for _, p := range ScanPipelines {
		if !p.Eligible(s.Category) {
			continue
		}
		res, scanErr := p.Scan(env, s, pol)
		if scanErr != nil {
			log.Errorf("pipeline (%s) error processing sample %s: %s", p.Name(), s.Filename, scanErr)
			continue
		}
		if res.Empty() {
			continue
		}
		tags.Merge(res.Tags)
		rep.Sections = append(rep.Sections, res.Sections...)
		rep.Artifacts = append(rep.Artifacts, res.Artifacts...)
		rep.TaggedVia = append(rep.TaggedVia, p.Name())
	}

	if !tags.Empty() {
		rep.Tags = tags.Sorted()
	}
	rep.Suspicious = !tags.Empty() || len(rep.Artifacts) > 0

	return rep, nil
}
