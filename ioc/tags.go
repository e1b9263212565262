// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package ioc turns raw bytes into indicator-of-compromise tags by
// running extracted printable strings through the pattern matcher.
package ioc

import (
	"fmt"
	"sort"

	"github.com/DCSO/deepstrings/patterns"
	"github.com/DCSO/deepstrings/policy"
	"github.com/DCSO/deepstrings/strext"
)

// MaxTagValueLength is the hard cap on a single tag value; longer
// matches are dropped to bound reporting cost.
const MaxTagValueLength = 1000

// TagMap maps indicator types to their unique matched values.
type TagMap map[string]map[string]bool

// Add records a value under an indicator type. Values longer than
// MaxTagValueLength are dropped.
func (t TagMap) Add(indicatorType, value string) {
	if len(value) > MaxTagValueLength {
		return
	}
	if t[indicatorType] == nil {
		t[indicatorType] = make(map[string]bool)
	}
	t[indicatorType][value] = true
}

// Merge folds all entries of other into t.
func (t TagMap) Merge(other TagMap) {
	for ty, vals := range other {
		for v := range vals {
			t.Add(ty, v)
		}
	}
}

// Empty reports whether no tag was recorded.
func (t TagMap) Empty() bool {
	return len(t) == 0
}

// Sorted returns the tag map with values sorted for stable report
// output.
func (t TagMap) Sorted() map[string][]string {
	out := make(map[string][]string, len(t))
	for ty, vals := range t {
		vs := make([]string, 0, len(vals))
		for v := range vals {
			vs = append(vs, v)
		}
		sort.Strings(vs)
		out[ty] = vs
	}
	return out
}

// Types returns the sorted list of indicator types present.
func (t TagMap) Types() []string {
	ts := make([]string, 0, len(t))
	for ty := range t {
		ts = append(ts, ty)
	}
	sort.Strings(ts)
	return ts
}

// TagsFromData extracts printable ASCII and UTF-16 strings from data and
// matches each against the pattern library.
//
// With checkLength set the extraction minimum is the policy minimum and
// strings at or above MaxStringLength are skipped; without it a minimum
// of 4 is used and nothing is capped (code samples filter differently
// downstream). If the deduplicated string set grows beyond the policy
// ceiling, matching degrades to network-only indicators for this call.
// Domain and email values failing strict syntax validation are silently
// dropped.
func TagsFromData(data []byte, m *patterns.Matcher, pol *policy.Policy, checkLength bool) TagMap {
	minLen := 4
	if checkLength {
		minLen = pol.MinStringLength
	}

	strs := make(map[string]bool)
	for _, as := range strext.ExtractASCII(data, minLen) {
		if checkLength && len(as.S) >= pol.MaxStringLength {
			continue
		}
		strs[string(as.S)] = true
	}
	for _, us := range strext.ExtractUnicode(data, minLen) {
		if checkLength && len(us.S) >= pol.MaxStringLength {
			continue
		}
		strs[string(us.S)] = true
	}

	networkOnly := checkLength && len(strs) > pol.MaxStringSetSize

	tags := make(TagMap)
	for s := range strs {
		for ty, vals := range m.Match([]byte(s), networkOnly) {
			for _, v := range vals {
				if ty == patterns.TypeDomain && !patterns.IsValidDomain(string(v)) {
					continue
				}
				if ty == patterns.TypeEmail && !patterns.IsValidEmail(string(v)) {
					continue
				}
				tags.Add(ty, string(v))
			}
		}
	}
	return tags
}

// UniqueBytes counts the distinct byte values in data. Pipelines use
// this as a cheap entropy gate against near-constant candidates.
func UniqueBytes(data []byte) int {
	var seen [256]bool
	n := 0
	for _, b := range data {
		if !seen[b] {
			seen[b] = true
			n++
		}
	}
	return n
}

// SafeString renders arbitrary bytes as a printable string, escaping
// everything outside the printable ASCII range.
func SafeString(data []byte) string {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b == '\n' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			out = append(out, b)
		} else {
			out = append(out, []byte(fmt.Sprintf("\\x%02x", b))...)
		}
	}
	return string(out)
}
