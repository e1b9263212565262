// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package policy holds the numeric thresholds that control every
// heuristic cutoff in the scan engine. A Policy carries no behaviour;
// callers pick a profile and hand it to the pipelines unchanged.
package policy

// Policy bundles all tunable limits for one engine invocation.
type Policy struct {
	// MinStringLength is the minimum length for extracted strings fed to
	// the IOC matcher. Unless the pattern library is extended this should
	// remain at 7.
	MinStringLength int
	// MaxStringLength caps the length of strings that are considered at
	// all when length checking is enabled.
	MaxStringLength int
	// MaxStringSetSize is the size of the deduplicated string set above
	// which the matcher is switched to network-only indicators.
	MaxStringSetSize int
	// MaxSampleSize is the largest sample the engine will look at.
	MaxSampleSize int
	// MaxXORSampleSize is the largest sample the XOR brute-force
	// pipeline will be run on; it is by far the most expensive pipeline.
	MaxXORSampleSize int
	// DeepScan widens limits and raises the XOR search level.
	DeepScan bool
}

// Default returns the standard submission profile.
func Default() *Policy {
	return &Policy{
		MinStringLength:  7,
		MaxStringLength:  5000,
		MaxStringSetSize: 0,
		MaxSampleSize:    3000000,
		MaxXORSampleSize: 85000,
		DeepScan:         false,
	}
}

// DeepScan returns the widened profile used for deep-scan submissions.
func DeepScan() *Policy {
	return &Policy{
		MinStringLength:  7,
		MaxStringLength:  1000000,
		MaxStringSetSize: 1000000,
		MaxSampleSize:    8000000,
		MaxXORSampleSize: 200000,
		DeepScan:         true,
	}
}
