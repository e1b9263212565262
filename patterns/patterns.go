// Deepstrings
// Copyright (c) 2026, DCSO GmbH

// Package patterns holds the compiled IOC pattern library used to
// classify byte strings into indicator types. All built-in patterns are
// compiled once at construction and shared between pipelines;
// supplementary pattern files can be merged in at startup.
package patterns

import (
	"regexp"
	"sync"
)

// Indicator type names, following the usual taxonomy for network and
// file string indicators.
const (
	TypeIP          = "network.static.ip"
	TypeDomain      = "network.static.domain"
	TypeURI         = "network.static.uri"
	TypeEmail       = "network.email.address"
	TypeAPI         = "file.string.api"
	TypeBlacklisted = "file.string.blacklisted"
)

// networkTypes are the indicator types still evaluated in network-only
// mode, used to bound matcher cost on string-rich samples.
var networkTypes = map[string]bool{
	TypeIP:     true,
	TypeDomain: true,
	TypeURI:    true,
	TypeEmail:  true,
}

// Pattern is one compiled indicator pattern.
type Pattern struct {
	Type  string
	Regex *regexp.Regexp
}

// Matcher is a compiled set of IOC patterns. It is safe for concurrent
// use once built.
type Matcher struct {
	mu       sync.RWMutex
	patterns []*Pattern
}

const (
	reIPv4 = `(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
		`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`
	reDomain = `(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+` +
		`(?:com|net|org|info|biz|io|ru|cn|de|uk|fr|nl|eu|top|xyz|cc|tv|me|su|` +
		`onion|gov|edu|mil|int|co|us|br|in|jp|kr|pl|it|es|se|no|ch|at|be|dk|cz|` +
		`ua|tk|ml|ga|cf|gq|pw|ws|click|link|site|online|club)\b`
	reURI = `(?:https?|ftp|tftp)://[^\x00-\x20"'<>\\\^` + "`" + `{|}]{4,}`
	reEmail = `\b[a-zA-Z0-9._%+-]{1,64}@` +
		`(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,12}\b`
)

// apiNames covers process, memory and network APIs commonly abused by
// loaders and droppers.
var apiNames = []string{
	"VirtualAlloc(?:Ex)?", "VirtualProtect(?:Ex)?", "WriteProcessMemory",
	"ReadProcessMemory", "CreateRemoteThread(?:Ex)?", "QueueUserAPC",
	"SetWindowsHookEx", "SetThreadContext", "NtUnmapViewOfSection",
	"LoadLibrary(?:Ex)?[AW]?", "GetProcAddress", "ShellExecute[AW]?",
	"WinExec", "URLDownloadToFile[AW]?", "InternetOpen(?:Url)?[AW]?",
	"InternetConnect[AW]?", "WSAStartup", "CreateProcess[AW]?",
	"RegSetValue(?:Ex)?[AW]?", "RegCreateKey(?:Ex)?[AW]?",
	"AdjustTokenPrivileges", "IsDebuggerPresent", "GetTickCount",
}

// blacklistedStrings are fragments that have no business in benign
// documents or decoded payloads.
var blacklistedStrings = []string{
	`This program cannot be run in DOS mode`,
	`(?i)powershell(?:\.exe)?\s+-(?:e|enc|encodedcommand|nop|noprofile|w hidden)`,
	`(?i)cmd(?:\.exe)?\s*/c\s`,
	`(?i)regsvr32(?:\.exe)?\s`,
	`(?i)rundll32(?:\.exe)?\s`,
	`(?i)wscript\.shell`,
	`(?i)mshta(?:\.exe)?\s`,
	`(?i)certutil(?:\.exe)?\s+-urlcache`,
	`(?i)schtasks\s+/create`,
	`(?i)bitsadmin\s+/transfer`,
	`\\\\\.\\PhysicalDrive[0-9]`,
	`(?i)SOFTWARE\\Microsoft\\Windows\\CurrentVersion\\Run`,
}

// NewMatcher builds the Matcher with the built-in pattern library.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.add(TypeIP, reIPv4)
	m.add(TypeDomain, reDomain)
	m.add(TypeURI, reURI)
	m.add(TypeEmail, reEmail)
	for _, api := range apiNames {
		m.add(TypeAPI, `\b`+api+`\b`)
	}
	for _, bl := range blacklistedStrings {
		m.add(TypeBlacklisted, bl)
	}
	return m
}

func (m *Matcher) add(indicatorType, expr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, &Pattern{
		Type:  indicatorType,
		Regex: regexp.MustCompile(expr),
	})
}

// NumPatterns returns the number of compiled patterns.
func (m *Matcher) NumPatterns() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patterns)
}

// Match classifies data into indicator type -> matched value sets. With
// networkOnly set, only network indicator types are evaluated. Values
// within a type are unique; order is match order.
func (m *Matcher) Match(data []byte, networkOnly bool) map[string][][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][][]byte)
	seen := make(map[string]map[string]bool)
	for _, p := range m.patterns {
		if networkOnly && !networkTypes[p.Type] {
			continue
		}
		for _, v := range p.Regex.FindAll(data, -1) {
			if seen[p.Type] == nil {
				seen[p.Type] = make(map[string]bool)
			}
			if seen[p.Type][string(v)] {
				continue
			}
			seen[p.Type][string(v)] = true
			out[p.Type] = append(out[p.Type], v)
		}
	}
	return out
}
