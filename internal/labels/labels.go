// Package labels detects issue labels from conversation text using an
// ordered table of regular expression patterns.
package labels

import (
	"regexp"
	"sort"
)

type rule struct {
	pattern *regexp.Regexp
	label   string
}

// The table order groups patterns by category: operating systems, components,
// severity, then issue type. Multiple rules may fire; the result is the union.
var rules = []rule{
	// Operating systems
	{regexp.MustCompile(`(?i)\b(windows|win10|win11|win\s*\d+)\b`), "OS:Windows"},
	{regexp.MustCompile(`(?i)\b(macos|mac\s*os|osx|macbook|sonoma|ventura|monterey)\b`), "OS:macOS"},
	{regexp.MustCompile(`(?i)\b(linux|ubuntu|debian|fedora|arch|manjaro|mint)\b`), "OS:GNU/Linux"},

	// Components
	{regexp.MustCompile(`(?i)\b(map|mapper|mapping|room|area|exit|path)\b`), "mapper bug"},
	{regexp.MustCompile(`(?i)\b(lua|script|trigger|alias|timer|keybind)\b`), "Lua only"},
	{regexp.MustCompile(`(?i)\b(ui|button|toolbar|font|display|window|dialog)\b`), "UI"},
	{regexp.MustCompile(`(?i)\b(network|connection|telnet|gmcp|msdp)\b`), "networking"},

	// Severity
	{regexp.MustCompile(`(?i)\b(crash(es|ed|ing)?|segfault|freeze[sd]?|hang[s]?|unresponsive)\b`), "high"},
	{regexp.MustCompile(`(?i)\b(regression|used\s+to\s+work|worked\s+before|broke|breaking)\b`), "regression"},

	// Type
	{regexp.MustCompile(`(?i)\b(feature\s+request|would\s+be\s+nice|wish|suggestion|please\s+add)\b`), "wishlist"},
	{regexp.MustCompile(`(?i)\b(documentation|docs|unclear|confusing)\b`), "needs documentation"},
}

// Detect returns the sorted set of labels whose patterns match text.
// It is deterministic and never fails; empty text yields an empty set.
func Detect(text string) []string {
	seen := make(map[string]bool)
	var detected []string
	for _, r := range rules {
		if seen[r.label] {
			continue
		}
		if r.pattern.MatchString(text) {
			seen[r.label] = true
			detected = append(detected, r.label)
		}
	}
	sort.Strings(detected)
	return detected
}

// Filter keeps only labels present in the repository's known set,
// preserving order. Unknown labels are dropped silently.
func Filter(detected, valid []string) []string {
	validSet := make(map[string]bool, len(valid))
	for _, l := range valid {
		validSet[l] = true
	}
	var kept []string
	for _, l := range detected {
		if validSet[l] {
			kept = append(kept, l)
		}
	}
	return kept
}
