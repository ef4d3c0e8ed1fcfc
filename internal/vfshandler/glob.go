package vfshandler

import "strings"

// globMatchCI reports whether name matches a '*'/'?' glob pattern,
// case-insensitively (spec §4.4 property P4). '*' matches any run of
// characters (including none); '?' matches exactly one character.
func globMatchCI(pattern, name string) bool {
	p := []rune(strings.ToLower(pattern))
	n := []rune(strings.ToLower(name))
	return globMatch(p, n)
}

func globMatch(p, n []rune) bool {
	// Standard DP-free recursive glob match with a single backtrack
	// point for '*', sufficient for the small patterns file dialogs
	// actually send.
	var pi, ni int
	var starIdx = -1
	var matchIdx int

	for ni < len(n) {
		if pi < len(p) && (p[pi] == '?' || p[pi] == n[ni]) {
			pi++
			ni++
			continue
		}
		if pi < len(p) && p[pi] == '*' {
			starIdx = pi
			matchIdx = ni
			pi++
			continue
		}
		if starIdx != -1 {
			pi = starIdx + 1
			matchIdx++
			ni = matchIdx
			continue
		}
		return false
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
