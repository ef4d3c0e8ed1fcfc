// Package pathkey normalizes raw NTFS path strings into the canonical,
// case-folded keys used throughout the recovered-file index and the
// virtual filesystem handler.
//
// Normalization is applied identically at insert and lookup time so a
// PathKey can be used as a map key without any further canonicalization:
// forward slashes become backslashes, device/drive prefixes are
// stripped, "." and ".." components are resolved against a component
// stack, and the result is lowercased with a single leading separator.
package pathkey

import "strings"

// Separator is the canonical path separator used by every PathKey.
const Separator = `\`

// Root is the PathKey of the virtual tree's root directory.
const Root = Separator

// stripPrefixes strips the device-namespace and drive-letter
// prefixes the spec requires: \??\, \\?\, \\.\ and X:\.
func stripPrefixes(p string) string {
	switch {
	case strings.HasPrefix(p, `\??\`):
		p = p[len(`\??\`):]
	case strings.HasPrefix(p, `\\?\`):
		p = p[len(`\\?\`):]
	case strings.HasPrefix(p, `\\.\`):
		p = p[len(`\\.\`):]
	}
	if len(p) >= 3 && p[1] == ':' && p[2] == '\\' {
		p = `\` + p[3:]
	}
	if len(p) >= 4 && p[0] == '\\' && p[2] == ':' && p[3] == '\\' {
		p = `\` + p[4:]
	}
	return p
}

// Display applies the slash/prefix normalization but preserves case and
// does not resolve "." / ".." components. It is used while reconstructing
// a displayable full path before the final key is derived.
func Display(raw string) string {
	p := strings.ReplaceAll(raw, "/", Separator)
	p = stripPrefixes(p)
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}
	for strings.HasPrefix(p, Separator+Separator) {
		p = p[1:]
	}
	return p
}

// Normalize turns raw into a canonical PathKey: backslashes, prefixes
// stripped, "." / ".." resolved with a component stack, single leading
// separator, lowercased. Normalize is idempotent: Normalize(Normalize(s))
// == Normalize(s) for all s (property P1).
func Normalize(raw string) string {
	p := strings.ReplaceAll(raw, "/", Separator)
	p = stripPrefixes(p)
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}

	parts := strings.Split(p, Separator)
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}

	if len(stack) == 0 {
		return Root
	}
	return strings.ToLower(Separator + strings.Join(stack, Separator))
}

// IsRoot reports whether key (already normalized) refers to the root.
func IsRoot(key string) bool {
	return Normalize(key) == Root
}

// Components splits a normalized key into its path components. The root
// key yields an empty slice.
func Components(key string) []string {
	if IsRoot(key) {
		return nil
	}
	trimmed := strings.TrimPrefix(key, Separator)
	return strings.Split(trimmed, Separator)
}

// Parent returns the PathKey of key's parent directory. The parent of
// root is root.
func Parent(key string) string {
	comps := Components(key)
	if len(comps) <= 1 {
		return Root
	}
	return Normalize(Separator + strings.Join(comps[:len(comps)-1], Separator))
}

// Base returns the last component of key in its (already lowercased) key
// form. The base of root is empty.
func Base(key string) string {
	comps := Components(key)
	if len(comps) == 0 {
		return ""
	}
	return comps[len(comps)-1]
}

// Join normalizes parent and appends name as a new final component,
// returning the resulting key. name is taken literally (no further
// slash-splitting), matching how the index builder appends a single
// disambiguated display name to a known-good parent key.
func Join(parentKey, name string) string {
	parentKey = Normalize(parentKey)
	if parentKey == Root {
		return Normalize(Root + name)
	}
	return Normalize(parentKey + Separator + name)
}

// IsBasenameOnly reports whether raw, once slash-canonicalized and
// prefix-stripped, has no interior separator: it is just "\name" with no
// parent directory other than the root. The index builder reparents under
// the synthetic \fakepath\ directory only those candidates for which this
// holds and whose raw path contains no separator at all (spec §4.3 step 1).
func IsBasenameOnly(raw string) bool {
	d := Display(raw)
	rest := strings.TrimPrefix(d, Separator)
	return !strings.Contains(rest, Separator)
}
