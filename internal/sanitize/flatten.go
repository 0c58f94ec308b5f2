package sanitize

import "strings"

// LooksLikePath reports whether s contains a path separator.
func LooksLikePath(s string) bool {
	return strings.ContainsAny(s, `/\`)
}

// LooksLikeText reports whether s reads as prose or prompt text rather than
// a path: it has a newline, a comma, a parenthesis, or " w/ ".
func LooksLikeText(s string) bool {
	return strings.ContainsAny(s, "\n,()") || strings.Contains(s, " w/ ")
}

// FlattenPath reduces a path-like string to its final segment. Separators
// are unified to "/" and trailing ones dropped first, so a directory
// reference yields the directory name. The second result is false when s is
// not a path, reads as text, or is already flat.
func FlattenPath(s string) (string, bool) {
	if !LooksLikePath(s) || LooksLikeText(s) {
		return s, false
	}
	normalized := strings.TrimRight(strings.ReplaceAll(s, `\`, "/"), "/")
	base := normalized[strings.LastIndex(normalized, "/")+1:]
	if base == s {
		return s, false
	}
	return base, true
}

// FlattenValue applies FlattenPath to string values and passes everything
// else through unchanged.
func FlattenValue(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return v, false
	}
	return FlattenPath(s)
}
