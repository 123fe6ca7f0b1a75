package hashdb

import "strings"

// DeriveName strips the directory prefix and a trailing ".idx" suffix from
// path, accepting both "/" and "\" as separators (cygwin-originated paths
// carry forward slashes even on Windows), and bounds the result to
// NameMax bytes. Used as the fallback when a text index's header name is
// empty or unusable (spec §4.5).
func DeriveName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".idx")
	if len(base) > NameMax {
		base = base[:NameMax]
	}
	return base
}
