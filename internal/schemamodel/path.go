package schemamodel

import "strings"

// Wildcard is the path token denoting "each element of the repeated parent".
const Wildcard = "*"

// Path is an ordered tuple of path segments; each segment is either a name
// or Wildcard.
type Path []string

// IsRepeatedPathPart reports whether x is the wildcard token.
func IsRepeatedPathPart(x string) bool { return x == Wildcard }

// NormalizePath accepts a dotted string, a single name, a []string, or a
// Path, and yields a Path tuple. Dots inside a segment are not supported —
// callers who need literal dots in a field name must pass a []string.
func NormalizePath(p interface{}) (Path, error) {
	switch v := p.(type) {
	case Path:
		return append(Path(nil), v...), nil
	case []string:
		return append(Path(nil), v...), nil
	case string:
		if v == "" {
			return nil, errEmptyPath
		}
		parts := strings.Split(v, ".")
		return Path(parts), nil
	default:
		return nil, errUnsupportedPathType
	}
}

var (
	errEmptyPath           = pathErr("empty path")
	errUnsupportedPathType = pathErr("unsupported path representation")
)

type pathErr string

func (e pathErr) Error() string { return "schemamodel: " + string(e) }

// String renders the path back to its dotted form for error messages and logs.
func (p Path) String() string { return strings.Join(p, ".") }

// Equal reports whether two paths have identical segments.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// NumWildcards counts the wildcard segments in the path.
func (p Path) NumWildcards() int {
	n := 0
	for _, seg := range p {
		if IsRepeatedPathPart(seg) {
			n++
		}
	}
	return n
}

// SubPath is a contiguous non-wildcard run of path segments, as produced by
// SplitOnWildcards.
type SubPath []string

// SplitOnWildcards splits a path into sub-paths of lists: contiguous
// non-wildcard runs separated by wildcard segments. Example:
// (a,b,c,*,d,*,*) -> [(a,b,c), (d), (), ()].
func SplitOnWildcards(p Path) []SubPath {
	var out []SubPath
	cur := SubPath{}
	for _, seg := range p {
		if IsRepeatedPathPart(seg) {
			out = append(out, cur)
			cur = SubPath{}
			continue
		}
		cur = append(cur, seg)
	}
	out = append(out, cur)
	return out
}
