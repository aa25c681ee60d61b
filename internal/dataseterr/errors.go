// Package dataseterr defines the structured error taxonomy used across the
// dataset engine. Callers distinguish failure kinds with errors.As against
// *Error rather than string-matching messages.
package dataseterr

import "fmt"

// Kind enumerates the distinguishable error categories the engine raises.
type Kind string

const (
	KindPathNotInSchema      Kind = "path_not_in_schema"
	KindPathNotLeaf          Kind = "path_not_leaf"
	KindFilterOnRepeatedPath Kind = "filter_on_repeated_path"
	KindUnsupportedSpanShape Kind = "unsupported_span_shape"
	KindTooManyDistinct      Kind = "too_many_distinct"
	KindEnrichmentMismatch   Kind = "enrichment_type_mismatch"
	KindMissingEmbedding     Kind = "missing_embedding"
	KindSortAliasUnknown     Kind = "sort_alias_unknown"
	KindIndexIntoRepeated    Kind = "index_into_repeated"
	KindInternal             Kind = "internal"
)

// Error is the single structured failure channel the engine surfaces through.
type Error struct {
	Kind  Kind
	Path  []string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s: %s (path=%v)", e.Kind, e.Msg, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, &dataseterr.Error{Kind: dataseterr.KindX}) style
// checks work: it reports whether target is an *Error of the same Kind.
// Path, Msg and Cause are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, path []string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// PathNotInSchema reports a path tuple absent from the schema's leaf set entirely.
func PathNotInSchema(path []string) *Error {
	return newErr(KindPathNotInSchema, path, "path not present in schema")
}

// PathNotLeaf reports a path tuple that resolves to an internal (non-dtype) node.
func PathNotLeaf(path []string) *Error {
	return newErr(KindPathNotLeaf, path, "path is not a leaf")
}

// FilterOnRepeatedPath reports a filter referencing a path with a wildcard segment.
func FilterOnRepeatedPath(path []string) *Error {
	return newErr(KindFilterOnRepeatedPath, path, "filters cannot reference a repeated (wildcard) path")
}

// UnsupportedSpanShape reports a leaf path of any dtype with more than one
// wildcard segment, or a string_span whose refers_to path has a wildcard the
// span leaf's own path does not.
func UnsupportedSpanShape(path []string) *Error {
	return newErr(KindUnsupportedSpanShape, path, "string_span leaves support at most one repeated segment")
}

// TooManyDistinct is informational — select_groups returns it in-band, it is not
// raised as a failure, but the constructor lives here so callers share the kind.
func TooManyDistinct(path []string) *Error {
	return newErr(KindTooManyDistinct, path, "leaf has too many distinct values to group without bins")
}

// EnrichmentTypeMismatch reports a signal whose enrichment_type does not support
// the target leaf's dtype.
func EnrichmentTypeMismatch(path []string, dtype string) *Error {
	return newErr(KindEnrichmentMismatch, path, "enrichment does not support dtype %q", dtype)
}

// MissingEmbedding reports a lookup for an embedding index that has not been
// computed for the given (path, embedding) pair.
func MissingEmbedding(path []string, embedding string) *Error {
	return newErr(KindMissingEmbedding, path, "no embedding index for embedding %q", embedding)
}

// SortAliasUnknown reports a sort key referencing an alias absent from the projection.
func SortAliasUnknown(alias string) *Error {
	return newErr(KindSortAliasUnknown, nil, "sort alias %q not present in projection", alias)
}

// IndexIntoRepeated reports a column selection that indexes into a repeated
// group by position instead of traversing it with a wildcard.
func IndexIntoRepeated(path []string) *Error {
	return newErr(KindIndexIntoRepeated, path, "cannot index into a repeated field by position")
}

// Internal wraps an unexpected failure (including propagated signal-compute
// errors) with its underlying cause attached.
func Internal(cause error, format string, args ...interface{}) *Error {
	e := newErr(KindInternal, nil, format, args...)
	e.Cause = cause
	return e
}
