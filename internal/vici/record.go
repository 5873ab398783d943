package vici

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedRecord reports a missing key, or a value of the wrong shape.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnparseableTimestamp reports a timestamp no known layout accepts.
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
)

// RecordError locates a conversion failure inside a record.
type RecordError struct {
	Path string // dotted key path, e.g. "workers.active.high"
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Record is a decoded vici message: string keys mapping to string values,
// nested sections or lists of strings.
type Record map[string]any

func malformed(keys []string, format string, args ...any) error {
	return &RecordError{
		Path: strings.Join(keys, "."),
		Err:  fmt.Errorf("%w: "+format, append([]any{ErrMalformedRecord}, args...)...),
	}
}

func asRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	}
	return nil, false
}

// lookup walks keys and returns the value found at the end of the path.
func (r Record) lookup(keys ...string) (any, error) {
	var cur any = r
	for i, k := range keys {
		section, ok := asRecord(cur)
		if !ok {
			return nil, malformed(keys[:i], "not a section")
		}
		v, ok := section[k]
		if !ok {
			return nil, malformed(keys[:i+1], "missing key")
		}
		cur = v
	}
	return cur, nil
}

// Str returns the string leaf at the given key path.
func (r Record) Str(keys ...string) (string, error) {
	v, err := r.lookup(keys...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", malformed(keys, "expected string, got %T", v)
	}
	return s, nil
}

// OptStr is like Str, but reports an absent or non-string leaf as ok=false
// instead of failing.
func (r Record) OptStr(keys ...string) (s string, ok bool) {
	v, err := r.lookup(keys...)
	if err != nil {
		return "", false
	}
	s, ok = v.(string)
	return s, ok
}

// Section returns the nested record at the given key path.
func (r Record) Section(keys ...string) (Record, error) {
	v, err := r.lookup(keys...)
	if err != nil {
		return nil, err
	}
	section, ok := asRecord(v)
	if !ok {
		return nil, malformed(keys, "expected section, got %T", v)
	}
	return section, nil
}

// List returns a copy of the string list at key. An absent key yields nil, an
// empty list a non-nil empty slice.
func (r Record) List(key string) ([]string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out, nil
	case []any:
		out := make([]string, 0, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, malformed([]string{key, fmt.Sprint(i)}, "expected string, got %T", e)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, malformed([]string{key}, "expected list, got %T", v)
}

// count parses the string leaf at the key path with ParseCount.
func (r Record) count(keys ...string) (Count, error) {
	s, err := r.Str(keys...)
	if err != nil {
		return NaN, err
	}
	return ParseCount(s), nil
}
