package resource

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Well-known group tags.
const (
	TagTechnology = "technology"
	TagExisting   = "existing"
	TagTree       = "tree"
	TagMetadata   = "metadata"
	TagProfiles   = "profiles"
)

// Tag is one selector key/value pair. Selectors are kept in order so the
// columns they add to cluster metadata are stable.
type Tag struct {
	Key   string
	Value any
}

func (t Tag) String() string { return fmt.Sprintf("%s=%v", t.Key, t.Value) }

// T is shorthand for a Tag.
func T(key string, value any) Tag { return Tag{Key: key, Value: value} }

// ParseTags parses "key=value,key=value". Values "true" and "false" become
// booleans, numeric values become float64 and everything else stays a string.
func ParseTags(s string) ([]Tag, error) {
	var out []Tag
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid selector %q (want key=value)", part)
		}
		out = append(out, Tag{Key: k, Value: ParseValue(strings.TrimSpace(v))})
	}
	return out, nil
}

// ParseValue coerces a textual selector value.
func ParseValue(v string) any {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// tagEqual compares tag values, treating every numeric type alike.
func tagEqual(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// matches reports whether tags hold every selector.
func matches(tags map[string]any, selectors []Tag) bool {
	for _, s := range selectors {
		v, ok := tags[s.Key]
		if !ok || !tagEqual(v, s.Value) {
			return false
		}
	}
	return true
}
