package schema

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rpggio/roadmap/internal/calendar"
)

// Fields reads typed values out of a decoded front-matter map. Each read
// that fails records a Violation and returns the zero value, so callers
// can read every field unconditionally and check Err once at the end.
type Fields struct {
	raw        map[string]any
	prefix     string
	absent     bool
	violations *[]Violation
}

// NewFields wraps a raw record. A nil map behaves like an empty record.
func NewFields(raw map[string]any) *Fields {
	return &Fields{raw: raw, violations: &[]Violation{}}
}

// Violate records a violation at key, relative to this object.
func (f *Fields) Violate(key string, rule Rule, format string, args ...any) {
	*f.violations = append(*f.violations, Violation{
		Path:    f.path(key),
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	})
}

// Violations returns what has been recorded so far.
func (f *Fields) Violations() []Violation {
	return append([]Violation(nil), (*f.violations)...)
}

// Err returns a ValidationError for kind, or nil when nothing failed.
func (f *Fields) Err(kind Kind) error {
	if len(*f.violations) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Violations: f.Violations()}
}

// Object reads a required nested mapping. When the mapping is missing or
// not an object a single violation is recorded and reads on the returned
// Fields are silently skipped.
func (f *Fields) Object(key string) *Fields {
	child, ok := f.OptionalObject(key)
	if ok {
		return child
	}
	if !f.absent {
		if _, present := f.lookup(key); !present {
			f.Violate(key, RuleRequired, "is required")
		}
	}
	return &Fields{prefix: f.path(key), absent: true, violations: f.violations}
}

// OptionalObject reads a nested mapping that may be omitted.
func (f *Fields) OptionalObject(key string) (*Fields, bool) {
	value, present := f.lookup(key)
	if !present {
		return nil, false
	}
	m, ok := asMap(value)
	if !ok {
		f.Violate(key, RuleType, "expected object, got %s", typeName(value))
		return nil, false
	}
	return &Fields{raw: m, prefix: f.path(key), violations: f.violations}, true
}

// String reads a required string; empty strings are allowed.
func (f *Fields) String(key string) string {
	s, _ := f.readString(key)
	return s
}

// NonEmpty reads a required string of at least one character.
func (f *Fields) NonEmpty(key string) string {
	s, ok := f.readString(key)
	if ok && s == "" {
		f.Violate(key, RuleMinLength, "must not be empty")
	}
	return s
}

// OptionalString reads a string that may be omitted.
func (f *Fields) OptionalString(key string) (string, bool) {
	value, present := f.lookup(key)
	if !present {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		f.Violate(key, RuleType, "expected string, got %s", typeName(value))
		return "", false
	}
	return s, true
}

// Length reads a required string of exactly n characters.
func (f *Fields) Length(key string, n int) string {
	s, ok := f.readString(key)
	if ok && len([]rune(s)) != n {
		f.Violate(key, RuleLength, "must be exactly %d characters", n)
	}
	return s
}

// Pattern reads a required string that must match re.
func (f *Fields) Pattern(key string, re *regexp.Regexp, describe string) string {
	s, ok := f.readString(key)
	if ok && !re.MatchString(s) {
		f.Violate(key, RuleFormat, "must be %s, got %q", describe, s)
	}
	return s
}

// Enum reads a required string restricted to allowed.
func (f *Fields) Enum(key string, allowed ...string) string {
	s, ok := f.readString(key)
	if !ok {
		return s
	}
	for _, candidate := range allowed {
		if s == candidate {
			return s
		}
	}
	f.Violate(key, RuleEnum, "must be one of %s, got %q", strings.Join(allowed, ", "), s)
	return s
}

// Number reads a required finite number.
func (f *Fields) Number(key string) float64 {
	n, _ := f.readNumber(key)
	return n
}

// OptionalNumber reads a number that may be omitted.
func (f *Fields) OptionalNumber(key string) (float64, bool) {
	value, present := f.lookup(key)
	if !present {
		return 0, false
	}
	n, ok := asFloat(value)
	if !ok {
		f.Violate(key, RuleType, "expected number, got %s", typeName(value))
		return 0, false
	}
	return n, true
}

// Range reads a required number within [min, max].
func (f *Fields) Range(key string, min, max float64) float64 {
	n, ok := f.readNumber(key)
	if ok && (n < min || n > max) {
		f.Violate(key, RuleRange, "must be between %g and %g, got %g", min, max, n)
	}
	return n
}

// Bool reads a required boolean.
func (f *Fields) Bool(key string) bool {
	value, ok := f.require(key)
	if !ok {
		return false
	}
	b, ok := value.(bool)
	if !ok {
		f.Violate(key, RuleType, "expected boolean, got %s", typeName(value))
		return false
	}
	return b
}

// Date reads a required YYYY-MM-DD calendar date.
func (f *Fields) Date(key string) calendar.Date {
	value, ok := f.require(key)
	if !ok {
		return calendar.Date{}
	}
	return f.date(key, value)
}

// OptionalDate reads a calendar date that may be omitted or left blank.
func (f *Fields) OptionalDate(key string) calendar.Date {
	value, present := f.lookup(key)
	if !present {
		return calendar.Date{}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return calendar.Date{}
	}
	return f.date(key, value)
}

// StringList reads an optional list of strings, defaulting to empty.
func (f *Fields) StringList(key string) []string {
	out := []string{}
	value, present := f.lookup(key)
	if !present {
		return out
	}
	items, ok := value.([]any)
	if !ok {
		f.Violate(key, RuleType, "expected list, got %s", typeName(value))
		return out
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			f.Violate(fmt.Sprintf("%s[%d]", key, i), RuleType, "expected string, got %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

// OptionalStringList is StringList but reports whether the key was present.
func (f *Fields) OptionalStringList(key string) ([]string, bool) {
	if _, present := f.lookup(key); !present {
		return nil, false
	}
	return f.StringList(key), true
}

func (f *Fields) date(key string, value any) calendar.Date {
	switch v := value.(type) {
	case string:
		d, err := calendar.Parse(v)
		if err != nil {
			f.Violate(key, RuleFormat, "must be a YYYY-MM-DD date, got %q", v)
			return calendar.Date{}
		}
		return d
	case time.Time:
		// YAML resolves unquoted dates as timestamps; only midnight UTC is a date.
		if !v.Equal(calendar.Of(v).Time()) {
			f.Violate(key, RuleFormat, "must be a YYYY-MM-DD date, got timestamp %s", v.Format(time.RFC3339))
			return calendar.Date{}
		}
		return calendar.Of(v)
	default:
		f.Violate(key, RuleType, "expected date string, got %s", typeName(value))
		return calendar.Date{}
	}
}

// readString reports whether a string was actually read, so derived
// checks never run against the zero value of a missing field.
func (f *Fields) readString(key string) (string, bool) {
	value, ok := f.require(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		f.Violate(key, RuleType, "expected string, got %s", typeName(value))
		return "", false
	}
	return s, true
}

func (f *Fields) readNumber(key string) (float64, bool) {
	value, ok := f.require(key)
	if !ok {
		return 0, false
	}
	n, ok := asFloat(value)
	if !ok {
		f.Violate(key, RuleType, "expected number, got %s", typeName(value))
		return 0, false
	}
	return n, true
}

func (f *Fields) require(key string) (any, bool) {
	if f.absent {
		return nil, false
	}
	value, present := f.lookup(key)
	if !present {
		f.Violate(key, RuleRequired, "is required")
		return nil, false
	}
	return value, true
}

func (f *Fields) lookup(key string) (any, bool) {
	if f.absent || f.raw == nil {
		return nil, false
	}
	value, ok := f.raw[key]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func (f *Fields) path(key string) string {
	if f.prefix == "" {
		return key
	}
	return f.prefix + "." + key
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func asFloat(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case float64:
		n = v
	case float32:
		n = float64(v)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float64, float32:
		return "number"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "object"
	case time.Time:
		return "timestamp"
	default:
		return fmt.Sprintf("%T", value)
	}
}
