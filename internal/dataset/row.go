// Package dataset holds the row and lane-document data model and the loaders that
// read them from disk.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dino-ds/laneqc/internal/script"
)

// Row is one generated example: a field-name to value mapping decoded from a
// JSON object. A nil Row stands for an input line that was valid JSON but not
// an object; validation rejects it with row_not_dict.
type Row map[string]any

// IsObject reports whether the row was decoded from a JSON object.
func (r Row) IsObject() bool {
	return r != nil
}

// Has reports whether key is present, whatever its value.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Str returns the value at key when it is a string.
func (r Row) Str(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Text returns the string at key, or "" when absent or not a string.
func (r Row) Text(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the value at key when it is a boolean.
func (r Row) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Object returns the value at key when it is a JSON object.
func (r Row) Object(key string) (map[string]any, bool) {
	return AsObject(r[key])
}

// List returns the value at key when it is a JSON array.
func (r Row) List(key string) ([]any, bool) {
	l, ok := r[key].([]any)
	return l, ok
}

// Language returns the normalized row language.
func (r Row) Language() script.Language {
	return script.Normalize(r["language"])
}

// ID returns the row identity: sample_id, then id, else "row#N" with the
// 1-based position.
func (r Row) ID(pos int) string {
	for _, key := range []string{"sample_id", "id"} {
		if s, ok := r[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fmt.Sprintf("row#%d", pos)
}

// Lookup resolves a dotted path such as "lane.tool_budget". Every intermediate
// value must be an object; a missing segment reports false.
func (r Row) Lookup(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		key := strings.TrimSpace(part)
		if key == "" {
			return nil, false
		}
		obj, ok := AsObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupFirst returns the value at the first path that resolves, together with
// that path. When none resolves it returns the first path.
func (r Row) LookupFirst(paths ...string) (any, string, bool) {
	for _, p := range paths {
		if v, ok := r.Lookup(p); ok {
			return v, p, true
		}
	}
	return nil, paths[0], false
}

// Messages returns row.messages as a list of objects. Non-object entries are
// returned as nil maps so positions are preserved.
func (r Row) Messages() ([]map[string]any, bool) {
	raw, ok := r.List("messages")
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, len(raw))
	for i, item := range raw {
		out[i], _ = AsObject(item)
	}
	return out, true
}

// AsObject converts decoded JSON, YAML or TOML objects to map[string]any.
func AsObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return map[string]any(m), m != nil
	}
	return nil, false
}

// IsBlank reports whether v is nil or a whitespace-only string.
func IsBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// IsBlankText reports whether v is not a string or is whitespace-only.
func IsBlankText(v any) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}

// AsInt returns v as an integer when it is an integral JSON number. Floats and
// booleans are rejected.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// AsNumber returns v as a float when it is any JSON number. Booleans are rejected.
func AsNumber(v any) (float64, bool) {
	if i, ok := AsInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Equal compares two decoded values. Numbers compare by value regardless of
// their Go representation.
func Equal(a, b any) bool {
	if fa, ok := AsNumber(a); ok {
		fb, ok := AsNumber(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

// ContainsKey reports whether key appears in any object nested anywhere in v.
func ContainsKey(v any, key string) bool {
	if obj, ok := AsObject(v); ok {
		if _, ok := obj[key]; ok {
			return true
		}
		for _, child := range obj {
			if ContainsKey(child, key) {
				return true
			}
		}
		return false
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if ContainsKey(item, key) {
				return true
			}
		}
	}
	return false
}

// Repr renders a value the way it appears in issue details: strings quoted,
// everything else in its natural form.
func Repr(v any) string {
	switch x := v.(type) {
	case string:
		return "'" + x + "'"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case nil:
		return "None"
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Repr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
