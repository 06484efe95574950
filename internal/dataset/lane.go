package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dino-ds/laneqc/internal/lane"
	"github.com/dino-ds/laneqc/internal/script"
)

// Lane is a lane id plus its configuration document.
type Lane struct {
	ID  lane.ID
	Doc map[string]any
}

// NewLane builds a Lane from an in-memory document. The id comes from laneID
// when set, else from the document's lane_id key.
func NewLane(laneID string, doc map[string]any) Lane {
	if doc == nil {
		doc = map[string]any{}
	}
	if strings.TrimSpace(laneID) == "" {
		laneID, _ = doc["lane_id"].(string)
	}
	return Lane{ID: lane.NewID(laneID), Doc: doc}
}

// LoadLane reads a lane document from path. The format is chosen by extension:
// .yaml/.yml, .json or .toml.
func LoadLane(path, laneID string) (Lane, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lane{}, fmt.Errorf("reading lane config %s: %w", path, err)
	}

	doc, err := DecodeLane(data, filepath.Ext(path))
	if err != nil {
		return Lane{}, fmt.Errorf("parsing lane config %s: %w", path, err)
	}
	return NewLane(laneID, doc), nil
}

// DecodeLane decodes a lane document in the format named by ext.
func DecodeLane(data []byte, ext string) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported lane config extension %q", ext)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// ExpectedLanguage resolves the lane language from language, then
// base_row.language, then template_expand.slot_banks.language (a string or a
// one-element list). It returns "" when none is set.
func (l Lane) ExpectedLanguage() script.Language {
	if lang := script.Normalize(l.Doc["language"]); lang != "" {
		return lang
	}
	if base, ok := AsObject(l.Doc["base_row"]); ok {
		if lang := script.Normalize(base["language"]); lang != "" {
			return lang
		}
	}
	te, _ := AsObject(l.Doc["template_expand"])
	banks, _ := AsObject(te["slot_banks"])
	switch v := banks["language"].(type) {
	case string:
		return script.Normalize(v)
	case []any:
		if len(v) == 1 {
			return script.Normalize(v[0])
		}
	}
	return ""
}

// Section returns the nested object at the given key path, or an empty map.
func (l Lane) Section(keys ...string) map[string]any {
	cur := l.Doc
	for _, k := range keys {
		next, ok := AsObject(cur[k])
		if !ok {
			return map[string]any{}
		}
		cur = next
	}
	return cur
}

// Validation returns the lane's validation block.
func (l Lane) Validation() map[string]any {
	return l.Section("validation")
}

// Similarity returns the lane's similarity block.
func (l Lane) Similarity() map[string]any {
	return l.Section("similarity")
}

// TargetCount returns count_target, or 0 when absent.
func (l Lane) TargetCount() int {
	n, _ := AsInt(l.Doc["count_target"])
	return int(n)
}

// CfgFloat reads a numeric config value. Booleans and non-numbers yield def.
func CfgFloat(m map[string]any, key string, def float64) float64 {
	if f, ok := AsNumber(m[key]); ok {
		return f
	}
	return def
}

// CfgFloatOK is CfgFloat that also reports whether the key held a number.
func CfgFloatOK(m map[string]any, key string) (float64, bool) {
	return AsNumber(m[key])
}

// CfgInt reads an integral config value. Floats and booleans yield def.
func CfgInt(m map[string]any, key string, def int) int {
	if n, ok := AsInt(m[key]); ok {
		return int(n)
	}
	return def
}

// SafeRatio clamps v into [0,1].
func SafeRatio(v float64) float64 {
	return min(max(v, 0), 1)
}
