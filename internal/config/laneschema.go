package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/lane.schema.json
var laneSchemaJSON []byte

const laneSchemaURL = "lane.schema.json"

var compileLaneSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(laneSchemaURL, bytes.NewReader(laneSchemaJSON)); err != nil {
		return nil, fmt.Errorf("adding lane schema: %w", err)
	}
	s, err := c.Compile(laneSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling lane schema: %w", err)
	}
	return s, nil
})

// ValidateLaneSchema checks the structure of a decoded lane document. Each
// violation is reported as "<instance location>: <message>", sorted. Keys the
// engine does not read are allowed.
func ValidateLaneSchema(doc map[string]any) ([]string, error) {
	schema, err := compileLaneSchema()
	if err != nil {
		return nil, err
	}

	// YAML and TOML decoders produce Go number types the validator does not
	// know; a JSON round trip normalizes them.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding lane document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding lane document: %w", err)
	}

	err = schema.Validate(v)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validating lane document: %w", err)
	}
	var out []string
	collectLeaves(ve, &out)
	sort.Strings(out)
	return out, nil
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, loc+": "+ve.Message)
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}
