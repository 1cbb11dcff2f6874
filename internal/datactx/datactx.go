// Package datactx builds the variable context a template renders against,
// from data files and key=value assignments.
package datactx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/clbanning/mxj/v2"
	"gopkg.in/yaml.v3"

	"erbgo/internal/common/errors"
)

// Format is a data file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatXML  Format = "xml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".xml":
		return FormatXML, nil
	}
	return "", errors.ValidationError(fmt.Sprintf("unsupported data file %q: expected .json, .yaml, .yml, .toml or .xml", path))
}

// LoadFile reads a data file. Its top level must be an object.
func LoadFile(path string) (map[string]interface{}, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NotFoundError(fmt.Sprintf("data file %s", path)).WithContext("cause", err.Error())
	}
	vars, err := Parse(data, format)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("%s: %v", path, err))
	}
	return vars, nil
}

// Parse decodes data in the given format into a variable context.
func Parse(data []byte, format Format) (map[string]interface{}, error) {
	vars := make(map[string]interface{})
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&vars); err != nil {
			return nil, err
		}
		return normalizeJSON(vars).(map[string]interface{}), nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, err
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &vars); err != nil {
			return nil, err
		}
	case FormatXML:
		m, err := mxj.NewMapXml(data)
		if err != nil {
			return nil, err
		}
		vars = map[string]interface{}(m)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return vars, nil
}

// normalizeJSON turns json.Number into int64 when the number is integral and
// float64 otherwise.
func normalizeJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalizeJSON(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeJSON(item)
		}
		return val
	}
	return v
}

// ParseAssignment splits "key=value". The value is read as a YAML scalar or
// flow collection, so numbers, booleans and [a, b] lists get their types;
// anything that does not parse stays a string.
func ParseAssignment(s string) (string, interface{}, error) {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, errors.ValidationError(fmt.Sprintf("invalid assignment %q: expected key=value", s))
	}
	if raw == "" {
		return key, "", nil
	}

	var value interface{}
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		return key, raw, nil
	}
	if _, isMap := value.(map[string]interface{}); isMap {
		return key, raw, nil
	}
	return key, value, nil
}

// Set stores value under a dotted key, creating intermediate maps.
func Set(vars map[string]interface{}, key string, value interface{}) {
	parts := strings.Split(key, ".")
	current := vars
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Merge copies src into dst. Nested maps are merged; everything else in src
// replaces what dst had.
func Merge(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			dst[k] = Merge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Clone deep-copies the maps and slices in vars so the copy can be merged
// into without touching the original.
func Clone(vars map[string]interface{}) map[string]interface{} {
	if vars == nil {
		return nil
	}
	out := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return Clone(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Build loads files in order, then applies assignments. Later sources win.
func Build(files, assignments []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{})
	for _, path := range files {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		vars = Merge(vars, loaded)
	}
	for _, assignment := range assignments {
		key, value, err := ParseAssignment(assignment)
		if err != nil {
			return nil, err
		}
		Set(vars, key, value)
	}
	return vars, nil
}
