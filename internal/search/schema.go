// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package search

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/tomtom215/catalogus/internal/logging"
)

//go:embed required_mappings.json
var requiredMappingsJSON []byte

var (
	// ErrEmptySchema is returned when the catalog file has no top-level key.
	ErrEmptySchema = errors.New("catalog schema has no index entry")
	// ErrMissingMappings is returned when the index entry has no mappings.
	ErrMissingMappings = errors.New("catalog schema index has no mappings")
)

// Property is one named field mapping, kept as raw JSON.
type Property struct {
	Name  string
	Value json.RawMessage
}

// MappingType is a document type and its properties in document order.
type MappingType struct {
	Name       string
	Properties []Property
	byName     map[string]json.RawMessage
}

// Property returns the raw mapping of the named property.
func (t *MappingType) Property(name string) (json.RawMessage, bool) {
	v, ok := t.byName[name]
	return v, ok
}

// MarshalJSON writes the type as a typeless index mapping,
// {"properties": {...}}, keeping property order.
func (t *MappingType) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"properties":{`)
	for i, p := range t.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(p.Value)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

// Mappings is an ordered set of mapping types.
type Mappings struct {
	Types  []*MappingType
	byName map[string]*MappingType
}

// Type returns the named mapping type.
func (m *Mappings) Type(name string) (*MappingType, bool) {
	t, ok := m.byName[name]
	return t, ok
}

// CatalogSchema is a catalog index dump: {"<index>": {"mappings": {...}}}.
type CatalogSchema struct {
	Index    string
	Mappings *Mappings
}

// LoadCatalogSchema reads the catalog file at path.
func LoadCatalogSchema(path string) (*CatalogSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	schema, err := ParseCatalogSchema(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}
	return schema, nil
}

// ParseCatalogSchema takes the first top-level key as the index and reads its
// mappings.
func ParseCatalogSchema(r io.Reader) (*CatalogSchema, error) {
	keys, values, err := orderedObject(json.NewDecoder(r))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, ErrEmptySchema
	}
	index := keys[0]

	var entry map[string]json.RawMessage
	if err := json.Unmarshal(values[index], &entry); err != nil {
		return nil, fmt.Errorf("index %q is not an object: %w", index, err)
	}
	raw, ok := entry["mappings"]
	if !ok {
		return nil, ErrMissingMappings
	}
	mappings, err := parseMappings(raw)
	if err != nil {
		return nil, err
	}
	return &CatalogSchema{Index: index, Mappings: mappings}, nil
}

// RequiredMappings returns the mapping set every catalog index must contain.
func RequiredMappings() *Mappings {
	m, err := parseMappings(requiredMappingsJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded required_mappings.json is invalid: %v", err))
	}
	return m
}

func parseMappings(raw []byte) (*Mappings, error) {
	typeNames, typeValues, err := orderedObject(json.NewDecoder(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("invalid mappings: %w", err)
	}
	m := &Mappings{byName: make(map[string]*MappingType, len(typeNames))}
	for _, name := range typeNames {
		t := &MappingType{Name: name, byName: map[string]json.RawMessage{}}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(typeValues[name], &body); err != nil {
			return nil, fmt.Errorf("mapping %q is not an object: %w", name, err)
		}
		if props, ok := body["properties"]; ok {
			propNames, propValues, err := orderedObject(json.NewDecoder(bytes.NewReader(props)))
			if err != nil {
				return nil, fmt.Errorf("invalid properties for %q: %w", name, err)
			}
			for _, p := range propNames {
				t.Properties = append(t.Properties, Property{Name: p, Value: propValues[p]})
				t.byName[p] = propValues[p]
			}
		}
		m.Types = append(m.Types, t)
		m.byName[name] = t
	}
	return m, nil
}

// orderedObject reads one JSON object and returns its keys in document order.
func orderedObject(dec *json.Decoder) ([]string, map[string]json.RawMessage, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("expected a JSON object")
	}

	var keys []string
	values := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// CheckMappings reports whether schema carries every required mapping type and
// property with an identical value. It logs the first mismatch.
func CheckMappings(schema *CatalogSchema, required *Mappings) bool {
	for _, reqType := range required.Types {
		catalogType, ok := schema.Mappings.Type(reqType.Name)
		if !ok {
			logging.Error().Msgf(`Mapping does not exist for key" %s`, reqType.Name)
			return false
		}
		for _, prop := range reqType.Properties {
			got, ok := catalogType.Property(prop.Name)
			if !ok {
				logging.Error().Msgf(`Property does not exist: "%s"`, prop.Name)
				return false
			}
			if !sameJSON(got, prop.Value) {
				logging.Error().Msgf(`Invalid value of property "%s": "%s"`, prop.Name, compact(got))
				return false
			}
		}
	}
	return true
}

func sameJSON(a, b json.RawMessage) bool {
	var va, vb interface{}
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// IndexNameFromPath returns the file's base name verbatim. Catalog dumps are
// saved under their index's name, so a "catalog_20260101.json" file names
// the index "catalog_20260101.json".
func IndexNameFromPath(path string) string {
	return filepath.Base(path)
}
