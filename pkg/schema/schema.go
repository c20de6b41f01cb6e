// Package schema loads the artist record schema and derives from it
// everything the engine needs: identity fields, the permitted tag
// enumeration, the empty record template, the persisted field order and a
// compiled validator.
package schema

import (
	_ "embed"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
)

//go:embed artist.schema.json
var builtin []byte

// Property is one declared record field.
type Property struct {
	Type   TypeList  `yaml:"type"`
	Format string    `yaml:"format"`
	Enum   []string  `yaml:"enum"`
	Items  *Property `yaml:"items"`
}

// Nullable reports whether null is an accepted value.
func (p *Property) Nullable() bool {
	return slices.Contains(p.Type, "null")
}

// Primary returns the first non-null type.
func (p *Property) Primary() string {
	for _, t := range p.Type {
		if t != "null" {
			return t
		}
	}
	if len(p.Type) > 0 {
		return p.Type[0]
	}
	return ""
}

// TypeList holds a JSON-Schema type, written either as a string or a list.
type TypeList []string

// UnmarshalYAML accepts both "string" and ["string", "null"].
func (t *TypeList) UnmarshalYAML(b []byte) error {
	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*t = TypeList{v}
	case []any:
		list := make(TypeList, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return errors.New("type list must contain strings")
			}
			list = append(list, s)
		}
		*t = list
	case nil:
		*t = nil
	default:
		return errors.New("type must be a string or a list of strings")
	}
	return nil
}

type document struct {
	ID         string               `yaml:"$id"`
	Title      string               `yaml:"title"`
	Required   []string             `yaml:"required"`
	Properties map[string]*Property `yaml:"properties"`
}

type ordering struct {
	Properties yaml.MapSlice `yaml:"properties"`
}

// Schema is a loaded artist schema.
type Schema struct {
	Title      string
	Required   []string
	properties map[string]*Property
	order      []string
	source     string
	validator  *validator
}

// Default returns the built-in artist schema.
func Default() *Schema {
	s, err := Parse(builtin, "builtin")
	if err != nil {
		panic("schema: built-in schema is invalid: " + err.Error())
	}
	return s
}

// Load reads a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "schema", ID: path}
		}
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// LoadOrDefault reads path, falling back to the built-in schema when path is
// empty or does not exist.
func LoadOrDefault(path string) (*Schema, error) {
	if path == "" {
		return Default(), nil
	}
	s, err := Load(path)
	if errors.IsNotFound(err) {
		return Default(), nil
	}
	return s, err
}

// Parse decodes a JSON (or YAML) schema document.
func Parse(data []byte, source string) (*Schema, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapParse("schema", source, err)
	}
	var ord ordering
	if err := yaml.Unmarshal(data, &ord); err != nil {
		return nil, errors.WrapParse("schema", source, err)
	}
	if len(doc.Properties) == 0 {
		return nil, errors.NewParseError("schema", source, 0, "no properties declared", nil)
	}

	s := &Schema{
		Title:      doc.Title,
		Required:   doc.Required,
		properties: doc.Properties,
		source:     source,
	}
	for _, item := range ord.Properties {
		if key, ok := item.Key.(string); ok {
			s.order = append(s.order, key)
		}
	}
	for name, prop := range s.properties {
		if prop == nil {
			s.properties[name] = &Property{}
		}
	}

	v, err := newValidator(s, data)
	if err != nil {
		return nil, err
	}
	s.validator = v
	return s, nil
}

// Source returns where the schema was loaded from.
func (s *Schema) Source() string {
	return s.source
}

// Property returns the declaration of a field.
func (s *Schema) Property(name string) (*Property, bool) {
	p, ok := s.properties[name]
	return p, ok
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []string {
	return slices.Clone(s.order)
}

// IdentityFields returns the fields declared with format uri, in
// declaration order. These are the cross-source join keys.
func (s *Schema) IdentityFields() []string {
	var out []string
	for _, name := range s.order {
		p := s.properties[name]
		if p.Format == "uri" && p.Primary() == "string" {
			out = append(out, name)
		}
	}
	return out
}

// PermittedTags returns the tag enumeration.
func (s *Schema) PermittedTags() []string {
	p, ok := s.properties[constants.FieldTags]
	if !ok || p.Items == nil {
		return nil
	}
	return slices.Clone(p.Items.Enum)
}

// Template builds an empty record with every declared field. Date fields
// get today's date.
func (s *Schema) Template(today time.Time) records.Record {
	rec := make(records.Record, len(s.order))
	for _, name := range s.order {
		rec[name] = zeroValue(s.properties[name], today)
	}
	return rec
}

func zeroValue(p *Property, today time.Time) any {
	switch primary := p.Primary(); {
	case primary == "array":
		return []string{}
	case p.Nullable():
		return nil
	case primary == "string" && p.Format == "date":
		return today.Format(constants.DateLayout)
	case primary == "string":
		return ""
	case primary == "number", primary == "integer":
		return 0
	case primary == "boolean":
		return false
	default:
		return nil
	}
}

// FieldOrder returns the order keys of rec are persisted in: declared
// fields first, then unknown fields alphabetically.
func (s *Schema) FieldOrder(rec records.Record) []string {
	out := make([]string, 0, len(rec))
	for _, name := range s.order {
		if _, ok := rec[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range rec {
		if _, declared := s.properties[name]; !declared {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

var _ Validator = (*Schema)(nil)

// Validate checks rec against the schema.
func (s *Schema) Validate(rec records.Record) []error {
	return s.validator.Validate(rec)
}
