package schema

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/records"
)

// resourceURL is the location schemas are registered under with the
// compiler. A relative $id resolves against it.
const resourceURL = "https://ai-bands.local/schema/artist.schema.json"

var printer = message.NewPrinter(language.English)

// Validator checks a record and returns every violated constraint.
type Validator interface {
	Validate(rec records.Record) []error
}

// validator checks records against a compiled schema. It never modifies the
// record.
//
// The tag enumeration is not compiled in. Tags follow the provenance rule
// instead: a tag outside the enumeration is only accepted when the record
// also carries a provenance tag.
//
// A blank string on a nullable field counts as null.
type validator struct {
	schema   *Schema
	compiled *jsonschema.Schema
}

func newValidator(s *Schema, data []byte) (*validator, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.WrapParse("schema", s.source, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WrapParse("schema", s.source, err)
	}
	dropTagEnum(doc)

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, errors.WrapParse("schema", s.source, err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, errors.NewParseError("schema", s.source, 0, "schema does not compile", err)
	}
	return &validator{schema: s, compiled: compiled}, nil
}

func dropTagEnum(doc any) {
	root, ok := doc.(map[string]any)
	if !ok {
		return
	}
	props, _ := root["properties"].(map[string]any)
	tags, _ := props[constants.FieldTags].(map[string]any)
	if items, ok := tags["items"].(map[string]any); ok {
		delete(items, "enum")
	}
}

// Validate returns every violated constraint, or nil when rec is valid.
// Errors follow the schema's field declaration order.
func (v *validator) Validate(rec records.Record) []error {
	if rec == nil {
		return []error{errors.NewValidationError("", nil, "record is empty")}
	}

	var errs []error
	if err := v.compiled.Validate(v.instance(rec)); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return []error{errors.NewValidationError("", nil, err.Error())}
		}
		for _, leaf := range leaves(ve) {
			errs = append(errs, v.convert(rec, leaf)...)
		}
	}
	if msg := provenanceViolation(rec, v.schema.PermittedTags()); msg != "" {
		errs = append(errs, errors.NewValidationError(constants.FieldTags, rec[constants.FieldTags], msg))
	}

	slices.SortStableFunc(errs, func(a, b error) int {
		fa, fb := fieldOf(a), fieldOf(b)
		if c := v.rank(fa) - v.rank(fb); c != 0 {
			return c
		}
		return strings.Compare(fa, fb)
	})
	return errs
}

// rank orders declared fields by declaration, undeclared ones after.
func (v *validator) rank(field string) int {
	if i := slices.Index(v.schema.order, field); i >= 0 {
		return i
	}
	return len(v.schema.order)
}

// instance converts rec into the value types the compiled schema expects.
func (v *validator) instance(rec records.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for field, value := range rec {
		switch val := value.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				out[field] = val
				break
			}
			if p, ok := v.schema.properties[field]; ok && p.Nullable() {
				out[field] = nil
			} else {
				out[field] = ""
			}
		case []string:
			items := make([]any, len(val))
			for i, s := range val {
				items[i] = s
			}
			out[field] = items
		default:
			out[field] = value
		}
	}
	return out
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func (v *validator) convert(rec records.Record, ve *jsonschema.ValidationError) []error {
	switch k := ve.ErrorKind.(type) {
	case *kind.Required:
		out := make([]error, 0, len(k.Missing))
		for _, field := range k.Missing {
			out = append(out, errors.NewValidationError(field, nil, "is required"))
		}
		return out
	case *kind.AdditionalProperties:
		out := make([]error, 0, len(k.Properties))
		for _, field := range k.Properties {
			out = append(out, errors.NewValidationError(field, rec[field], "is not a declared field"))
		}
		return out
	}

	if len(ve.InstanceLocation) == 0 {
		return []error{errors.NewValidationError("", nil, ve.ErrorKind.LocalizedString(printer))}
	}
	field := ve.InstanceLocation[0]
	msg := ve.ErrorKind.LocalizedString(printer)
	if len(ve.InstanceLocation) > 1 {
		msg = fmt.Sprintf("item %s %s", strings.Join(ve.InstanceLocation[1:], "/"), msg)
	}
	return []error{errors.NewValidationError(field, rec[field], msg)}
}

func fieldOf(err error) string {
	var ve *errors.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func provenanceViolation(rec records.Record, permitted []string) string {
	tags := rec.Tags()
	if len(tags) == 0 || rec.HasProvenance() {
		return ""
	}
	var custom []string
	for _, tag := range tags {
		if !slices.Contains(permitted, tag) {
			custom = append(custom, tag)
		}
	}
	if len(custom) == 0 {
		return ""
	}
	return fmt.Sprintf("contain custom values (%s) without a provenance tag", strings.Join(custom, ", "))
}
