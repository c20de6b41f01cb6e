package resolve

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/romiem/ai-bands/pkg/cluster"
	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/identity"
	"github.com/romiem/ai-bands/pkg/merge"
	"github.com/romiem/ai-bands/pkg/records"
	"github.com/romiem/ai-bands/pkg/schema"
)

// Option configures a Resolver.
type Option func(*Resolver) error

// ValidatorFunc adapts a function to schema.Validator.
type ValidatorFunc func(rec records.Record) []error

// Validate calls f.
func (f ValidatorFunc) Validate(rec records.Record) []error {
	return f(rec)
}

// WithSchema takes identity fields, permitted tags, template and validator
// from s. Later options override single aspects.
func WithSchema(s *schema.Schema) Option {
	return func(r *Resolver) error {
		if s == nil {
			return &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
		}
		r.fields = s.IdentityFields()
		r.permitted = s.PermittedTags()
		r.validator = s
		r.template = s.Template
		return nil
	}
}

// WithIdentityFields sets the identity fields in match order.
func WithIdentityFields(fields ...string) Option {
	return func(r *Resolver) error {
		if len(fields) == 0 {
			return &errors.ValidationError{Field: "identity fields", Message: "at least one field is required"}
		}
		r.fields = fields
		return nil
	}
}

// WithNormalizer sets how identity values are canonicalized before comparison.
func WithNormalizer(n identity.Normalizer) Option {
	return func(r *Resolver) error {
		r.normalize = n
		return nil
	}
}

// WithValidator sets the record validator.
func WithValidator(v schema.Validator) Option {
	return func(r *Resolver) error {
		if v == nil {
			return &errors.ValidationError{Field: "validator", Message: "cannot be nil"}
		}
		r.validator = v
		return nil
	}
}

// WithPolicy sets the merge policy.
func WithPolicy(p *merge.Policy) Option {
	return func(r *Resolver) error {
		if p == nil {
			return &errors.ValidationError{Field: "policy", Message: "cannot be nil"}
		}
		r.policy = p
		return nil
	}
}

// WithClusterStrategy sets how the incoming batch is partitioned.
func WithClusterStrategy(s cluster.Strategy) Option {
	return func(r *Resolver) error {
		if s == nil {
			return &errors.ValidationError{Field: "cluster strategy", Message: "cannot be nil"}
		}
		r.strategy = s
		return nil
	}
}

// WithClock sets the time source used for date stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		r.now = now
		return nil
	}
}

// WithSuffixFunc sets the generator of id suffixes used on id collisions.
func WithSuffixFunc(fn func() (string, error)) Option {
	return func(r *Resolver) error {
		if fn == nil {
			return &errors.ValidationError{Field: "suffix func", Message: "cannot be nil"}
		}
		r.suffix = fn
		return nil
	}
}

// WithTemplate sets the record new entries start from.
func WithTemplate(tmpl records.Record) Option {
	return func(r *Resolver) error {
		r.template = func(time.Time) records.Record { return tmpl.Clone() }
		return nil
	}
}

// WithPermittedTags sets the tag enumeration.
func WithPermittedTags(tags ...string) Option {
	return func(r *Resolver) error {
		r.permitted = tags
		return nil
	}
}

// RandomSuffix returns 12 hex characters from crypto/rand.
func RandomSuffix() (string, error) {
	b := make([]byte, constants.SuffixBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
