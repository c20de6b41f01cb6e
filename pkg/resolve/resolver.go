// Package resolve reconciles a batch of incoming artist records with the
// corpus.
//
// The incoming batch is clustered, each cluster is matched against the
// corpus by identity key, matched clusters are merged into the existing
// record and unmatched ones become new records. Every record is validated
// before it is reported for writing. The resolver performs no I/O: the
// caller persists Result.Entries.
package resolve

import (
	"context"
	"slices"
	"time"

	"github.com/agentstation/utc"

	"github.com/romiem/ai-bands/pkg/cluster"
	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
	"github.com/romiem/ai-bands/pkg/identity"
	"github.com/romiem/ai-bands/pkg/logging"
	"github.com/romiem/ai-bands/pkg/merge"
	"github.com/romiem/ai-bands/pkg/records"
	"github.com/romiem/ai-bands/pkg/schema"
)

// Resolver runs resolution passes. It holds configuration only and is safe
// for concurrent use; all run state lives in a per-call context.
type Resolver struct {
	fields    []string
	normalize identity.Normalizer
	validator schema.Validator
	policy    *merge.Policy
	strategy  cluster.Strategy
	now       func() time.Time
	suffix    func() (string, error)
	template  func(today time.Time) records.Record
	permitted []string
}

// New creates a Resolver. Without options it uses the built-in artist
// schema, the default merge policy and union-find clustering.
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		normalize: identity.Verbatim,
		policy:    merge.New(),
		strategy:  cluster.UnionFind,
		now:       time.Now,
		suffix:    RandomSuffix,
	}
	if err := WithSchema(schema.Default())(r); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IdentityFields returns the identity fields in match order.
func (r *Resolver) IdentityFields() []string {
	return slices.Clone(r.fields)
}

// runContext is the mutable state of one Resolve call.
type runContext struct {
	index    *Index
	known    map[string]struct{}
	today    utc.Time
	modified map[int]int // corpus position -> position in result.Modified
	result   *Result
}

func (rc *runContext) warn(err error) {
	rc.result.Warnings = append(rc.result.Warnings, err)
}

// Resolve reconciles incoming with corpus. Neither input is modified.
// The returned error is non-nil only when ctx is done or no unique id can
// be generated; per-record problems are reported in the Result.
func (r *Resolver) Resolve(ctx context.Context, incoming []records.Record, corpus []records.Entry) (*Result, error) {
	logger := logging.FromContext(ctx)

	rc := &runContext{
		index:    NewIndex(corpus, r.fields, r.normalize),
		known:    make(map[string]struct{}, len(corpus)),
		today:    utc.New(r.now()),
		modified: make(map[int]int),
		result:   &Result{},
	}
	for _, e := range corpus {
		for _, id := range []string{e.Record.ID(), e.Handle} {
			if id != "" {
				rc.known[id] = struct{}{}
			}
		}
	}
	for _, c := range rc.index.Collisions() {
		logger.Warn().
			Str("field", c.Field).
			Str("value", c.Value).
			Str("owner", c.Owner).
			Str("duplicate", c.Duplicate).
			Msg("Identity collision in corpus")
		rc.warn(c)
	}

	clusters := cluster.Group(incoming, r.fields,
		cluster.WithStrategy(r.strategy),
		cluster.WithPolicy(r.policy),
		cluster.WithNormalizer(r.normalize),
	)
	rc.result.Stats.Incoming = len(incoming)
	rc.result.Stats.Clusters = len(clusters)
	rc.result.Stats.Corpus = len(corpus)

	logger.Debug().
		Int("incoming", len(incoming)).
		Int("clusters", len(clusters)).
		Int("corpus", len(corpus)).
		Str("strategy", r.strategy.Name()).
		Msg("Resolving incoming records")

	for _, c := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m := rc.index.Match(c.Merged)
		for _, amb := range m.Ambiguities {
			logger.Warn().
				Str("chosen", amb.Chosen).
				Str("chosen_field", amb.ChosenField).
				Str("other", amb.Other).
				Str("other_field", amb.OtherField).
				Ints("sources", c.Indices).
				Msg("Ambiguous corpus match")
			rc.warn(amb)
		}

		if m.Found {
			r.mergeExisting(ctx, rc, c, m)
			continue
		}
		if err := r.createNew(ctx, rc, c); err != nil {
			return nil, err
		}
	}

	rc.result.finish()
	logger.Info().
		Int("created", rc.result.Stats.Created).
		Int("modified", rc.result.Stats.Modified).
		Int("unchanged", rc.result.Stats.Unchanged).
		Int("rejected", rc.result.Stats.Rejected).
		Int("warnings", rc.result.Stats.Warnings).
		Msg("Resolution complete")
	return rc.result, nil
}

func (r *Resolver) mergeExisting(ctx context.Context, rc *runContext, c cluster.Cluster, m Match) {
	logger := logging.FromContext(ctx)

	incoming := c.Merged.Clone()
	if _, ok := incoming[constants.FieldTags]; ok {
		incoming.SetTags(records.FilterTags(incoming.Tags(), r.isPermitted))
	}

	existing := m.Entry.Record
	merged, changes := r.policy.MergeWithChanges(existing, incoming)
	if len(changes) == 0 {
		rc.result.Unchanged = append(rc.result.Unchanged, Outcome{
			Kind:    KindUnchanged,
			Record:  existing,
			Handle:  m.Entry.Handle,
			Sources: c.Indices,
		})
		logger.Debug().Str("record", m.Entry.Record.Label()).Msg("No new information")
		return
	}

	if !merged.HasProvenance() {
		merged.SetTags(records.EnsureTag(merged.Tags(), constants.TagExternalModified))
	}
	merged[constants.FieldDateUpdated] = rc.today.DateOnly()

	if errs := r.validator.Validate(merged); len(errs) > 0 {
		rc.result.Rejected = append(rc.result.Rejected, Outcome{
			Kind:    KindRejected,
			Record:  merged,
			Handle:  m.Entry.Handle,
			Sources: c.Indices,
			Changes: changes,
			Errors:  errs,
		})
		logger.Warn().
			Str("record", merged.Label()).
			Str("errors", errors.Summarize(errs)).
			Msg("Merged record failed validation")
		return
	}

	for _, col := range rc.index.Replace(m.Pos, merged) {
		rc.warn(col)
	}

	if n, ok := rc.modified[m.Pos]; ok {
		prev := &rc.result.Modified[n]
		prev.Record = merged
		prev.Sources = append(prev.Sources, c.Indices...)
		prev.Changes = append(prev.Changes, changes...)
	} else {
		rc.modified[m.Pos] = len(rc.result.Modified)
		rc.result.Modified = append(rc.result.Modified, Outcome{
			Kind:    KindModified,
			Record:  merged,
			Handle:  m.Entry.Handle,
			Sources: c.Indices,
			Changes: changes,
		})
	}

	logger.Debug().
		Str("record", merged.Label()).
		Str("matched_on", m.Key.String()).
		Int("changes", len(changes)).
		Msg("Merged into existing record")
}

func (r *Resolver) createNew(ctx context.Context, rc *runContext, c cluster.Cluster) error {
	logger := logging.FromContext(ctx)

	rec := r.template(rc.today.Time).Clone()
	if rec == nil {
		rec = records.Record{}
	}
	for field, value := range records.Normalize(c.Merged) {
		rec[field] = value
	}

	base := records.Slugify(rec.Name())
	if base == "" {
		base = constants.FallbackID
	}
	id, err := r.uniqueID(base, rc.known)
	if err != nil {
		return errors.WrapResource("generate", "id", base, err)
	}

	rec[constants.FieldID] = id
	rec[constants.FieldDateAdded] = rc.today.DateOnly()
	rec[constants.FieldDateUpdated] = nil
	tags := records.FilterTags(rec.Tags(), func(tag string) bool {
		return r.isPermitted(tag) || constants.IsProvenanceTag(tag)
	})
	rec.SetTags(records.EnsureTag(tags, constants.TagExternal))

	if errs := r.validator.Validate(rec); len(errs) > 0 {
		rc.result.Rejected = append(rc.result.Rejected, Outcome{
			Kind:    KindRejected,
			Record:  rec,
			Sources: c.Indices,
			Errors:  errs,
		})
		logger.Warn().
			Str("record", c.Merged.Label()).
			Ints("sources", c.Indices).
			Str("errors", errors.Summarize(errs)).
			Msg("New record failed validation")
		return nil
	}

	rc.known[id] = struct{}{}
	_, collisions := rc.index.Add(records.Entry{Handle: id, Record: rec})
	for _, col := range collisions {
		rc.warn(col)
	}

	rc.result.Created = append(rc.result.Created, Outcome{
		Kind:    KindCreated,
		Record:  rec,
		Handle:  id,
		Sources: c.Indices,
	})
	logger.Debug().Str("record", id).Ints("sources", c.Indices).Msg("Created new record")
	return nil
}

func (r *Resolver) uniqueID(base string, known map[string]struct{}) (string, error) {
	candidate := base
	for {
		if _, taken := known[candidate]; !taken {
			return candidate, nil
		}
		suffix, err := r.suffix()
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
}

func (r *Resolver) isPermitted(tag string) bool {
	return slices.Contains(r.permitted, tag)
}
