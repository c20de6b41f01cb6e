// Package cluster groups records that describe the same artist.
//
// Two records belong to the same cluster when they share an identity key,
// directly or through a chain of other records. Each cluster is reduced to a
// single record by left-folding the merge policy over its members in their
// original order.
package cluster

import (
	"github.com/romiem/ai-bands/pkg/identity"
	"github.com/romiem/ai-bands/pkg/merge"
	"github.com/romiem/ai-bands/pkg/records"
)

// Cluster is one group of duplicate records.
type Cluster struct {
	// Members are the grouped records in original order.
	Members []records.Record
	// Indices are the original positions of Members.
	Indices []int
	// Keys is the union of the members' identity keys.
	Keys identity.Set
	// Merged is the fold of Members under the merge policy.
	Merged records.Record
}

type config struct {
	strategy  Strategy
	policy    *merge.Policy
	normalize identity.Normalizer
}

// Option configures clustering.
type Option func(*config)

// WithStrategy selects the partitioning strategy. UnionFind is the default.
func WithStrategy(s Strategy) Option {
	return func(c *config) {
		if s != nil {
			c.strategy = s
		}
	}
}

// WithPolicy sets the merge policy used to fold clusters.
func WithPolicy(p *merge.Policy) Option {
	return func(c *config) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithNormalizer sets the identity value normalizer.
func WithNormalizer(n identity.Normalizer) Option {
	return func(c *config) {
		if n != nil {
			c.normalize = n
		}
	}
}

// Group partitions recs into clusters over the given identity fields.
// Clusters are ordered by their first member. Records without identity
// values form singleton clusters.
func Group(recs []records.Record, fields []string, opts ...Option) []Cluster {
	cfg := &config{
		strategy:  UnionFind,
		policy:    merge.New(),
		normalize: identity.Verbatim,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	keys := make([]identity.Set, len(recs))
	for i, rec := range recs {
		keys[i] = identity.ExtractWith(rec, fields, cfg.normalize)
	}

	groups := cfg.strategy.Partition(keys)
	clusters := make([]Cluster, 0, len(groups))
	for _, group := range groups {
		c := Cluster{Indices: group}
		for _, i := range group {
			c.Members = append(c.Members, recs[i])
			c.Keys.Union(keys[i])
		}
		c.Merged = cfg.policy.Fold(c.Members)
		clusters = append(clusters, c)
	}
	return clusters
}
