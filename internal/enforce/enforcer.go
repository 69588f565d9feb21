// Package enforce compiles a frozen taxonomy into closed-set membership
// checks and filters extracted records against them. Violations are never
// errors: records are filtered and reported, because the oracle is allowed
// to be wrong per item without poisoning the batch.
package enforce

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/meridian-research/colloquy/internal/discovery"
	"github.com/meridian-research/colloquy/internal/extractor"
)

// Report lists every taxonomy-membership violation found in one batch.
// Lists are deduplicated and sorted for stable output.
type Report struct {
	InvalidCodes             []string `json:"invalid_codes"`
	InvalidEntityTypes       []string `json:"invalid_entity_types"`
	InvalidRelationshipTypes []string `json:"invalid_relationship_types"`
	DanglingRelationships    []string `json:"dangling_relationships"`
}

// Empty reports whether the batch passed without violations.
func (r Report) Empty() bool {
	return len(r.InvalidCodes) == 0 &&
		len(r.InvalidEntityTypes) == 0 &&
		len(r.InvalidRelationshipTypes) == 0 &&
		len(r.DanglingRelationships) == 0
}

// Enforcer holds the compiled membership sets. It is built once per run from
// the frozen taxonomy and is safe for concurrent use.
type Enforcer struct {
	codeIDs     map[string]struct{}
	entityTypes map[string]struct{}
	relTypes    map[string]struct{}
	logger      *slog.Logger
}

func New(tax *discovery.Taxonomy, logger *slog.Logger) *Enforcer {
	return &Enforcer{
		codeIDs:     tax.CodeIDs(),
		entityTypes: tax.EntityTypeNames(),
		relTypes:    tax.RelationshipTypeNames(),
		logger:      logger,
	}
}

// Filter returns a cleaned copy of the batch plus a violation report.
//
// The asymmetry between quotes and entities is deliberate: a quote stripped
// of an unknown code is still usable evidence, but an entity with an unknown
// type cannot be integrated into a typed graph and is dropped wholesale. A
// relationship survives only if its type is known and both endpoints survived
// entity filtering. Filtering is idempotent.
func (e *Enforcer) Filter(batch *extractor.Batch) (*extractor.Batch, Report) {
	var report Report
	invalidCodes := map[string]struct{}{}
	invalidEntityTypes := map[string]struct{}{}
	invalidRelTypes := map[string]struct{}{}
	dangling := map[string]struct{}{}

	out := &extractor.Batch{
		Speakers: batch.Speakers,
	}

	for _, q := range batch.Quotes {
		kept := make([]string, 0, len(q.CodeIDs))
		for _, id := range q.CodeIDs {
			if _, ok := e.codeIDs[id]; ok {
				kept = append(kept, id)
			} else {
				invalidCodes[id] = struct{}{}
			}
		}
		q.CodeIDs = kept
		out.Quotes = append(out.Quotes, q)
	}

	surviving := map[string]struct{}{}
	for _, ent := range batch.Entities {
		if _, ok := e.entityTypes[strings.ToLower(ent.Type)]; !ok {
			invalidEntityTypes[ent.Type] = struct{}{}
			e.logger.Warn("dropping entity with unknown type", "entity", ent.Name, "type", ent.Type)
			continue
		}
		surviving[strings.ToLower(ent.Name)] = struct{}{}
		out.Entities = append(out.Entities, ent)
	}

	for _, rel := range batch.Relationships {
		if _, ok := e.relTypes[strings.ToLower(rel.Type)]; !ok {
			invalidRelTypes[rel.Type] = struct{}{}
			continue
		}
		_, srcOK := surviving[strings.ToLower(rel.SourceEntity)]
		_, tgtOK := surviving[strings.ToLower(rel.TargetEntity)]
		if !srcOK || !tgtOK {
			dangling[rel.SourceEntity+" -> "+rel.TargetEntity] = struct{}{}
			continue
		}
		out.Relationships = append(out.Relationships, rel)
	}

	report.InvalidCodes = sortedKeys(invalidCodes)
	report.InvalidEntityTypes = sortedKeys(invalidEntityTypes)
	report.InvalidRelationshipTypes = sortedKeys(invalidRelTypes)
	report.DanglingRelationships = sortedKeys(dangling)

	if !report.Empty() {
		e.logger.Info("schema violations filtered",
			"invalid_codes", len(report.InvalidCodes),
			"invalid_entity_types", len(report.InvalidEntityTypes),
			"invalid_relationship_types", len(report.InvalidRelationshipTypes),
			"dangling_relationships", len(report.DanglingRelationships),
		)
	}
	return out, report
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
