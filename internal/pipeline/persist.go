package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-research/colloquy/internal/discovery"
	"github.com/meridian-research/colloquy/internal/store"
)

// persistGraph maps the aggregated run onto the sink's record types and
// writes it.
func persistGraph(ctx context.Context, graph *store.Store, tax *discovery.Taxonomy, result *RunResult) error {
	records, edges, nodes, err := buildGraphRecords(tax, result)
	if err != nil {
		return err
	}
	return graph.WriteGraph(ctx, uuid.New(), records, edges, nodes)
}

// buildGraphRecords mints node ids and resolves relationship endpoints.
// One node is minted per aggregated (name, type) entity, so same-named
// entities of different types persist as distinct rows. Relationships only
// carry endpoint names; when a name is shared by several typed nodes, the
// edge attaches to the first in aggregate order (entities arrive sorted by
// name then type, so the tie goes to the lexically smallest type).
func buildGraphRecords(tax *discovery.Taxonomy, result *RunResult) ([]store.EntityRecord, []store.RelationshipRecord, []store.CodeNode, error) {
	idsByName := make(map[string]uuid.UUID, len(result.Entities))
	records := make([]store.EntityRecord, 0, len(result.Entities))
	for _, ent := range result.Entities {
		id := uuid.New()
		if _, ok := idsByName[strings.ToLower(ent.Name)]; !ok {
			idsByName[strings.ToLower(ent.Name)] = id
		}
		records = append(records, store.EntityRecord{
			ID:   id,
			Name: ent.Name,
			Type: ent.Type,
			Properties: map[string]any{
				"mention_count":    ent.MentionCount,
				"source_documents": ent.SourceDocuments,
				"confidence":       ent.Confidence,
			},
			Labels: []string{ent.Type},
		})
	}

	var edges []store.RelationshipRecord
	for _, rel := range result.Relationships {
		srcID, srcOK := idsByName[strings.ToLower(rel.Source)]
		tgtID, tgtOK := idsByName[strings.ToLower(rel.Target)]
		if !srcOK || !tgtOK {
			// Enforcement guarantees endpoints exist per document; a miss
			// here means aggregation and enforcement disagree.
			return nil, nil, nil, fmt.Errorf("relationship %s -> %s references unaggregated entity", rel.Source, rel.Target)
		}
		edges = append(edges, store.RelationshipRecord{
			SourceID: srcID,
			TargetID: tgtID,
			Type:     rel.Type,
			Properties: map[string]any{
				"mention_count":    rel.MentionCount,
				"source_documents": rel.SourceDocuments,
				"confidence":       rel.Confidence,
			},
		})
	}

	codeIDs := make(map[string]uuid.UUID, len(tax.Codes))
	for _, code := range tax.Codes {
		codeIDs[code.ID] = uuid.New()
	}
	nodes := make([]store.CodeNode, 0, len(tax.Codes))
	for _, code := range tax.Codes {
		node := store.CodeNode{
			ID:    codeIDs[code.ID],
			Name:  code.Name,
			Level: code.Level,
		}
		if code.ParentID != "" {
			node.ParentID = codeIDs[code.ParentID]
		}
		nodes = append(nodes, node)
	}

	return records, edges, nodes, nil
}
