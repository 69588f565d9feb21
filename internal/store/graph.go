package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// EntityRecord is a graph node with a stable identifier.
type EntityRecord struct {
	ID         uuid.UUID
	Name       string
	Type       string
	Properties map[string]any
	Labels     []string
}

// RelationshipRecord is a typed edge between two persisted entities.
type RelationshipRecord struct {
	SourceID   uuid.UUID
	TargetID   uuid.UUID
	Type       string
	Properties map[string]any
}

// CodeNode is one node of the code hierarchy. ParentID is uuid.Nil for roots;
// hierarchy edges are written after their leaf nodes in the same transaction,
// so the parent row always exists first.
type CodeNode struct {
	ID       uuid.UUID
	Name     string
	ParentID uuid.UUID
	Level    int
}

// WriteGraph persists one run's aggregated graph in a single transaction.
// Tables: graph_entities, graph_relationships, code_nodes, code_hierarchy.
func (s *Store) WriteGraph(ctx context.Context, runID uuid.UUID, entities []EntityRecord, relationships []RelationshipRecord, codes []CodeNode) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ent := range entities {
		_, err = tx.Exec(ctx, `
			INSERT INTO graph_entities (id, run_id, name, entity_type, properties, labels, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())`,
			ent.ID, runID, ent.Name, ent.Type, ent.Properties, ent.Labels,
		)
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", ent.Name, err)
		}
	}

	for _, rel := range relationships {
		_, err = tx.Exec(ctx, `
			INSERT INTO graph_relationships (id, run_id, source_id, target_id, rel_type, properties, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())`,
			uuid.New(), runID, rel.SourceID, rel.TargetID, rel.Type, rel.Properties,
		)
		if err != nil {
			return fmt.Errorf("insert relationship %s: %w", rel.Type, err)
		}
	}

	// Leaf nodes first, hierarchy edges second.
	for _, code := range codes {
		_, err = tx.Exec(ctx, `
			INSERT INTO code_nodes (id, run_id, name, level, created_at)
			VALUES ($1, $2, $3, $4, now())`,
			code.ID, runID, code.Name, code.Level,
		)
		if err != nil {
			return fmt.Errorf("insert code node %s: %w", code.Name, err)
		}
	}
	for _, code := range codes {
		if code.ParentID == uuid.Nil {
			continue
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO code_hierarchy (id, run_id, child_id, parent_id)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), runID, code.ID, code.ParentID,
		)
		if err != nil {
			return fmt.Errorf("insert hierarchy edge for %s: %w", code.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit graph: %w", err)
	}
	return nil
}
