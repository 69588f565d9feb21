package pipeline

import (
	"testing"

	"github.com/google/uuid"

	"github.com/meridian-research/colloquy/internal/discovery"
)

func TestBuildGraphRecords_SameNameDifferentTypes(t *testing.T) {
	// Aggregate order: sorted by name then type.
	result := &RunResult{
		Entities: []GlobalEntity{
			{Name: "Mercury", Type: "organization", MentionCount: 2, Confidence: 0.9},
			{Name: "Mercury", Type: "product", MentionCount: 1, Confidence: 0.8},
		},
		Relationships: []GlobalRelationship{
			{Source: "Mercury", Target: "Mercury", Type: "uses", MentionCount: 1, Confidence: 0.7},
		},
	}

	records, edges, _, err := buildGraphRecords(&discovery.Taxonomy{}, result)
	if err != nil {
		t.Fatalf("buildGraphRecords: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("entity records = %d, want 2 distinct nodes", len(records))
	}
	if records[0].ID == records[1].ID {
		t.Error("same-named entities of different types must get distinct ids")
	}

	// Name-only endpoints attach to the first aggregated node (smallest type).
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want 1", len(edges))
	}
	orgID := records[0].ID
	if records[0].Type != "organization" {
		orgID = records[1].ID
	}
	if edges[0].SourceID != orgID || edges[0].TargetID != orgID {
		t.Errorf("edge endpoints = %v -> %v, want both %v", edges[0].SourceID, edges[0].TargetID, orgID)
	}
}

func TestBuildGraphRecords_UnknownEndpointFails(t *testing.T) {
	result := &RunResult{
		Entities: []GlobalEntity{
			{Name: "Acme", Type: "organization", MentionCount: 1, Confidence: 0.9},
		},
		Relationships: []GlobalRelationship{
			{Source: "Acme", Target: "Nowhere", Type: "uses", MentionCount: 1, Confidence: 0.7},
		},
	}

	if _, _, _, err := buildGraphRecords(&discovery.Taxonomy{}, result); err == nil {
		t.Fatal("expected error for relationship endpoint with no aggregated entity")
	}
}

func TestBuildGraphRecords_CodeHierarchyRemapped(t *testing.T) {
	tax := &discovery.Taxonomy{
		Codes: []discovery.Code{
			{ID: "c1", Name: "Trust", Level: 0},
			{ID: "c2", Name: "Trust in automation", ParentID: "c1", Level: 1},
		},
	}

	_, _, nodes, err := buildGraphRecords(tax, &RunResult{})
	if err != nil {
		t.Fatalf("buildGraphRecords: %v", err)
	}

	if len(nodes) != 2 {
		t.Fatalf("code nodes = %d, want 2", len(nodes))
	}
	if nodes[0].ParentID != uuid.Nil {
		t.Errorf("root parent = %v, want nil uuid", nodes[0].ParentID)
	}
	if nodes[1].ParentID != nodes[0].ID {
		t.Errorf("child parent = %v, want root id %v", nodes[1].ParentID, nodes[0].ID)
	}
}
