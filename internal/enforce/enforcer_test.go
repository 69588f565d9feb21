package enforce

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"pgregory.net/rapid"

	"github.com/meridian-research/colloquy/internal/discovery"
	"github.com/meridian-research/colloquy/internal/extractor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTaxonomy() *discovery.Taxonomy {
	return &discovery.Taxonomy{
		Codes: []discovery.Code{
			{ID: "A", Name: "Trust"},
			{ID: "B", Name: "Risk"},
		},
		EntityTypes: []discovery.EntityType{
			{ID: "et1", Name: "organization"},
			{ID: "et2", Name: "product"},
		},
		RelationshipTypes: []discovery.RelationshipType{
			{ID: "rt1", Name: "uses"},
		},
	}
}

func TestFilter_StripsUnknownQuoteCodes(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	batch := &extractor.Batch{
		Quotes: []extractor.Quote{
			{QuoteID: "q1", CodeIDs: []string{"A", "C"}},
		},
	}

	filtered, report := e.Filter(batch)

	if len(filtered.Quotes) != 1 {
		t.Fatal("quote must survive code filtering")
	}
	if !reflect.DeepEqual(filtered.Quotes[0].CodeIDs, []string{"A"}) {
		t.Errorf("code_ids = %v, want [A]", filtered.Quotes[0].CodeIDs)
	}
	if !reflect.DeepEqual(report.InvalidCodes, []string{"C"}) {
		t.Errorf("invalid_codes = %v, want [C]", report.InvalidCodes)
	}
}

func TestFilter_DropsEntityWithUnknownType(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	batch := &extractor.Batch{
		Entities: []extractor.Entity{
			{Name: "Acme", Type: "organization"},
			{Name: "Ghost", Type: "spirit"},
		},
	}

	filtered, report := e.Filter(batch)

	if len(filtered.Entities) != 1 || filtered.Entities[0].Name != "Acme" {
		t.Errorf("entities = %v, want only Acme", filtered.Entities)
	}
	if !reflect.DeepEqual(report.InvalidEntityTypes, []string{"spirit"}) {
		t.Errorf("invalid_entity_types = %v", report.InvalidEntityTypes)
	}
}

func TestFilter_DroppedEntityTakesRelationshipsWithIt(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	batch := &extractor.Batch{
		Entities: []extractor.Entity{
			{Name: "Acme", Type: "organization"},
			{Name: "Ghost", Type: "spirit"},
		},
		Relationships: []extractor.Relationship{
			{SourceEntity: "Acme", TargetEntity: "Ghost", Type: "uses"},
		},
	}

	filtered, report := e.Filter(batch)

	if len(filtered.Relationships) != 0 {
		t.Errorf("relationship with dropped endpoint must not survive: %v", filtered.Relationships)
	}
	if len(report.DanglingRelationships) != 1 {
		t.Errorf("dangling_relationships = %v", report.DanglingRelationships)
	}
}

func TestFilter_DropsUnknownRelationshipType(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	batch := &extractor.Batch{
		Entities: []extractor.Entity{
			{Name: "Acme", Type: "organization"},
			{Name: "Widget", Type: "product"},
		},
		Relationships: []extractor.Relationship{
			{SourceEntity: "Acme", TargetEntity: "Widget", Type: "devours"},
			{SourceEntity: "Acme", TargetEntity: "Widget", Type: "uses"},
		},
	}

	filtered, report := e.Filter(batch)

	if len(filtered.Relationships) != 1 || filtered.Relationships[0].Type != "uses" {
		t.Errorf("relationships = %v, want only uses", filtered.Relationships)
	}
	if !reflect.DeepEqual(report.InvalidRelationshipTypes, []string{"devours"}) {
		t.Errorf("invalid_relationship_types = %v", report.InvalidRelationshipTypes)
	}
}

func TestFilter_EntityTypeMatchIsCaseInsensitive(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	batch := &extractor.Batch{
		Entities: []extractor.Entity{{Name: "Acme", Type: "Organization"}},
	}
	filtered, report := e.Filter(batch)
	if len(filtered.Entities) != 1 {
		t.Error("case difference alone must not drop an entity")
	}
	if !report.Empty() {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	e := New(testTaxonomy(), discardLogger())

	rapid.Check(t, func(rt *rapid.T) {
		codePool := []string{"A", "B", "C", "X"}
		typePool := []string{"organization", "product", "spirit"}
		relPool := []string{"uses", "devours"}
		namePool := []string{"Acme", "Widget", "Ghost", "Beacon"}

		batch := &extractor.Batch{}
		for i, n := 0, rapid.IntRange(0, 5).Draw(rt, "quotes"); i < n; i++ {
			var ids []string
			for j, m := 0, rapid.IntRange(0, 3).Draw(rt, "codes"); j < m; j++ {
				ids = append(ids, codePool[rapid.IntRange(0, 3).Draw(rt, "code")])
			}
			batch.Quotes = append(batch.Quotes, extractor.Quote{QuoteID: "q", CodeIDs: ids})
		}
		for i, n := 0, rapid.IntRange(0, 4).Draw(rt, "entities"); i < n; i++ {
			batch.Entities = append(batch.Entities, extractor.Entity{
				Name: namePool[rapid.IntRange(0, 3).Draw(rt, "name")],
				Type: typePool[rapid.IntRange(0, 2).Draw(rt, "type")],
			})
		}
		for i, n := 0, rapid.IntRange(0, 4).Draw(rt, "rels"); i < n; i++ {
			batch.Relationships = append(batch.Relationships, extractor.Relationship{
				SourceEntity: namePool[rapid.IntRange(0, 3).Draw(rt, "src")],
				TargetEntity: namePool[rapid.IntRange(0, 3).Draw(rt, "tgt")],
				Type:         relPool[rapid.IntRange(0, 1).Draw(rt, "rel")],
			})
		}

		once, _ := e.Filter(batch)
		twice, report := e.Filter(once)

		if !report.Empty() {
			rt.Fatalf("re-filtering filtered output reported violations: %+v", report)
		}
		if !reflect.DeepEqual(once, twice) {
			rt.Fatalf("filtering is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
		}
	})
}
