package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meridian-research/colloquy/internal/extractor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("doc-%d", i+1), Text: "text"}
	}
	return docs
}

func TestSchedulerRun_IsolatesFailures(t *testing.T) {
	s := NewScheduler(2, discardLogger())
	docs := makeDocs(5)

	process := func(_ context.Context, doc Document) (*DocumentResult, error) {
		if doc.ID == "doc-3" {
			return nil, fmt.Errorf("oracle exploded")
		}
		return &DocumentResult{
			DocID: doc.ID,
			Batch: &extractor.Batch{
				Entities: []extractor.Entity{
					{Name: "Acme", Type: "organization", MentionCount: 1, Confidence: 0.8},
				},
			},
			Confidence: 0.8,
		}, nil
	}

	result, err := s.Run(context.Background(), docs, nil, process)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Documents) != 4 {
		t.Errorf("successful documents = %d, want 4", len(result.Documents))
	}
	if len(result.Failures) != 1 || result.Failures[0].DocID != "doc-3" {
		t.Errorf("failures = %v, want doc-3 only", result.Failures)
	}

	// Global aggregation equals the de-duplicated sum across the 4 successes.
	if len(result.Entities) != 1 {
		t.Fatalf("global entities = %d, want 1", len(result.Entities))
	}
	acme := result.Entities[0]
	if acme.MentionCount != 4 {
		t.Errorf("mention_count = %d, want 4", acme.MentionCount)
	}
	if len(acme.SourceDocuments) != 4 {
		t.Errorf("source_documents = %v, want 4 docs", acme.SourceDocuments)
	}
}

func TestSchedulerRun_RespectsConcurrencyBound(t *testing.T) {
	s := NewScheduler(2, discardLogger())
	docs := makeDocs(6)

	var inFlight, peak atomic.Int32
	process := func(_ context.Context, doc Document) (*DocumentResult, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return &DocumentResult{DocID: doc.ID, Batch: &extractor.Batch{}}, nil
	}

	if _, err := s.Run(context.Background(), docs, nil, process); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", p)
	}
}

func TestSchedulerRun_ZeroSuccessesIsHardFailure(t *testing.T) {
	s := NewScheduler(2, discardLogger())

	process := func(_ context.Context, doc Document) (*DocumentResult, error) {
		return nil, fmt.Errorf("always fails")
	}

	if _, err := s.Run(context.Background(), makeDocs(3), nil, process); err == nil {
		t.Fatal("run with zero successful documents must fail")
	}
}

func TestSchedulerRun_AggregatesRelationships(t *testing.T) {
	s := NewScheduler(1, discardLogger())
	docs := makeDocs(2)

	process := func(_ context.Context, doc Document) (*DocumentResult, error) {
		return &DocumentResult{
			DocID: doc.ID,
			Batch: &extractor.Batch{
				Entities: []extractor.Entity{
					{Name: "Acme", Type: "organization", MentionCount: 2, Confidence: 0.9},
					{Name: "Widget", Type: "product", MentionCount: 1, Confidence: 0.7},
				},
				Relationships: []extractor.Relationship{
					{SourceEntity: "Acme", TargetEntity: "Widget", Type: "uses", Confidence: 0.6},
				},
			},
		}, nil
	}

	result, err := s.Run(context.Background(), docs, nil, process)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(result.Entities))
	}
	if result.Entities[0].Name != "Acme" || result.Entities[0].MentionCount != 4 {
		t.Errorf("Acme aggregate = %+v", result.Entities[0])
	}

	if len(result.Relationships) != 1 {
		t.Fatalf("relationships = %d, want 1", len(result.Relationships))
	}
	rel := result.Relationships[0]
	if rel.MentionCount != 2 || len(rel.SourceDocuments) != 2 {
		t.Errorf("relationship aggregate = %+v", rel)
	}
}

func TestSchedulerRun_CaseInsensitiveEntityKey(t *testing.T) {
	s := NewScheduler(1, discardLogger())

	calls := 0
	process := func(_ context.Context, doc Document) (*DocumentResult, error) {
		calls++
		name := "Acme"
		if calls == 2 {
			name = "ACME"
		}
		return &DocumentResult{
			DocID: doc.ID,
			Batch: &extractor.Batch{
				Entities: []extractor.Entity{{Name: name, Type: "organization", MentionCount: 1}},
			},
		}, nil
	}

	result, err := s.Run(context.Background(), makeDocs(2), nil, process)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Errorf("case-variant names should merge, got %d entities", len(result.Entities))
	}
}

func TestOverallConfidence(t *testing.T) {
	results := []*DocumentResult{
		{Confidence: 0.8},
		{Confidence: 0.4},
	}
	if got := overallConfidence(results, []float64{0.6}); got < 0.599 || got > 0.601 {
		t.Errorf("overallConfidence = %v, want 0.6", got)
	}
	if got := overallConfidence(nil, nil); got != 0 {
		t.Errorf("empty confidence = %v, want 0", got)
	}
}

func TestMeanConfidence_EmptyBatch(t *testing.T) {
	if got := MeanConfidence(&extractor.Batch{}); got != 0 {
		t.Errorf("MeanConfidence(empty) = %v, want 0", got)
	}
}
