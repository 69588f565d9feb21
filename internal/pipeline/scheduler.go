package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-research/colloquy/internal/chains"
	"github.com/meridian-research/colloquy/internal/enforce"
	"github.com/meridian-research/colloquy/internal/extractor"
)

// DefaultConcurrency bounds in-flight per-document extraction. The bottleneck
// is oracle latency, not compute, so the bound is an admission limit rather
// than a worker-per-core pool.
const DefaultConcurrency = 5

// Document is one transcript queued for extraction.
type Document struct {
	ID   string
	Path string
	Text string
}

// DocumentResult is everything retained from one successfully processed
// document.
type DocumentResult struct {
	DocID       string
	Batch       *extractor.Batch
	Report      enforce.Report
	Connections []chains.Connection
	Confidence  float64 // mean confidence of retained items, 0 if none
}

// DocumentError records a per-document failure. Failures are isolated: they
// never abort sibling documents.
type DocumentError struct {
	DocID string
	Err   error
}

// GlobalEntity is an entity deduplicated across documents by (name, type).
type GlobalEntity struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Description     string   `json:"description,omitempty"`
	MentionCount    int      `json:"mention_count"`
	SourceDocuments []string `json:"source_documents"`
	Confidence      float64  `json:"confidence"`
}

// GlobalRelationship is a relationship deduplicated across documents by
// (source, target, type).
type GlobalRelationship struct {
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	Type            string   `json:"type"`
	MentionCount    int      `json:"mention_count"`
	SourceDocuments []string `json:"source_documents"`
	Confidence      float64  `json:"confidence"`
}

// RunResult aggregates a whole scheduler run.
type RunResult struct {
	Documents         []*DocumentResult
	Failures          []DocumentError
	Entities          []GlobalEntity
	Relationships     []GlobalRelationship
	OverallConfidence float64
}

// ProcessFunc performs the full extraction for one document. Implementations
// must keep quote extraction ahead of entity extraction internally; the
// scheduler guarantees nothing across documents.
type ProcessFunc func(ctx context.Context, doc Document) (*DocumentResult, error)

// Scheduler fans documents out to a bounded pool and aggregates the results.
type Scheduler struct {
	concurrency int
	logger      *slog.Logger
}

func NewScheduler(concurrency int, logger *slog.Logger) *Scheduler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{concurrency: concurrency, logger: logger}
}

// Run processes all documents with at most the configured number in flight.
// A per-document failure is logged with its document id and excluded. The run
// itself fails only when no document succeeds. schemaConfidences (from
// discovery) joins the per-document confidences in the overall mean.
func (s *Scheduler) Run(ctx context.Context, docs []Document, schemaConfidences []float64, process ProcessFunc) (*RunResult, error) {
	var (
		mu       sync.Mutex
		results  []*DocumentResult
		failures []DocumentError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			res, err := process(gctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Absorbed here so sibling documents keep running.
				s.logger.Error("document failed", "doc_id", doc.ID, "error", err)
				failures = append(failures, DocumentError{DocID: doc.ID, Err: err})
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	_ = g.Wait()

	if len(results) == 0 {
		return nil, fmt.Errorf("no documents processed successfully (%d failed)", len(failures))
	}

	// Deterministic aggregation regardless of completion order.
	sort.Slice(results, func(i, j int) bool { return results[i].DocID < results[j].DocID })

	run := &RunResult{
		Documents: results,
		Failures:  failures,
	}
	run.Entities, run.Relationships = aggregate(results)
	run.OverallConfidence = overallConfidence(results, schemaConfidences)

	s.logger.Info("run complete",
		"documents", len(results),
		"failed", len(failures),
		"entities", len(run.Entities),
		"relationships", len(run.Relationships),
		"overall_confidence", run.OverallConfidence,
	)
	return run, nil
}

func aggregate(results []*DocumentResult) ([]GlobalEntity, []GlobalRelationship) {
	entities := map[string]*GlobalEntity{}
	relationships := map[string]*GlobalRelationship{}

	for _, res := range results {
		for _, ent := range res.Batch.Entities {
			key := strings.ToLower(ent.Name) + "\x00" + strings.ToLower(ent.Type)
			g, ok := entities[key]
			if !ok {
				g = &GlobalEntity{
					Name:        ent.Name,
					Type:        ent.Type,
					Description: ent.Description,
					Confidence:  ent.Confidence,
				}
				entities[key] = g
			}
			g.MentionCount += ent.MentionCount
			g.SourceDocuments = unionDoc(g.SourceDocuments, res.DocID)
			if ent.Confidence > g.Confidence {
				g.Confidence = ent.Confidence
			}
		}

		for _, rel := range res.Batch.Relationships {
			key := strings.ToLower(rel.SourceEntity) + "\x00" + strings.ToLower(rel.TargetEntity) + "\x00" + strings.ToLower(rel.Type)
			g, ok := relationships[key]
			if !ok {
				g = &GlobalRelationship{
					Source:     rel.SourceEntity,
					Target:     rel.TargetEntity,
					Type:       rel.Type,
					Confidence: rel.Confidence,
				}
				relationships[key] = g
			}
			g.MentionCount++
			g.SourceDocuments = unionDoc(g.SourceDocuments, res.DocID)
			if rel.Confidence > g.Confidence {
				g.Confidence = rel.Confidence
			}
		}
	}

	ents := make([]GlobalEntity, 0, len(entities))
	for _, g := range entities {
		ents = append(ents, *g)
	}
	sort.Slice(ents, func(i, j int) bool {
		if ents[i].Name != ents[j].Name {
			return ents[i].Name < ents[j].Name
		}
		return ents[i].Type < ents[j].Type
	})

	rels := make([]GlobalRelationship, 0, len(relationships))
	for _, g := range relationships {
		rels = append(rels, *g)
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Source != rels[j].Source {
			return rels[i].Source < rels[j].Source
		}
		if rels[i].Target != rels[j].Target {
			return rels[i].Target < rels[j].Target
		}
		return rels[i].Type < rels[j].Type
	})

	return ents, rels
}

func unionDoc(docs []string, id string) []string {
	for _, d := range docs {
		if d == id {
			return docs
		}
	}
	return append(docs, id)
}

// overallConfidence is the unweighted mean over per-document and per-schema
// confidences, 0 when neither exists.
func overallConfidence(results []*DocumentResult, schemaConfidences []float64) float64 {
	var sum float64
	var n int
	for _, res := range results {
		sum += res.Confidence
		n++
	}
	for _, c := range schemaConfidences {
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MeanConfidence computes a document's retained-item confidence: the mean
// over its quotes and entities, 0 if the document produced nothing.
func MeanConfidence(batch *extractor.Batch) float64 {
	var sum float64
	var n int
	for _, q := range batch.Quotes {
		sum += q.Confidence
		n++
	}
	for _, e := range batch.Entities {
		sum += e.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
