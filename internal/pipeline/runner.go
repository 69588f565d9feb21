// Package pipeline schedules per-document taxonomy application under a
// bounded admission pool and aggregates global results.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meridian-research/colloquy/internal/chains"
	"github.com/meridian-research/colloquy/internal/dialogue"
	"github.com/meridian-research/colloquy/internal/discovery"
	"github.com/meridian-research/colloquy/internal/enforce"
	"github.com/meridian-research/colloquy/internal/events"
	"github.com/meridian-research/colloquy/internal/extractor"
	"github.com/meridian-research/colloquy/internal/store"
)

// Config carries the runner knobs surfaced through configuration.
type Config struct {
	Concurrency int
	Chains      chains.Config
}

// Status is a point-in-time snapshot of a run, served by the status API.
type Status struct {
	Phase          string `json:"phase"`
	DocumentsTotal int    `json:"documents_total"`
	DocumentsDone  int    `json:"documents_done"`
	DocumentsFail  int    `json:"documents_failed"`
}

// Runner orchestrates one full analysis run: discovery over the corpus, then
// concurrent per-document application, then chain building, aggregation, and
// persistence. Store and publisher are optional; a nil sink just skips that
// output.
type Runner struct {
	cfg        Config
	detector   *dialogue.Detector
	controller *discovery.Controller
	extractor  *extractor.Extractor
	chainer    *chains.Chainer
	scheduler  *Scheduler
	graph      *store.Store
	publisher  *events.Publisher
	logger     *slog.Logger

	mu     sync.Mutex
	status Status
}

func NewRunner(cfg Config, ctrl *discovery.Controller, ext *extractor.Extractor, graph *store.Store, pub *events.Publisher, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		detector:   dialogue.NewDetector(),
		controller: ctrl,
		extractor:  ext,
		chainer:    chains.New(cfg.Chains, logger),
		scheduler:  NewScheduler(cfg.Concurrency, logger),
		graph:      graph,
		publisher:  pub,
		logger:     logger,
		status:     Status{Phase: "idle"},
	}
}

// Status returns the current run snapshot.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) setPhase(phase string) {
	r.mu.Lock()
	r.status.Phase = phase
	r.mu.Unlock()
}

func (r *Runner) markDocument(failed bool) {
	r.mu.Lock()
	if failed {
		r.status.DocumentsFail++
	} else {
		r.status.DocumentsDone++
	}
	r.mu.Unlock()
}

// RunOutput is the full outcome of an analysis run.
type RunOutput struct {
	Result *RunResult
	Chains []chains.Chain
}

// Run executes the pipeline over the given documents. Discovery failures are
// fatal; per-document failures are absorbed by the scheduler.
func (r *Runner) Run(ctx context.Context, docs []Document) (*RunOutput, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents to process")
	}

	r.mu.Lock()
	r.status = Status{Phase: "discovery", DocumentsTotal: len(docs)}
	r.mu.Unlock()

	if r.publisher != nil {
		r.publisher.RunStarted(len(docs))
	}

	corpus := buildCorpus(docs)
	disc, err := r.controller.Run(ctx, corpus)
	if err != nil {
		r.setPhase("failed")
		return nil, fmt.Errorf("schema discovery: %w", err)
	}

	// Frozen from here on: the enforcer and every document task only read it.
	enforcer := enforce.New(&disc.Taxonomy, r.logger)

	r.setPhase("applying")
	result, err := r.scheduler.Run(ctx, docs, disc.Confidences, func(ctx context.Context, doc Document) (*DocumentResult, error) {
		res, err := r.processDocument(ctx, doc, &disc.Taxonomy, enforcer)
		r.markDocument(err != nil)
		if r.publisher != nil {
			r.publisher.DocumentDone(doc.ID, err)
		}
		return res, err
	})
	if err != nil {
		r.setPhase("failed")
		return nil, err
	}

	r.setPhase("chaining")
	var allConnections []chains.Connection
	for _, dr := range result.Documents {
		allConnections = append(allConnections, dr.Connections...)
	}
	built := r.chainer.Build(allConnections)
	reported := r.chainer.Report(built)

	if r.graph != nil {
		r.setPhase("persisting")
		if err := persistGraph(ctx, r.graph, &disc.Taxonomy, result); err != nil {
			// Extraction succeeded; a sink failure should not erase the run.
			r.logger.Error("graph persistence failed", "error", err)
		}
	}

	if r.publisher != nil {
		r.publisher.RunComplete(len(result.Documents), len(result.Failures), result.OverallConfidence)
	}

	r.setPhase("done")
	return &RunOutput{Result: result, Chains: reported}, nil
}

// processDocument runs detection, context building, extraction, enforcement,
// and connection judging for one document. Quote extraction strictly precedes
// entity extraction inside Extract.
func (r *Runner) processDocument(ctx context.Context, doc Document, tax *discovery.Taxonomy, enforcer *enforce.Enforcer) (*DocumentResult, error) {
	turns := r.detector.DetectTurns(doc.ID, doc.Text)
	if len(turns) == 0 {
		return nil, fmt.Errorf("document %s is empty", doc.ID)
	}
	contexts := dialogue.BuildContexts(turns)

	transcript := formatTurns(turns, contexts)
	batch, err := r.extractor.Extract(ctx, doc.ID, transcript, tax)
	if err != nil {
		return nil, err
	}

	clean, report := enforcer.Filter(batch)

	connections, err := r.extractor.JudgeConnections(ctx, clean.Quotes)
	if err != nil {
		// Connections enrich the run but are not load-bearing for the
		// document's own records.
		r.logger.Warn("connection judging failed", "doc_id", doc.ID, "error", err)
		connections = nil
	}

	return &DocumentResult{
		DocID:       doc.ID,
		Batch:       clean,
		Report:      report,
		Connections: connections,
		Confidence:  MeanConfidence(clean),
	}, nil
}

// formatTurns renders detected turns as an annotated transcript for the
// oracle, carrying sequence numbers so quote positions line up.
func formatTurns(turns []dialogue.DialogueTurn, contexts map[string]dialogue.ConversationalContext) string {
	var sb strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&sb, "[%d] %s (%s", t.SequenceNumber, t.SpeakerName, t.TurnType)
		if ctx, ok := contexts[t.TurnID]; ok {
			fmt.Fprintf(&sb, ", %s", ctx.TopicContinuity)
		}
		sb.WriteString("): ")
		sb.WriteString(t.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func buildCorpus(docs []Document) string {
	var sb strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&sb, "=== DOCUMENT %s ===\n%s\n\n", d.ID, d.Text)
	}
	return sb.String()
}
