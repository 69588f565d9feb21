// Package extractor applies a frozen taxonomy to a single document through
// oracle calls. Quote extraction always completes before entity extraction —
// entities are cross-referenced against already-coded quote text.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-research/colloquy/internal/chains"
	"github.com/meridian-research/colloquy/internal/discovery"
)

// Oracle is the slice of the LLM client the extractor needs.
type Oracle interface {
	CompleteJSON(ctx context.Context, system, prompt string, maxTokens int, out any) error
}

type Extractor struct {
	oracle Oracle
	logger *slog.Logger
}

func New(oracle Oracle, logger *slog.Logger) *Extractor {
	return &Extractor{oracle: oracle, logger: logger}
}

type quotesPayload struct {
	Quotes   []Quote          `json:"quotes"`
	Speakers []SpeakerProfile `json:"speakers"`
}

type entitiesPayload struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

type connectionsPayload struct {
	Connections []chains.Connection `json:"connections"`
}

// Extract runs the full per-document extraction against the frozen taxonomy.
// The two oracle calls are strictly ordered within the document; failures
// propagate to the caller, which treats them as document-level and skips the
// document.
func (e *Extractor) Extract(ctx context.Context, docID, transcript string, tax *discovery.Taxonomy) (*Batch, error) {
	quotes, speakers, err := e.extractQuotes(ctx, docID, transcript, tax)
	if err != nil {
		return nil, fmt.Errorf("extract quotes: %w", err)
	}

	entities, relationships, err := e.extractEntities(ctx, docID, transcript, quotes, tax)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	e.logger.Info("document extracted",
		"doc_id", docID,
		"quotes", len(quotes),
		"speakers", len(speakers),
		"entities", len(entities),
		"relationships", len(relationships),
	)

	return &Batch{
		Quotes:        quotes,
		Speakers:      speakers,
		Entities:      entities,
		Relationships: relationships,
	}, nil
}

func (e *Extractor) extractQuotes(ctx context.Context, docID, transcript string, tax *discovery.Taxonomy) ([]Quote, []SpeakerProfile, error) {
	prompt := fmt.Sprintf(quotesUserPrompt,
		formatCodes(tax.Codes),
		formatSpeakerProperties(tax.SpeakerProperties),
		docID,
		transcript,
	)

	var payload quotesPayload
	if err := e.oracle.CompleteJSON(ctx, extractionSystemPrompt, prompt, 8192, &payload); err != nil {
		return nil, nil, err
	}

	for i := range payload.Quotes {
		if payload.Quotes[i].QuoteID == "" {
			payload.Quotes[i].QuoteID = fmt.Sprintf("%s#quote-%s", docID, uuid.NewString()[:8])
		}
	}
	return payload.Quotes, payload.Speakers, nil
}

func (e *Extractor) extractEntities(ctx context.Context, docID, transcript string, quotes []Quote, tax *discovery.Taxonomy) ([]Entity, []Relationship, error) {
	prompt := fmt.Sprintf(entitiesUserPrompt,
		formatEntityTypes(tax.EntityTypes),
		formatRelationshipTypes(tax.RelationshipTypes),
		formatQuoteText(quotes),
		docID,
		transcript,
	)

	var payload entitiesPayload
	if err := e.oracle.CompleteJSON(ctx, extractionSystemPrompt, prompt, 8192, &payload); err != nil {
		return nil, nil, err
	}

	for i := range payload.Entities {
		if payload.Entities[i].ID == "" {
			payload.Entities[i].ID = uuid.NewString()
		}
		if payload.Entities[i].MentionCount == 0 {
			payload.Entities[i].MentionCount = 1
		}
		payload.Entities[i].SourceDocuments = []string{docID}
	}
	return payload.Entities, payload.Relationships, nil
}

// JudgeConnections asks the oracle for pairwise thematic connections between
// the document's coded quotes. An empty or single-quote set needs no call.
func (e *Extractor) JudgeConnections(ctx context.Context, quotes []Quote) ([]chains.Connection, error) {
	if len(quotes) < 2 {
		return nil, nil
	}

	prompt := fmt.Sprintf(connectionsUserPrompt, formatQuotesForConnections(quotes))

	var payload connectionsPayload
	if err := e.oracle.CompleteJSON(ctx, extractionSystemPrompt, prompt, 8192, &payload); err != nil {
		return nil, fmt.Errorf("judge connections: %w", err)
	}

	// The oracle only sees ids and text; positions and speakers are filled in
	// from the quotes themselves.
	byID := make(map[string]Quote, len(quotes))
	for _, q := range quotes {
		byID[q.QuoteID] = q
	}
	out := payload.Connections[:0]
	for _, conn := range payload.Connections {
		src, srcOK := byID[conn.SourceQuoteID]
		tgt, tgtOK := byID[conn.TargetQuoteID]
		if !srcOK || !tgtOK {
			e.logger.Warn("connection references unknown quote",
				"source", conn.SourceQuoteID,
				"target", conn.TargetQuoteID,
			)
			continue
		}
		conn.SourcePosition = src.SequencePosition
		conn.TargetPosition = tgt.SequencePosition
		conn.SourceSpeaker = src.Speaker
		conn.TargetSpeaker = tgt.Speaker
		out = append(out, conn)
	}
	return out, nil
}

func formatCodes(codes []discovery.Code) string {
	var sb strings.Builder
	for _, c := range codes {
		indent := strings.Repeat("  ", c.Level)
		fmt.Fprintf(&sb, "%s- %s (%s): %s\n", indent, c.ID, c.Name, c.Description)
	}
	return sb.String()
}

func formatSpeakerProperties(props []discovery.SpeakerProperty) string {
	var sb strings.Builder
	for _, p := range props {
		fmt.Fprintf(&sb, "- %s: %s\n", p.Name, p.Description)
	}
	return sb.String()
}

func formatEntityTypes(types []discovery.EntityType) string {
	var sb strings.Builder
	for _, t := range types {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
	}
	return sb.String()
}

func formatRelationshipTypes(types []discovery.RelationshipType) string {
	var sb strings.Builder
	for _, t := range types {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
	}
	return sb.String()
}

func formatQuoteText(quotes []Quote) string {
	var sb strings.Builder
	for _, q := range quotes {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", q.QuoteID, q.Speaker, q.Text)
	}
	return sb.String()
}

func formatQuotesForConnections(quotes []Quote) string {
	var sb strings.Builder
	for _, q := range quotes {
		fmt.Fprintf(&sb, "[%s] (position %d) %s: %s\n", q.QuoteID, q.SequencePosition, q.Speaker, q.Text)
	}
	return sb.String()
}
