// Package discovery drives the sequential schema-discovery phases that turn
// a transcript corpus (and optional user-supplied definitions) into a frozen
// taxonomy. Any oracle or parse failure here aborts the whole run.
package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Oracle is the slice of the LLM client discovery needs.
type Oracle interface {
	CompleteJSON(ctx context.Context, system, prompt string, maxTokens int, out any) error
}

// Approach selects how one taxonomy category is obtained.
type Approach string

const (
	ApproachOpen   Approach = "open"   // oracle-discovered from the corpus
	ApproachClosed Approach = "closed" // user-supplied, oracle-parsed
	ApproachMixed  Approach = "mixed"  // user seed extended by discovery
)

// CategoryConfig configures one taxonomy category. Definitions holds the
// user-supplied free-text schema for closed and mixed approaches.
type CategoryConfig struct {
	Approach    Approach `yaml:"approach"`
	Definitions string   `yaml:"definitions"`
}

// Config selects the approach per category.
type Config struct {
	Codes    CategoryConfig `yaml:"codes"`
	Speakers CategoryConfig `yaml:"speakers"`
	Entities CategoryConfig `yaml:"entities"`
}

// Phase is the controller's position in the discovery sequence.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseCodesDiscovered
	PhaseSpeakerSchemaDiscovered
	PhaseEntitySchemaDiscovered
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseCodesDiscovered:
		return "codes_discovered"
	case PhaseSpeakerSchemaDiscovered:
		return "speaker_schema_discovered"
	case PhaseEntitySchemaDiscovered:
		return "entity_schema_discovered"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Result is the immutable outcome of a completed discovery run. It is passed
// by reference into the application phase; nothing mutates it afterwards.
type Result struct {
	Taxonomy    Taxonomy
	Confidences []float64 // per-schema discovery confidences, for the run mean
}

// Controller walks the discovery phases in order. Phases are strictly
// sequential — later prompts quote earlier schemas as context, so codes must
// settle before speakers, and speakers before entities.
type Controller struct {
	oracle Oracle
	cfg    Config
	logger *slog.Logger
	phase  Phase
}

func NewController(oracle Oracle, cfg Config, logger *slog.Logger) *Controller {
	return &Controller{
		oracle: oracle,
		cfg:    cfg,
		logger: logger,
		phase:  PhaseNotStarted,
	}
}

// Phase reports the controller's current discovery phase.
func (c *Controller) Phase() Phase { return c.phase }

// Run executes all discovery phases over the concatenated corpus and returns
// the frozen taxonomy. Any failure is fatal: the partial taxonomy built so
// far is discarded and the controller stays short of Ready.
func (c *Controller) Run(ctx context.Context, corpus string) (*Result, error) {
	if c.phase != PhaseNotStarted {
		return nil, fmt.Errorf("discovery already started (phase %s)", c.phase)
	}

	var tax Taxonomy
	var confidences []float64

	codes, err := c.discoverCodes(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("discover codes: %w", err)
	}
	tax.Codes = codes
	for _, code := range codes {
		confidences = append(confidences, code.DiscoveryConfidence)
	}
	c.phase = PhaseCodesDiscovered
	c.logger.Info("codes discovered", "count", len(codes), "approach", c.cfg.Codes.Approach)

	speakers, err := c.discoverSpeakerProperties(ctx, corpus, tax.Codes)
	if err != nil {
		return nil, fmt.Errorf("discover speaker schema: %w", err)
	}
	tax.SpeakerProperties = speakers
	for _, sp := range speakers {
		confidences = append(confidences, sp.DiscoveryConfidence)
	}
	c.phase = PhaseSpeakerSchemaDiscovered
	c.logger.Info("speaker schema discovered", "count", len(speakers), "approach", c.cfg.Speakers.Approach)

	entities, relationships, err := c.discoverEntitySchema(ctx, corpus, tax.Codes, tax.SpeakerProperties)
	if err != nil {
		return nil, fmt.Errorf("discover entity schema: %w", err)
	}
	tax.EntityTypes = entities
	tax.RelationshipTypes = relationships
	for _, et := range entities {
		confidences = append(confidences, et.DiscoveryConfidence)
	}
	for _, rt := range relationships {
		confidences = append(confidences, rt.DiscoveryConfidence)
	}
	c.phase = PhaseEntitySchemaDiscovered

	c.phase = PhaseReady
	c.logger.Info("discovery complete",
		"codes", len(tax.Codes),
		"speaker_properties", len(tax.SpeakerProperties),
		"entity_types", len(tax.EntityTypes),
		"relationship_types", len(tax.RelationshipTypes),
	)

	return &Result{Taxonomy: tax, Confidences: confidences}, nil
}

type codesPayload struct {
	Codes []Code `json:"codes"`
}

func (c *Controller) discoverCodes(ctx context.Context, corpus string) ([]Code, error) {
	var prompt string
	switch c.cfg.Codes.Approach {
	case ApproachClosed:
		prompt = fmt.Sprintf(parseCodesPrompt, c.cfg.Codes.Definitions)
	case ApproachMixed:
		prompt = fmt.Sprintf(mixedCodesPrompt, c.cfg.Codes.Definitions, corpus)
	default:
		prompt = fmt.Sprintf(openCodesPrompt, corpus)
	}

	var payload codesPayload
	if err := c.oracle.CompleteJSON(ctx, discoverySystemPrompt, prompt, 8192, &payload); err != nil {
		return nil, err
	}
	if len(payload.Codes) == 0 {
		return nil, fmt.Errorf("oracle returned no codes")
	}

	assignIDs(payload.Codes, func(code *Code) *string { return &code.ID })
	resolveParentNames(payload.Codes)
	if err := validateCodes(payload.Codes); err != nil {
		return nil, fmt.Errorf("invalid code schema: %w", err)
	}
	return payload.Codes, nil
}

type speakersPayload struct {
	Properties []SpeakerProperty `json:"speaker_properties"`
}

func (c *Controller) discoverSpeakerProperties(ctx context.Context, corpus string, codes []Code) ([]SpeakerProperty, error) {
	codeContext := codeNames(codes)

	var prompt string
	switch c.cfg.Speakers.Approach {
	case ApproachClosed:
		prompt = fmt.Sprintf(parseSpeakersPrompt, c.cfg.Speakers.Definitions)
	case ApproachMixed:
		prompt = fmt.Sprintf(mixedSpeakersPrompt, codeContext, c.cfg.Speakers.Definitions, corpus)
	default:
		prompt = fmt.Sprintf(openSpeakersPrompt, codeContext, corpus)
	}

	var payload speakersPayload
	if err := c.oracle.CompleteJSON(ctx, discoverySystemPrompt, prompt, 4096, &payload); err != nil {
		return nil, err
	}
	assignIDs(payload.Properties, func(p *SpeakerProperty) *string { return &p.ID })
	return payload.Properties, nil
}

type entitySchemaPayload struct {
	EntityTypes       []EntityType       `json:"entity_types"`
	RelationshipTypes []RelationshipType `json:"relationship_types"`
}

func (c *Controller) discoverEntitySchema(ctx context.Context, corpus string, codes []Code, speakers []SpeakerProperty) ([]EntityType, []RelationshipType, error) {
	schemaContext := fmt.Sprintf("Codes: %s\nSpeaker properties: %s", codeNames(codes), speakerNames(speakers))

	var prompt string
	switch c.cfg.Entities.Approach {
	case ApproachClosed:
		prompt = fmt.Sprintf(parseEntitiesPrompt, c.cfg.Entities.Definitions)
	case ApproachMixed:
		prompt = fmt.Sprintf(mixedEntitiesPrompt, schemaContext, c.cfg.Entities.Definitions, corpus)
	default:
		prompt = fmt.Sprintf(openEntitiesPrompt, schemaContext, corpus)
	}

	var payload entitySchemaPayload
	if err := c.oracle.CompleteJSON(ctx, discoverySystemPrompt, prompt, 4096, &payload); err != nil {
		return nil, nil, err
	}
	if len(payload.EntityTypes) == 0 {
		return nil, nil, fmt.Errorf("oracle returned no entity types")
	}
	assignIDs(payload.EntityTypes, func(et *EntityType) *string { return &et.ID })
	assignIDs(payload.RelationshipTypes, func(rt *RelationshipType) *string { return &rt.ID })
	return payload.EntityTypes, payload.RelationshipTypes, nil
}

// assignIDs fills in a uuid for any item the oracle returned without one.
func assignIDs[T any](items []T, idOf func(*T) *string) {
	for i := range items {
		id := idOf(&items[i])
		if *id == "" {
			*id = uuid.NewString()
		}
	}
}
