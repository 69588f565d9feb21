// Package chains builds multi-hop thematic chains from pairwise connection
// judgments, linking ideas across speakers in document order.
package chains

import (
	"log/slog"
	"strings"
)

// Connection is a single pairwise judgment between two quotes. Source always
// precedes target in document sequence.
type Connection struct {
	SourceQuoteID   string   `json:"source_quote_id"`
	TargetQuoteID   string   `json:"target_quote_id"`
	SourceSpeaker   string   `json:"source_speaker"`
	TargetSpeaker   string   `json:"target_speaker"`
	SourcePosition  int      `json:"source_position"`
	TargetPosition  int      `json:"target_position"`
	ConnectionType  string   `json:"connection_type"`
	ConfidenceScore float64  `json:"confidence_score"`
	Evidence        string   `json:"evidence"`
	ThematicOverlap []string `json:"thematic_overlap"`
}

// Chain is an ordered sequence of connections threading one idea across
// several speakers.
type Chain struct {
	Connections    []Connection `json:"connections"`
	MeanConfidence float64      `json:"mean_confidence"`
	Speakers       []string     `json:"speakers"`
}

// Hops returns the number of connections in the chain.
func (c Chain) Hops() int { return len(c.Connections) }

// QuoteIDs returns every quote id touched by the chain, in order.
func (c Chain) QuoteIDs() []string {
	if len(c.Connections) == 0 {
		return nil
	}
	ids := []string{c.Connections[0].SourceQuoteID}
	for _, conn := range c.Connections {
		ids = append(ids, conn.TargetQuoteID)
	}
	return ids
}

// Config carries the chain-building knobs. The two confidence floors are
// deliberately independent: candidates are kept permissively so chains can
// route through weaker links, while reporting stays strict.
type Config struct {
	MinHops        int     // minimum connections per retained chain
	MinSpeakers    int     // minimum distinct speakers a retained chain spans
	RetentionFloor float64 // candidate floor applied before chain building
	ReportingFloor float64 // floor applied to a chain's mean confidence
}

func DefaultConfig() Config {
	return Config{
		MinHops:        3,
		MinSpeakers:    4,
		RetentionFloor: 0.3,
		ReportingFloor: 0.7,
	}
}

// Chainer assembles chains from pairwise connections.
type Chainer struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Chainer {
	if cfg.MinHops <= 0 {
		cfg.MinHops = DefaultConfig().MinHops
	}
	if cfg.MinSpeakers <= 0 {
		// A chain of n hops touches n+1 quotes; by default each must come
		// from a different speaker.
		cfg.MinSpeakers = cfg.MinHops + 1
	}
	return &Chainer{cfg: cfg, logger: logger}
}

// Build constructs chains from the given judgments. Connections below the
// retention floor or violating the forward-order invariant are discarded up
// front. Every surviving connection is tried as a chain start; extension is
// greedy by confidence with stable input order breaking ties, and a quote id
// is never revisited within one chain.
func (c *Chainer) Build(connections []Connection) []Chain {
	candidates := make([]Connection, 0, len(connections))
	for _, conn := range connections {
		if conn.ConfidenceScore < c.cfg.RetentionFloor {
			continue
		}
		if conn.TargetPosition <= conn.SourcePosition {
			c.logger.Warn("dropping backward connection",
				"source", conn.SourceQuoteID,
				"target", conn.TargetQuoteID,
			)
			continue
		}
		candidates = append(candidates, conn)
	}

	// Outgoing index keyed by source quote, preserving input order so that
	// equal-confidence continuations resolve deterministically.
	outgoing := make(map[string][]Connection, len(candidates))
	for _, conn := range candidates {
		outgoing[conn.SourceQuoteID] = append(outgoing[conn.SourceQuoteID], conn)
	}

	var chains []Chain
	for _, start := range candidates {
		links := []Connection{start}
		visited := map[string]bool{
			start.SourceQuoteID: true,
			start.TargetQuoteID: true,
		}

		tail := start.TargetQuoteID
		for {
			next, ok := bestContinuation(outgoing[tail], visited)
			if !ok {
				break
			}
			links = append(links, next)
			visited[next.TargetQuoteID] = true
			tail = next.TargetQuoteID
		}

		if len(links) < c.cfg.MinHops {
			continue
		}
		ch := newChain(links)
		// Hop count alone lets two speakers ping-pong into a long chain; a
		// chain has to actually span the conversation.
		if len(ch.Speakers) < c.cfg.MinSpeakers {
			continue
		}
		chains = append(chains, ch)
	}

	c.logger.Info("chains built",
		"candidates", len(candidates),
		"chains", len(chains),
	)
	return chains
}

// Report filters built chains down to those whose mean confidence clears the
// reporting floor.
func (c *Chainer) Report(chains []Chain) []Chain {
	var out []Chain
	for _, ch := range chains {
		if ch.MeanConfidence >= c.cfg.ReportingFloor {
			out = append(out, ch)
		}
	}
	return out
}

func bestContinuation(options []Connection, visited map[string]bool) (Connection, bool) {
	var best Connection
	found := false
	for _, opt := range options {
		if visited[opt.TargetQuoteID] {
			continue
		}
		if !found || opt.ConfidenceScore > best.ConfidenceScore {
			best = opt
			found = true
		}
	}
	return best, found
}

func newChain(links []Connection) Chain {
	var sum float64
	for _, l := range links {
		sum += l.ConfidenceScore
	}

	var speakers []string
	seen := map[string]bool{}
	add := func(name string) {
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		speakers = append(speakers, name)
	}
	add(links[0].SourceSpeaker)
	for _, l := range links {
		add(l.TargetSpeaker)
	}

	return Chain{
		Connections:    links,
		MeanConfidence: sum / float64(len(links)),
		Speakers:       speakers,
	}
}
