package dialogue

import (
	"fmt"
	"regexp"
	"strings"
)

// Detector reconstructs turn-taking structure from raw transcript text.
// Speaker detection is heuristic: a prioritized list of structural patterns is
// tried per line, and a turn boundary is only created on an actual match —
// blank lines never split a turn.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// speakerPattern matches a line that opens a new turn. If contentGroup is 0
// the pattern carries no inline content and the turn body starts on the
// following line.
type speakerPattern struct {
	re             *regexp.Regexp
	timestampGroup int
	contentGroup   int
	confidence     float64
}

var speakerPatterns = []speakerPattern{
	// "Alice 0:00" / "Dr. Reyes  1:02:45" — timestamped header, body follows.
	// Name is capped at two words so prose lines ending in a clock time do
	// not open a turn.
	{
		re:             regexp.MustCompile(`^([A-Za-z][A-Za-z.'\-]*(?:\s[A-Za-z.'\-]+)?)\s+(\d{1,2}:\d{2}(?::\d{2})?)\s*$`),
		timestampGroup: 2,
		confidence:     0.95,
	},
	// "[Moderator] So let's begin."
	{
		re:           regexp.MustCompile(`^\[([^\]\d][^\]]{0,40})\]\s*(\S.*)$`),
		contentGroup: 2,
		confidence:   0.9,
	},
	// "INTERVIEWER:" — all-caps label, content inline or on following lines.
	{
		re:           regexp.MustCompile(`^([A-Z][A-Z .'\-]{1,40}):\s*(.*)$`),
		contentGroup: 2,
		confidence:   0.85,
	},
	// "Alice: I think so." — name up to three words, inline content.
	{
		re:           regexp.MustCompile(`^([A-Z][A-Za-z.'\-]*(?: [A-Z][A-Za-z.'\-]*){0,2}):\s*(.*)$`),
		contentGroup: 2,
		confidence:   0.85,
	},
}

// annotationMarker strips structural prefixes added by annotated readers,
// e.g. "[P12]", "[L4]", "[3]" paragraph/line indexes.
var annotationMarker = regexp.MustCompile(`^\s*\[[PpLl]?\d+\]\s*`)

var (
	interrogativeStarts = []string{
		"what", "why", "how", "when", "where", "who", "which",
		"can you", "could you", "would you", "do you", "did you",
		"tell me", "walk me through",
	}

	// Agreement / disagreement / building / clarification terms. Presence of
	// any of these marks a turn as carrying response markers.
	responseMarkers = []string{
		"i agree", "agreed", "exactly", "absolutely", "that's right", "good point",
		"i disagree", "disagree", "not really", "i don't think", "that's not",
		"building on", "to add to", "adding to", "fair point", "that said",
		"to clarify", "what i meant", "in other words", "as you said", "like you said",
	}

	backwardRefPhrases = []string{
		"fair point", "as you said", "like you said", "you mentioned",
		"to your point", "going back to what", "what you said",
	}

	sentenceSplit = regexp.MustCompile(`[.!?]+\s+|[.!?]+$`)
)

// DetectTurns parses raw transcript text into ordered, speaker-attributed
// turns. It never fails: if no structural pattern matches anywhere, the whole
// text degrades to a single low-confidence turn.
func (d *Detector) DetectTurns(docID, text string) []DialogueTurn {
	lines := strings.Split(text, "\n")

	type rawTurn struct {
		speaker    string
		timestamp  string
		lines      []string
		confidence float64
	}

	var raws []rawTurn
	var current *rawTurn

	for _, line := range lines {
		stripped := annotationMarker.ReplaceAllString(line, "")

		matched := false
		for _, p := range speakerPatterns {
			m := p.re.FindStringSubmatch(stripped)
			if m == nil {
				continue
			}
			if current != nil {
				raws = append(raws, *current)
			}
			current = &rawTurn{
				speaker:    strings.TrimSpace(m[1]),
				confidence: p.confidence,
			}
			if p.timestampGroup > 0 {
				current.timestamp = m[p.timestampGroup]
			}
			if p.contentGroup > 0 && strings.TrimSpace(m[p.contentGroup]) != "" {
				current.lines = append(current.lines, strings.TrimSpace(m[p.contentGroup]))
			}
			matched = true
			break
		}
		if matched {
			continue
		}
		if current != nil {
			current.lines = append(current.lines, strings.TrimSpace(stripped))
		}
		// Text before any speaker match is dropped only if a pattern matches
		// later; the no-match fallback below still covers it.
	}
	if current != nil {
		raws = append(raws, *current)
	}

	if len(raws) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []DialogueTurn{d.fallbackTurn(docID, text)}
	}

	turns := make([]DialogueTurn, 0, len(raws))
	var priorSpeakers []string
	for i, r := range raws {
		body := strings.TrimSpace(strings.Join(r.lines, "\n"))
		t := d.buildTurn(docID, i, r.speaker, r.timestamp, body, r.confidence, priorSpeakers)
		if t.ContainsResponseMarkers && i > 0 {
			t.RespondsToTurn = turns[i-1].TurnID
		}
		turns = append(turns, t)
		priorSpeakers = append(priorSpeakers, r.speaker)
	}
	return turns
}

func (d *Detector) buildTurn(docID string, seq int, speaker, timestamp, text string, confidence float64, priorSpeakers []string) DialogueTurn {
	lower := strings.ToLower(text)
	words := len(strings.Fields(text))

	t := DialogueTurn{
		TurnID:           fmt.Sprintf("%s#turn-%d", docID, seq),
		SequenceNumber:   seq,
		SpeakerName:      speaker,
		Timestamp:        timestamp,
		Text:             text,
		SemanticSegments: splitSegments(text),
		WordCount:        words,
		Confidence:       confidence,
	}

	t.ContainsQuestion = containsQuestion(lower, text)
	// The contrastive "but" marks building-on-a-point; checked on a word
	// boundary so "attribute" does not trip it.
	t.ContainsResponseMarkers = containsAny(lower, responseMarkers) || containsWord(lower, "but")
	t.ReferencesPreviousSpeaker = referencesPrior(lower, priorSpeakers)

	switch {
	case t.ContainsQuestion:
		t.TurnType = TurnQuestion
	case t.ContainsResponseMarkers:
		t.TurnType = TurnResponse
	case words < 5:
		t.TurnType = TurnInterjection
	default:
		t.TurnType = TurnStatement
	}
	return t
}

func (d *Detector) fallbackTurn(docID, text string) DialogueTurn {
	t := d.buildTurn(docID, 0, "Unknown Speaker", "", strings.TrimSpace(text), 0.3, nil)
	return t
}

func containsQuestion(lower, text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	for _, s := range interrogativeStarts {
		if strings.HasPrefix(lower, s+" ") {
			return true
		}
	}
	return false
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// referencesPrior reports whether the turn names an earlier speaker (full
// name or first name) or uses an explicit backward-reference phrase.
func referencesPrior(lower string, priorSpeakers []string) bool {
	for _, sp := range priorSpeakers {
		name := strings.ToLower(strings.TrimSpace(sp))
		if name == "" {
			continue
		}
		if containsWord(lower, name) {
			return true
		}
		if first := strings.Fields(name); len(first) > 1 && containsWord(lower, first[0]) {
			return true
		}
	}
	return containsAny(lower, backwardRefPhrases)
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

func splitSegments(text string) []string {
	var segs []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// ClassifyDocument derives the structural kind of a transcript from its
// detected turns.
func ClassifyDocument(turns []DialogueTurn) DocumentKind {
	speakers := map[string]struct{}{}
	for _, t := range turns {
		speakers[strings.ToLower(t.SpeakerName)] = struct{}{}
	}
	switch {
	case len(speakers) >= 3 && len(turns) >= 4:
		return KindMultiParty
	case len(speakers) == 2:
		return KindDyadic
	default:
		return KindMonologue
	}
}
