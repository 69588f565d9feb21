package dialogue

// TurnType classifies the conversational function of a turn.
type TurnType string

const (
	TurnQuestion     TurnType = "question"
	TurnResponse     TurnType = "response"
	TurnInterjection TurnType = "interjection"
	TurnStatement    TurnType = "statement"
)

// DocumentKind is the structural classification of a transcript, derived from
// distinct-speaker and turn counts. Downstream prompt selection consumes it;
// the detector never alters turns based on it.
type DocumentKind string

const (
	KindMultiParty DocumentKind = "multi_party"
	KindDyadic     DocumentKind = "dyadic"
	KindMonologue  DocumentKind = "monologue"
)

// DialogueTurn is one contiguous span of speech attributed to a single
// speaker. Turns are created once per document and immutable afterwards.
type DialogueTurn struct {
	TurnID                    string   `json:"turn_id"`
	SequenceNumber            int      `json:"sequence_number"`
	SpeakerName               string   `json:"speaker_name"`
	Timestamp                 string   `json:"timestamp,omitempty"`
	TurnType                  TurnType `json:"turn_type"`
	Text                      string   `json:"text"`
	SemanticSegments          []string `json:"semantic_segments"`
	ContainsQuestion          bool     `json:"contains_question"`
	ContainsResponseMarkers   bool     `json:"contains_response_markers"`
	ReferencesPreviousSpeaker bool     `json:"references_previous_speaker"`
	RespondsToTurn            string   `json:"responds_to_turn,omitempty"`
	WordCount                 int      `json:"word_count"`
	Confidence                float64  `json:"confidence"`
}

// TopicContinuity describes how a turn relates to the running topic.
type TopicContinuity string

const (
	TopicInitiates TopicContinuity = "initiates"
	TopicContinues TopicContinuity = "continues"
	TopicShifts    TopicContinuity = "shifts"
	TopicReturns   TopicContinuity = "returns"
)

// TurnTaking describes speaker alternation relative to the previous turn.
type TurnTaking string

const (
	TakingSequential TurnTaking = "sequential"
	TakingContinued  TurnTaking = "continued"
)

// ConversationalContext is the bounded local context for one turn. The window
// is intentionally small — full history blows up oracle prompt cost without
// improving attribution.
type ConversationalContext struct {
	TurnID            string          `json:"turn_id"`
	PrecedingTurns    []string        `json:"preceding_turns"`
	FollowingTurns    []string        `json:"following_turns"`
	IsResponseTo      string          `json:"is_response_to,omitempty"`
	TopicContinuity   TopicContinuity `json:"topic_continuity"`
	TurnTakingPattern TurnTaking      `json:"turn_taking_pattern"`
}
