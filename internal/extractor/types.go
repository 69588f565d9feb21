package extractor

// Quote is a coded span of speech extracted from one document.
type Quote struct {
	QuoteID          string   `json:"quote_id"`
	TurnID           string   `json:"turn_id,omitempty"`
	Speaker          string   `json:"speaker"`
	Text             string   `json:"text"`
	CodeIDs          []string `json:"code_ids"`
	SequencePosition int      `json:"sequence_position"`
	Confidence       float64  `json:"confidence"`
}

// SpeakerProfile carries per-speaker property values keyed by the discovered
// speaker-property names.
type SpeakerProfile struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
	Confidence float64           `json:"confidence"`
}

// Entity is a named entity mentioned in a document. Type must be one of the
// taxonomy's entity types; an entity with an unknown type cannot be placed in
// the typed graph and is dropped during enforcement.
type Entity struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Description     string   `json:"description,omitempty"`
	MentionCount    int      `json:"mention_count"`
	SourceDocuments []string `json:"source_documents,omitempty"`
	Confidence      float64  `json:"confidence"`
}

// Relationship links two extracted entities by name.
type Relationship struct {
	SourceEntity string  `json:"source_entity"`
	TargetEntity string  `json:"target_entity"`
	Type         string  `json:"type"`
	Evidence     string  `json:"evidence,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Batch is everything extracted from a single document, before and after
// schema enforcement.
type Batch struct {
	Quotes        []Quote          `json:"quotes"`
	Speakers      []SpeakerProfile `json:"speakers"`
	Entities      []Entity         `json:"entities"`
	Relationships []Relationship   `json:"relationships"`
}
