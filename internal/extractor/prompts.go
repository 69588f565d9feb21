package extractor

const extractionSystemPrompt = `You are a qualitative coding assistant. You apply a fixed, closed coding schema to interview and focus-group transcripts.

Rules:
- Only use code ids, entity types, and relationship types from the schema you are given. Never invent new ones.
- Quote text verbatim from the transcript.
- Confidence is 0.0-1.0 per extracted item.
- Respond with a single JSON object and nothing else.`

const quotesUserPrompt = `Apply the coding schema below to this transcript. Extract every quote that carries one or more codes, and a property profile for each speaker.

=== CODES ===
%s

=== SPEAKER PROPERTIES ===
%s

=== TRANSCRIPT (%s) ===
%s

Respond with {"quotes": [{"quote_id", "turn_id", "speaker", "text", "code_ids", "sequence_position", "confidence"}], "speakers": [{"name", "properties", "confidence"}]}. sequence_position is the turn's sequence number.`

const entitiesUserPrompt = `Extract named entities and their relationships from this transcript, using only the types below. Cross-reference against the already-coded quotes: prefer entities that appear in quote text.

=== ENTITY TYPES ===
%s

=== RELATIONSHIP TYPES ===
%s

=== CODED QUOTES ===
%s

=== TRANSCRIPT (%s) ===
%s

Respond with {"entities": [{"name", "type", "description", "mention_count", "confidence"}], "relationships": [{"source_entity", "target_entity", "type", "evidence", "confidence"}]}.`

const connectionsUserPrompt = `Judge pairwise thematic connections between the quotes below. Only connect a quote to a later one (higher sequence position). Connection types: builds_on, challenges, elaborates, echoes.

=== QUOTES ===
%s

Respond with {"connections": [{"source_quote_id", "target_quote_id", "connection_type", "confidence_score", "evidence", "thematic_overlap"}]}.`
