package discovery

import "strings"

const discoverySystemPrompt = `You are a qualitative research assistant that designs coding schemas for interview and focus-group transcripts.

You always respond with a single JSON object and nothing else. Ids may be omitted; names must be unique within a category. Confidence is 0.0-1.0 and reflects how well the item is supported by the material you were shown.`

const openCodesPrompt = `Read the corpus below and propose a hierarchical set of thematic codes covering the ideas participants actually discuss.

Respond with {"codes": [{"name", "description", "parent_id", "level", "confidence"}]}. Top-level codes have level 0 and no parent_id. Children reference their parent by the parent's "id" if given, otherwise by the parent's exact name. Aim for 2 levels, at most 3.

=== CORPUS ===
%s`

const parseCodesPrompt = `The researcher supplied their own codebook as free text below. Parse it into structured codes without inventing new ones. Preserve any hierarchy the text implies.

Respond with {"codes": [{"name", "description", "parent_id", "level", "confidence"}]}. Use confidence 1.0 for codes stated verbatim.

=== CODEBOOK ===
%s`

const mixedCodesPrompt = `The researcher supplied a seed codebook. Keep every seed code as-is, then extend the set with additional codes grounded in the corpus. Seed codes get confidence 1.0.

Respond with {"codes": [{"name", "description", "parent_id", "level", "confidence"}]}.

=== SEED CODEBOOK ===
%s

=== CORPUS ===
%s`

const openSpeakersPrompt = `Given the thematic codes already discovered (%s), propose the speaker attribute dimensions worth extracting for each participant (e.g. role, stance, expertise area).

Respond with {"speaker_properties": [{"name", "description", "confidence"}]}.

=== CORPUS ===
%s`

const parseSpeakersPrompt = `The researcher supplied speaker attribute definitions as free text. Parse them into structured properties without inventing new ones.

Respond with {"speaker_properties": [{"name", "description", "confidence"}]}.

=== DEFINITIONS ===
%s`

const mixedSpeakersPrompt = `The researcher supplied seed speaker attributes. Keep them, then extend with further dimensions grounded in the corpus. Codes for context: %s.

Respond with {"speaker_properties": [{"name", "description", "confidence"}]}.

=== SEED DEFINITIONS ===
%s

=== CORPUS ===
%s`

const openEntitiesPrompt = `Using the schema discovered so far as context:
%s

Propose the entity types and relationship types needed to build a knowledge graph from this corpus (e.g. entity types: organization, product, place; relationship types: works_for, uses, located_in).

Respond with {"entity_types": [{"name", "description", "confidence"}], "relationship_types": [{"name", "description", "confidence"}]}.

=== CORPUS ===
%s`

const parseEntitiesPrompt = `The researcher supplied entity and relationship type definitions as free text. Parse them into structured types without inventing new ones.

Respond with {"entity_types": [{"name", "description", "confidence"}], "relationship_types": [{"name", "description", "confidence"}]}.

=== DEFINITIONS ===
%s`

const mixedEntitiesPrompt = `The researcher supplied seed entity and relationship types. Keep them, then extend with further types grounded in the corpus. Schema for context:
%s

Respond with {"entity_types": [{"name", "description", "confidence"}], "relationship_types": [{"name", "description", "confidence"}]}.

=== SEED DEFINITIONS ===
%s

=== CORPUS ===
%s`

func codeNames(codes []Code) string {
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func speakerNames(props []SpeakerProperty) string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
