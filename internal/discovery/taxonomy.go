package discovery

import (
	"fmt"
	"strings"
)

// Code is one node of the thematic code tree. ParentID/Level form an acyclic
// hierarchy; level 0 codes are roots.
type Code struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	ParentID            string  `json:"parent_id,omitempty"`
	Level               int     `json:"level"`
	DiscoveryConfidence float64 `json:"confidence"`
}

// SpeakerProperty is a discovered attribute dimension for speakers
// (e.g. role, stance, expertise).
type SpeakerProperty struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	DiscoveryConfidence float64 `json:"confidence"`
}

// EntityType is a discovered category of named entity.
type EntityType struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	DiscoveryConfidence float64 `json:"confidence"`
}

// RelationshipType is a discovered category of entity-entity relationship.
type RelationshipType struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	DiscoveryConfidence float64 `json:"confidence"`
}

// Taxonomy is the full discovered schema. Once discovery completes it is
// frozen: application phases only read it, so no locking is needed.
type Taxonomy struct {
	Codes             []Code             `json:"codes"`
	SpeakerProperties []SpeakerProperty  `json:"speaker_properties"`
	EntityTypes       []EntityType       `json:"entity_types"`
	RelationshipTypes []RelationshipType `json:"relationship_types"`
}

// CodeIDs returns the closed set of valid code ids.
func (t *Taxonomy) CodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Codes))
	for _, c := range t.Codes {
		ids[c.ID] = struct{}{}
	}
	return ids
}

// EntityTypeNames returns the closed set of valid entity type names,
// lowercased for membership checks.
func (t *Taxonomy) EntityTypeNames() map[string]struct{} {
	names := make(map[string]struct{}, len(t.EntityTypes))
	for _, et := range t.EntityTypes {
		names[strings.ToLower(et.Name)] = struct{}{}
	}
	return names
}

// RelationshipTypeNames returns the closed set of valid relationship type
// names, lowercased.
func (t *Taxonomy) RelationshipTypeNames() map[string]struct{} {
	names := make(map[string]struct{}, len(t.RelationshipTypes))
	for _, rt := range t.RelationshipTypes {
		names[strings.ToLower(rt.Name)] = struct{}{}
	}
	return names
}

// resolveParentNames rewrites parent references given as code names into the
// corresponding ids. The oracle is allowed to reference a parent by its exact
// name when it never saw an id for it.
func resolveParentNames(codes []Code) {
	ids := make(map[string]struct{}, len(codes))
	byName := make(map[string]string, len(codes))
	for _, c := range codes {
		ids[c.ID] = struct{}{}
		byName[strings.ToLower(c.Name)] = c.ID
	}
	for i, c := range codes {
		if c.ParentID == "" {
			continue
		}
		if _, ok := ids[c.ParentID]; ok {
			continue
		}
		if id, ok := byName[strings.ToLower(c.ParentID)]; ok {
			codes[i].ParentID = id
		}
	}
}

// validateCodes rejects a code set with duplicate names, orphaned parent
// references, or parent cycles. A bad set is a fatal discovery error — no
// partial taxonomy is ever accepted.
func validateCodes(codes []Code) error {
	byID := make(map[string]Code, len(codes))
	names := make(map[string]string, len(codes))

	for _, c := range codes {
		if c.Name == "" {
			return fmt.Errorf("code %s has empty name", c.ID)
		}
		key := strings.ToLower(c.Name)
		if other, ok := names[key]; ok {
			return fmt.Errorf("duplicate code name %q (ids %s, %s)", c.Name, other, c.ID)
		}
		names[key] = c.ID
		byID[c.ID] = c
	}

	for _, c := range codes {
		if c.ParentID == "" {
			continue
		}
		if _, ok := byID[c.ParentID]; !ok {
			return fmt.Errorf("code %q references unknown parent %s", c.Name, c.ParentID)
		}

		// Follow the parent chain; revisiting any id means a cycle.
		seen := map[string]bool{c.ID: true}
		cur := c.ParentID
		for cur != "" {
			if seen[cur] {
				return fmt.Errorf("code %q is part of a parent cycle", c.Name)
			}
			seen[cur] = true
			cur = byID[cur].ParentID
		}
	}
	return nil
}
