package graph

import "strings"

// Entity type constants used during extraction and aggregation.
const (
	EntityOrganism  = "organism"
	EntityProtein   = "protein"
	EntityGene      = "gene"
	EntityCondition = "condition"
	EntityMethod    = "method"
	EntityLocation  = "location"
)

// Relation type constants used during extraction and aggregation.
const (
	RelAffects     = "affects"
	RelInhibits    = "inhibits"
	RelPromotes    = "promotes"
	RelRegulates   = "regulates"
	RelExpressedIn = "expressed_in"
	RelCauses      = "causes"
)

// Entity is a typed, named concept detected in text, tracked with a
// corpus-wide occurrence frequency.
type Entity struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Frequency  int               `json:"frequency"`
	Properties map[string]string `json:"properties"`
}

// Relationship is a directed, typed association between two entities,
// derived from a matched textual pattern. Strength is a normalized [0,1]
// measure of how dominant the (source, target, relation_type) triple is
// relative to the most frequent triple in the batch.
type Relationship struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
	Context      string  `json:"context"`
	SourceDoc    string  `json:"source_doc"`
}

// EntityID computes the deterministic identifier for an entity: the type
// joined with the case- and whitespace-normalized name. Two matches with
// the same normalized name and type always map to the same id.
func EntityID(entityType, name string) string {
	return entityType + "_" + strings.ReplaceAll(normalizeName(name), " ", "_")
}

// normalizeName lowercases a matched span and collapses interior whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Extraction holds the per-document output of the extractor. Entity ids are
// tracked in first-seen order so downstream lookups and merges stay
// deterministic regardless of map iteration order.
type Extraction struct {
	Provenance    string
	Entities      map[string]*Entity
	Relationships []Relationship

	entityOrder []string
}

// EntityIDs returns the document's entity ids in first-seen order.
func (x *Extraction) EntityIDs() []string {
	return x.entityOrder
}

// EntityByName resolves a phrase to an entity by case-insensitive exact-name
// match. When several entities share a normalized name across types, the
// first-seen one wins; this is a documented policy, not true disambiguation.
func (x *Extraction) EntityByName(name string) *Entity {
	want := normalizeName(name)
	for _, id := range x.entityOrder {
		if x.Entities[id].Name == want {
			return x.Entities[id]
		}
	}
	return nil
}

// EntityList returns the document's entities in first-seen order.
func (x *Extraction) EntityList() []*Entity {
	out := make([]*Entity, 0, len(x.entityOrder))
	for _, id := range x.entityOrder {
		out = append(out, x.Entities[id])
	}
	return out
}
