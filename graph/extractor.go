package graph

// Extractor scans article text with typed pattern sets and produces
// per-document entity and relationship extractions. It holds no mutable
// state, so a single Extractor is safe for concurrent use across documents.
type Extractor struct {
	entityRules   []Rule
	relationRules []RelationRule
}

// NewExtractor returns an Extractor with the given rule sets.
// Nil rule sets fall back to the built-in space-biology defaults.
func NewExtractor(entityRules []Rule, relationRules []RelationRule) *Extractor {
	if entityRules == nil {
		entityRules = DefaultEntityRules()
	}
	if relationRules == nil {
		relationRules = DefaultRelationRules()
	}
	return &Extractor{entityRules: entityRules, relationRules: relationRules}
}

// Extract runs entity then relationship extraction over a single document's
// text. Provenance identifies the document and is stamped onto every
// emitted relationship. Empty text yields an empty extraction, not an error.
func (x *Extractor) Extract(text, provenance string) *Extraction {
	ext := x.ExtractEntities(text, provenance)
	x.ExtractRelationships(text, ext)
	return ext
}

// ExtractEntities runs the entity pass alone and returns a fresh extraction
// holding the document's entities.
func (x *Extractor) ExtractEntities(text, provenance string) *Extraction {
	ext := &Extraction{
		Provenance: provenance,
		Entities:   make(map[string]*Entity),
	}
	x.extractEntities(text, ext)
	return ext
}

// extractEntities scans every typed pattern for non-overlapping matches.
// Matches sharing a normalized name and type merge into one entity whose
// frequency counts all occurrences; matches from different pattern types
// over the same span produce distinct entities.
func (x *Extractor) extractEntities(text string, ext *Extraction) {
	for _, r := range x.entityRules {
		for _, m := range r.Pattern.FindAllString(text, -1) {
			name := normalizeName(m)
			if name == "" {
				continue
			}
			id := EntityID(r.Type, name)
			if e, ok := ext.Entities[id]; ok {
				e.Frequency++
				continue
			}
			ext.Entities[id] = &Entity{
				ID:         id,
				Name:       name,
				Type:       r.Type,
				Frequency:  1,
				Properties: map[string]string{},
			}
			ext.entityOrder = append(ext.entityOrder, id)
		}
	}
}

// ExtractRelationships scans the relation templates and binds matched
// source/target phrases to entities already present in the extraction's
// entity map. Matches that fail to resolve both endpoints to distinct
// entities are dropped. Strength is a placeholder 1.0 until aggregation
// normalizes it against corpus-wide co-occurrence counts.
func (x *Extractor) ExtractRelationships(text string, ext *Extraction) {
	for _, r := range x.relationRules {
		for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
			source := ext.EntityByName(m[1])
			target := ext.EntityByName(m[2])
			if source == nil || target == nil || source.ID == target.ID {
				continue
			}
			ext.Relationships = append(ext.Relationships, Relationship{
				Source:       source.ID,
				Target:       target.ID,
				RelationType: r.Type,
				Strength:     1.0,
				Context:      m[0],
				SourceDoc:    ext.Provenance,
			})
		}
	}
}
