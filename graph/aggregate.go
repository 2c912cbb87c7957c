package graph

import (
	"encoding/json"
	"time"
)

// Metadata summarizes an aggregation run.
type Metadata struct {
	TotalDocuments      int    `json:"total_documents"`
	TotalEntities       int    `json:"total_entities"`
	TotalRelationships  int    `json:"total_relationships"`
	ExtractionTimestamp string `json:"extraction_timestamp"`
}

// KnowledgeGraph is the aggregated output of an extraction run. It is
// produced once per aggregation and not mutated afterwards; re-running
// aggregation yields a fresh instance.
type KnowledgeGraph struct {
	Entities      map[string]*Entity
	Relationships []Relationship
	Metadata      Metadata

	entityOrder []string
}

// EntityIDs returns retained entity ids in first-seen order across the corpus.
func (kg *KnowledgeGraph) EntityIDs() []string {
	return kg.entityOrder
}

// EntityList returns retained entities in first-seen order.
func (kg *KnowledgeGraph) EntityList() []*Entity {
	out := make([]*Entity, 0, len(kg.entityOrder))
	for _, id := range kg.entityOrder {
		out = append(out, kg.Entities[id])
	}
	return out
}

// knowledgeGraphJSON is the serialized shape consumed by export and
// visualization collaborators.
type knowledgeGraphJSON struct {
	Entities      []*Entity      `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Metadata      Metadata       `json:"metadata"`
}

// MarshalJSON emits entities as an ordered array (first-seen order) so the
// serialized graph is byte-identical across runs.
func (kg *KnowledgeGraph) MarshalJSON() ([]byte, error) {
	rels := kg.Relationships
	if rels == nil {
		rels = []Relationship{}
	}
	return json.Marshal(knowledgeGraphJSON{
		Entities:      kg.EntityList(),
		Relationships: rels,
		Metadata:      kg.Metadata,
	})
}

// AggregateConfig controls the retention thresholds of the aggregation step.
type AggregateConfig struct {
	MinEntityFrequency int     // Entities below this merged frequency are dropped as noise.
	MinStrength        float64 // Relationships below this normalized strength are dropped.
}

// Aggregator merges per-document extractions into a knowledge graph.
type Aggregator struct {
	cfg AggregateConfig
}

// NewAggregator returns an Aggregator with the given configuration.
// Zero-value fields are replaced with the standard thresholds.
func NewAggregator(cfg AggregateConfig) *Aggregator {
	if cfg.MinEntityFrequency == 0 {
		cfg.MinEntityFrequency = 2
	}
	if cfg.MinStrength == 0 {
		cfg.MinStrength = 0.5
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate merges per-document extractions using the standard retention
// thresholds. Shorthand for NewAggregator(AggregateConfig{}).Aggregate.
func Aggregate(extractions []*Extraction) *KnowledgeGraph {
	return NewAggregator(AggregateConfig{}).Aggregate(extractions)
}

// relationKey identifies a (source, target, relation_type) triple for
// co-occurrence counting.
type relationKey struct {
	source, target, relationType string
}

// Aggregate reduces the per-document extractions into a final graph:
// entity frequencies are summed across documents, low-frequency entities
// are dropped, relationship strength is normalized by co-occurrence count
// against the most frequent triple, and relationships that are weak or
// reference dropped entities are discarded. The input extractions are not
// mutated. An empty input yields an empty graph with zeroed counts.
func (a *Aggregator) Aggregate(extractions []*Extraction) *KnowledgeGraph {
	kg := &KnowledgeGraph{
		Entities: make(map[string]*Entity),
		Metadata: Metadata{
			TotalDocuments:      len(extractions),
			ExtractionTimestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	// Merge entity maps; identical ids sum their frequencies.
	merged := make(map[string]*Entity)
	var mergedOrder []string
	var allRels []Relationship
	for _, ext := range extractions {
		for _, id := range ext.entityOrder {
			src := ext.Entities[id]
			if e, ok := merged[id]; ok {
				e.Frequency += src.Frequency
				continue
			}
			cp := *src
			cp.Properties = make(map[string]string, len(src.Properties))
			for k, v := range src.Properties {
				cp.Properties[k] = v
			}
			merged[id] = &cp
			mergedOrder = append(mergedOrder, id)
		}
		allRels = append(allRels, ext.Relationships...)
	}

	// Retention: entities seen fewer than MinEntityFrequency times are noise.
	retained := make(map[string]bool, len(merged))
	for _, id := range mergedOrder {
		if merged[id].Frequency >= a.cfg.MinEntityFrequency {
			retained[id] = true
			kg.Entities[id] = merged[id]
			kg.entityOrder = append(kg.entityOrder, id)
		}
	}

	// Normalize strength by co-occurrence: the most frequent triple gets 1.0.
	counts := make(map[relationKey]int)
	for _, r := range allRels {
		counts[relationKey{r.Source, r.Target, r.RelationType}]++
	}
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}

	for _, r := range allRels {
		r.Strength = float64(counts[relationKey{r.Source, r.Target, r.RelationType}]) / float64(maxCount)
		if r.Strength < a.cfg.MinStrength {
			continue
		}
		if !retained[r.Source] || !retained[r.Target] {
			continue
		}
		kg.Relationships = append(kg.Relationships, r)
	}

	kg.Metadata.TotalEntities = len(kg.Entities)
	kg.Metadata.TotalRelationships = len(kg.Relationships)
	return kg
}
