package graph

import "sort"

// topEntityLimit caps the ranked entity list in a Summary.
const topEntityLimit = 10

// EntityMention is one row of the top-entities ranking.
type EntityMention struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Frequency int    `json:"frequency"`
}

// Summary holds display statistics for an aggregated graph.
type Summary struct {
	TotalEntities     int             `json:"total_entities"`
	TotalRelations    int             `json:"total_relationships"`
	EntityTypes       map[string]int  `json:"entity_types"`
	RelationshipTypes map[string]int  `json:"relationship_types"`
	TopEntities       []EntityMention `json:"top_entities"`
	Metadata          Metadata        `json:"metadata"`
}

// Summarize computes per-type histograms and the top entities by frequency.
// Frequency ties break by first-seen order so the ranking is reproducible
// across runs regardless of worker scheduling.
func Summarize(kg *KnowledgeGraph) *Summary {
	s := &Summary{
		TotalEntities:     len(kg.Entities),
		TotalRelations:    len(kg.Relationships),
		EntityTypes:       make(map[string]int),
		RelationshipTypes: make(map[string]int),
		Metadata:          kg.Metadata,
	}

	for _, e := range kg.EntityList() {
		s.EntityTypes[e.Type]++
	}
	for _, r := range kg.Relationships {
		s.RelationshipTypes[r.RelationType]++
	}

	ranked := kg.EntityList()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})
	limit := topEntityLimit
	if len(ranked) < limit {
		limit = len(ranked)
	}
	for _, e := range ranked[:limit] {
		s.TopEntities = append(s.TopEntities, EntityMention{
			Name:      e.Name,
			Type:      e.Type,
			Frequency: e.Frequency,
		})
	}
	return s
}
