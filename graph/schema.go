package graph

import (
	"fmt"
	"strings"
)

// Node labels in the typed export view.
const (
	NodePublication = "Publication"
	NodeOrganism    = "Organism"
	NodeMission     = "Mission"
	NodeEnvironment = "Environment"
	NodeOutcome     = "Outcome"
)

// Edge labels in the typed export view.
const (
	EdgeStudied        = "STUDIED"
	EdgeOccurredDuring = "OCCURRED_DURING"
	EdgeUnderCondition = "UNDER_CONDITION"
	EdgeReports        = "REPORTS"
	EdgeMentions       = "MENTIONS"
)

// Node is a typed vertex in the export graph.
type Node struct {
	UID        string            `json:"uid"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties"`
}

// Edge is a directed, labeled connection between two nodes. Confidence is
// derived from the originating entity's match frequency.
type Edge struct {
	UID        string  `json:"uid"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Schema is the declarative vocabulary of node and edge labels.
type Schema struct {
	NodeTypes map[string]string // label -> description
	EdgeTypes map[string]string // label -> description
}

// DefaultSchema returns the publication-centric space-biology vocabulary.
func DefaultSchema() *Schema {
	return &Schema{
		NodeTypes: map[string]string{
			NodePublication: "A research article",
			NodeOrganism:    "A studied organism",
			NodeMission:     "A spaceflight mission",
			NodeEnvironment: "An experimental environment or condition",
			NodeOutcome:     "A reported biological outcome",
		},
		EdgeTypes: map[string]string{
			EdgeStudied:        "Publication studied organism",
			EdgeOccurredDuring: "Publication occurred during mission",
			EdgeUnderCondition: "Experiment ran under environment",
			EdgeReports:        "Publication reports outcome",
			EdgeMentions:       "Publication mentions entity",
		},
	}
}

// DescribeNode returns the description for a node label, if known.
func (s *Schema) DescribeNode(label string) (string, bool) {
	d, ok := s.NodeTypes[label]
	return d, ok
}

// DescribeEdge returns the description for an edge label, if known.
func (s *Schema) DescribeEdge(label string) (string, bool) {
	d, ok := s.EdgeTypes[label]
	return d, ok
}

// EdgeLabelFor maps an extracted entity type onto the edge label connecting
// a publication to that entity's node.
func EdgeLabelFor(entityType string) string {
	switch entityType {
	case EntityOrganism:
		return EdgeStudied
	case EntityCondition:
		return EdgeUnderCondition
	case EntityLocation:
		return EdgeUnderCondition
	default:
		return EdgeMentions
	}
}

// nodeLabelFor maps an extracted entity type onto a node label.
func nodeLabelFor(entityType string) string {
	switch entityType {
	case EntityOrganism:
		return NodeOrganism
	case EntityCondition, EntityLocation:
		return NodeEnvironment
	default:
		return strings.ToUpper(entityType[:1]) + entityType[1:]
	}
}

// Publication is the metadata view consumed by the schema graph builder.
type Publication struct {
	UID         string
	Title       string
	Year        int
	DOI         string
	Mission     string
	Organism    string
	Environment string
	Source      string
}

// SchemaGraph is the typed Node/Edge view built from publication records
// and per-document entity extractions.
type SchemaGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	nodeIndex map[string]int
}

// HasNode reports whether a node with the given uid exists.
func (g *SchemaGraph) HasNode(uid string) bool {
	_, ok := g.nodeIndex[uid]
	return ok
}

func (g *SchemaGraph) addNode(n Node) {
	if g.nodeIndex == nil {
		g.nodeIndex = make(map[string]int)
	}
	if _, ok := g.nodeIndex[n.UID]; ok {
		return
	}
	g.nodeIndex[n.UID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

// BuildSchemaGraph constructs the export view: one Publication node per
// record, one typed node per distinct extracted entity, and labeled edges
// from each publication to the entities extracted from it. Edge confidence
// grows with the entity's in-document match frequency and stays below 1.
func BuildSchemaGraph(pubs []Publication, extractions map[string]*Extraction) *SchemaGraph {
	g := &SchemaGraph{}

	for _, pub := range pubs {
		g.addNode(Node{
			UID:   pub.UID,
			Label: NodePublication,
			Properties: map[string]string{
				"title":       pub.Title,
				"year":        fmt.Sprintf("%d", pub.Year),
				"doi":         pub.DOI,
				"mission":     pub.Mission,
				"organism":    pub.Organism,
				"environment": pub.Environment,
				"source":      pub.Source,
			},
		})

		if pub.Mission != "" {
			missionUID := NodeMission + ":" + strings.ToLower(pub.Mission)
			g.addNode(Node{
				UID:        missionUID,
				Label:      NodeMission,
				Properties: map[string]string{"name": pub.Mission, "source": pub.Source},
			})
			g.Edges = append(g.Edges, Edge{
				UID:        pub.UID + "->" + missionUID + ":" + EdgeOccurredDuring,
				Source:     pub.UID,
				Target:     missionUID,
				Label:      EdgeOccurredDuring,
				Confidence: 1.0,
			})
		}

		ext, ok := extractions[pub.UID]
		if ok {
			for _, e := range ext.EntityList() {
				nodeUID := nodeLabelFor(e.Type) + ":" + e.Name
				g.addNode(Node{
					UID:   nodeUID,
					Label: nodeLabelFor(e.Type),
					Properties: map[string]string{
						"name":   e.Name,
						"source": pub.Source,
					},
				})

				label := EdgeLabelFor(e.Type)
				g.Edges = append(g.Edges, Edge{
					UID:        pub.UID + "->" + nodeUID + ":" + label,
					Source:     pub.UID,
					Target:     nodeUID,
					Label:      label,
					Confidence: matchConfidence(e.Frequency),
				})
			}
		}
	}
	return g
}

// matchConfidence converts an in-document match frequency into a (0,1)
// confidence score that saturates as mentions accumulate.
func matchConfidence(frequency int) float64 {
	if frequency < 1 {
		frequency = 1
	}
	return 1.0 - 1.0/float64(1+frequency)
}
