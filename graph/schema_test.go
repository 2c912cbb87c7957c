package graph

import (
	"math"
	"testing"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	for _, label := range []string{NodePublication, NodeOrganism, NodeMission, NodeEnvironment, NodeOutcome} {
		if _, ok := s.DescribeNode(label); !ok {
			t.Errorf("node label %q missing from schema", label)
		}
	}
	for _, label := range []string{EdgeStudied, EdgeOccurredDuring, EdgeUnderCondition, EdgeReports, EdgeMentions} {
		if _, ok := s.DescribeEdge(label); !ok {
			t.Errorf("edge label %q missing from schema", label)
		}
	}
	if _, ok := s.DescribeNode("Spacecraft"); ok {
		t.Error("unknown node label should not resolve")
	}
}

func TestEdgeLabelFor(t *testing.T) {
	tests := []struct {
		entityType, want string
	}{
		{EntityOrganism, EdgeStudied},
		{EntityCondition, EdgeUnderCondition},
		{EntityLocation, EdgeUnderCondition},
		{EntityProtein, EdgeMentions},
		{EntityGene, EdgeMentions},
	}
	for _, tt := range tests {
		if got := EdgeLabelFor(tt.entityType); got != tt.want {
			t.Errorf("EdgeLabelFor(%q) = %q, want %q", tt.entityType, got, tt.want)
		}
	}
}

func TestBuildSchemaGraph(t *testing.T) {
	x := NewExtractor(nil, nil)
	pubs := []Publication{
		{UID: "pub-1", Title: "Bone loss in mice", Year: 2021, Mission: "ISS-Expedition-64", Source: "catalog"},
		{UID: "pub-2", Title: "Muscle atrophy study", Year: 2022, Source: "catalog"},
	}
	extractions := map[string]*Extraction{
		"pub-1": x.Extract("Mice were exposed to microgravity during spaceflight.", "pub-1"),
		"pub-2": x.Extract("Muscle atrophy was observed in rats.", "pub-2"),
	}

	g := BuildSchemaGraph(pubs, extractions)

	if !g.HasNode("pub-1") || !g.HasNode("pub-2") {
		t.Fatal("publication nodes missing")
	}
	if !g.HasNode("Mission:iss-expedition-64") {
		t.Error("mission node missing for pub-1")
	}
	if !g.HasNode("Organism:mice") {
		t.Error("organism node missing")
	}

	var studied, during int
	for _, e := range g.Edges {
		switch e.Label {
		case EdgeStudied:
			studied++
		case EdgeOccurredDuring:
			during++
		}
		if e.Confidence <= 0 || e.Confidence > 1 {
			t.Errorf("edge %s confidence %v out of range", e.UID, e.Confidence)
		}
	}
	if studied == 0 {
		t.Error("expected STUDIED edges for organisms")
	}
	if during != 1 {
		t.Errorf("got %d OCCURRED_DURING edges, want 1", during)
	}
}

func TestBuildSchemaGraphDedupesNodes(t *testing.T) {
	x := NewExtractor(nil, nil)
	pubs := []Publication{
		{UID: "pub-1", Title: "First mice study", Source: "catalog"},
		{UID: "pub-2", Title: "Second mice study", Source: "catalog"},
	}
	extractions := map[string]*Extraction{
		"pub-1": x.Extract("Mice were studied extensively.", "pub-1"),
		"pub-2": x.Extract("Mice were observed again.", "pub-2"),
	}

	g := BuildSchemaGraph(pubs, extractions)

	var miceNodes int
	for _, n := range g.Nodes {
		if n.UID == "Organism:mice" {
			miceNodes++
		}
	}
	if miceNodes != 1 {
		t.Errorf("got %d mice nodes, want 1 shared node", miceNodes)
	}

	// Both publications still connect to the shared node.
	var edges int
	for _, e := range g.Edges {
		if e.Target == "Organism:mice" {
			edges++
		}
	}
	if edges != 2 {
		t.Errorf("got %d edges into the shared node, want 2", edges)
	}
}

func TestMatchConfidence(t *testing.T) {
	if got := matchConfidence(1); got != 0.5 {
		t.Errorf("matchConfidence(1) = %v, want 0.5", got)
	}
	if got := matchConfidence(0); got != 0.5 {
		t.Errorf("matchConfidence(0) clamps to one mention, got %v", got)
	}
	// Saturates toward 1 without reaching it.
	prev := 0.0
	for f := 1; f <= 100; f *= 10 {
		c := matchConfidence(f)
		if c <= prev || c >= 1 {
			t.Errorf("matchConfidence(%d) = %v, want monotone in (0,1)", f, c)
		}
		prev = c
	}
	if math.Abs(matchConfidence(3)-0.75) > 1e-9 {
		t.Errorf("matchConfidence(3) = %v, want 0.75", matchConfidence(3))
	}
}
