package graph

import "regexp"

// Rule binds an entity type to a pattern scanned case-insensitively for
// non-overlapping matches.
type Rule struct {
	Type    string
	Pattern *regexp.Regexp
}

// RelationRule binds a relation type to a two-entity phrase template.
// The pattern must expose exactly two capture groups: the source phrase
// and the target phrase.
type RelationRule struct {
	Type    string
	Pattern *regexp.Regexp
}

func rule(entityType, expr string) Rule {
	return Rule{Type: entityType, Pattern: regexp.MustCompile(`(?i)\b` + expr + `\b`)}
}

func relRule(relationType, verbs string) RelationRule {
	return RelationRule{
		Type:    relationType,
		Pattern: regexp.MustCompile(`(?i)(\w+)\s+(?:` + verbs + `)\s+(\w+)`),
	}
}

// DefaultEntityRules is the built-in pattern set for space-biology articles.
// Vocabularies are curated rather than shape-based: under case-insensitive
// scanning a capitalized-word pattern would match every word of prose.
// Patterns for different types are evaluated independently, so the same span
// can register as two typed entities; this permissiveness is intentional.
func DefaultEntityRules() []Rule {
	return []Rule{
		rule(EntityOrganism, `(mice|mouse|rats?|humans?|monkeys?|zebrafish|drosophila|c\. elegans)`),
		rule(EntityOrganism, `(mus musculus|rattus norvegicus|homo sapiens|arabidopsis thaliana)`),
		rule(EntityProtein, `(actin|myosin|collagen|fibronectin|laminin|osteocalcin|sclerostin|irisin)`),
		rule(EntityGene, `(cdkn1a|p21|runx2|alp|ocn|mstn|foxo3|sod2)`),
		rule(EntityCondition, `(microgravity|spaceflight|radiation|oxidative stress|bone loss|muscle atrophy|hindlimb unloading)`),
		rule(EntityCondition, `(osteoporosis|osteopenia|sarcopenia)`),
		rule(EntityMethod, `(rt-pcr|qpcr|western blot|immunohistochemistry|flow cytometry)`),
		rule(EntityMethod, `(rna-seq|microarray|proteomics|metabolomics)`),
		rule(EntityLocation, `(iss|international space station|low earth orbit|earth|ground control)`),
		rule(EntityLocation, `(bone|muscle|heart|liver|brain|kidney|retina)`),
	}
}

// DefaultRelationRules is the built-in relation template set. Each template
// captures a single-word source and target phrase around a verb group.
func DefaultRelationRules() []RelationRule {
	return []RelationRule{
		relRule(RelAffects, `affects?|influences?|impacts?`),
		relRule(RelCauses, `leads? to|results? in|causes?`),
		relRule(RelInhibits, `inhibits?|suppresses?|blocks?`),
		relRule(RelInhibits, `prevents?|reduces?`),
		relRule(RelPromotes, `promotes?|enhances?|stimulates?`),
		relRule(RelPromotes, `increases?|upregulates?`),
		relRule(RelRegulates, `regulates?|controls?|modulates?`),
		relRule(RelRegulates, `mediates?|orchestrates?`),
		relRule(RelExpressedIn, `expressed in|found in|present in`),
		relRule(RelExpressedIn, `localized to|distributed in`),
	}
}
