// Package learn generalizes successful parses into reusable templates and
// decides when a stored pattern may short-circuit the ruleset.
package learn

import (
	"regexp"
	"sort"

	"github.com/hansang/unitprice/internal/model"
)

// Pattern eligibility thresholds: a learned pattern only short-circuits the
// ruleset once it has proven itself.
const (
	MinConfidence = 0.7
	MinSuccesses  = 1
)

// Wildcard replaces every numeric literal in a template and matches any
// value in the corresponding slot.
const Wildcard = "*"

var numericLiteral = regexp.MustCompile(`[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?`)

// SpecTemplate generalizes a normalized specification by replacing every
// numeric literal with the wildcard. Punctuation, Latin letters and CJK
// markers are kept verbatim so the template still encodes the shape.
func SpecTemplate(normalizedSpec string) string {
	return numericLiteral.ReplaceAllString(normalizedSpec, Wildcard)
}

// UnitTemplate returns the lookup key for a unit tag. Unspecified units
// generalize to the wildcard.
func UnitTemplate(tag model.UnitTag) string {
	if tag == model.UnitUnspec {
		return Wildcard
	}
	return string(tag)
}

// UnitCompatible reports whether two unit templates may refer to the same
// rows. Wildcards match anything.
func UnitCompatible(a, b string) bool {
	return a == Wildcard || b == Wildcard || a == b
}

// Rank orders candidate patterns by confidence descending, then by most
// recently used, and filters out those not yet eligible to short-circuit.
func Rank(candidates []model.LearnedPattern) []model.LearnedPattern {
	eligible := make([]model.LearnedPattern, 0, len(candidates))
	for _, p := range candidates {
		if p.SuccessCount >= MinSuccesses && p.Confidence() >= MinConfidence {
			eligible = append(eligible, p)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		ci, cj := eligible[i].Confidence(), eligible[j].Confidence()
		if ci != cj {
			return ci > cj
		}
		return eligible[i].LastUsed.After(eligible[j].LastUsed)
	})
	return eligible
}
