// Package normalize cleans raw supplier specification strings so the ruleset
// sees a predictable shape. Normalization is deterministic and total: any
// input yields a normalized spec and a unit tag from the closed set.
package normalize

import (
	"regexp"
	"strings"

	"github.com/hansang/unitprice/internal/model"
)

var (
	// Tolerance ranges like "120±10~140" or "120±10" collapse to the
	// nominal value.
	toleranceRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*±\s*[0-9]+(?:\.[0-9]+)?(?:\s*~\s*[0-9]+(?:\.[0-9]+)?)?`)

	// Multiplication separators written as x, X or × between factor
	// expressions become "*". The left neighbor must end a number, a unit
	// suffix, a CJK count marker, or a closing paren so words containing
	// the letter x survive.
	multSepRe = regexp.MustCompile(`([0-9gGlLaAcC개입봉매)%])\s*[xX×]\s*([0-9])`)

	wideComma = strings.NewReplacer("、", ",", "，", ",")
)

// Spec is a cleaned specification paired with its unit tag.
type Spec struct {
	Text string
	Tag  model.UnitTag
}

// Normalize cleans a raw specification and maps the raw unit code onto the
// closed tag set. The text's original casing is preserved; rules match
// case-insensitively.
func Normalize(rawSpec, rawUnit string) Spec {
	text := strings.TrimSpace(rawSpec)
	if text != "" {
		text = toleranceRe.ReplaceAllString(text, "$1")
		text = wideComma.Replace(text)
		// Run twice so chains like "2x3x4" fully collapse; a single pass
		// consumes the digit shared by adjacent matches.
		text = multSepRe.ReplaceAllString(text, "$1*$2")
		text = multSepRe.ReplaceAllString(text, "$1*$2")
	}

	return Spec{
		Text: text,
		Tag:  model.ParseUnitTag(rawUnit),
	}
}
