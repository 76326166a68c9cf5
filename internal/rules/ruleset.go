package rules

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hansang/unitprice/internal/model"
)

// Compiled shape patterns, one per rule. All matching is case-insensitive
// against the normalized spec; CJK count markers (입, 개, 봉, 매입) are
// matched as opaque code points.
var (
	reDetailEATotalKG = regexp.MustCompile(`(?i)\(.*\*\s*` + numberPattern + `\s*입.*?(` + numberPattern + `)\s*kg\s*/\s*ea`)
	reDetailEATotalG  = regexp.MustCompile(`(?i)\(.*\*\s*` + numberPattern + `\s*입.*?(` + numberPattern + `)\s*g\s*/\s*ea`)
	reGroupedPieces   = regexp.MustCompile(`(?i)\(\s*(` + numberPattern + `)\s*(kg|g)\s*\*\s*(` + numberPattern + `)\s*입\s*\)\s*\*\s*(` + numberPattern + `)\s*ea\s*/\s*box`)
	reDeclaredBox     = regexp.MustCompile(`(?i)\*\s*` + numberPattern + `\s*입\s*\*\s*` + numberPattern + `\s*봉.*?(` + numberPattern + `)\s*kg\s*/\s*box`)
	reTotalWithDetail = regexp.MustCompile(`(?i)^\s*(` + numberPattern + `)\s*(kg|g)\s*\(`)
	reWeightCount     = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(kg|g)\s*\*\s*(` + numberPattern + `)\s*(매입|입|봉|ea|pac|p)`)
	reVolumeCount     = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(ml|l)\s*\*\s*(` + numberPattern + `)\s*(매입|입|개|봉|ea|pac|p)`)
	rePiecesPerBox    = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(?:매)?입\s*\*\s*(` + numberPattern + `)\s*ea\s*/\s*box`)
	reWeightCountBox  = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(kg|g)\s*\*\s*(` + numberPattern + `)\s*개\s*\*\s*(` + numberPattern + `)\s*ea\s*/\s*box`)
	reSingleWeight    = regexp.MustCompile(`(?i)(?:^|[^0-9~\-.])(` + numberPattern + `)\s*(kg|mg|g)\b`)
	reSingleVolume    = regexp.MustCompile(`(?i)(?:^|[^0-9~\-.])(` + numberPattern + `)\s*(ml|l)\b`)
	rePiecesOnly      = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(?:매입|입|매)`)
	reRangeMidpoint   = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*[~\-]\s*(` + numberPattern + `)\s*(kg|mg|g|ml|l)\b`)

	// reRangeShape is a decline guard: single-value rules step aside when
	// the only weight or volume literal is the upper bound of a range, so
	// the midpoint rule still sees it.
	reRangeShape = regexp.MustCompile(`(?i)` + numberPattern + `\s*[~\-]\s*` + numberPattern + `\s*(?:kg|mg|g|ml|l)\b`)
)

// fallbackTotals maps coercible unit tags to an implied total of one
// selling unit.
var fallbackTotals = map[model.UnitTag]struct {
	unit   model.CanonicalUnit
	factor int64
}{
	model.UnitKG: {model.Gram, 1000},
	model.UnitG:  {model.Gram, 1},
	model.UnitL:  {model.Milliliter, 1000},
	model.UnitML: {model.Milliliter, 1},
}

// Base returns the frozen base ruleset in precedence order. Callers get a
// fresh slice; appending refinement rules after the base set is allowed,
// reordering it is not.
func Base() []Rule {
	rules := make([]Rule, 0, 14)

	// 1. Declared per-EA total in kg inside a detail block:
	// "(...N g * M 입 ... W Kg/EA)". The declared W wins over N*M.
	r := Rule{MethodID: "detail_ea_total_kg", Confidence: 0.95}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reDetailEATotalKG.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		w, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(toGrams(w, "kg"), model.Gram)
	}
	rules = append(rules, r)

	// 2. Same shape with the per-EA total in grams.
	r = Rule{MethodID: "detail_ea_total_g", Confidence: 0.95}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reDetailEATotalG.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		w, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(w, model.Gram)
	}
	rules = append(rules, r)

	// 3. Grouped pieces per box: "(N g * M 입) * K EA/BOX" → N*M*K grams.
	r = Rule{MethodID: "grouped_pieces_per_box", Confidence: 0.9}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reGroupedPieces.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err1 := parseNumber(m[1])
		count, err2 := parseNumber(m[3])
		boxes, err3 := parseNumber(m[4])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}
		return r.success(toGrams(n, m[2]).Mul(count).Mul(boxes), model.Gram)
	}
	rules = append(rules, r)

	// 4. Complex box shape with a declared total:
	// "... * M 입 * K 봉 ... W Kg/BOX" → use W.
	r = Rule{MethodID: "declared_box_total", Confidence: 0.95}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reDeclaredBox.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		w, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(toGrams(w, "kg"), model.Gram)
	}
	rules = append(rules, r)

	// 5. Leading total with a detail block: "W Kg (...)". The outer
	// declared total overrides whatever the parentheses multiply to.
	r = Rule{MethodID: "total_with_detail", Confidence: 0.95}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reTotalWithDetail.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		w, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(toGrams(w, m[2]), model.Gram)
	}
	rules = append(rules, r)

	// 6. Weight times count: "N G * M 입" and friends → N*M grams.
	// 개 is deliberately absent from the count markers here so the
	// three-factor box shape below stays reachable.
	r = Rule{MethodID: "weight_times_count", Confidence: 0.9}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reWeightCount.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err1 := parseNumber(m[1])
		count, err2 := parseNumber(m[3])
		if err1 != nil || err2 != nil {
			return nil
		}
		return r.success(toGrams(n, m[2]).Mul(count), model.Gram)
	}
	rules = append(rules, r)

	// 7. Volume times count: "N L * M ea" → N*M milliliters.
	r = Rule{MethodID: "volume_times_count", Confidence: 0.9}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reVolumeCount.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err1 := parseNumber(m[1])
		count, err2 := parseNumber(m[3])
		if err1 != nil || err2 != nil {
			return nil
		}
		return r.success(toMilliliters(n, m[2]).Mul(count), model.Milliliter)
	}
	rules = append(rules, r)

	// 8. Pieces per box: "N 입 * M EA/BOX" → N*M pieces. Wins even when
	// the spec also carries a loose weight.
	r = Rule{MethodID: "pieces_per_box", Confidence: 0.8}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := rePiecesPerBox.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err1 := parseNumber(m[1])
		boxes, err2 := parseNumber(m[2])
		if err1 != nil || err2 != nil {
			return nil
		}
		return r.success(n.Mul(boxes), model.Piece)
	}
	rules = append(rules, r)

	// 9. Weight times 개-count times boxes: "N G * M 개 * K EA/BOX".
	r = Rule{MethodID: "weight_count_per_box", Confidence: 0.9}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reWeightCountBox.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err1 := parseNumber(m[1])
		count, err2 := parseNumber(m[3])
		boxes, err3 := parseNumber(m[4])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}
		return r.success(toGrams(n, m[2]).Mul(count).Mul(boxes), model.Gram)
	}
	rules = append(rules, r)

	// 10. Single weight: "N kg" / "N g" / "N mg" → grams. Declines when the
	// literal is part of a range so the midpoint rule can claim it.
	r = Rule{MethodID: "single_weight", Confidence: 0.85}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reSingleWeight.FindStringSubmatch(spec)
		if m == nil || reRangeShape.MatchString(spec) {
			return nil
		}
		n, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(toGrams(n, m[2]), model.Gram)
	}
	rules = append(rules, r)

	// 11. Single volume: "N L" / "N ml" → milliliters. 1 L is 1000 ml;
	// no density conversion to grams.
	r = Rule{MethodID: "single_volume", Confidence: 0.85}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reSingleVolume.FindStringSubmatch(spec)
		if m == nil || reRangeShape.MatchString(spec) {
			return nil
		}
		n, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(toMilliliters(n, m[2]), model.Milliliter)
	}
	rules = append(rules, r)

	// 12. Pieces only: "N 입" / "N 매입" with no weight in sight → N pieces.
	r = Rule{MethodID: "pieces_only", Confidence: 0.8}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := rePiecesOnly.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		n, err := parseNumber(m[1])
		if err != nil {
			return nil
		}
		return r.success(n, model.Piece)
	}
	rules = append(rules, r)

	// 13. Unit-field fallback: nothing textual matched but the selling
	// unit itself is coercible. Applies to empty specs too.
	r = Rule{MethodID: "unit_fallback", Confidence: 0.5}
	r.Extract = func(_ string, tag model.UnitTag) *model.ParseResult {
		fb, ok := fallbackTotals[tag]
		if !ok {
			return nil
		}
		return r.success(decimal.NewFromInt(fb.factor), fb.unit)
	}
	rules = append(rules, r)

	// 14. Range midpoint: "A ~ B unit" or "A - B unit" → (A+B)/2.
	r = Rule{MethodID: "range_midpoint", Confidence: 0.7}
	r.Extract = func(spec string, _ model.UnitTag) *model.ParseResult {
		m := reRangeMidpoint.FindStringSubmatch(spec)
		if m == nil {
			return nil
		}
		a, err1 := parseNumber(m[1])
		b, err2 := parseNumber(m[2])
		if err1 != nil || err2 != nil {
			return nil
		}
		mid := a.Add(b).Div(decimal.NewFromInt(2))
		switch suffix := strings.ToLower(m[3]); suffix {
		case "l", "ml":
			return r.success(toMilliliters(mid, suffix), model.Milliliter)
		default:
			return r.success(toGrams(mid, suffix), model.Gram)
		}
	}
	rules = append(rules, r)

	return rules
}

// ByMethodID returns the base rule with the given method id, used to replay
// a learned pattern's extractor against a new row.
func ByMethodID(methodID string) (Rule, bool) {
	for _, r := range Base() {
		if r.MethodID == methodID {
			return r, true
		}
	}
	return Rule{}, false
}
