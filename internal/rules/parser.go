package rules

import (
	"fmt"
	"strings"

	"github.com/hansang/unitprice/internal/model"
	"github.com/hansang/unitprice/internal/normalize"
)

// Parser walks a ruleset in order and returns the first successful parse.
// It is pure: no I/O, and the same input always yields the same result.
type Parser struct {
	rules []Rule
}

// NewParser creates a parser over the frozen base ruleset.
func NewParser() *Parser {
	return &Parser{rules: Base()}
}

// NewParserWithRules creates a parser over a custom ruleset, used by tests
// and by refinement experiments. The slice is used as-is.
func NewParserWithRules(rules []Rule) *Parser {
	return &Parser{rules: rules}
}

// Parse applies the ruleset to a normalized spec. First match wins. A
// numeric_guard failure from a matching rule is terminal: a rule that
// recognized the shape but extracted garbage must not be second-guessed by
// a later, more general rule.
func (p *Parser) Parse(spec normalize.Spec) *model.ParseResult {
	trace := make([]string, 0, len(p.rules))

	for _, rule := range p.rules {
		result := p.tryRule(rule, spec)
		if result == nil {
			trace = append(trace, fmt.Sprintf("%s: shape not present", rule.MethodID))
			continue
		}
		if result.OK() {
			return result
		}
		// Matched but guarded: keep the partial trace for triage.
		result.Trace = append(trace, result.Trace...)
		return result
	}

	reason := model.ReasonNoPatternMatch
	if strings.TrimSpace(spec.Text) == "" {
		reason = model.ReasonEmptySpec
	}
	return &model.ParseResult{Reason: reason, Trace: trace}
}

// tryRule runs one extractor, recovering panics so a malformed spec can
// never take down a batch.
func (p *Parser) tryRule(rule Rule, spec normalize.Spec) (result *model.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &model.ParseResult{
				MethodID: rule.MethodID,
				Reason:   model.ReasonNumericGuard,
				Trace:    []string{fmt.Sprintf("%s: extractor panicked: %v", rule.MethodID, r)},
			}
		}
	}()
	return rule.Extract(spec.Text, spec.Tag)
}

// Replay re-executes a single method's extractor against a row, used when a
// learned pattern short-circuits the full walk.
func (p *Parser) Replay(methodID string, spec normalize.Spec) *model.ParseResult {
	for _, rule := range p.rules {
		if rule.MethodID == methodID {
			return p.tryRule(rule, spec)
		}
	}
	return nil
}
