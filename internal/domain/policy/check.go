package policy

import (
	"fmt"
	"regexp"
	"strings"
)

type piiMatcher struct {
	name  string
	re    *regexp.Regexp
	token string
}

// Checker evaluates drafts against a compiled RuleSet. It holds no mutable
// state and is safe for concurrent use.
type Checker struct {
	incentive []*regexp.Regexp
	pii       []piiMatcher
	safety    *regexp.Regexp
	legal     *regexp.Regexp
	medical   *regexp.Regexp
	gating    []*regexp.Regexp
	lowRating int
}

// NewChecker compiles rs.
func NewChecker(rs RuleSet) (*Checker, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	c := &Checker{
		incentive: compileAll(rs.Incentive),
		gating:    compileAll(rs.ReviewGating),
		safety:    vocabulary(rs.Safety, rs.KeywordMatch),
		legal:     vocabulary(rs.Legal, rs.KeywordMatch),
		medical:   vocabulary(rs.Medical, rs.KeywordMatch),
		lowRating: rs.LowRatingThreshold,
	}
	for _, p := range rs.PII {
		c.pii = append(c.pii, piiMatcher{name: p.Name, re: regexp.MustCompile(p.Pattern), token: p.Token})
	}
	return c, nil
}

// MustChecker is NewChecker that panics on an invalid rule set.
func MustChecker(rs RuleSet) *Checker {
	c, err := NewChecker(rs)
	if err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return c
}

// compileAll must only see patterns that passed Validate.
func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// vocabulary builds one alternation for a word list. Nil for an empty list.
func vocabulary(words []string, mode KeywordMatch) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	alt := strings.Join(quoted, "|")
	if mode == MatchSubstring {
		return regexp.MustCompile(`(?i)(?:` + alt + `)`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + alt + `)(?:s|es)?\b`)
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (c *Checker) hasPII(s string) bool {
	for _, p := range c.pii {
		if p.re.MatchString(s) {
			return true
		}
	}
	return false
}

// PIIFound lists the names of the PII classes present in content, in rule order.
func (c *Checker) PIIFound(content string) []string {
	var found []string
	for _, p := range c.pii {
		if p.re.MatchString(content) {
			found = append(found, p.name)
		}
	}
	return found
}

// Check evaluates content for a review with the given star rating. Every rule
// runs; none short-circuits. languageCode is accepted for language-specific
// rule sets and does not affect the built-in rules.
func (c *Checker) Check(content string, rating int, languageCode string) Result {
	res := Result{Violations: []Violation{}}
	add := func(v Violation) {
		res.Violations = append(res.Violations, v)
		if v.Blocked {
			res.Blocked = true
		} else {
			res.NeedsReview = true
		}
	}

	if anyMatch(c.incentive, content) {
		add(Violation{KindIncentive, SeverityHigh, "Content contains incentives or requests to change reviews", true})
	}
	if c.hasPII(content) {
		add(Violation{KindPII, SeverityHigh, "Content contains personal identifiable information", true})
	}
	if c.safety != nil && c.safety.MatchString(content) {
		add(Violation{KindSafety, SeverityHigh, "Content mentions safety concerns that require review", false})
	}
	if c.legal != nil && c.legal.MatchString(content) {
		add(Violation{KindLegal, SeverityMedium, "Content mentions legal matters that require review", false})
	}
	if c.medical != nil && c.medical.MatchString(content) {
		add(Violation{KindMedical, SeverityMedium, "Content mentions medical matters that require review", false})
	}
	if rating <= c.lowRating {
		add(Violation{KindLowRating, SeverityMedium, "Low rating review requires manual approval", false})
	}
	if anyMatch(c.gating, content) {
		add(Violation{KindReviewGating, SeverityHigh, "Content attempts to gate reviews or filter feedback", true})
	}

	return res
}

// Sanitize replaces every recognized PII substring with its redaction token.
// It is a remediation helper; Check never calls it.
func (c *Checker) Sanitize(content string) string {
	for _, p := range c.pii {
		content = p.re.ReplaceAllLiteralString(content, p.token)
	}
	return content
}

var defaultChecker = MustChecker(DefaultRules())

// Default returns the checker built from DefaultRules.
func Default() *Checker { return defaultChecker }

// Check runs the built-in rules.
func Check(content string, rating int, languageCode string) Result {
	return defaultChecker.Check(content, rating, languageCode)
}

// Sanitize redacts PII using the built-in rules.
func Sanitize(content string) string {
	return defaultChecker.Sanitize(content)
}
