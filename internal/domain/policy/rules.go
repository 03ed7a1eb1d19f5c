package policy

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PIIPattern names one class of personal data and its redaction token.
type PIIPattern struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Token   string `yaml:"token"`
}

// KeywordMatch selects how vocabulary words are matched.
type KeywordMatch string

const (
	// MatchWord matches whole words, plural forms included. "fire" does not
	// match "firearm" and "health" does not match "healthy".
	MatchWord KeywordMatch = "word"
	// MatchSubstring matches anywhere in the text, so stems also hit
	// ("injur" flags "injured", "health" flags "healthy"). It is the
	// broader, noisier mode.
	MatchSubstring KeywordMatch = "substring"
)

// RuleSet is the data behind the policy engine. Patterns are RE2 regular
// expressions; vocabularies are plain words matched case-insensitively,
// on word boundaries unless KeywordMatch is MatchSubstring.
type RuleSet struct {
	Incentive    []string     `yaml:"incentive"`
	PII          []PIIPattern `yaml:"pii"` // also the redaction order used by Sanitize
	Safety       []string     `yaml:"safety"`
	Legal        []string     `yaml:"legal"`
	Medical      []string     `yaml:"medical"`
	ReviewGating []string     `yaml:"review_gating"`

	// KeywordMatch applies to Safety, Legal and Medical. Empty means MatchWord.
	KeywordMatch KeywordMatch `yaml:"keyword_match"`

	// LowRatingThreshold is the highest star rating that always needs manual review.
	LowRatingThreshold int `yaml:"low_rating_threshold"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() RuleSet {
	return RuleSet{
		Incentive: []string{
			`(?i)\b(discount|voucher|coupon|refund|free|offer|deal|promotion)\b`,
			`(?i)\b(change.*review|update.*review|remove.*review)\b`,
			`(?i)\b(only.*positive|only.*great|only.*good)\b`,
		},
		PII: []PIIPattern{
			{Name: "card", Pattern: `\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`, Token: "[CARD]"},
			{Name: "iban", Pattern: `\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`, Token: "[IBAN]"},
			{Name: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Token: "[EMAIL]"},
			{Name: "phone", Pattern: `\b\d{3}[-.]?\d{3}[-.]?\d{4}\b`, Token: "[PHONE]"},
		},
		Safety: []string{
			"safety", "dangerous", "hazard", "unsafe", "injury", "accident", "emergency",
			"fire", "explosion", "toxic", "poison", "harmful",
		},
		Legal: []string{
			"lawsuit", "legal", "attorney", "lawyer", "court", "judge", "settlement",
			"compensation", "damages", "liability", "negligence",
		},
		Medical: []string{
			"medical", "doctor", "physician", "treatment", "diagnosis", "prescription",
			"medication", "surgery", "hospital", "clinic", "health",
		},
		ReviewGating: []string{
			`(?i)\b(only.*if.*experience.*great|only.*if.*happy|only.*if.*satisfied)\b`,
			`(?i)\b(contact.*us.*if.*problem|let.*us.*know.*if.*issue)\b`,
			`(?i)\b(positive.*feedback.*only|good.*reviews.*only)\b`,
		},
		LowRatingThreshold: 3,
	}
}

// LoadRules reads a YAML rule set from path. Sections absent from the file
// keep their built-in values.
func LoadRules(path string) (RuleSet, error) {
	rs := DefaultRules()

	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied rules file
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("validate rules file %s: %w", path, err)
	}
	return rs, nil
}

// Validate checks that every pattern compiles and the threshold is a star rating.
func (rs *RuleSet) Validate() error {
	if rs.LowRatingThreshold < 0 || rs.LowRatingThreshold > 5 {
		return fmt.Errorf("policy: low_rating_threshold must be within [0, 5], got %d", rs.LowRatingThreshold)
	}
	switch rs.KeywordMatch {
	case "", MatchWord, MatchSubstring:
	default:
		return fmt.Errorf("policy: keyword_match must be %q or %q, got %q", MatchWord, MatchSubstring, rs.KeywordMatch)
	}
	for i, p := range rs.Incentive {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("policy: incentive[%d]: %w", i, err)
		}
	}
	for i, p := range rs.ReviewGating {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("policy: review_gating[%d]: %w", i, err)
		}
	}
	for i, p := range rs.PII {
		if p.Name == "" || p.Token == "" {
			return fmt.Errorf("policy: pii[%d]: name and token are required", i)
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			return fmt.Errorf("policy: pii[%d] %s: %w", i, p.Name, err)
		}
	}
	return nil
}
