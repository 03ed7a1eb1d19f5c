// Package tone defines tone profiles and the deterministic text rewrites they drive.
package tone

import (
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Level is a three-step intensity used by several settings.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Settings are the stylistic knobs of a tone profile. All fields are optional.
// Only Warmth, Formality and Signoff rewrite text; the rest steer generation.
type Settings struct {
	Formality   Level  `json:"formality,omitempty"`
	Emotion     string `json:"emotion,omitempty"`
	Length      string `json:"length,omitempty"` // "short" | "medium" | "long"
	Personality string `json:"personality,omitempty"`
	Warmth      Level  `json:"warmth,omitempty"`
	Signoff     string `json:"signoff,omitempty"` // may contain {{business_name}}
}

// Profile is a named bundle of settings.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Settings  Settings  `json:"settings"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const businessToken = "{{business_name}}"

var (
	sentenceEnd = regexp.MustCompile(`\.(\s|$)`)
	thanks      = regexp.MustCompile(`(?i)\b(?:thank you|thanks)\b(?: so much)?`)
)

// contractions maps lower-case contractions to their expansions.
var contractions = map[string]string{
	"we're": "we are", "we'll": "we will", "we've": "we have", "we'd": "we would",
	"you're": "you are", "you'll": "you will", "you've": "you have", "you'd": "you would",
	"they're": "they are", "i'm": "I am", "i'll": "I will", "i've": "I have",
	"it's": "it is", "that's": "that is", "let's": "let us",
	"can't": "cannot", "won't": "will not", "don't": "do not", "doesn't": "does not",
	"didn't": "did not", "isn't": "is not", "aren't": "are not", "wasn't": "was not",
	"couldn't": "could not", "wouldn't": "would not", "shouldn't": "should not",
}

var contraction = buildContractionPattern()

func buildContractionPattern() *regexp.Regexp {
	alts := make([]string, 0, len(contractions))
	for k := range contractions {
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(k), "'", `['’]`))
	}
	// Longest first so "wouldn't" is never shadowed by a shorter prefix.
	slices.SortFunc(alts, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
}

func expand(m string) string {
	key := strings.ToLower(strings.ReplaceAll(m, "’", "'"))
	exp, ok := contractions[key]
	if !ok {
		return m
	}
	first, _ := utf8.DecodeRuneInString(m)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(exp)
		return string(unicode.ToUpper(r)) + exp[size:]
	}
	return exp
}

// Apply runs the tone rewrites in order: warmth, formality, signoff.
// businessName fills the signoff placeholder; empty means "our business".
func Apply(content string, s Settings, businessName string) string {
	out := content

	if s.Warmth == LevelHigh {
		out = sentenceEnd.ReplaceAllString(out, "!${1}")
		out = thanks.ReplaceAllLiteralString(out, "Thank you so much")
	}

	if s.Formality == LevelHigh {
		out = contraction.ReplaceAllStringFunc(out, expand)
	}

	if s.Signoff != "" {
		if businessName == "" {
			businessName = "our business"
		}
		signoff := strings.ReplaceAll(s.Signoff, businessToken, businessName)
		out = strings.TrimRightFunc(out, unicode.IsSpace) + "\n\n" + signoff
	}

	return out
}
