package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Strob0t/ReplyForge/internal/domain/policy"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
	"github.com/Strob0t/ReplyForge/internal/domain/template"
	"github.com/Strob0t/ReplyForge/internal/domain/tone"
)

func TestBuild(t *testing.T) {
	rv := &review.Review{Rating: 2, Text: "Cold food", Title: "Meh", AuthorName: "Sam", LanguageCode: "en"}
	loc := &review.Location{Name: "Cafe Aurora", Address: "1 Main St", Phone: "555-010-2000"}
	tmpl := &template.Template{Content: "Sorry {{author_name}}"}
	tp := &tone.Profile{Settings: tone.Settings{Warmth: tone.LevelHigh}}

	c := Build(rv, loc, tmpl, tp)

	if c.Business.Name != "Cafe Aurora" || c.Business.Phone != "555-010-2000" {
		t.Errorf("business = %+v", c.Business)
	}
	if c.Review.Rating != 2 || c.Review.Author != "Sam" || c.Review.Language != "en" {
		t.Errorf("review = %+v", c.Review)
	}
	if c.Template != "Sorry {{author_name}}" {
		t.Errorf("template = %q", c.Template)
	}
	if c.Tone.Warmth != tone.LevelHigh {
		t.Errorf("tone = %+v", c.Tone)
	}
}

func TestBuildOptionalPartsEmpty(t *testing.T) {
	c := Build(&review.Review{Rating: 5, Text: "Great"}, &review.Location{Name: "X"}, nil, nil)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(c.JSON()), &decoded); err != nil {
		t.Fatalf("JSON() is not valid JSON: %v", err)
	}
	if decoded["template"] != "" {
		t.Errorf("template = %v, want empty string", decoded["template"])
	}
	tn, ok := decoded["tone"].(map[string]any)
	if !ok || len(tn) != 0 {
		t.Errorf("tone = %v, want empty object", decoded["tone"])
	}
	if !strings.Contains(c.JSON(), "\n  \"business\"") {
		t.Errorf("JSON() should be indented:\n%s", c.JSON())
	}
}

func TestSelect(t *testing.T) {
	if Select("") != Default() {
		t.Error("empty custom prompt should select the default")
	}
	if Select("Be brief.") != "Be brief." {
		t.Error("custom prompt should be used verbatim")
	}
	for _, must := range []string{"under 150 words", "No incentives", "personal data", "safety"} {
		if !strings.Contains(Default(), must) {
			t.Errorf("default prompt missing %q", must)
		}
	}
}

func TestFallbackPositive(t *testing.T) {
	for rating := 4; rating <= 5; rating++ {
		c := Context{Business: Business{Name: "Cafe Aurora", Phone: "555-010-2000"}, Review: Review{Rating: rating}}
		got := Fallback(c)
		if !strings.Contains(got, "Cafe Aurora") {
			t.Errorf("rating %d: fallback should name the business: %q", rating, got)
		}
		if res := policy.Check(got, rating, "en"); res.Blocked || !res.Clean() {
			t.Errorf("rating %d: positive fallback must be policy-clean, got %v", rating, res.Kinds())
		}
	}
}

func TestFallbackNegative(t *testing.T) {
	for rating := 1; rating <= 3; rating++ {
		c := Context{Business: Business{Name: "Cafe Aurora", Phone: "555-010-2000"}, Review: Review{Rating: rating}}
		got := Fallback(c)
		if got == "" {
			t.Fatalf("rating %d: empty fallback", rating)
		}
		if !strings.Contains(got, "555-010-2000") {
			t.Errorf("rating %d: fallback should carry the business phone: %q", rating, got)
		}
	}

	got := Fallback(Context{Review: Review{Rating: 1}})
	if !strings.Contains(got, "please contact us directly") {
		t.Errorf("missing phone should fall back to a generic invitation: %q", got)
	}
	if res := policy.Check(got, 1, ""); res.Blocked {
		t.Errorf("phone-less fallback should not block: %v", res.Kinds())
	}
}
