package review

import (
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/ReplyForge/internal/domain"
)

func TestReviewValidate(t *testing.T) {
	for rating := -1; rating <= 6; rating++ {
		r := Review{Rating: rating}
		err := r.Validate()
		valid := rating >= 1 && rating <= 5
		if valid && err != nil {
			t.Errorf("rating %d: unexpected error %v", rating, err)
		}
		if !valid && !errors.Is(err, domain.ErrValidation) {
			t.Errorf("rating %d: expected ErrValidation, got %v", rating, err)
		}
	}
}

func TestReviewPositive(t *testing.T) {
	if (&Review{Rating: 3}).Positive() {
		t.Error("3 stars should not be positive")
	}
	if !(&Review{Rating: 4}).Positive() {
		t.Error("4 stars should be positive")
	}
}

func TestLocationValidate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{"ok", Location{Name: "Cafe Aurora", PlatformIDs: map[Platform]string{PlatformGoogle: "accounts/1/locations/2"}}, false},
		{"blank", Location{Name: "   "}, true},
		{"too long", Location{Name: strings.Repeat("a", 256)}, true},
		{"control chars", Location{Name: "Cafe\x00"}, true},
		{"unknown platform", Location{Name: "Cafe", PlatformIDs: map[Platform]string{"yelp": "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlatformID(t *testing.T) {
	var l Location
	if l.PlatformID(PlatformGoogle) != "" {
		t.Error("nil map should yield empty id")
	}
	l.PlatformIDs = map[Platform]string{PlatformFacebook: "page-1"}
	if got := l.PlatformID(PlatformFacebook); got != "page-1" {
		t.Errorf("PlatformID = %q", got)
	}
}
