package publishing

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestValidateSlugAcceptsLettersDigitsHyphens(t *testing.T) {
	t.Parallel()

	for _, slug := range []string{"home", "My-Page-2", "a", "2024"} {
		got, err := ValidateSlug(slug)
		if err != nil {
			t.Fatalf("ValidateSlug(%q) returned error: %v", slug, err)
		}
		if got != slug {
			t.Fatalf("expected %q, got %q", slug, got)
		}
	}
}

func TestValidateSlugTrimsWhitespace(t *testing.T) {
	t.Parallel()

	got, err := ValidateSlug("  landing  ")
	if err != nil {
		t.Fatalf("ValidateSlug returned error: %v", err)
	}
	if got != "landing" {
		t.Fatalf("expected trimmed slug, got %q", got)
	}
}

func TestValidateSlugRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, slug := range []string{"", "   ", "bad slug!", "a/b", "under_score", "dot.html", "ünicode", "API", "healthz"} {
		_, err := ValidateSlug(slug)
		if !eris.Is(err, ErrInvalidSlug) {
			t.Fatalf("expected ErrInvalidSlug for %q, got %v", slug, err)
		}
	}
}
