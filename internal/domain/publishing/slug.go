package publishing

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Path segments owned by the server's own routes.
var reservedSlugs = map[string]struct{}{
	"api":     {},
	"docs":    {},
	"healthz": {},
	"openapi": {},
	"schemas": {},
}

// ValidateSlug checks the slug against the publishable format and returns the trimmed value.
func ValidateSlug(slug string) (string, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return "", eris.Wrap(ErrInvalidSlug, "slug is required")
	}

	if !slugPattern.MatchString(trimmed) {
		return "", eris.Wrapf(ErrInvalidSlug, "slug %q may only contain letters, digits and hyphens", trimmed)
	}

	if _, reserved := reservedSlugs[strings.ToLower(trimmed)]; reserved {
		return "", eris.Wrapf(ErrInvalidSlug, "slug %q is reserved", trimmed)
	}

	return trimmed, nil
}
