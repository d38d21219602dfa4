package publishing

import "github.com/rotisserie/eris"

var (
	// ErrNotFound indicates no published page matches the lookup key.
	ErrNotFound = eris.New("published page not found")
	// ErrInvalidSlug indicates the requested slug fails the format rules.
	ErrInvalidSlug = eris.New("invalid slug")
	// ErrConflict indicates the slug is already claimed by another project or owner.
	ErrConflict = eris.New("slug already in use")
	// ErrInvalidInput indicates a required publish field is missing.
	ErrInvalidInput = eris.New("invalid publish input")
	// ErrInvalidDomain indicates the custom domain is malformed, reserved or owned by someone else.
	ErrInvalidDomain = eris.New("invalid custom domain")
)

// IsClientError reports whether err is caused by caller input rather than by the store.
func IsClientError(err error) bool {
	return eris.Is(err, ErrNotFound) ||
		eris.Is(err, ErrInvalidSlug) ||
		eris.Is(err, ErrConflict) ||
		eris.Is(err, ErrInvalidInput) ||
		eris.Is(err, ErrInvalidDomain)
}
