package publishing

import (
	"testing"

	"github.com/rotisserie/eris"
)

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"Example.COM":         "example.com",
		"example.com:8443":    "example.com",
		"example.com.":        "example.com",
		"[::1]:8080":          "::1",
		"::1":                 "::1",
		" pages.example.com ": "pages.example.com",
	}

	for input, expected := range cases {
		if got := NormalizeHost(input); got != expected {
			t.Errorf("NormalizeHost(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestHostPolicyDefaults(t *testing.T) {
	t.Parallel()

	policy := mustHostPolicy("pages.example.com:8080", "www.pages.example.com")

	for _, host := range []string{"", "pages.example.com", "PAGES.example.com:443", "www.pages.example.com", "localhost:3000", "127.0.0.1", "[::1]:80"} {
		if !policy.IsDefault(host) {
			t.Errorf("expected %q to be a default host", host)
		}
	}

	for _, host := range []string{"a.com", "blog.example.org"} {
		if policy.IsDefault(host) {
			t.Errorf("expected %q to be a custom host", host)
		}
	}

	if policy.DefaultHost() != "pages.example.com:8080" {
		t.Fatalf("expected default host to keep its port for URLs, got %q", policy.DefaultHost())
	}
}

func TestNewHostPolicyRequiresDefaultHost(t *testing.T) {
	t.Parallel()

	if _, err := NewHostPolicy("  "); err == nil {
		t.Fatalf("expected error without default host")
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	policy := mustHostPolicy("pages.example.com")

	got, err := policy.NormalizeDomain(" Blog.Example.ORG. ")
	if err != nil {
		t.Fatalf("NormalizeDomain returned error: %v", err)
	}
	if got != "blog.example.org" {
		t.Fatalf("expected canonical domain, got %q", got)
	}

	empty, err := policy.NormalizeDomain("")
	if err != nil || empty != "" {
		t.Fatalf("expected empty domain to pass through, got %q, %v", empty, err)
	}

	for _, bad := range []string{"localhost", "pages.example.com", "10.0.0.1", "single", "bad_domain.com", "-lead.com", "a..com"} {
		if _, err := policy.NormalizeDomain(bad); !eris.Is(err, ErrInvalidDomain) {
			t.Errorf("expected ErrInvalidDomain for %q, got %v", bad, err)
		}
	}
}
