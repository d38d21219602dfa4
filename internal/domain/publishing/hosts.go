package publishing

import (
	"net"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var hostLabelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

const maxHostnameLength = 253

// HostPolicy decides which request hosts are served from the default namespace.
type HostPolicy struct {
	defaultHost string
	defaults    map[string]struct{}
}

// NewHostPolicy builds a policy for the platform's default host. Localhost and loopback
// addresses are always treated as default hosts.
func NewHostPolicy(defaultHost string, aliases ...string) (*HostPolicy, error) {
	trimmed := strings.TrimSpace(defaultHost)
	if trimmed == "" {
		return nil, eris.New("default host is required")
	}

	policy := &HostPolicy{
		defaultHost: strings.ToLower(trimmed),
		defaults: map[string]struct{}{
			"localhost": {},
			"127.0.0.1": {},
			"::1":       {},
		},
	}

	policy.defaults[NormalizeHost(trimmed)] = struct{}{}
	for _, alias := range aliases {
		if normalized := NormalizeHost(alias); normalized != "" {
			policy.defaults[normalized] = struct{}{}
		}
	}

	return policy, nil
}

// DefaultHost returns the configured default host as used in public URLs.
func (p *HostPolicy) DefaultHost() string {
	return p.defaultHost
}

// IsDefault reports whether the request host belongs to the default namespace.
// An empty host is treated as default.
func (p *HostPolicy) IsDefault(host string) bool {
	normalized := NormalizeHost(host)
	if normalized == "" {
		return true
	}
	_, ok := p.defaults[normalized]
	return ok
}

// NormalizeHost lowercases a Host header value and strips any port, IPv6 brackets and trailing dot.
func NormalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return strings.TrimSuffix(host, ".")
}

// NormalizeDomain validates an owner-supplied custom domain and returns its canonical form.
// An empty input yields an empty domain.
func (p *HostPolicy) NormalizeDomain(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	domain := NormalizeHost(raw)
	if domain == "" || len(domain) > maxHostnameLength {
		return "", eris.Wrapf(ErrInvalidDomain, "custom domain %q is not a valid hostname", raw)
	}

	if net.ParseIP(domain) != nil {
		return "", eris.Wrapf(ErrInvalidDomain, "custom domain %q must be a hostname, not an IP address", raw)
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "", eris.Wrapf(ErrInvalidDomain, "custom domain %q must be fully qualified", raw)
	}
	for _, label := range labels {
		if !hostLabelPattern.MatchString(label) {
			return "", eris.Wrapf(ErrInvalidDomain, "custom domain %q is not a valid hostname", raw)
		}
	}

	if p.IsDefault(domain) {
		return "", eris.Wrapf(ErrInvalidDomain, "custom domain %q is reserved by the platform", raw)
	}

	return domain, nil
}
