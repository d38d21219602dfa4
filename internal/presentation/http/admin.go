package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/domain/publishing"
)

const tagAdmin = "Admin"

type overviewOutput struct {
	Body struct {
		Pages            int64 `json:"pages"`
		VisitsTotal      int64 `json:"visitsTotal"`
		VisitsLast30Days int64 `json:"visitsLast30Days"`
	}
}

type domainView struct {
	Domain     string     `json:"domain"`
	UserID     string     `json:"userId"`
	Verified   bool       `json:"verified"`
	CreatedAt  time.Time  `json:"createdAt"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

type domainListOutput struct {
	Body struct {
		Domains []domainView `json:"domains"`
	}
}

type domainOutput struct {
	Status int
	Body   domainView
}

type registerDomainInput struct {
	Body struct {
		Domain string `json:"domain" required:"false" doc:"Hostname to register"`
		UserID string `json:"userId" required:"false" doc:"Owner of the domain"`
	}
}

type domainNameInput struct {
	Domain string `path:"domain" doc:"Registered hostname"`
}

type emptyOutput struct {
	Status int
}

func (s *Server) registerAdminRoutes() {
	adminAuth := map[string]any{metadataAuth: authAdmin}

	huma.Register(s.api, huma.Operation{
		OperationID: "admin-overview",
		Method:      stdhttp.MethodGet,
		Path:        "/api/admin/overview",
		Summary:     "Platform totals",
		Tags:        []string{tagAdmin},
		Metadata:    adminAuth,
		Errors:      []int{stdhttp.StatusUnauthorized, stdhttp.StatusInternalServerError},
	}, s.overviewHandler)

	if s.domains == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "admin-list-domains",
		Method:      stdhttp.MethodGet,
		Path:        "/api/admin/domains",
		Summary:     "List custom domains",
		Tags:        []string{tagAdmin},
		Metadata:    adminAuth,
		Errors:      []int{stdhttp.StatusUnauthorized, stdhttp.StatusInternalServerError},
	}, s.listDomainsHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "admin-register-domain",
		Method:        stdhttp.MethodPost,
		Path:          "/api/admin/domains",
		Summary:       "Register a custom domain for a user",
		Tags:          []string{tagAdmin},
		Metadata:      adminAuth,
		DefaultStatus: stdhttp.StatusCreated,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusConflict, stdhttp.StatusInternalServerError},
	}, s.registerDomainHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "admin-verify-domain",
		Method:      stdhttp.MethodPost,
		Path:        "/api/admin/domains/{domain}/verify",
		Summary:     "Mark a custom domain as verified",
		Tags:        []string{tagAdmin},
		Metadata:    adminAuth,
		Errors:      []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound, stdhttp.StatusInternalServerError},
	}, s.verifyDomainHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "admin-remove-domain",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/admin/domains/{domain}",
		Summary:       "Remove a custom domain registration",
		Tags:          []string{tagAdmin},
		Metadata:      adminAuth,
		DefaultStatus: stdhttp.StatusNoContent,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound, stdhttp.StatusInternalServerError},
	}, s.removeDomainHandler)
}

func (s *Server) overviewHandler(ctx context.Context, _ *struct{}) (*overviewOutput, error) {
	overview, err := s.analytics.Overview(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "overview", nil)
	}

	resp := &overviewOutput{}
	resp.Body.Pages = overview.Pages
	resp.Body.VisitsTotal = overview.Visits.Total
	resp.Body.VisitsLast30Days = overview.Visits.Last30Days
	return resp, nil
}

func (s *Server) listDomainsHandler(ctx context.Context, _ *struct{}) (*domainListOutput, error) {
	domains, err := s.domains.List(ctx)
	if err != nil {
		return nil, s.apiError(ctx, err, "list domains", nil)
	}

	resp := &domainListOutput{}
	resp.Body.Domains = make([]domainView, 0, len(domains))
	for _, domain := range domains {
		resp.Body.Domains = append(resp.Body.Domains, toDomainView(domain))
	}
	return resp, nil
}

func (s *Server) registerDomainHandler(ctx context.Context, input *registerDomainInput) (*domainOutput, error) {
	name, err := s.canonicalDomain(input.Body.Domain)
	if err != nil {
		return nil, s.apiError(ctx, err, "register domain", nil)
	}

	domain, err := s.domains.Register(ctx, name, strings.TrimSpace(input.Body.UserID))
	if err != nil {
		return nil, s.apiError(ctx, err, "register domain", logrus.Fields{"custom_domain": name})
	}

	return &domainOutput{Status: stdhttp.StatusCreated, Body: toDomainView(*domain)}, nil
}

func (s *Server) verifyDomainHandler(ctx context.Context, input *domainNameInput) (*domainOutput, error) {
	name, err := s.canonicalDomain(input.Domain)
	if err != nil {
		return nil, s.apiError(ctx, err, "verify domain", nil)
	}

	domain, err := s.domains.Verify(ctx, name)
	if err != nil {
		return nil, s.apiError(ctx, err, "verify domain", logrus.Fields{"custom_domain": name})
	}

	return &domainOutput{Status: stdhttp.StatusOK, Body: toDomainView(*domain)}, nil
}

func (s *Server) removeDomainHandler(ctx context.Context, input *domainNameInput) (*emptyOutput, error) {
	name, err := s.canonicalDomain(input.Domain)
	if err != nil {
		return nil, s.apiError(ctx, err, "remove domain", nil)
	}

	if err := s.domains.Remove(ctx, name); err != nil {
		return nil, s.apiError(ctx, err, "remove domain", logrus.Fields{"custom_domain": name})
	}

	return &emptyOutput{Status: stdhttp.StatusNoContent}, nil
}

// canonicalDomain rejects empty names as well as malformed ones.
func (s *Server) canonicalDomain(raw string) (string, error) {
	name, err := s.hosts.NormalizeDomain(raw)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", eris.Wrap(publishing.ErrInvalidDomain, "domain is required")
	}
	return name, nil
}

func toDomainView(domain publishing.Domain) domainView {
	return domainView{
		Domain:     domain.Name,
		UserID:     domain.UserID,
		Verified:   domain.Verified,
		CreatedAt:  domain.CreatedAt,
		VerifiedAt: domain.VerifiedAt,
	}
}
