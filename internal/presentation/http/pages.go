package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/domain/publishing"
)

const (
	tagPages  = "Pages"
	tagVisits = "Visits"
)

type pageView struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	ProjectID    string    `json:"projectId"`
	Title        string    `json:"title,omitempty"`
	CustomDomain string    `json:"customDomain,omitempty"`
	URL          string    `json:"url"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type callerInput struct {
	UserID string `header:"X-User-ID" doc:"Identifier of the authenticated page owner"`
}

type publishInput struct {
	UserID string `header:"X-User-ID" doc:"Identifier of the authenticated page owner"`
	Body   struct {
		ProjectID    string `json:"projectId" required:"false" doc:"Builder project being published"`
		Slug         string `json:"slug" required:"false" doc:"Letters, digits and hyphens only"`
		HTML         string `json:"html" required:"false" doc:"Complete HTML document, stored verbatim"`
		CustomDomain string `json:"customDomain,omitempty" required:"false" doc:"Optional custom domain the page is served on"`
	}
}

type publishOutput struct {
	Status int
	Body   struct {
		URL      string   `json:"url"`
		IsUpdate bool     `json:"isUpdate"`
		Page     pageView `json:"page"`
	}
}

type listPagesOutput struct {
	Body struct {
		Pages []pageView `json:"pages"`
	}
}

type pageIDInput struct {
	UserID string `header:"X-User-ID" doc:"Identifier of the authenticated page owner"`
	ID     string `path:"id" doc:"Published page id"`
}

type deletePageOutput struct {
	Status int
}

type pageStatsOutput struct {
	Body struct {
		Total      int64 `json:"total"`
		Last30Days int64 `json:"last30Days"`
	}
}

type visitInput struct {
	Body struct {
		Slug      string `json:"slug" required:"false" doc:"Slug of the visited page"`
		Host      string `json:"host,omitempty" required:"false" doc:"Host the page was served on; empty for the default host"`
		Referrer  string `json:"referrer,omitempty" required:"false"`
		UserAgent string `json:"userAgent,omitempty" required:"false"`
		IPAddress string `json:"ipAddress,omitempty" required:"false"`
	}

	clientIP string
}

// Resolve records the caller address for visits that do not report one.
func (i *visitInput) Resolve(ctx huma.Context) []error {
	if req, _ := humago.Unwrap(ctx); req != nil {
		i.clientIP = clientIPFromRequest(req)
	}
	return nil
}

type acceptedOutput struct {
	Status int
}

func (s *Server) registerPageRoutes() {
	apiAuth := map[string]any{metadataAuth: authAPI}

	huma.Register(s.api, huma.Operation{
		OperationID: "publish-page",
		Method:      stdhttp.MethodPost,
		Path:        "/api/pages",
		Summary:     "Publish or republish a project",
		Description: "Creates the page on first publish and updates it in place when the same project republishes the same slug.",
		Tags:        []string{tagPages},
		Metadata:    apiAuth,
		Errors:      []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusConflict, stdhttp.StatusInternalServerError},
	}, s.publishHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-pages",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages",
		Summary:     "List the caller's published pages",
		Tags:        []string{tagPages},
		Metadata:    apiAuth,
		Errors:      []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusInternalServerError},
	}, s.listPagesHandler)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-page",
		Method:        stdhttp.MethodDelete,
		Path:          "/api/pages/{id}",
		Summary:       "Unpublish a page",
		Tags:          []string{tagPages},
		Metadata:      apiAuth,
		DefaultStatus: stdhttp.StatusNoContent,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound, stdhttp.StatusInternalServerError},
	}, s.deletePageHandler)

	huma.Register(s.api, huma.Operation{
		OperationID: "page-stats",
		Method:      stdhttp.MethodGet,
		Path:        "/api/pages/{id}/stats",
		Summary:     "Visit counts for a page",
		Tags:        []string{tagPages},
		Metadata:    apiAuth,
		Errors:      []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized, stdhttp.StatusNotFound, stdhttp.StatusInternalServerError},
	}, s.pageStatsHandler)
}

func (s *Server) registerVisitRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "record-visit",
		Method:        stdhttp.MethodPost,
		Path:          "/api/visits",
		Summary:       "Report a page visit",
		Description:   "Acknowledged immediately; the visit is written in the background.",
		Tags:          []string{tagVisits},
		Metadata:      map[string]any{metadataAuth: authAPI},
		DefaultStatus: stdhttp.StatusAccepted,
		Errors:        []int{stdhttp.StatusBadRequest, stdhttp.StatusUnauthorized},
	}, s.recordVisitHandler)
}

func (s *Server) publishHandler(ctx context.Context, input *publishInput) (*publishOutput, error) {
	result, err := s.publisher.Publish(ctx, publishing.PublishInput{
		UserID:       input.UserID,
		ProjectID:    input.Body.ProjectID,
		Slug:         input.Body.Slug,
		HTML:         input.Body.HTML,
		CustomDomain: input.Body.CustomDomain,
	})
	if err != nil {
		return nil, s.apiError(ctx, err, "publish", logrus.Fields{
			"slug":       input.Body.Slug,
			"user_id":    input.UserID,
			"project_id": input.Body.ProjectID,
		})
	}

	resp := &publishOutput{Status: stdhttp.StatusCreated}
	if result.IsUpdate {
		resp.Status = stdhttp.StatusOK
	}
	resp.Body.URL = result.URL
	resp.Body.IsUpdate = result.IsUpdate
	resp.Body.Page = toPageView(result.Page, result.URL)

	return resp, nil
}

func (s *Server) listPagesHandler(ctx context.Context, input *callerInput) (*listPagesOutput, error) {
	pages, err := s.publisher.ListPages(ctx, input.UserID)
	if err != nil {
		return nil, s.apiError(ctx, err, "list pages", logrus.Fields{"user_id": input.UserID})
	}

	resp := &listPagesOutput{}
	resp.Body.Pages = make([]pageView, 0, len(pages))
	for _, page := range pages {
		resp.Body.Pages = append(resp.Body.Pages, toPageView(page, s.publisher.URLFor(ctx, page)))
	}

	return resp, nil
}

func (s *Server) deletePageHandler(ctx context.Context, input *pageIDInput) (*deletePageOutput, error) {
	if err := s.publisher.Unpublish(ctx, input.UserID, input.ID); err != nil {
		return nil, s.apiError(ctx, err, "unpublish", logrus.Fields{"user_id": input.UserID, "page_id": input.ID})
	}

	return &deletePageOutput{Status: stdhttp.StatusNoContent}, nil
}

func (s *Server) pageStatsHandler(ctx context.Context, input *pageIDInput) (*pageStatsOutput, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, huma.Error400BadRequest("X-User-ID header is required")
	}

	counts, err := s.analytics.PageStats(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, s.apiError(ctx, err, "page stats", logrus.Fields{"user_id": input.UserID, "page_id": input.ID})
	}

	resp := &pageStatsOutput{}
	resp.Body.Total = counts.Total
	resp.Body.Last30Days = counts.Last30Days
	return resp, nil
}

func (s *Server) recordVisitHandler(ctx context.Context, input *visitInput) (*acceptedOutput, error) {
	ip := input.Body.IPAddress
	if ip == "" {
		ip = input.clientIP
	}

	err := s.analytics.RecordVisit(ctx, publishing.Visit{
		Slug:      input.Body.Slug,
		Host:      input.Body.Host,
		Referrer:  input.Body.Referrer,
		UserAgent: input.Body.UserAgent,
		IPAddress: ip,
	})
	if err != nil {
		return nil, s.apiError(ctx, err, "record visit", logrus.Fields{"slug": input.Body.Slug})
	}

	return &acceptedOutput{Status: stdhttp.StatusAccepted}, nil
}

func toPageView(page publishing.Page, url string) pageView {
	return pageView{
		ID:           page.ID,
		Slug:         page.Slug,
		ProjectID:    page.ProjectID,
		Title:        page.Title,
		CustomDomain: page.CustomDomain,
		URL:          url,
		CreatedAt:    page.CreatedAt,
		UpdatedAt:    page.UpdatedAt,
	}
}
