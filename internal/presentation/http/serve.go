package http

import (
	"context"
	stdhttp "net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"pagecraft/app/internal/domain/publishing"
	"pagecraft/app/internal/presentation/http/templates"
)

const (
	htmlContentType   = "text/html; charset=utf-8"
	publicCacheHeader = "public, max-age=300"
	tagServing        = "Serving"
)

type htmlResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type serveInput struct {
	Slug      string `path:"slug"`
	Referrer  string `header:"Referer"`
	UserAgent string `header:"User-Agent"`

	host     string
	clientIP string
}

// Resolve captures the request host and client address, which are not exposed as parameters.
func (i *serveInput) Resolve(ctx huma.Context) []error {
	i.host = ctx.Host()
	if req, _ := humago.Unwrap(ctx); req != nil {
		i.clientIP = clientIPFromRequest(req)
	}
	return nil
}

func (s *Server) registerServeRoutes() {
	root := huma.Operation{
		OperationID: "serve-root",
		Method:      stdhttp.MethodGet,
		Path:        "/",
		Summary:     "Root of a publishing host",
		Tags:        []string{tagServing},
		Metadata:    map[string]any{metadataLimited: true},
		Hidden:      true,
	}
	htmlOperation(stdhttp.StatusNotFound)(&root)
	huma.Register(s.api, root, s.rootHandler)

	page := huma.Operation{
		OperationID: "serve-page",
		Method:      stdhttp.MethodGet,
		Path:        "/{slug}",
		Summary:     "Serve a published page",
		Description: "Resolves the slug against the request host and returns the stored HTML.",
		Tags:        []string{tagServing},
		Metadata:    map[string]any{metadataLimited: true},
	}
	htmlOperation(stdhttp.StatusNotFound, stdhttp.StatusTooManyRequests, stdhttp.StatusInternalServerError)(&page)
	huma.Register(s.api, page, s.serveHandler)
}

func (s *Server) rootHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.statusDocument(ctx, stdhttp.StatusNotFound), nil
}

func (s *Server) serveHandler(ctx context.Context, input *serveInput) (*htmlResponse, error) {
	page, err := s.resolver.Resolve(ctx, publishing.ResolveRequest{
		Host:      input.host,
		Slug:      input.Slug,
		Referrer:  input.Referrer,
		UserAgent: input.UserAgent,
		ClientIP:  input.clientIP,
	})
	if err != nil {
		if eris.Is(err, publishing.ErrNotFound) {
			return s.statusDocument(ctx, stdhttp.StatusNotFound), nil
		}

		s.recordError(ctx, err, "serving published page", logrus.Fields{
			"slug":      input.Slug,
			"host":      input.host,
			"operation": "resolve",
		})
		return s.statusDocument(ctx, stdhttp.StatusInternalServerError), nil
	}

	return &htmlResponse{
		Status:       stdhttp.StatusOK,
		ContentType:  htmlContentType,
		CacheControl: publicCacheHeader,
		Body:         []byte(page.HTML),
	}, nil
}

func (s *Server) statusDocument(ctx context.Context, status int) *htmlResponse {
	component := templates.NotFoundPage()
	if status != stdhttp.StatusNotFound {
		component = templates.ErrorPage()
	}

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering status document", logrus.Fields{"status": status})
		body = []byte("<!DOCTYPE html><html><body><h1>" + strconv.Itoa(status) + "</h1></body></html>")
	}

	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}
