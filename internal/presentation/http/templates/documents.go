package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// NotFoundPage renders the document served for unknown slugs and the bare root path.
func NotFoundPage() templ.Component {
	return StatusPage(StatusPageData{
		Title:       "Page not found",
		StatusLabel: "404",
		Message:     "There is no published page at this address.",
	})
}

// ErrorPage renders the document served when a page cannot be loaded.
func ErrorPage() templ.Component {
	return StatusPage(StatusPageData{
		Title:       "Something went wrong",
		StatusLabel: "500",
		Message:     "This page could not be loaded right now. Please try again shortly.",
	})
}

// StatusPage renders a self-contained HTML document for a status code. Every value is escaped.
func StatusPage(data StatusPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		footer := data.FooterNote
		if footer == "" {
			footer = DefaultFooterNote
		}

		parts := []string{
			`<!DOCTYPE html>`, "\n",
			`<html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(data.Title), `</title>`,
			`<style>body{font-family:system-ui,sans-serif;margin:0;min-height:100vh;display:flex;align-items:center;justify-content:center;background:#f7f7f8;color:#1f2328}`,
			`main{text-align:center;padding:2rem}h1{font-size:4rem;margin:0}p{margin:.75rem 0}footer{margin-top:2rem;font-size:.85rem;color:#6e7781}</style>`,
			`</head><body><main>`,
			`<h1>`, templ.EscapeString(data.StatusLabel), `</h1>`,
			`<p>`, templ.EscapeString(data.Message), `</p>`,
			`<footer>`, templ.EscapeString(footer), `</footer>`,
			`</main></body></html>`,
		}

		for _, part := range parts {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
}
