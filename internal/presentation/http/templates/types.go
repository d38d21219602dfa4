package templates

// DefaultFooterNote is shown under every status document.
const DefaultFooterNote = "Published with Pagecraft."

// StatusPageData holds the values rendered into a static status document.
type StatusPageData struct {
	Title       string
	StatusLabel string
	Message     string
	FooterNote  string
}
