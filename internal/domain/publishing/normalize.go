package publishing

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	doctypeDeclaration = "<!DOCTYPE html>\n"
	charsetMeta        = `<meta charset="utf-8">`
)

// NormalizeHTML guarantees the document starts with a doctype and declares UTF-8 in its head.
// Nothing else is touched, malformed markup included. NormalizeHTML(NormalizeHTML(h)) equals
// NormalizeHTML(h).
func NormalizeHTML(content string) string {
	scan := scanDocument(content)
	if scan.hasDoctype && scan.hasCharset {
		return content
	}

	var b strings.Builder
	b.Grow(len(content) + len(doctypeDeclaration) + len(charsetMeta) + len("<head></head>"))

	if !scan.hasDoctype {
		b.WriteString(doctypeDeclaration)
	}

	if scan.hasCharset {
		b.WriteString(content)
		return b.String()
	}

	insertAt, snippet := scan.charsetInsertion()
	b.WriteString(content[:insertAt])
	b.WriteString(snippet)
	b.WriteString(content[insertAt:])
	return b.String()
}

// documentScan records byte offsets just past the interesting start tags of the head section.
type documentScan struct {
	hasDoctype bool
	hasCharset bool
	doctypeEnd int
	htmlEnd    int
	headEnd    int
}

func (s documentScan) charsetInsertion() (int, string) {
	switch {
	case s.headEnd >= 0:
		return s.headEnd, charsetMeta
	case s.htmlEnd >= 0:
		return s.htmlEnd, "<head>" + charsetMeta + "</head>"
	default:
		return s.doctypeEnd, charsetMeta
	}
}

// scanDocument tokenizes up to the end of the head section: a </head> end tag or a <body> start tag.
func scanDocument(content string) documentScan {
	scan := documentScan{htmlEnd: -1, headEnd: -1}

	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0
	leading := true

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return scan
		}

		// Raw must be measured before TagName or TagAttr reuse the buffer.
		offset += len(z.Raw())

		switch tt {
		case html.TextToken:
			if leading && strings.TrimLeft(string(z.Raw()), " \t\r\n\f\ufeff") == "" {
				continue
			}
			leading = false
		case html.DoctypeToken:
			// An unterminated doctype swallows the rest of the input and does not count.
			if leading && strings.HasSuffix(string(z.Raw()), ">") {
				scan.hasDoctype = true
				scan.doctypeEnd = offset
			}
			leading = false
		case html.StartTagToken, html.SelfClosingTagToken:
			leading = false
			name, hasAttr := z.TagName()
			switch string(name) {
			case "html":
				if scan.htmlEnd < 0 {
					scan.htmlEnd = offset
				}
			case "head":
				if scan.headEnd < 0 {
					scan.headEnd = offset
				}
			case "body":
				return scan
			case "meta":
				if hasAttr && metaDeclaresUTF8(z) {
					scan.hasCharset = true
					return scan
				}
			}
		case html.EndTagToken:
			leading = false
			if name, _ := z.TagName(); string(name) == "head" {
				return scan
			}
		default:
			leading = false
		}
	}
}

// metaDeclaresUTF8 accepts both <meta charset> and the http-equiv Content-Type form.
func metaDeclaresUTF8(z *html.Tokenizer) bool {
	var httpEquiv, content string
	for {
		key, value, more := z.TagAttr()
		switch string(key) {
		case "charset":
			if isUTF8Label(string(value)) {
				return true
			}
		case "http-equiv":
			httpEquiv = strings.ToLower(strings.TrimSpace(string(value)))
		case "content":
			content = strings.ToLower(string(value))
		}
		if !more {
			break
		}
	}

	if httpEquiv != "content-type" {
		return false
	}

	idx := strings.Index(content, "charset=")
	if idx < 0 {
		return false
	}
	label := strings.Trim(content[idx+len("charset="):], " \"';")
	return isUTF8Label(label)
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8":
		return true
	default:
		return false
	}
}
