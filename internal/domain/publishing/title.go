package publishing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxTitleLength = 255

// ExtractTitle returns the whitespace-collapsed text of the first <title> element, or "".
func ExtractTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if len(title) > maxTitleLength {
		title = strings.ToValidUTF8(title[:maxTitleLength], "")
	}
	return title
}
