// Package report renders search results as Telegram MarkdownV2 messages.
// Every piece of text outside the formatting markers is escaped.
package report

import (
	"fmt"
	"strings"

	"github.com/dealmungchi/bestdeal/internal/marketplace"
)

const (
	NoProductMessage = `❌ *No products found\!* Please try a different search term\.`
	CombinedHeader   = "🌟 Best deals across marketplaces:"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "<", `\<`, "#", `\#`, "+", `\+`,
	"-", `\-`, "=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// Section is one source block of the combined view
type Section struct {
	DisplayName string
	Best        *marketplace.Product
}

// EscapeMarkdown escapes every MarkdownV2 reserved character
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// Stars renders a rating as one star per whole point, or N/A below one star
func Stars(rating float64) string {
	if n := int(rating); n > 0 {
		return strings.Repeat("⭐", n)
	}
	return "N/A"
}

// FormatProduct renders the message body for one product and returns its link
// separately so chat layers can attach it as a button.
func FormatProduct(p *marketplace.Product) (string, string) {
	if p == nil {
		return NoProductMessage, ""
	}

	rating := Stars(p.Rating)
	if p.ReviewCount > 0 {
		rating += EscapeMarkdown(fmt.Sprintf(" (%d reviews)", p.ReviewCount))
	}

	var b strings.Builder
	b.WriteString("✅ *Best Deal Found\\!*\n")
	fmt.Fprintf(&b, "*Product:* %s\n", EscapeMarkdown(p.Title))
	fmt.Fprintf(&b, "*Price:* %s\n", EscapeMarkdown(p.Price))
	fmt.Fprintf(&b, "*Rating:* %s\n", rating)
	return b.String(), p.URL
}

// Single renders one product including its link line
func Single(p *marketplace.Product) string {
	text, link := FormatProduct(p)
	if link == "" {
		return text
	}
	return text + "*Link:* " + EscapeMarkdown(link)
}

// Combined renders the all-marketplaces view. Sections without a product are skipped.
func Combined(sections []Section) string {
	lines := []string{CombinedHeader + "\n"}
	for _, s := range sections {
		if s.Best == nil {
			continue
		}
		lines = append(lines, "\n🏪 "+EscapeMarkdown(s.DisplayName)+":", Single(s.Best))
	}
	return strings.Join(lines, "\n")
}
