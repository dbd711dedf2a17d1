package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealmungchi/bestdeal/internal/marketplace"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `USB\-C \(2m\) \*fast\*`, EscapeMarkdown("USB-C (2m) *fast*"))
	assert.Equal(t, `a\\b\_c`, EscapeMarkdown(`a\b_c`))
	assert.Equal(t, "plain text", EscapeMarkdown("plain text"))
	assert.Equal(t, "", EscapeMarkdown(""))
}

func TestStars(t *testing.T) {
	assert.Equal(t, "⭐⭐⭐⭐", Stars(4.8))
	assert.Equal(t, "⭐", Stars(1))
	assert.Equal(t, "N/A", Stars(0.5))
	assert.Equal(t, "N/A", Stars(0))
}

func TestFormatProduct(t *testing.T) {
	p := &marketplace.Product{
		Title:       "Anker Cable [2-pack]",
		Price:       "$12.99",
		URL:         "https://www.amazon.com/dp/B0001",
		Rating:      4.6,
		ReviewCount: 1234,
	}

	text, link := FormatProduct(p)
	assert.Equal(t, "https://www.amazon.com/dp/B0001", link)
	assert.Equal(t,
		"✅ *Best Deal Found\\!*\n"+
			"*Product:* Anker Cable \\[2\\-pack\\]\n"+
			"*Price:* $12\\.99\n"+
			"*Rating:* ⭐⭐⭐⭐ \\(1234 reviews\\)\n",
		text)

	p.Rating, p.ReviewCount = 0, 0
	text, _ = FormatProduct(p)
	assert.Contains(t, text, "*Rating:* N/A\n")
	assert.NotContains(t, text, "reviews")
}

func TestFormatProductNil(t *testing.T) {
	text, link := FormatProduct(nil)
	assert.Equal(t, NoProductMessage, text)
	assert.Empty(t, link)
	assert.Equal(t, NoProductMessage, Single(nil))
}

func TestCombined(t *testing.T) {
	message := Combined([]Section{
		{DisplayName: "Amazon", Best: &marketplace.Product{Title: "A", Price: "$1", URL: "https://a", Rating: 5}},
		{DisplayName: "Temu"},
		{DisplayName: "Jumia", Best: &marketplace.Product{Title: "J", Price: "N/A", URL: "https://j"}},
	})

	assert.True(t, strings.HasPrefix(message, CombinedHeader+"\n\n\n🏪 Amazon:\n"))
	assert.Contains(t, message, "🏪 Jumia:")
	assert.NotContains(t, message, "Temu")
	assert.Contains(t, message, "*Link:* https://a")
	assert.Contains(t, message, "*Price:* N/A")
	assert.Less(t, strings.Index(message, "Amazon"), strings.Index(message, "Jumia"))
}

// unescaped returns the MarkdownV2 reserved characters in s that are not
// escaped. Bold markers are allowed.
func unescaped(s string) []string {
	var found []string
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r != '*' && strings.ContainsRune("_[]()~`>#+-=|{}.!<", r):
			found = append(found, string(r))
		}
	}
	return found
}

func TestMessagesAreValidMarkdownV2(t *testing.T) {
	p := &marketplace.Product{
		Title:       "Mug (350ml) - 2-pack!",
		Price:       "$4.99",
		URL:         "https://www.temu.com/mug-2_pack.html?ref=a.b",
		Rating:      4.2,
		ReviewCount: 17,
	}

	assert.Empty(t, unescaped(Single(p)))
	assert.Empty(t, unescaped(NoProductMessage))
	assert.Empty(t, unescaped(Combined([]Section{{DisplayName: "Mercado Libre", Best: p}})))
	assert.Contains(t, Single(p), `*Link:* https://www\.temu\.com/mug\-2\_pack\.html?ref\=a\.b`)
}
