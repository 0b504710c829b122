package deals

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// Emoji is the hero glyph for a category tag.
func Emoji(category string) string {
	switch Category(category) {
	case CategoryFastFood:
		return "🍔"
	case CategoryCoffee:
		return "☕"
	case CategoryMexican:
		return "🌯"
	case CategoryDrinks:
		return "🧋"
	case CategoryPizza:
		return "🍕"
	case CategoryAsian:
		return "🥡"
	default:
		return "🍴"
	}
}

// FormatPrice renders a dollar amount the way en-US currency formatting does, e.g. "$1,234.50".
func FormatPrice(price float64) string {
	if price < 0 {
		return "-" + usdPrinter.Sprintf("$%.2f", -price)
	}
	return usdPrinter.Sprintf("$%.2f", price)
}

// FormatSavings renders a savings total as "$55.20".
func FormatSavings(total float64) string {
	return fmt.Sprintf("$%.2f", total)
}

// MapURL links to a map search for the deal's address, or "<restaurant> <area>"
// when the address is empty.
func MapURL(deal Deal, area string) string {
	query := deal.Address
	if query == "" {
		query = strings.TrimSpace(deal.Restaurant + " " + strings.ReplaceAll(area, ",", ""))
	}
	return mapsSearchURL + encodeURIComponent(query)
}

// encodeURIComponent escapes spaces as %20 rather than '+'.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ShareContent is what the share sheet or clipboard fallback receives.
type ShareContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Share builds the share payload for deal linking back to pageURL.
func Share(deal Deal, pageURL string) ShareContent {
	return ShareContent{
		Title: fmt.Sprintf("%s at %s", deal.Title, deal.Restaurant),
		Text:  fmt.Sprintf("Check out this BOGO deal! Save %s at %s. %s", deal.Savings, deal.Restaurant, deal.Description),
		URL:   pageURL,
	}
}

// ClipboardText is the fallback text copied when no share sheet is available.
func (s ShareContent) ClipboardText() string {
	return s.Text + " " + s.URL
}
