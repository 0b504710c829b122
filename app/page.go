package app

import (
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/bogo-finds/deals"
	"github.com/jrsteele09/bogo-finds/internal/utils"
	"github.com/jrsteele09/bogo-finds/sessions"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultInitial = "A"

var upper = cases.Upper(language.Und)

// DisplayName is the profile name, else the email's local part, else "User".
func DisplayName(state sessions.State) string {
	if state.Profile != nil {
		if name := utils.Value(state.Profile.Name); name != "" {
			return name
		}
	}
	if state.User != nil {
		if local, _, _ := strings.Cut(state.User.Email, "@"); local != "" {
			return local
		}
	}
	return "User"
}

// Initial is the avatar letter for name.
func Initial(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return defaultInitial
	}
	return upper.String(string(r))
}

type CategoryOption struct {
	Name   deals.Category `json:"name"`
	Emoji  string         `json:"emoji,omitempty"`
	Active bool           `json:"active"`
}

type SortOption struct {
	Mode       deals.SortMode `json:"mode"`
	Active     bool           `json:"active"`
	Functional bool           `json:"functional"`
}

// DealCard is one entry of the deals list.
type DealCard struct {
	deals.DerivedDeal
	Emoji       string `json:"emoji"`
	ExpiryLabel string `json:"expiryLabel"`
	Price       string `json:"priceLabel"`
}

// DealDetail is the open deal in the detail view.
type DealDetail struct {
	DealCard
	OriginalPrice string             `json:"originalPriceLabel"`
	MapURL        string             `json:"mapUrl"`
	Share         deals.ShareContent `json:"share"`
}

// DealsPage is everything the deals screen renders.
type DealsPage struct {
	Location     string           `json:"location"`
	UserName     string           `json:"userName"`
	Initial      string           `json:"initial"`
	Headline     string           `json:"headline"`
	TotalSavings string           `json:"totalSavings"`
	DealCount    int              `json:"dealCount"`
	Categories   []CategoryOption `json:"categories"`
	SortModes    []SortOption     `json:"sortModes"`
	Deals        []DealCard       `json:"deals"`
	Empty        bool             `json:"empty"`
}

// DealsPage builds the deals screen at the engine's current time. Savings and the
// deal count cover the whole catalog, not just the visible deals.
func (a *App) DealsPage() (DealsPage, error) {
	if err := a.requireSignedIn(); err != nil {
		return DealsPage{}, err
	}

	name := a.DisplayName()
	catalog := a.engine.Catalog()
	active := a.engine.Category()
	activeSort := a.engine.SortMode()

	page := DealsPage{
		Location:     a.location,
		UserName:     name,
		Initial:      Initial(name),
		Headline:     Headline,
		TotalSavings: deals.FormatSavings(catalog.TotalSavings()),
		DealCount:    catalog.Len(),
	}

	for _, c := range deals.Categories() {
		option := CategoryOption{Name: c, Active: c == active}
		if c != deals.CategoryAll {
			option.Emoji = deals.Emoji(string(c))
		}
		page.Categories = append(page.Categories, option)
	}
	for _, m := range deals.SortModes() {
		page.SortModes = append(page.SortModes, SortOption{Mode: m, Active: m == activeSort, Functional: m.Functional()})
	}

	visible := a.engine.Visible()
	page.Deals = make([]DealCard, 0, len(visible))
	for _, d := range visible {
		page.Deals = append(page.Deals, card(d))
	}
	page.Empty = len(page.Deals) == 0
	return page, nil
}

func card(d deals.DerivedDeal) DealCard {
	return DealCard{
		DerivedDeal: d,
		Emoji:       deals.Emoji(d.Category),
		ExpiryLabel: d.ExpiryLabel(),
		Price:       deals.FormatPrice(d.Price),
	}
}

func (a *App) detail(d deals.DerivedDeal) DealDetail {
	return DealDetail{
		DealCard:      card(d),
		OriginalPrice: deals.FormatPrice(d.OriginalPrice),
		MapURL:        deals.MapURL(d.Deal, a.location),
		Share:         deals.Share(d.Deal, a.pageURL),
	}
}
