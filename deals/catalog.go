package deals

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
	"github.com/pkg/errors"
)

// Catalog is a validated, read-only, ordered sequence of deals.
type Catalog struct {
	deals []Deal
	index map[int]int // deal ID -> position
}

// NewCatalog validates entries and takes a copy of them. Deal IDs must be unique,
// ValidUntil must parse as "Month Day" and Savings as a dollar amount.
func NewCatalog(entries []Deal) (*Catalog, error) {
	c := &Catalog{
		deals: make([]Deal, len(entries)),
		index: make(map[int]int, len(entries)),
	}
	copy(c.deals, entries)

	for i, d := range c.deals {
		if _, ok := c.index[d.ID]; ok {
			return nil, apperrors.Wrapf(apperrors.ErrDuplicateDeal, "[NewCatalog] deal %d", d.ID)
		}
		c.index[d.ID] = i

		if _, _, err := parseMonthDay(d.ValidUntil); err != nil {
			return nil, errors.Wrapf(err, "[NewCatalog] deal %d", d.ID)
		}
		if _, err := parseSavingsCents(d.Savings); err != nil {
			return nil, errors.Wrapf(err, "[NewCatalog] deal %d", d.ID)
		}
	}
	return c, nil
}

// MustNewCatalog is NewCatalog for static data known to be valid.
func MustNewCatalog(entries []Deal) *Catalog {
	c, err := NewCatalog(entries)
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the deals in catalog order. The slice is a copy.
func (c *Catalog) All() []Deal {
	out := make([]Deal, len(c.deals))
	copy(out, c.deals)
	return out
}

func (c *Catalog) Len() int {
	return len(c.deals)
}

func (c *Catalog) Get(id int) (Deal, bool) {
	i, ok := c.index[id]
	if !ok {
		return Deal{}, false
	}
	return c.deals[i], true
}

// TotalSavings sums the savings of every deal in the catalog, regardless of filter.
func (c *Catalog) TotalSavings() float64 {
	var cents int64
	for _, d := range c.deals {
		v, _ := parseSavingsCents(d.Savings) // validated in NewCatalog
		cents += v
	}
	return float64(cents) / 100
}

func parseSavingsCents(savings string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(savings), "$")
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) {
		return 0, apperrors.Wrapf(apperrors.ErrMalformedSavings, "%q", savings)
	}
	return int64(math.Round(f * 100)), nil
}

// DefaultDeals is the launch catalog.
func DefaultDeals() []Deal {
	return []Deal{
		{
			ID:            1,
			Restaurant:    "In-N-Out Burger",
			Title:         "BOGO Double-Double",
			Description:   "Buy one Double-Double, get one free. Valid for dine-in and takeout orders.",
			Category:      "Fast Food",
			Rating:        4.8,
			Time:          "10 min",
			Distance:      "0.5 mi",
			Address:       "4115 Campus Dr, Irvine, CA 92612",
			ValidUntil:    "Nov 30",
			Savings:       "$8.50",
			OriginalPrice: 17.00,
			Price:         8.50,
			Color:         "bg-purple-200",
		},
		{
			ID:            2,
			Restaurant:    "Starbucks UTC",
			Title:         "BOGO Seasonal Drinks",
			Description:   "Buy one seasonal beverage, get one free. All sizes available.",
			Category:      "Coffee",
			Rating:        4.6,
			Time:          "5 min",
			Distance:      "0.3 mi",
			Address:       "4187 Campus Dr, Irvine, CA 92612",
			ValidUntil:    "Nov 28",
			Savings:       "$6.75",
			OriginalPrice: 13.50,
			Price:         6.75,
			Color:         "bg-pink-200",
		},
		{
			ID:            3,
			Restaurant:    "Chipotle",
			Title:         "BOGO Bowls",
			Description:   "Buy one bowl or burrito, get one free with student ID.",
			Category:      "Mexican",
			Rating:        4.5,
			Time:          "15 min",
			Distance:      "1.2 mi",
			Address:       "4225 Campus Dr, Irvine, CA 92612",
			ValidUntil:    "Dec 5",
			Savings:       "$12.00",
			OriginalPrice: 24.00,
			Price:         12.00,
			Color:         "bg-amber-200",
		},
		{
			ID:            4,
			Restaurant:    "Milk Tea Lab",
			Title:         "BOGO Boba Drinks",
			Description:   "Buy one boba drink, get one free. Choose from 20+ flavors.",
			Category:      "Drinks",
			Rating:        4.7,
			Time:          "8 min",
			Distance:      "0.8 mi",
			Address:       "14140 Culver Dr, Irvine, CA 92604",
			ValidUntil:    "Nov 29",
			Savings:       "$7.50",
			OriginalPrice: 15.00,
			Price:         7.50,
			Color:         "bg-purple-200",
		},
		{
			ID:            5,
			Restaurant:    "Blaze Pizza",
			Title:         "BOGO Personal Pizzas",
			Description:   "Build your own pizza, get a second one free with unlimited toppings.",
			Category:      "Pizza",
			Rating:        4.4,
			Time:          "12 min",
			Distance:      "1.5 mi",
			Address:       "4533 Campus Dr, Irvine, CA 92612",
			ValidUntil:    "Dec 1",
			Savings:       "$9.95",
			OriginalPrice: 19.90,
			Price:         9.95,
			Color:         "bg-pink-200",
		},
		{
			ID:            6,
			Restaurant:    "Panda Express",
			Title:         "BOGO Bowls",
			Description:   "Buy one bowl, get one free. Mix and match your favorite entrees.",
			Category:      "Asian",
			Rating:        4.3,
			Time:          "7 min",
			Distance:      "0.4 mi",
			Address:       "4199 Campus Dr, Irvine, CA 92612",
			ValidUntil:    "Nov 27",
			Savings:       "$10.50",
			OriginalPrice: 21.00,
			Price:         10.50,
			Color:         "bg-amber-200",
		},
	}
}

// DefaultCatalog returns a Catalog of DefaultDeals.
func DefaultCatalog() *Catalog {
	return MustNewCatalog(DefaultDeals())
}
