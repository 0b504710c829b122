package deals

// Deal is an immutable catalog record.
type Deal struct {
	ID            int     `json:"id"`
	Restaurant    string  `json:"restaurant"`
	Title         string  `json:"deal"`
	Description   string  `json:"description"`
	Category      string  `json:"category"` // Raw tag, compared case-sensitively against filter options
	Rating        float64 `json:"rating"`
	Time          string  `json:"time"`
	Distance      string  `json:"distance"`
	Address       string  `json:"address"`
	ValidUntil    string  `json:"validUntil"` // "Month Day", e.g. "Nov 30"
	Savings       string  `json:"savings"`    // "$8.50"
	OriginalPrice float64 `json:"originalPrice"`
	Price         float64 `json:"price"`
	Color         string  `json:"color"`
}

// DerivedDeal is a Deal annotated with the time remaining at the instant it was derived.
// It is never updated in place; derive again to refresh.
type DerivedDeal struct {
	Deal
	ExpiresIn string `json:"expiresIn"`
}

// Expired reports whether the deal had expired when it was derived.
func (d DerivedDeal) Expired() bool {
	return d.ExpiresIn == Expired
}

// ExpiryLabel is the badge text shown on a deal card.
func (d DerivedDeal) ExpiryLabel() string {
	if d.Expired() {
		return Expired
	}
	return "Expires in " + d.ExpiresIn
}

// Category is a filter option. The set is closed: use Categories or ParseCategory.
type Category string

const (
	CategoryAll      Category = "All"
	CategoryFastFood Category = "Fast Food"
	CategoryCoffee   Category = "Coffee"
	CategoryMexican  Category = "Mexican"
	CategoryDrinks   Category = "Drinks"
	CategoryPizza    Category = "Pizza"
	CategoryAsian    Category = "Asian"
)

var categories = []Category{
	CategoryAll,
	CategoryFastFood,
	CategoryCoffee,
	CategoryMexican,
	CategoryDrinks,
	CategoryPizza,
	CategoryAsian,
}

// Categories returns the filter options in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the enumerated options.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory returns the option matching s exactly; matching is case-sensitive.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

// Matches reports whether a catalog tag passes this filter.
// Comparison is exact: a "coffee" tag does not match CategoryCoffee.
func (c Category) Matches(tag string) bool {
	return c == CategoryAll || string(c) == tag
}

// SortMode is the enumerated sort selection offered by the deals page.
type SortMode string

const (
	SortRecommended SortMode = "recommended"
	SortPriceAsc    SortMode = "price_asc"
	SortPriceDesc   SortMode = "price_desc"
	SortRating      SortMode = "rating"
	SortDistance    SortMode = "distance"
	SortEndingSoon  SortMode = "ending_soon"
	SortNewest      SortMode = "newest"
	SortSavings     SortMode = "savings"
)

var sortModes = []SortMode{
	SortRecommended,
	SortPriceAsc,
	SortPriceDesc,
	SortRating,
	SortDistance,
	SortEndingSoon,
	SortNewest,
	SortSavings,
}

// SortModes returns every selectable mode in display order.
func SortModes() []SortMode {
	out := make([]SortMode, len(sortModes))
	copy(out, sortModes)
	return out
}

func (m SortMode) Valid() bool {
	for _, known := range sortModes {
		if m == known {
			return true
		}
	}
	return false
}

// Functional reports whether selecting m changes the visible order.
// Only SortRecommended (catalog order) is wired; the other modes are accepted
// and remembered but leave the order unchanged.
func (m SortMode) Functional() bool {
	return m == SortRecommended
}

func ParseSortMode(s string) (SortMode, bool) {
	m := SortMode(s)
	return m, m.Valid()
}
