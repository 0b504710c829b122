package deals

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
)

// Engine owns the active category filter and sort selection over a Catalog and
// derives the visible list at the injected clock's current time.
type Engine struct {
	catalog  *Catalog
	nowTime  func() time.Time
	mu       sync.RWMutex
	category Category
	sortMode SortMode
}

// EngineOption defines a function type to modify the Engine instance.
type EngineOption func(*Engine)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowTime = nowFunc
	}
}

// NewEngine starts with CategoryAll and SortRecommended.
func NewEngine(catalog *Catalog, options ...EngineOption) (*Engine, error) {
	if catalog == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotConfigured, "[NewEngine] catalog is required")
	}
	e := &Engine{
		catalog:  catalog,
		nowTime:  time.Now,
		category: CategoryAll,
		sortMode: SortRecommended,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Filter returns the catalog unchanged for CategoryAll, otherwise the deals whose
// tag equals c exactly, in catalog order.
func (e *Engine) Filter(c Category) []Deal {
	all := e.catalog.All()
	if c == CategoryAll {
		return all
	}
	out := make([]Deal, 0, len(all))
	for _, d := range all {
		if c.Matches(d.Category) {
			out = append(out, d)
		}
	}
	return out
}

// SelectCategory changes the active filter.
func (e *Engine) SelectCategory(c Category) error {
	if !c.Valid() {
		return apperrors.Wrapf(apperrors.ErrUnknownCategory, "%q", string(c))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.category = c
	return nil
}

func (e *Engine) Category() Category {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.category
}

// SelectSortMode records the sort selection. Non-functional modes do not reorder.
func (e *Engine) SelectSortMode(m SortMode) error {
	if !m.Valid() {
		return apperrors.Wrapf(apperrors.ErrUnknownSortMode, "%q", string(m))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sortMode = m
	return nil
}

func (e *Engine) SortMode() SortMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sortMode
}

// Visible derives the filtered list at the engine clock's current time.
func (e *Engine) Visible() []DerivedDeal {
	return e.VisibleAt(e.nowTime())
}

// VisibleAt derives the filtered list at now. The order is catalog order for
// every sort mode.
func (e *Engine) VisibleAt(now time.Time) []DerivedDeal {
	return DeriveAll(e.Filter(e.Category()), now)
}

// Deal looks up a catalog entry by ID.
func (e *Engine) Deal(id int) (Deal, error) {
	d, ok := e.catalog.Get(id)
	if !ok {
		return Deal{}, apperrors.Wrapf(apperrors.ErrDealNotFound, "id %d", id)
	}
	return d, nil
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Now reads the engine clock.
func (e *Engine) Now() time.Time {
	return e.nowTime()
}
