// Package selection tracks the single deal open in the detail view.
package selection

import (
	"sync"
	"time"

	"github.com/jrsteele09/bogo-finds/deals"
)

// Controller holds zero or one DerivedDeal snapshot.
type Controller struct {
	mu      sync.RWMutex
	current *deals.DerivedDeal
}

func NewController() *Controller {
	return &Controller{}
}

// Open derives deal at now and makes it the selection, replacing any previous one.
// The snapshot's ExpiresIn stays fixed until the deal is opened again.
func (c *Controller) Open(deal deals.Deal, now time.Time) deals.DerivedDeal {
	snapshot := deals.Derive(deal, now)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &snapshot
	return snapshot
}

// Close clears the selection. Closing with nothing open is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// Current returns the open snapshot, if any.
func (c *Controller) Current() (deals.DerivedDeal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return deals.DerivedDeal{}, false
	}
	return *c.current, true
}

func (c *Controller) IsOpen() bool {
	_, ok := c.Current()
	return ok
}
