package deals

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/bogo-finds/internal/errors"
)

// Expired is the ExpiresIn value of a deal whose end instant has passed.
const Expired = "Expired"

var monthDayLayouts = []string{"Jan 2", "January 2"}

func parseMonthDay(validUntil string) (time.Month, int, error) {
	s := strings.Join(strings.Fields(validUntil), " ")
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Month(), t.Day(), nil
		}
	}
	return 0, 0, apperrors.Wrapf(apperrors.ErrMalformedValidUntil, "%q", validUntil)
}

// ExpiresAt returns the instant a deal ends: validUntil's month and day in now's
// calendar year and location, at 23:59:59.
//
// The year is always now's year. A "Jan 3" deal viewed on Dec 30 has already
// expired rather than rolling into next year.
func ExpiresAt(validUntil string, now time.Time) (time.Time, error) {
	month, day, err := parseMonthDay(validUntil)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), month, day, 23, 59, 59, 0, now.Location()), nil
}

// ComputeExpiry returns the time remaining on deal at now: "Expired" once the
// end instant is reached, "<d>d <h>h" with at least a day left, "<h>h <m>m" otherwise.
//
// deal.ValidUntil must be a "Month Day" string. Catalogs built with NewCatalog
// guarantee this; a malformed value panics.
func ComputeExpiry(deal Deal, now time.Time) string {
	target, err := ExpiresAt(deal.ValidUntil, now)
	if err != nil {
		panic(fmt.Sprintf("deals: deal %d: %v", deal.ID, err))
	}

	diff := target.Sub(now)
	if diff <= 0 {
		return Expired
	}

	days := int(diff / (24 * time.Hour))
	hours := int(diff % (24 * time.Hour) / time.Hour)
	minutes := int(diff % time.Hour / time.Minute)

	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// Derive snapshots deal with its expiry at now.
func Derive(deal Deal, now time.Time) DerivedDeal {
	return DerivedDeal{Deal: deal, ExpiresIn: ComputeExpiry(deal, now)}
}

// DeriveAll derives every deal at the same instant, preserving order.
func DeriveAll(list []Deal, now time.Time) []DerivedDeal {
	out := make([]DerivedDeal, 0, len(list))
	for _, d := range list {
		out = append(out, Derive(d, now))
	}
	return out
}
