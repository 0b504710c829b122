package deals_test

import (
	"testing"

	"github.com/jrsteele09/bogo-finds/deals"
	"github.com/stretchr/testify/require"
)

func TestEmoji(t *testing.T) {
	require.Equal(t, "🍔", deals.Emoji("Fast Food"))
	require.Equal(t, "☕", deals.Emoji("Coffee"))
	require.Equal(t, "🥡", deals.Emoji("Asian"))
	require.Equal(t, "🍴", deals.Emoji("coffee"))
	require.Equal(t, "🍴", deals.Emoji(""))
}

func TestFormatPrice(t *testing.T) {
	require.Equal(t, "$8.50", deals.FormatPrice(8.5))
	require.Equal(t, "$17.00", deals.FormatPrice(17))
	require.Equal(t, "$0.00", deals.FormatPrice(0))
}

func TestMapURL(t *testing.T) {
	d, ok := deals.DefaultCatalog().Get(1)
	require.True(t, ok)
	require.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=4115%20Campus%20Dr%2C%20Irvine%2C%20CA%2092612",
		deals.MapURL(d, "Irvine, CA"))

	d.Address = ""
	d.Restaurant = "Chipotle"
	require.Equal(t,
		"https://www.google.com/maps/search/?api=1&query=Chipotle%20Irvine%20CA",
		deals.MapURL(d, "Irvine, CA"))
}

func TestShare(t *testing.T) {
	d, ok := deals.DefaultCatalog().Get(2)
	require.True(t, ok)

	share := deals.Share(d, "https://bogo.example/deals")
	require.Equal(t, "BOGO Seasonal Drinks at Starbucks UTC", share.Title)
	require.Equal(t, "Check out this BOGO deal! Save $6.75 at Starbucks UTC. Buy one seasonal beverage, get one free. All sizes available.", share.Text)
	require.Equal(t, share.Text+" https://bogo.example/deals", share.ClipboardText())
}
