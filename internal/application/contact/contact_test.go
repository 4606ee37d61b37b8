package contact

import (
	"net/url"
	"testing"
	"time"

	"findonlu-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lostUmbrella() *domain.LostFoundItem {
	date, _ := domain.ParseCalendarDate("2025-02-14")
	return &domain.LostFoundItem{
		ListingBase: domain.ListingBase{
			Title:       "Blue umbrella",
			Description: "Left near the desk",
			OwnerEmail:  "jane.doe@lawrence.edu",
			CreatedAt:   time.Date(2025, 2, 15, 9, 0, 0, 0, time.UTC),
		},
		Kind:      domain.KindLost,
		Location:  "Mudd Library",
		EventDate: date,
	}
}

func TestComposeContact_LostFound(t *testing.T) {
	m := ComposeContact(lostUmbrella())
	assert.Equal(t, "jane.doe@lawrence.edu", m.To)
	assert.Equal(t, "About your lost item: Blue umbrella", m.Subject)
	assert.Equal(t, "Hi jane.doe,\n\nI saw your lost item posting for \"Blue umbrella\" on Find On LU.\n\nLeft near the desk\n\nLocation: Mudd Library\n\nPlease let me know if this is still available.\n\nThanks!", m.Body)

	u, err := url.Parse(m.URL)
	require.NoError(t, err)
	assert.Equal(t, "outlook.office365.com", u.Host)
	assert.Equal(t, "/mail/deeplink/compose", u.Path)
	q := u.Query()
	assert.Equal(t, m.To, q.Get("to"))
	assert.Equal(t, m.Subject, q.Get("subject"))
	assert.Equal(t, m.Body, q.Get("body"))
	assert.NotContains(t, m.URL, "+")
}

func TestComposeContact_Thrift(t *testing.T) {
	item := &domain.ThriftItem{
		ListingBase: domain.ListingBase{Title: "Desk lamp", OwnerEmail: "sam@lawrence.edu"},
		Price:       12.5,
	}
	m := ComposeContact(item)
	assert.Equal(t, "Interested in: Desk lamp", m.Subject)
	assert.Equal(t, "Hi sam,\n\nI'm interested in your item \"Desk lamp\" listed for $12.50.\n\nIs this still available?\n\nThanks!", m.Body)
}

func TestPresent(t *testing.T) {
	d := Present(lostUmbrella())
	assert.Equal(t, domain.CategoryLostFound, d.Category)
	assert.Equal(t, "Feb 14, 2025", d.DisplayDate)
	assert.Equal(t, "jane.doe", d.PosterName)
	assert.Equal(t, "Posted by", d.PosterLabel)
	assert.Equal(t, "LOST", d.Badge)
	assert.Empty(t, d.PriceText)

	thrift := &domain.ThriftItem{
		ListingBase: domain.ListingBase{Title: "Chair", OwnerEmail: "sam@lawrence.edu", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		Price:       20,
	}
	d = Present(thrift)
	assert.Equal(t, "Seller", d.PosterLabel)
	assert.Equal(t, "$20", d.PriceText)
	assert.Equal(t, "Mar 1, 2025", d.DisplayDate)
	assert.Empty(t, d.Badge)
}

func TestEncodeURIComponent(t *testing.T) {
	assert.Equal(t, "a%20b%26c%3Dd!'()*~", EncodeURIComponent("a b&c=d!'()*~"))
	assert.Equal(t, "%0A%22%24", EncodeURIComponent("\n\"$"))
	assert.Equal(t, "caf%C3%A9", EncodeURIComponent("café"))
}
