package contact

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/validation"
)

// ComposeBaseURL is the Outlook web compose deep link.
const ComposeBaseURL = "https://outlook.office365.com/mail/deeplink/compose"

const displayDateLayout = "Jan 2, 2006"

// Message is a pre-filled email to a listing's owner.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	URL     string `json:"url"`
}

// Detail is everything the detail view shows for one listing.
type Detail struct {
	Category    domain.Category `json:"category"`
	Listing     domain.Listing  `json:"listing"`
	DisplayDate string          `json:"display_date"`
	PosterName  string          `json:"poster_name"`
	PosterLabel string          `json:"poster_label"`
	Badge       string          `json:"badge,omitempty"`
	PriceText   string          `json:"price_text,omitempty"`
	Contact     Message         `json:"contact"`
}

func Present(l domain.Listing) Detail {
	b := l.Base()
	d := Detail{
		Category:   l.Category(),
		Listing:    l,
		PosterName: validation.LocalPart(b.OwnerEmail),
		Contact:    ComposeContact(l),
	}
	switch v := l.(type) {
	case *domain.LostFoundItem:
		d.PosterLabel = "Posted by"
		d.Badge = strings.ToUpper(string(v.Kind))
		d.DisplayDate = displayDate(v.EventDate.Time, b.CreatedAt)
	case *domain.ThriftItem:
		d.PosterLabel = "Seller"
		d.PriceText = FormatPrice(v.Price)
		d.DisplayDate = displayDate(time.Time{}, b.CreatedAt)
	}
	return d
}

// ComposeContact builds the message and its deep link. Nothing is validated or sent.
func ComposeContact(l domain.Listing) Message {
	b := l.Base()
	name := validation.LocalPart(b.OwnerEmail)
	var subject, body string
	switch v := l.(type) {
	case *domain.LostFoundItem:
		subject = fmt.Sprintf("About your %s item: %s", v.Kind, b.Title)
		body = fmt.Sprintf("Hi %s,\n\nI saw your %s item posting for \"%s\" on Find On LU.\n\n%s\n\nLocation: %s\n\nPlease let me know if this is still available.\n\nThanks!",
			name, v.Kind, b.Title, b.Description, v.Location)
	case *domain.ThriftItem:
		subject = "Interested in: " + b.Title
		body = fmt.Sprintf("Hi %s,\n\nI'm interested in your item \"%s\" listed for %s.\n\nIs this still available?\n\nThanks!",
			name, b.Title, FormatPrice(v.Price))
	}
	return Message{
		To:      b.OwnerEmail,
		Subject: subject,
		Body:    body,
		URL:     ComposeBaseURL + "?to=" + EncodeURIComponent(b.OwnerEmail) + "&subject=" + EncodeURIComponent(subject) + "&body=" + EncodeURIComponent(body),
	}
}

// FormatPrice renders $12.50, or $12 for whole amounts.
func FormatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', 2, 64)
	return "$" + strings.TrimSuffix(s, ".00")
}

func displayDate(primary, fallback time.Time) string {
	if !primary.IsZero() {
		return primary.Format(displayDateLayout)
	}
	if fallback.IsZero() {
		return ""
	}
	return fallback.Format(displayDateLayout)
}

const upperHex = "0123456789ABCDEF"

// EncodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ),
// the set browsers leave alone in mailto and compose links.
func EncodeURIComponent(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperHex[c>>4])
		sb.WriteByte(upperHex[c&15])
	}
	return sb.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
