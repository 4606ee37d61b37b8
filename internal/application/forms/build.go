package forms

import (
	"findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/domain"
)

// build* run after validation, so parse errors cannot occur here.

func baseFrom(in Input) domain.ListingBase {
	b := domain.ListingBase{Title: in.Title, Description: in.Description}
	if in.ImageURL != "" {
		u := in.ImageURL
		b.ImageURL = &u
	}
	return b
}

func buildLostFound(in Input) *domain.LostFoundItem {
	kind, _ := domain.ParseKind(in.Type)
	date, _ := domain.ParseCalendarDate(in.Date)
	return &domain.LostFoundItem{
		ListingBase: baseFrom(in),
		Kind:        kind,
		Location:    in.Location,
		EventDate:   date,
	}
}

func buildThrift(in Input) *domain.ThriftItem {
	price, _ := listings.ParsePrice(in.Price)
	return &domain.ThriftItem{
		ListingBase:  baseFrom(in),
		Price:        price,
		ItemCategory: in.Category,
		Condition:    in.Condition,
	}
}

func diffBase(b *domain.ListingBase, in Input, out map[string]interface{}) {
	if in.Title != b.Title {
		out["title"] = in.Title
	}
	if in.Description != b.Description {
		out["description"] = in.Description
	}
	if in.Status != "" {
		if st, _ := domain.ParseStatus(in.Status); st != b.Status {
			out["status"] = string(st)
		}
	}
	current := ""
	if b.ImageURL != nil {
		current = *b.ImageURL
	}
	if in.ImageURL != "" && in.ImageURL != current {
		out["image_url"] = in.ImageURL
	}
}

func diffLostFound(l *domain.LostFoundItem, in Input) map[string]interface{} {
	out := map[string]interface{}{}
	diffBase(&l.ListingBase, in, out)
	if in.Type != string(l.Kind) {
		out["type"] = in.Type
	}
	if in.Location != l.Location {
		out["location"] = in.Location
	}
	if in.Date != l.EventDate.String() {
		out["date"] = in.Date
	}
	return out
}

func diffThrift(l *domain.ThriftItem, in Input) map[string]interface{} {
	out := map[string]interface{}{}
	diffBase(&l.ListingBase, in, out)
	if price, _ := listings.ParsePrice(in.Price); price != l.Price {
		out["price"] = price
	}
	if in.Category != l.ItemCategory {
		out["category"] = in.Category
	}
	if in.Condition != l.Condition {
		out["condition"] = in.Condition
	}
	return out
}
