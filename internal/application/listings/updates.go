package listings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"findonlu-backend/internal/domain"
)

// MaxPrice is the largest value a decimal(10,2) price column holds.
const MaxPrice = 99999999.99

var commonEditable = []string{"title", "description", "status", "image_url"}

var editableByCategory = map[domain.Category][]string{
	domain.CategoryLostFound: {"type", "location", "date"},
	domain.CategoryThrift:    {"price", "category", "condition"},
}

// EditableFields lists the keys Update accepts for a category.
func EditableFields(c domain.Category) []string {
	out := append([]string{}, commonEditable...)
	return append(out, editableByCategory[c]...)
}

func isEditable(c domain.Category, key string) bool {
	for _, f := range EditableFields(c) {
		if f == key {
			return true
		}
	}
	return false
}

// normalizeUpdates drops keys outside the allow-list (owner, id, created_at, anything unknown)
// and converts the rest to column values.
func normalizeUpdates(c domain.Category, fields map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fields))
	verr := domain.NewValidationError()

	for key, raw := range fields {
		if !isEditable(c, key) {
			continue
		}
		switch key {
		case "title", "description", "location", "category":
			s, ok := asString(raw)
			if !ok || strings.TrimSpace(s) == "" {
				verr.Add(key, requiredMessage(key))
				continue
			}
			out[key] = strings.TrimSpace(s)
		case "status":
			s, _ := asString(raw)
			st, ok := domain.ParseStatus(s)
			if !ok {
				verr.Add(key, "Status must be active or inactive")
				continue
			}
			out[key] = string(st)
		case "image_url":
			s, ok := asString(raw)
			if raw == nil || (ok && strings.TrimSpace(s) == "") {
				out[key] = nil
				continue
			}
			if !ok {
				verr.Add(key, "Image URL must be a string")
				continue
			}
			out[key] = strings.TrimSpace(s)
		case "type":
			s, _ := asString(raw)
			k, ok := domain.ParseKind(s)
			if !ok {
				verr.Add(key, "Type must be lost or found")
				continue
			}
			out[key] = string(k)
		case "date":
			d, err := asDate(raw)
			if err != nil {
				verr.Add(key, "Date must be a valid date (YYYY-MM-DD)")
				continue
			}
			out[key] = d
		case "price":
			p, err := ParsePrice(raw)
			if err != nil {
				verr.Add(key, err.Error())
				continue
			}
			out[key] = p
		case "condition":
			s, _ := asString(raw)
			if !domain.IsValidCondition(s) {
				verr.Add(key, "Condition must be one of "+strings.Join(domain.Conditions, ", "))
				continue
			}
			out[key] = s
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParsePrice accepts a JSON number or a numeric string and rejects negatives.
func ParsePrice(raw interface{}) (float64, error) {
	var p float64
	switch v := raw.(type) {
	case float64:
		p = v
	case float32:
		p = float64(v)
	case int:
		p = float64(v)
	case int64:
		p = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("Price must be a number")
		}
		p = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "$")), 64)
		if err != nil {
			return 0, fmt.Errorf("Price must be a number")
		}
		p = f
	default:
		return 0, fmt.Errorf("Price must be a number")
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p > MaxPrice {
		return 0, fmt.Errorf("Price must be a number")
	}
	if p < 0 {
		return 0, fmt.Errorf("Price cannot be negative")
	}
	return p, nil
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asDate(v interface{}) (domain.CalendarDate, error) {
	switch d := v.(type) {
	case domain.CalendarDate:
		if d.IsZero() {
			return d, fmt.Errorf("empty date")
		}
		return d, nil
	case string:
		return domain.ParseCalendarDate(d)
	}
	return domain.CalendarDate{}, fmt.Errorf("unsupported date %T", v)
}

func requiredMessage(field string) string {
	switch field {
	case "title":
		return "Title is required"
	case "description":
		return "Description is required"
	case "location":
		return "Location is required"
	case "category":
		return "Category is required"
	}
	return field + " is required"
}
