package forms

import (
	"errors"
	"reflect"
	"strings"

	"findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Input is the raw form as typed by the user. Price may be a JSON number or text.
type Input struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
	Type        string      `json:"type,omitempty"`
	Location    string      `json:"location,omitempty"`
	Date        string      `json:"date,omitempty"`
	Price       interface{} `json:"price,omitempty"`
	Category    string      `json:"category,omitempty"`
	Condition   string      `json:"condition,omitempty"`
}

func (in Input) trimmed() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Location = strings.TrimSpace(in.Location)
	in.Date = strings.TrimSpace(in.Date)
	in.Category = strings.TrimSpace(in.Category)
	in.Condition = strings.TrimSpace(in.Condition)
	if s, ok := in.Price.(string); ok {
		in.Price = strings.TrimSpace(s)
	}
	return in
}

type lostFoundFields struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Type        string `json:"type" validate:"required,kind"`
	Location    string `json:"location" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
}

type thriftFields struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Condition   string `json:"condition" validate:"required,condition"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("kind", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseKind(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return domain.IsValidCondition(fl.Field().String())
	})
	return v
}

var fieldLabels = map[string]string{
	"title":       "Title",
	"description": "Description",
	"type":        "Type",
	"location":    "Location",
	"date":        "Date",
	"price":       "Price",
	"category":    "Category",
	"condition":   "Condition",
}

// validateInput checks in for category c. It never touches the network.
func validateInput(v *validator.Validate, c domain.Category, in Input) error {
	verr := domain.NewValidationError()

	var target interface{}
	switch c {
	case domain.CategoryLostFound:
		target = lostFoundFields{Title: in.Title, Description: in.Description, Type: in.Type, Location: in.Location, Date: in.Date}
	case domain.CategoryThrift:
		target = thriftFields{Title: in.Title, Description: in.Description, Category: in.Category, Condition: in.Condition}
		if isBlank(in.Price) {
			verr.Add("price", "Price is required")
		} else if _, err := listings.ParsePrice(in.Price); err != nil {
			verr.Add("price", err.Error())
		}
	default:
		verr.Add("category", "Unknown listing category")
		return verr
	}

	if err := v.Struct(target); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			verr.Add(fe.Field(), messageFor(fe))
		}
	}
	if in.Status != "" {
		if _, ok := domain.ParseStatus(in.Status); !ok {
			verr.Add("status", "Status must be active or inactive")
		}
	}
	return verr.OrNil()
}

func messageFor(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "kind":
		return "Type must be lost or found"
	case "datetime":
		return "Date must be a valid date (YYYY-MM-DD)"
	case "condition":
		return "Condition must be one of " + strings.Join(domain.Conditions, ", ")
	}
	return label + " is invalid"
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
