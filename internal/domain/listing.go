package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is the discriminant of the listing union. A listing belongs to exactly one.
type Category string

const (
	CategoryLostFound Category = "lost_found"
	CategoryThrift    Category = "thrift"
)

// Status governs visibility in browse views.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ParseStatus accepts "resolved" as an alias of inactive.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "inactive", "resolved":
		return StatusInactive, true
	}
	return "", false
}

// Kind tells whether a lost-found item was lost or found.
type Kind string

const (
	KindLost  Kind = "lost"
	KindFound Kind = "found"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLost:
		return KindLost, true
	case KindFound:
		return KindFound, true
	}
	return "", false
}

// Conditions lists the accepted thrift conditions in display order.
var Conditions = []string{"New", "Like New", "Good", "Fair", "Poor"}

func IsValidCondition(s string) bool {
	for _, c := range Conditions {
		if c == s {
			return true
		}
	}
	return false
}

// Listing is implemented by *LostFoundItem and *ThriftItem.
type Listing interface {
	Base() *ListingBase
	Category() Category
}

// ListingBase holds the fields shared by both variants. Owner fields and CreatedAt
// are stamped once at creation and never taken from user input.
type ListingBase struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`
	OwnerID     string    `gorm:"column:user_id;not null;index" json:"user_id"`
	OwnerEmail  string    `gorm:"column:user_email;not null" json:"user_email"`
	Status      Status    `gorm:"column:status;type:varchar(20);not null;default:'active';index" json:"status"`
	ImageURL    *string   `gorm:"column:image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (b *ListingBase) Base() *ListingBase {
	return b
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (b *ListingBase) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// LostFoundItem matches the lost_found_items table.
type LostFoundItem struct {
	ListingBase
	Kind      Kind         `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Location  string       `gorm:"column:location;not null" json:"location"`
	EventDate CalendarDate `gorm:"column:date;type:date;not null" json:"date"`
}

func (LostFoundItem) TableName() string {
	return "lost_found_items"
}

func (*LostFoundItem) Category() Category {
	return CategoryLostFound
}

// ThriftItem matches the thrift_items table.
type ThriftItem struct {
	ListingBase
	Price        float64 `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	ItemCategory string  `gorm:"column:category" json:"category"`
	Condition    string  `gorm:"column:condition" json:"condition"`
}

func (ThriftItem) TableName() string {
	return "thrift_items"
}

func (*ThriftItem) Category() Category {
	return CategoryThrift
}

const dateLayout = "2006-01-02"

// CalendarDate is a day without time of day. Stored as a SQL date, sent as "YYYY-MM-DD".
type CalendarDate struct {
	time.Time
}

// ParseCalendarDate parses "YYYY-MM-DD".
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return CalendarDate{}, err
	}
	return CalendarDate{Time: t}, nil
}

func (d CalendarDate) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner. Drivers hand back either time.Time or text.
func (d *CalendarDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = CalendarDate{}
		return nil
	case time.Time:
		*d = CalendarDate{Time: time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return errors.New("unsupported type for CalendarDate")
	}
}

func (d *CalendarDate) scanText(s string) error {
	if len(s) >= len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d CalendarDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
