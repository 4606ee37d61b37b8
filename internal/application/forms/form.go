package forms

import (
	"context"
	"errors"
	"sync"

	"findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/application/uploads"
	"findonlu-backend/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSubmitting is returned when Submit is called while a submission is in flight.
var ErrSubmitting = errors.New("Form is already submitting")

// ImageUploadWarning is reported when the listing was posted without its image.
const ImageUploadWarning = "Image upload failed; the listing was posted without an image"

type State string

const (
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateClosed     State = "closed"
)

// Store is the part of listings.Store a form needs.
type Store[T domain.Listing] interface {
	Create(ctx context.Context, sess *domain.Session, payload T) (T, error)
	Update(ctx context.Context, sess *domain.Session, id uuid.UUID, fields map[string]interface{}) (T, error)
}

type Uploader interface {
	Upload(ctx context.Context, sess *domain.Session, data []byte, originalName string) (*uploads.Result, error)
}

// Image is an optional file chosen in the form.
type Image struct {
	Data []byte
	Name string
}

type Outcome[T domain.Listing] struct {
	Listing  T        `json:"listing"`
	Warnings []string `json:"warnings,omitempty"`
}

// Form collects and submits a listing of one category.
type Form[T domain.Listing] struct {
	// OnPosted runs after a successful Submit, e.g. to refresh a browse view.
	OnPosted func(T)

	category domain.Category
	store    Store[T]
	uploader Uploader
	validate *validator.Validate
	build    func(Input) T
	diff     func(T, Input) map[string]interface{}

	mu    sync.Mutex
	state State
	input Input
}

func NewLostFoundForm(store Store[*domain.LostFoundItem], uploader Uploader) *Form[*domain.LostFoundItem] {
	return &Form[*domain.LostFoundItem]{
		category: domain.CategoryLostFound,
		store:    store,
		uploader: uploader,
		validate: newValidator(),
		build:    buildLostFound,
		diff:     diffLostFound,
		state:    StateEditing,
		input:    Defaults(domain.CategoryLostFound),
	}
}

func NewThriftForm(store Store[*domain.ThriftItem], uploader Uploader) *Form[*domain.ThriftItem] {
	return &Form[*domain.ThriftItem]{
		category: domain.CategoryThrift,
		store:    store,
		uploader: uploader,
		validate: newValidator(),
		build:    buildThrift,
		diff:     diffThrift,
		state:    StateEditing,
		input:    Defaults(domain.CategoryThrift),
	}
}

// Defaults is the blank form for a category.
func Defaults(c domain.Category) Input {
	if c == domain.CategoryLostFound {
		return Input{Type: string(domain.KindLost)}
	}
	return Input{Condition: "Good"}
}

func (f *Form[T]) Category() domain.Category {
	return f.category
}

func (f *Form[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Input returns the current field values.
func (f *Form[T]) Input() Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

// Open resets the fields and makes the form editable again.
func (f *Form[T]) Open() {
	f.mu.Lock()
	f.state = StateEditing
	f.input = Defaults(f.category)
	f.mu.Unlock()
}

// Validate checks in without side effects.
func (f *Form[T]) Validate(in Input) error {
	return validateInput(f.validate, f.category, in.trimmed())
}

// Submit validates, uploads the image if any, and creates the listing. A failed
// upload does not fail the submission. On any error the form stays editable with
// the entered values kept.
func (f *Form[T]) Submit(ctx context.Context, sess *domain.Session, in Input, img *Image) (*Outcome[T], error) {
	in = in.trimmed()

	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	f.input = in
	if err := validateInput(f.validate, f.category, in); err != nil {
		f.state = StateEditing
		f.mu.Unlock()
		return nil, err
	}
	if sess == nil || sess.UserID == "" {
		f.state = StateEditing
		f.mu.Unlock()
		return nil, domain.ErrAuthRequired
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	out := &Outcome[T]{}
	if img != nil && len(img.Data) > 0 && f.uploader != nil {
		res, err := f.uploader.Upload(ctx, sess, img.Data, img.Name)
		if err != nil {
			log.Warn().Err(err).Str("category", string(f.category)).Msg("posting without image")
			out.Warnings = append(out.Warnings, ImageUploadWarning)
		} else {
			in.ImageURL = res.PublicURL
			out.Warnings = append(out.Warnings, res.Warnings...)
		}
	}

	created, err := f.store.Create(ctx, sess, f.build(in))
	if err != nil {
		f.mu.Lock()
		f.state = StateEditing
		f.mu.Unlock()
		return nil, err
	}
	out.Listing = created

	f.mu.Lock()
	f.state = StateClosed
	f.input = Defaults(f.category)
	onPosted := f.OnPosted
	f.mu.Unlock()
	if onPosted != nil {
		onPosted(created)
	}
	return out, nil
}

// Edit validates in against the same rules as Submit and writes only the fields that
// differ from existing. Nothing changed returns existing as is.
func (f *Form[T]) Edit(ctx context.Context, sess *domain.Session, existing T, in Input) (T, error) {
	in = in.trimmed()
	if err := validateInput(f.validate, f.category, in); err != nil {
		var zero T
		return zero, err
	}
	changes := f.diff(existing, in)
	if len(changes) == 0 {
		return existing, nil
	}
	return f.store.Update(ctx, sess, existing.Base().ID, changes)
}

// InputFrom fills a form from an existing listing, as the edit dialog does.
func InputFrom(l domain.Listing) Input {
	b := l.Base()
	in := Input{Title: b.Title, Description: b.Description, Status: string(b.Status)}
	if b.ImageURL != nil {
		in.ImageURL = *b.ImageURL
	}
	switch v := l.(type) {
	case *domain.LostFoundItem:
		in.Type = string(v.Kind)
		in.Location = v.Location
		in.Date = v.EventDate.String()
	case *domain.ThriftItem:
		in.Price = v.Price
		in.Category = v.ItemCategory
		in.Condition = v.Condition
	}
	return in
}

var _ Store[*domain.ThriftItem] = (*listings.Store[*domain.ThriftItem])(nil)
var _ Store[*domain.LostFoundItem] = (*listings.Store[*domain.LostFoundItem])(nil)
