package listings

import (
	"encoding/json"
	"strings"

	"findonlu-backend/internal/application/contact"
	"findonlu-backend/internal/application/forms"
	listsvc "findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/application/search"
	"findonlu-backend/internal/domain"
	uploadhandler "findonlu-backend/internal/interfaces/handlers/uploads"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers serves one listing category. The same set of routes is mounted under
// /api/v1/lost-found and /api/v1/thrift.
type Handlers[T domain.Listing] struct {
	Store *listsvc.Store[T]
	// NewForm returns a fresh form per request.
	NewForm func() *forms.Form[T]
}

// Mount registers the category routes on r. Static paths come before :id.
func (h *Handlers[T]) Mount(r fiber.Router) {
	r.Get("/", h.List)
	r.Get("/mine", h.Mine)
	r.Post("/", h.Create)
	r.Get("/:id", h.Get)
	r.Get("/:id/contact", h.Contact)
	r.Get("/:id/events", h.Events)
	r.Put("/:id", h.Edit)
	r.Patch("/:id", h.Patch)
	r.Delete("/:id", h.Delete)
}

// List GET /?q=&type= returns active listings, newest first, narrowed by the search box
// and (lost-found only) the lost/found facet.
func (h *Handlers[T]) List(c *fiber.Ctx) error {
	facet := search.FacetAll
	if h.Store.Category() == domain.CategoryLostFound {
		f, err := search.ParseFacet(c.Query("type"))
		if err != nil {
			return response.FromError(c, err)
		}
		facet = f
	}
	items, err := h.Store.ListActive(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	q := c.Query("q")
	filtered := search.Filter(items, q, facet)
	meta := response.ListMeta{Total: len(items), Matches: len(filtered), Query: q}
	if facet != search.FacetAll {
		meta.Facet = string(facet)
	}
	return response.List(c, "Listings fetched successfully", filtered, meta)
}

// Mine GET /mine returns the caller's listings in any status.
func (h *Handlers[T]) Mine(c *fiber.Ctx) error {
	items, err := h.Store.ListMine(c.UserContext(), middleware.CurrentSession(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.List(c, "Your listings fetched successfully", items, response.ListMeta{Total: len(items), Matches: len(items)})
}

// Get GET /:id returns the detail view with its pre-filled contact message.
func (h *Handlers[T]) Get(c *fiber.Ctx) error {
	l, err := h.load(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing fetched successfully", contact.Present(l), nil)
}

// Contact GET /:id/contact redirects to the compose deep link.
func (h *Handlers[T]) Contact(c *fiber.Ctx) error {
	l, err := h.load(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Redirect(contact.ComposeContact(l).URL, fiber.StatusFound)
}

// Events GET /:id/events is the owner's history of the listing.
func (h *Handlers[T]) Events(c *fiber.Ctx) error {
	id, err := listingID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Store.ListEvents(c.UserContext(), middleware.CurrentSession(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing events fetched successfully", events, nil)
}

// Create POST / takes JSON, or multipart with an optional "image" file.
// An image that fails to upload does not fail the request; see warnings.
func (h *Handlers[T]) Create(c *fiber.Ctx) error {
	in, img, err := readInput(c)
	if err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	f := h.NewForm()
	f.OnPosted = func(l T) {
		c.Location(strings.TrimRight(c.Path(), "/") + "/" + l.Base().ID.String())
	}
	out, err := f.Submit(c.UserContext(), middleware.CurrentSession(c), in, img)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Listing posted successfully", out, nil)
}

// Edit PUT /:id takes the whole form and writes only the fields that changed.
func (h *Handlers[T]) Edit(c *fiber.Ctx) error {
	var in forms.Input
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	existing, err := h.load(c)
	if err != nil {
		return response.FromError(c, err)
	}
	sess := middleware.CurrentSession(c)
	if sess == nil {
		return response.FromError(c, domain.ErrAuthRequired)
	}
	if !sess.Owns(existing) {
		return response.FromError(c, domain.ErrForbidden)
	}
	updated, err := h.NewForm().Edit(c.UserContext(), sess, existing, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", updated, nil)
}

// Patch PATCH /:id applies a partial update, e.g. {"status":"resolved"}.
func (h *Handlers[T]) Patch(c *fiber.Ctx) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	id, err := listingID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	updated, err := h.Store.Update(c.UserContext(), middleware.CurrentSession(c), id, fields)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing updated successfully", updated, nil)
}

// Delete DELETE /:id removes the caller's listing.
func (h *Handlers[T]) Delete(c *fiber.Ctx) error {
	id, err := listingID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Store.Delete(c.UserContext(), middleware.CurrentSession(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Listing deleted successfully", fiber.Map{"id": id}, nil)
}

func (h *Handlers[T]) load(c *fiber.Ctx) (T, error) {
	id, err := listingID(c)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Store.Get(c.UserContext(), id)
}

// listingID treats a malformed id as a listing that does not exist.
func listingID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}

func readInput(c *fiber.Ctx) (forms.Input, *forms.Image, error) {
	var in forms.Input
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		err := c.BodyParser(&in)
		return in, nil, err
	}
	in = forms.Input{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		ImageURL:    c.FormValue("image_url"),
		Type:        c.FormValue("type"),
		Location:    c.FormValue("location"),
		Date:        c.FormValue("date"),
		Category:    c.FormValue("category"),
		Condition:   c.FormValue("condition"),
	}
	if p := c.FormValue("price"); p != "" {
		in.Price = p
	}
	fh, err := c.FormFile(uploadhandler.FormField)
	if err != nil {
		// no image attached
		return in, nil, nil
	}
	data, err := uploadhandler.ReadFile(fh)
	if err != nil {
		return in, nil, err
	}
	return in, &forms.Image{Data: data, Name: fh.Filename}, nil
}
