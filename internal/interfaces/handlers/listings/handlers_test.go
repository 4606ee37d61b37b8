package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"findonlu-backend/internal/application/forms"
	listsvc "findonlu-backend/internal/application/listings"
	"findonlu-backend/internal/application/uploads"
	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/infrastructure/database"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var users = map[string]*domain.Session{
	"a": {UserID: "user-a", Email: "a@lawrence.edu"},
	"b": {UserID: "user-b", Email: "b@lawrence.edu"},
}

type stubUploader struct {
	err error
}

func (s *stubUploader) Upload(ctx context.Context, sess *domain.Session, data []byte, name string) (*uploads.Result, error) {
	if s.err != nil {
		return nil, &domain.UploadError{Err: s.err}
	}
	return &uploads.Result{Key: "k.png", PublicURL: "https://cdn.test/k.png"}, nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func clock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

// asUser signs the request in as the user named by X-Test-User.
func asUser(c *fiber.Ctx) error {
	if s, ok := users[c.Get("X-Test-User")]; ok {
		middleware.SetSession(c, s)
	}
	return c.Next()
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return response.FromError(c, err)
	}})
}

func setupLostFoundApp(t *testing.T, up forms.Uploader) (*fiber.App, *listsvc.Store[*domain.LostFoundItem]) {
	t.Helper()
	store := listsvc.NewLostFoundStore(setupDB(t))
	store.Now = clock()
	h := &Handlers[*domain.LostFoundItem]{
		Store: store,
		NewForm: func() *forms.Form[*domain.LostFoundItem] {
			return forms.NewLostFoundForm(store, up)
		},
	}
	app := newApp()
	app.Use(asUser)
	h.Mount(app.Group("/api/v1/lost-found"))
	return app, store
}

func setupThriftApp(t *testing.T) *fiber.App {
	t.Helper()
	store := listsvc.NewThriftStore(setupDB(t))
	store.Now = clock()
	h := &Handlers[*domain.ThriftItem]{
		Store: store,
		NewForm: func() *forms.Form[*domain.ThriftItem] {
			return forms.NewThriftForm(store, &stubUploader{})
		},
	}
	app := newApp()
	app.Use(asUser)
	h.Mount(app.Group("/api/v1/thrift"))
	return app
}

func do(t *testing.T, app *fiber.App, method, path, user string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func lostItem(title, kind string) map[string]interface{} {
	return map[string]interface{}{
		"title":       title,
		"description": "Seen near the library",
		"type":        kind,
		"location":    "Mudd Library",
		"date":        "2025-02-14",
	}
}

func postLost(t *testing.T, app *fiber.App, user, title, kind string) string {
	t.Helper()
	resp, body := do(t, app, "POST", "/api/v1/lost-found", user, lostItem(title, kind))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	listing := body["data"].(map[string]interface{})["listing"].(map[string]interface{})
	return listing["id"].(string)
}

func listTitles(t *testing.T, app *fiber.App, path string) []string {
	t.Helper()
	resp, body := do(t, app, "GET", path, "a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var titles []string
	for _, it := range body["data"].([]interface{}) {
		titles = append(titles, it.(map[string]interface{})["title"].(string))
	}
	return titles
}

func TestCreate_AppearsFirstWithOwner(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	postLost(t, app, "b", "Keys", "found")
	id := postLost(t, app, "a", "Blue umbrella", "lost")

	resp, body := do(t, app, "GET", "/api/v1/lost-found", "a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	first := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, id, first["id"])
	assert.Equal(t, "a@lawrence.edu", first["user_email"])
	assert.Equal(t, "active", first["status"])
}

func TestCreate_LocationHeader(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	resp, body := do(t, app, "POST", "/api/v1/lost-found", "a", lostItem("Blue umbrella", "lost"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := body["data"].(map[string]interface{})["listing"].(map[string]interface{})["id"].(string)
	assert.Equal(t, "/api/v1/lost-found/"+id, resp.Header.Get("Location"))
}

func TestCreate_ValidationErrorHasFields(t *testing.T) {
	app, store := setupLostFoundApp(t, &stubUploader{})
	in := lostItem("", "stolen")
	resp, body := do(t, app, "POST", "/api/v1/lost-found", "a", in)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	details := body["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "type")

	n, err := store.CountActive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_RequiresSession(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	resp, _ := do(t, app, "POST", "/api/v1/lost-found", "", lostItem("Blue umbrella", "lost"))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreate_MultipartUploadFailureStillPosts(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{err: errors.New("bucket missing")})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range lostItem("Blue umbrella", "lost") {
		require.NoError(t, w.WriteField(k, v.(string)))
	}
	part, err := w.CreateFormFile("image", "umbrella.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/lost-found", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Test-User", "a")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{forms.ImageUploadWarning}, data["warnings"])
	assert.Nil(t, data["listing"].(map[string]interface{})["image_url"])
}

func TestList_SearchAndFacet(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	postLost(t, app, "a", "Blue umbrella", "lost")
	postLost(t, app, "b", "Umbrella stand", "found")
	postLost(t, app, "b", "Keys", "found")

	assert.Equal(t, []string{"Umbrella stand", "Blue umbrella"}, listTitles(t, app, "/api/v1/lost-found?q=UMBRELLA"))
	assert.Equal(t, []string{"Keys", "Umbrella stand"}, listTitles(t, app, "/api/v1/lost-found?type=found"))
	assert.Equal(t, []string{"Umbrella stand"}, listTitles(t, app, "/api/v1/lost-found?q=umbrella&type=found"))

	resp, body := do(t, app, "GET", "/api/v1/lost-found?q=umbrella&type=found", "a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{
		"total": 3.0, "matches": 1.0, "query": "umbrella", "facet": "found",
	}, body["metadata"])

	resp, _ = do(t, app, "GET", "/api/v1/lost-found?type=stolen", "a", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestThrift_IgnoresFacetAndShowsPrice(t *testing.T) {
	app := setupThriftApp(t)
	resp, body := do(t, app, "POST", "/api/v1/thrift", "a", map[string]interface{}{
		"title": "Desk lamp", "description": "Works", "price": "12.50", "category": "Furniture", "condition": "Like New",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, body)
	id := body["data"].(map[string]interface{})["listing"].(map[string]interface{})["id"].(string)

	assert.Equal(t, []string{"Desk lamp"}, listTitles(t, app, "/api/v1/thrift?type=bogus"))

	resp, body = do(t, app, "GET", "/api/v1/thrift/"+id, "b", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	detail := body["data"].(map[string]interface{})
	assert.Equal(t, "$12.50", detail["price_text"])
	assert.Equal(t, "Seller", detail["poster_label"])
	assert.Equal(t, "a", detail["poster_name"])
}

func TestGet_NotFound(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	resp, _ := do(t, app, "GET", "/api/v1/lost-found/not-a-uuid", "a", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, app, "GET", "/api/v1/lost-found/7f1c1a4e-5d1a-4a53-8f6f-1f0a3c1f2b11", "a", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestContact_RedirectsToDeepLink(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	id := postLost(t, app, "a", "Blue umbrella", "lost")

	resp, _ := do(t, app, "GET", "/api/v1/lost-found/"+id+"/contact", "b", nil)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://outlook.office365.com/mail/deeplink/compose?to=a%40lawrence.edu"))
	assert.Contains(t, loc, "subject=About%20your%20lost%20item%3A%20Blue%20umbrella")
}

func TestDelete_ForeignListingForbidden(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	id := postLost(t, app, "a", "Blue umbrella", "lost")

	resp, _ := do(t, app, "DELETE", "/api/v1/lost-found/"+id, "b", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, []string{"Blue umbrella"}, listTitles(t, app, "/api/v1/lost-found"))

	resp, _ = do(t, app, "DELETE", "/api/v1/lost-found/"+id, "a", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, listTitles(t, app, "/api/v1/lost-found"))
}

func TestPatch_ResolveHidesFromBrowseButNotMine(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	id := postLost(t, app, "a", "Blue umbrella", "lost")

	resp, body := do(t, app, "PATCH", "/api/v1/lost-found/"+id, "a", map[string]interface{}{"status": "resolved", "user_id": "user-b"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "inactive", data["status"])
	assert.Equal(t, "user-a", data["user_id"])

	assert.Empty(t, listTitles(t, app, "/api/v1/lost-found"))
	resp, body = do(t, app, "GET", "/api/v1/lost-found/mine", "a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)

	resp, _ = do(t, app, "PATCH", "/api/v1/lost-found/"+id, "a", map[string]interface{}{"status": "archived"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEdit_WholeFormAndEvents(t *testing.T) {
	app, _ := setupLostFoundApp(t, &stubUploader{})
	id := postLost(t, app, "a", "Blue umbrella", "lost")

	in := lostItem("Blue umbrella", "lost")
	in["location"] = "Warch Campus Center"
	resp, _ := do(t, app, "PUT", "/api/v1/lost-found/"+id, "b", in)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := do(t, app, "PUT", "/api/v1/lost-found/"+id, "a", in)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Warch Campus Center", body["data"].(map[string]interface{})["location"])

	resp, body = do(t, app, "GET", "/api/v1/lost-found/"+id+"/events", "a", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	events := body["data"].([]interface{})
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventCreated, events[0].(map[string]interface{})["event_type"])
	assert.Equal(t, domain.EventUpdated, events[1].(map[string]interface{})["event_type"])

	resp, _ = do(t, app, "GET", "/api/v1/lost-found/"+id+"/events", "b", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
