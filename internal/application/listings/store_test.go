package listings

import (
	"context"
	"testing"
	"time"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/infrastructure/database"
	"findonlu-backend/internal/pkg/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	alice = &domain.Session{UserID: "user-a", Email: "a@lawrence.edu"}
	bob   = &domain.Session{UserID: "user-b", Email: "b@lawrence.edu"}
)

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

// tickingClock advances one second per call so created_at ordering is deterministic.
func tickingClock() func() time.Time {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func setupThrift(t *testing.T) (*Store[*domain.ThriftItem], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewThriftStore(setupDB(t))
	s.Cache = NewCache(rdb, time.Minute)
	s.Metrics = metrics.New()
	s.Now = tickingClock()
	return s, mr
}

func setupLostFound(t *testing.T) *Store[*domain.LostFoundItem] {
	t.Helper()
	s := NewLostFoundStore(setupDB(t))
	s.Now = tickingClock()
	return s
}

func lamp(title string) *domain.ThriftItem {
	return &domain.ThriftItem{
		ListingBase:  domain.ListingBase{Title: title, Description: "desk lamp"},
		Price:        12.5,
		ItemCategory: "Furniture",
		Condition:    "Good",
	}
}

func TestCreate_StampsOwnerIgnoringPayload(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	in := lamp("Lamp")
	in.OwnerID = "someone-else"
	in.OwnerEmail = "evil@gmail.com"
	in.Status = domain.StatusInactive

	out, err := s.Create(ctx, alice, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, out.ID)
	assert.Equal(t, "user-a", out.OwnerID)
	assert.Equal(t, "a@lawrence.edu", out.OwnerEmail)
	assert.Equal(t, domain.StatusActive, out.Status)
	assert.False(t, out.CreatedAt.IsZero())

	got, err := s.Get(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-a", got.OwnerID)
	assert.Equal(t, 12.5, got.Price)

	n, err := testutil.GatherAndCount(s.Metrics.Registry(), "findonlu_listing_mutations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreate_RequiresSession(t *testing.T) {
	s, _ := setupThrift(t)
	_, err := s.Create(context.Background(), nil, lamp("Lamp"))
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	_, err = s.ListMine(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestListActive_NewestFirstAndExcludesInactive(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	first, err := s.Create(ctx, alice, lamp("First"))
	require.NoError(t, err)
	second, err := s.Create(ctx, bob, lamp("Second"))
	require.NoError(t, err)
	third, err := s.Create(ctx, alice, lamp("Third"))
	require.NoError(t, err)

	_, err = s.Update(ctx, bob, second.ID, map[string]interface{}{"status": "resolved"})
	require.NoError(t, err)

	items, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, third.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
	for _, it := range items {
		assert.Equal(t, domain.StatusActive, it.Status)
	}

	n, err := s.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestListActive_IdempotentAndCacheInvalidated(t *testing.T) {
	s, mr := setupThrift(t)
	ctx := context.Background()

	_, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)

	a, err := s.ListActive(ctx)
	require.NoError(t, err)
	key, ok := s.activeKey(ctx)
	require.True(t, ok)
	assert.True(t, mr.Exists(key))
	b, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Title, b[i].Title)
		assert.True(t, a[i].CreatedAt.Equal(b[i].CreatedAt))
	}

	_, err = s.Create(ctx, bob, lamp("Chair"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))
	next, _ := s.activeKey(ctx)
	assert.NotEqual(t, key, next)

	c, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, c, 2)
	assert.Equal(t, "Chair", c[0].Title)
}

func TestListActive_WriteDuringReadDoesNotPinStaleList(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()
	_, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)

	// Commit a second listing after the browse query has read rows but before
	// the result is written to the cache.
	interleaved := false
	require.NoError(t, s.DB.Callback().Query().After("gorm:query").Register("test:interleave_create", func(db *gorm.DB) {
		if interleaved || db.Statement.Table != "thrift_items" {
			return
		}
		interleaved = true
		_, err := s.Create(ctx, bob, lamp("Chair"))
		require.NoError(t, err)
	}))

	first, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.True(t, interleaved)
	assert.Len(t, first, 1)

	second, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "Chair", second[0].Title)
}

func TestListActive_BypassesCacheWhenRedisDown(t *testing.T) {
	s, mr := setupThrift(t)
	ctx := context.Background()
	_, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)
	mr.Close()

	items, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestListMine_AnyStatusOnlyOwn(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	mine, err := s.Create(ctx, alice, lamp("Mine"))
	require.NoError(t, err)
	_, err = s.Create(ctx, bob, lamp("Theirs"))
	require.NoError(t, err)
	_, err = s.Update(ctx, alice, mine.ID, map[string]interface{}{"status": "inactive"})
	require.NoError(t, err)

	items, err := s.ListMine(ctx, alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].ID)
	assert.Equal(t, domain.StatusInactive, items[0].Status)
}

func TestUpdate_AllowListAndValidation(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	item, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)

	out, err := s.Update(ctx, alice, item.ID, map[string]interface{}{
		"title":      "Brass lamp",
		"price":      "20",
		"user_id":    "user-b",
		"user_email": "b@lawrence.edu",
		"created_at": "2001-01-01T00:00:00Z",
		"id":         uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Brass lamp", out.Title)
	assert.Equal(t, 20.0, out.Price)
	assert.Equal(t, "user-a", out.OwnerID)
	assert.Equal(t, "a@lawrence.edu", out.OwnerEmail)
	assert.Equal(t, item.ID, out.ID)
	assert.True(t, out.CreatedAt.Equal(item.CreatedAt))

	_, err = s.Update(ctx, alice, item.ID, map[string]interface{}{"price": -1, "condition": "Broken"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "price")
	assert.Contains(t, verr.Fields, "condition")
}

func TestUpdateDelete_OwnershipAndNotFound(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	item, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)

	_, err = s.Update(ctx, bob, item.ID, map[string]interface{}{"title": "Mine now"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = s.Delete(ctx, bob, item.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	items, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].Title)

	_, err = s.Update(ctx, alice, uuid.New(), map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, alice, uuid.New()), domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, alice, item.ID))
	_, err = s.Get(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListEvents_Lifecycle(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	item, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)
	_, err = s.Update(ctx, alice, item.ID, map[string]interface{}{"price": 5})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, alice, item.ID))

	events, err := s.ListEvents(ctx, alice, item.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventCreated, events[0].EventType)
	assert.Equal(t, domain.EventUpdated, events[1].EventType)
	assert.Equal(t, domain.EventDeleted, events[2].EventType)
	assert.JSONEq(t, `{"price":5}`, string(events[1].EventData))

	_, err = s.ListEvents(ctx, bob, item.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = s.ListEvents(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLostFound_CreateAndUpdateDate(t *testing.T) {
	s := setupLostFound(t)
	ctx := context.Background()

	date, err := domain.ParseCalendarDate("2025-02-14")
	require.NoError(t, err)
	item, err := s.Create(ctx, alice, &domain.LostFoundItem{
		ListingBase: domain.ListingBase{Title: "Blue umbrella", Description: "Left in Main Hall"},
		Kind:        domain.KindLost,
		Location:    "Main Hall",
		EventDate:   date,
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-14", got.EventDate.String())
	assert.Equal(t, domain.KindLost, got.Kind)

	out, err := s.Update(ctx, alice, item.ID, map[string]interface{}{"date": "2025-02-15", "type": "found", "price": 3})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-15", out.EventDate.String())
	assert.Equal(t, domain.KindFound, out.Kind)

	_, err = s.Update(ctx, alice, item.ID, map[string]interface{}{"date": "yesterday"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "date")
}

func TestUpdate_NoEditableFieldsIsNoop(t *testing.T) {
	s, _ := setupThrift(t)
	ctx := context.Background()

	item, err := s.Create(ctx, alice, lamp("Lamp"))
	require.NoError(t, err)
	out, err := s.Update(ctx, alice, item.ID, map[string]interface{}{"user_id": "user-b"})
	require.NoError(t, err)
	assert.Equal(t, "user-a", out.OwnerID)

	events, err := s.ListEvents(ctx, alice, item.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFlushCache(t *testing.T) {
	s, mr := setupThrift(t)
	ctx := context.Background()
	_, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("listings:thrift:active:0"))

	require.NoError(t, s.FlushCache(ctx))
	assert.False(t, mr.Exists("listings:thrift:active:0"))
	gen, err := mr.Get("listings:thrift:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}
