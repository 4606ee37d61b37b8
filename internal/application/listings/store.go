package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store persists one listing category. Browse results are cached under a generation
// that every successful mutation bumps, so a read racing a write never repopulates
// the current key with the older list.
type Store[T domain.Listing] struct {
	DB      *gorm.DB
	Cache   *Cache
	Metrics *metrics.Metrics
	// Now is the clock used for created_at/updated_at; defaults to time.Now in UTC.
	Now func() time.Time

	category  domain.Category
	noun      string
	newRecord func() T
}

func NewLostFoundStore(db *gorm.DB) *Store[*domain.LostFoundItem] {
	return &Store[*domain.LostFoundItem]{
		DB:        db,
		category:  domain.CategoryLostFound,
		noun:      "lost and found items",
		newRecord: func() *domain.LostFoundItem { return &domain.LostFoundItem{} },
	}
}

func NewThriftStore(db *gorm.DB) *Store[*domain.ThriftItem] {
	return &Store[*domain.ThriftItem]{
		DB:        db,
		category:  domain.CategoryThrift,
		noun:      "thrift items",
		newRecord: func() *domain.ThriftItem { return &domain.ThriftItem{} },
	}
}

func (s *Store[T]) Category() domain.Category {
	return s.category
}

func (s *Store[T]) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store[T]) generationKey() string {
	return "listings:" + string(s.category) + ":gen"
}

func (s *Store[T]) activeKeyAt(gen int64) string {
	return fmt.Sprintf("listings:%s:active:%d", s.category, gen)
}

// activeKey resolves the browse cache key for the current generation. ok is false
// when the generation cannot be read and the cache must be bypassed.
func (s *Store[T]) activeKey(ctx context.Context) (key string, ok bool) {
	gen, err := s.Cache.Generation(ctx, s.generationKey())
	if err != nil {
		log.Warn().Err(err).Str("category", string(s.category)).Msg("list cache generation read failed")
		return "", false
	}
	return s.activeKeyAt(gen), true
}

// ListActive returns active listings, newest first.
func (s *Store[T]) ListActive(ctx context.Context) ([]T, error) {
	key, cacheable := s.activeKey(ctx)
	if cacheable {
		var cached []T
		err := s.Cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.Metrics.CacheLookup(string(s.category), true)
			return cached, nil
		case !errors.Is(err, ErrCacheMiss):
			log.Warn().Err(err).Str("key", key).Msg("list cache read failed")
		}
		if s.Cache.enabled() {
			s.Metrics.CacheLookup(string(s.category), false)
		}
	}

	items := make([]T, 0)
	if err := s.DB.WithContext(ctx).
		Where("status = ?", string(domain.StatusActive)).
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, &domain.FetchError{Op: "fetch " + s.noun, Err: err}
	}
	if !cacheable {
		return items, nil
	}
	if err := s.Cache.Set(ctx, key, items); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("list cache write failed")
	}
	return items, nil
}

// CountActive is used by the landing dashboard.
func (s *Store[T]) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(s.newRecord()).Where("status = ?", string(domain.StatusActive)).Count(&n).Error; err != nil {
		return 0, &domain.FetchError{Op: "count " + s.noun, Err: err}
	}
	return n, nil
}

// ListMine returns every listing owned by the session user, whatever its status.
func (s *Store[T]) ListMine(ctx context.Context, sess *domain.Session) ([]T, error) {
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrAuthRequired
	}
	items := make([]T, 0)
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, &domain.FetchError{Op: "fetch your " + s.noun, Err: err}
	}
	return items, nil
}

func (s *Store[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	rec, err := s.load(s.DB.WithContext(ctx), id)
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (s *Store[T]) load(tx *gorm.DB, id uuid.UUID) (T, error) {
	rec := s.newRecord()
	if id == uuid.Nil {
		return rec, domain.ErrNotFound
	}
	if err := tx.Where("id = ?", id).First(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rec, domain.ErrNotFound
		}
		return rec, &domain.FetchError{Op: "fetch listing", Err: err}
	}
	return rec, nil
}

// Create stamps identity, owner, status and timestamps on payload and persists it.
// Owner fields already on payload are overwritten.
func (s *Store[T]) Create(ctx context.Context, sess *domain.Session, payload T) (T, error) {
	var zero T
	if sess == nil || sess.UserID == "" {
		return zero, domain.ErrAuthRequired
	}
	now := s.now()
	b := payload.Base()
	b.ID = uuid.New()
	b.OwnerID = sess.UserID
	b.OwnerEmail = sess.Email
	b.Status = domain.StatusActive
	b.CreatedAt = now
	b.UpdatedAt = now

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payload).Error; err != nil {
			return &domain.FetchError{Op: "create listing", Err: err}
		}
		return s.recordEvent(tx, b.ID, domain.EventCreated, sess.UserID, payload, now)
	})
	if err != nil {
		return zero, err
	}
	s.afterMutation(ctx, "create")
	log.Info().Str("category", string(s.category)).Str("listing_id", b.ID.String()).Str("user_id", sess.UserID).Msg("listing created")
	return payload, nil
}

// Update applies the editable subset of fields. Non-editable keys are dropped.
// Last write wins; there is no version check.
func (s *Store[T]) Update(ctx context.Context, sess *domain.Session, id uuid.UUID, fields map[string]interface{}) (T, error) {
	var zero T
	if sess == nil || sess.UserID == "" {
		return zero, domain.ErrAuthRequired
	}
	updates, err := normalizeUpdates(s.category, fields)
	if err != nil {
		return zero, err
	}

	var out T
	changed := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !sess.Owns(rec) {
			return domain.ErrForbidden
		}
		if len(updates) == 0 {
			out = rec
			return nil
		}
		now := s.now()
		updates["updated_at"] = now
		if err := tx.Model(rec).Updates(updates).Error; err != nil {
			return &domain.FetchError{Op: "update listing", Err: err}
		}
		fresh, err := s.load(tx, id)
		if err != nil {
			return err
		}
		delete(updates, "updated_at")
		if err := s.recordEvent(tx, id, domain.EventUpdated, sess.UserID, updates, now); err != nil {
			return err
		}
		out = fresh
		changed = true
		return nil
	})
	if err != nil {
		return zero, err
	}
	if changed {
		s.afterMutation(ctx, "update")
	}
	return out, nil
}

// Delete removes the listing permanently. Its events are kept.
func (s *Store[T]) Delete(ctx context.Context, sess *domain.Session, id uuid.UUID) error {
	if sess == nil || sess.UserID == "" {
		return domain.ErrAuthRequired
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if !sess.Owns(rec) {
			return domain.ErrForbidden
		}
		if err := tx.Delete(rec).Error; err != nil {
			return &domain.FetchError{Op: "delete listing", Err: err}
		}
		return s.recordEvent(tx, id, domain.EventDeleted, sess.UserID, map[string]string{"title": rec.Base().Title}, s.now())
	})
	if err != nil {
		return err
	}
	s.afterMutation(ctx, "delete")
	log.Info().Str("category", string(s.category)).Str("listing_id", id.String()).Str("user_id", sess.UserID).Msg("listing deleted")
	return nil
}

// ListEvents returns the lifecycle of a listing, oldest first. Only its owner may read it,
// including after deletion.
func (s *Store[T]) ListEvents(ctx context.Context, sess *domain.Session, id uuid.UUID) ([]domain.ListingEvent, error) {
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrAuthRequired
	}
	events := make([]domain.ListingEvent, 0)
	if err := s.DB.WithContext(ctx).
		Where("listing_id = ? AND category = ?", id, string(s.category)).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, &domain.FetchError{Op: "fetch listing events", Err: err}
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	if events[0].ActorID != sess.UserID {
		return nil, domain.ErrForbidden
	}
	return events, nil
}

func (s *Store[T]) recordEvent(tx *gorm.DB, listingID uuid.UUID, eventType, actorID string, data interface{}, at time.Time) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("Failed to encode listing event: %v", err)
	}
	ev := &domain.ListingEvent{
		ListingID: listingID,
		Category:  s.category,
		EventType: eventType,
		ActorID:   actorID,
		EventData: datatypes.JSON(payload),
		CreatedAt: at,
	}
	if err := tx.Create(ev).Error; err != nil {
		return &domain.FetchError{Op: "create listing event", Err: err}
	}
	return nil
}

// FlushCache moves the browse cache to a new generation and drops the old entry.
func (s *Store[T]) FlushCache(ctx context.Context) error {
	if !s.Cache.enabled() {
		return nil
	}
	gen, err := s.Cache.Bump(ctx, s.generationKey())
	if err != nil {
		return err
	}
	return s.Cache.Invalidate(ctx, s.activeKeyAt(gen-1))
}

func (s *Store[T]) afterMutation(ctx context.Context, op string) {
	if err := s.FlushCache(ctx); err != nil {
		log.Warn().Err(err).Str("category", string(s.category)).Msg("list cache invalidation failed")
	}
	s.Metrics.ListingMutation(string(s.category), op)
}
