package uploads

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"findonlu-backend/internal/domain"
	"findonlu-backend/internal/pkg/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ObjectStore is what we need from Supabase Storage.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, data []byte, userToken string) error
	PublicURL(bucket, key string) string
}

// Service uploads listing images to a public bucket.
type Service struct {
	Store    ObjectStore
	Bucket   string
	MaxBytes int64
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Result is returned for a stored image. Warnings are advisory and never block the upload.
type Result struct {
	Key       string   `json:"key"`
	PublicURL string   `json:"public_url"`
	Warnings  []string `json:"warnings,omitempty"`
}

var rasterTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/avif": true,
	"image/heic": true,
	"image/heif": true,
	"image/tiff": true,
}

// Upload stores data under a fresh key and returns its public URL.
// Any failure is a *domain.UploadError.
func (s *Service) Upload(ctx context.Context, sess *domain.Session, data []byte, originalName string) (*Result, error) {
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrAuthRequired
	}
	if len(data) == 0 {
		return nil, &domain.UploadError{Err: fmt.Errorf("empty file")}
	}

	mt := mimetype.Detect(data)
	var warnings []string
	if !rasterTypes[mt.String()] {
		warnings = append(warnings, fmt.Sprintf("%s does not look like an image (%s)", displayName(originalName), mt.String()))
	}
	if s.MaxBytes > 0 && int64(len(data)) > s.MaxBytes {
		warnings = append(warnings, fmt.Sprintf("image is %d bytes, above the %d byte limit", len(data), s.MaxBytes))
	}

	key := s.objectKey(originalName, mt)
	if err := s.Store.Upload(ctx, s.Bucket, key, mt.String(), data, sess.AccessToken); err != nil {
		s.Metrics.UploadFailed()
		log.Warn().Err(err).Str("bucket", s.Bucket).Str("key", key).Msg("image upload failed")
		return nil, &domain.UploadError{Err: err}
	}
	log.Info().Str("bucket", s.Bucket).Str("key", key).Str("user_id", sess.UserID).Msg("image uploaded")
	return &Result{Key: key, PublicURL: s.Store.PublicURL(s.Bucket, key), Warnings: warnings}, nil
}

// objectKey is <random token>-<unix millis><ext>; the extension comes from the original
// name, or from the sniffed type when the name has none.
func (s *Service) objectKey(originalName string, mt *mimetype.MIME) string {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" || ext == "." {
		ext = mt.Extension()
	}
	return fmt.Sprintf("%s-%d%s", uuid.NewString(), now.UnixMilli(), ext)
}

func displayName(name string) string {
	if name == "" {
		return "file"
	}
	return filepath.Base(name)
}
