// internal/service/photo/photo_service.go
package photo

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/photo"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	DefaultMaxBytes = 5 << 20
	maxNameLength   = 128
)

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type Config struct {
	MaxBytes     int64
	AllowedTypes []string
}

type PhotoService struct {
	store    photo.Store
	maxBytes int64
	allowed  []string
	logger   *zap.Logger
}

func NewPhotoService(store photo.Store, cfg Config, logger *zap.Logger) *PhotoService {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}
	return &PhotoService{
		store:    store,
		maxBytes: cfg.MaxBytes,
		allowed:  cfg.AllowedTypes,
		logger:   logger,
	}
}

// Store saves the bytes under a sanitized form of suggested and returns the
// reference. An existing photo with the same reference is replaced.
func (s *PhotoService) Store(ctx context.Context, r io.Reader, suggested string) (string, error) {
	ref, err := SanitizeName(suggested)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: photo is larger than %d bytes", xerrors.ErrPayloadTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return "", xerrors.Invalid("photo is empty")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), s.allowed...) {
		return "", xerrors.Invalid("photo type %s is not allowed", mt.String())
	}
	if filepath.Ext(ref) == "" {
		ref += mt.Extension()
	}

	if err := s.store.Put(ctx, ref, data, mt.String()); err != nil {
		s.logger.Error("failed to store photo", zap.String("ref", ref), zap.Error(err))
		return "", err
	}

	s.logger.Info("photo stored",
		zap.String("ref", ref),
		zap.String("content_type", mt.String()),
		zap.Int("size", len(data)),
	)
	return ref, nil
}

// Resolve opens a stored photo. Legacy references such as "uploads/a.jpg"
// resolve to their file name.
func (s *PhotoService) Resolve(ctx context.Context, ref string) (io.ReadCloser, *photo.Object, error) {
	name := NormalizeRef(ref)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: photo %q", xerrors.ErrNotFound, ref)
	}
	return s.store.Open(ctx, name)
}

// Remove deletes a photo. Failures are logged and returned; callers use it
// for best-effort cleanup.
func (s *PhotoService) Remove(ctx context.Context, ref string) error {
	name := NormalizeRef(ref)
	if name == "" {
		return nil
	}
	if err := s.store.Delete(ctx, name); err != nil {
		s.logger.Warn("failed to remove photo", zap.String("ref", name), zap.Error(err))
		return err
	}
	return nil
}

// UniqueName builds "<slug-of-owner>-<ulid><ext>" so concurrent uploads for
// different records never share a reference.
func UniqueName(owner, original string) string {
	base := strings.Trim(strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, address.Slugify(owner)), "-")
	if base == "" {
		base = "photo"
	}
	ext := ""
	if clean, err := SanitizeName("x" + strings.ToLower(filepath.Ext(original))); err == nil {
		ext = filepath.Ext(clean)
	}
	return base + "-" + strings.ToLower(ulid.Make().String()) + ext
}

// NormalizeRef strips any directory prefix from a stored reference.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if ref == "" {
		return ""
	}
	base := path.Base(ref)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

// SanitizeName reduces a client supplied file name to a safe flat name:
// directory components and control characters are dropped, whitespace turns
// into '_', and only ASCII letters, digits, '.', '_' and '-' survive.
func SanitizeName(name string) (string, error) {
	base := NormalizeRef(name)

	var b strings.Builder
	for _, r := range base {
		switch {
		case r < 0x20 || r == 0x7f:
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-'):
			b.WriteRune(r)
		}
	}

	out := strings.TrimLeft(b.String(), "._")
	if len(out) > maxNameLength {
		ext := filepath.Ext(out)
		if len(ext) > 16 {
			ext = ""
		}
		out = out[:maxNameLength-len(ext)] + ext
	}
	if out == "" || out == "." || out == ".." {
		return "", xerrors.Invalid("photo file name %q is not usable", name)
	}
	return out, nil
}
