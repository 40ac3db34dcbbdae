package photo

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"path/filepath"
	"strings"
	"testing"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/photos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	return buf.Bytes()
}

func newTestService(t *testing.T, cfg Config) *PhotoService {
	t.Helper()
	store, err := photos.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewPhotoService(store, cfg, zap.NewNop())
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"mario.jpg":             "mario.jpg",
		"../../etc/passwd":      "passwd",
		`C:\Users\mario\me.png`: "me.png",
		"my photo (1).jpg":      "my_photo_1.jpg",
		".hidden.png":           "hidden.png",
		"uploads/legacy.jpg":    "legacy.jpg",
		"foto\x00\x1fnull.jpeg": "fotonull.jpeg",
		"Niccolò.png":           "Niccol.png",
	}
	for in, want := range cases {
		got, err := SanitizeName(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	for _, bad := range []string{"", ".", "..", "/", "...", "\x00\x01", "àèì"} {
		_, err := SanitizeName(bad)
		assert.True(t, errors.Is(err, xerrors.ErrInvalidInput), "input %q", bad)
	}
}

func TestStoreAndResolve(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Config{})

	first := jpegBytes(t)
	ref, err := svc.Store(ctx, bytes.NewReader(first), "../mario.jpg")
	require.NoError(t, err)
	assert.Equal(t, "mario.jpg", ref)

	second := append(jpegBytes(t), 0)
	ref, err = svc.Store(ctx, bytes.NewReader(second), "mario.jpg")
	require.NoError(t, err)

	rc, obj, err := svc.Resolve(ctx, "uploads/"+ref)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Equal(t, "image/jpeg", obj.ContentType)
}

func TestStoreAddsDetectedExtension(t *testing.T) {
	svc := newTestService(t, Config{})
	ref, err := svc.Store(context.Background(), bytes.NewReader(jpegBytes(t)), "portrait")
	require.NoError(t, err)
	assert.Equal(t, "portrait.jpg", ref)
}

func TestStoreRejectsOversizedPhoto(t *testing.T) {
	svc := newTestService(t, Config{MaxBytes: 64})
	_, err := svc.Store(context.Background(), bytes.NewReader(jpegBytes(t)), "big.jpg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrPayloadTooLarge))
}

func TestStoreRejectsDisallowedType(t *testing.T) {
	svc := newTestService(t, Config{})

	_, err := svc.Store(context.Background(), strings.NewReader("#!/bin/sh\necho hi\n"), "evil.jpg")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	_, err = svc.Store(context.Background(), bytes.NewReader(nil), "empty.jpg")
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func TestResolveMissing(t *testing.T) {
	svc := newTestService(t, Config{})

	_, _, err := svc.Resolve(context.Background(), "nope.jpg")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	_, _, err = svc.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Config{})

	ref, err := svc.Store(ctx, bytes.NewReader(jpegBytes(t)), "gone.jpg")
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, ref))

	_, _, err = svc.Resolve(ctx, ref)
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("Mario Rossi", "IMG_0001.JPG")
	b := UniqueName("Mario Rossi", "IMG_0001.JPG")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "mario-rossi-"))
	assert.Equal(t, ".jpg", filepath.Ext(a))

	clean, err := SanitizeName(a)
	require.NoError(t, err)
	assert.Equal(t, a, clean)

	assert.True(t, strings.HasPrefix(UniqueName("???", "x"), "photo-"))
	assert.True(t, strings.HasPrefix(UniqueName("Иван Петров", "x.png"), "photo-"))
	assert.True(t, strings.HasPrefix(UniqueName("Łukasz Иван", "x.png"), "lukasz-"))
}
