package photos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeS3 speaks just enough path-style S3 for PutObject, GetObject and
// DeleteObject.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[key] = fakeObject{data: data, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write(obj.data)

	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]fakeObject)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Store(S3Config{
		Bucket:    "cards",
		Region:    "eu-south-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		PathStyle: true,
		Prefix:    "uploads/",
	})
	require.NoError(t, err)
	return store, fake
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeS3Store(t)

	first := pngBytes(t, 30)
	second := pngBytes(t, 90)
	require.NoError(t, store.Put(ctx, "mario.png", first, "image/png"))
	require.NoError(t, store.Put(ctx, "mario.png", second, "image/png"))

	fake.mu.Lock()
	_, stored := fake.objects["cards/uploads/mario.png"]
	fake.mu.Unlock()
	assert.True(t, stored)

	rc, obj, err := store.Open(ctx, "mario.png")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second, got)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.EqualValues(t, len(second), obj.Size)
}

func TestS3StoreMissing(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeS3Store(t)

	_, _, err := store.Open(ctx, "ghost.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	require.NoError(t, store.Put(ctx, "x.png", pngBytes(t, 1), "image/png"))
	require.NoError(t, store.Delete(ctx, "x.png"))
	_, _, err = store.Open(ctx, "x.png")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.Error(t, err)
}
