package agent

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/jsonfile"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/photos"
	photosvc "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []agent.ChangeEvent
}

func (p *recordingPublisher) AgentChanged(e agent.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

type fixture struct {
	svc       *AgentService
	uploadDir string
	events    *recordingPublisher
}

func newFixture(t *testing.T, scheme address.Scheme) *fixture {
	t.Helper()
	dir := t.TempDir()

	repo, err := jsonfile.NewAgentRepository(filepath.Join(dir, "agents.json"), scheme)
	require.NoError(t, err)

	uploadDir := filepath.Join(dir, "uploads")
	store, err := photos.NewLocalStore(uploadDir)
	require.NoError(t, err)

	svc := NewAgentService(repo, scheme, photosvc.NewPhotoService(store, photosvc.Config{}, zap.NewNop()), zap.NewNop())
	events := &recordingPublisher{}
	svc.SetPublisher(events)
	return &fixture{svc: svc, uploadDir: uploadDir, events: events}
}

func pngUpload(t *testing.T, filename string) *agent.PhotoUpload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return &agent.PhotoUpload{Filename: filename, Content: &buf}
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateWithPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	created, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario Rossi", Phone: "+39 333 0000000"}, pngUpload(t, "me.PNG"))
	require.NoError(t, err)
	assert.Equal(t, "mario-rossi", created.Address)
	require.NotEmpty(t, created.Photo)
	assert.Equal(t, ".png", filepath.Ext(created.Photo))

	assert.Equal(t, []string{created.Photo}, uploadedFiles(t, f.uploadDir))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, agent.ChangeCreated, f.events.events[0].Kind)
	assert.Equal(t, "mario-rossi", f.events.events[0].Address)
}

func TestCreateConflictRemovesUploadedPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario Rossi"}, nil)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario  Rossi"}, pngUpload(t, "dup.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrConflict))
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
	assert.Len(t, f.events.events, 1)
}

func TestCreateRejectsBadPhotoBeforeRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	upload := &agent.PhotoUpload{Filename: "notes.txt", Content: bytes.NewBufferString("plain text")}
	_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario Rossi"}, upload)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
}

func TestCreateRequiresName(t *testing.T) {
	f := newFixture(t, address.Slug{})
	_, err := f.svc.Create(context.Background(), &agent.CreateAgentRequest{Name: "  "}, pngUpload(t, "x.png"))
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
}

func TestUpdatePartialWithPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{
		Name:   "Mario Rossi",
		Phone:  "+39 333 0000000",
		Social: map[string]string{"instagram": "mario"},
	}, nil)
	require.NoError(t, err)

	email := "mario@example.com"
	updated, err := f.svc.Update(ctx, "mario-rossi", &agent.UpdateAgentRequest{Email: &email}, pngUpload(t, "new.png"))
	require.NoError(t, err)

	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "+39 333 0000000", updated.Phone)
	assert.Equal(t, "mario", updated.Social["instagram"])
	assert.NotEmpty(t, updated.Photo)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, agent.ChangeUpdated, f.events.events[1].Kind)
}

func TestUpdateNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	_, err := f.svc.Update(ctx, "mario-rossi", &agent.UpdateAgentRequest{}, nil)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	name := "X"
	_, err = f.svc.Update(ctx, "ghost", &agent.UpdateAgentRequest{Name: &name}, pngUpload(t, "g.png"))
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, address.Slug{})
	_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario Rossi"}, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "mario-rossi"))
	_, err = f.svc.Get(ctx, "mario-rossi")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
	assert.Equal(t, agent.ChangeDeleted, f.events.events[len(f.events.events)-1].Kind)

	positional := newFixture(t, address.Positional{})
	_, err = positional.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Anna"}, nil)
	require.NoError(t, err)
	err = positional.svc.Delete(ctx, "0")
	assert.True(t, errors.Is(err, xerrors.ErrConflict))
}

func TestCheckAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Slug{})

	_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: "Mario Rossi"}, nil)
	require.NoError(t, err)

	got, err := f.svc.CheckAddress(ctx, "mario-rossi", "")
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.NotEmpty(t, got.Reason)

	got, err = f.svc.CheckAddress(ctx, "", "Lucia Bianchi")
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.Equal(t, "lucia-bianchi", got.Address)

	got, err = f.svc.CheckAddress(ctx, "Not A Slug", "")
	require.NoError(t, err)
	assert.False(t, got.Available)
}

func TestListReportsScheme(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, address.Positional{})

	for _, name := range []string{"Anna", "Bruno"} {
		_, err := f.svc.Create(ctx, &agent.CreateAgentRequest{Name: name}, nil)
		require.NoError(t, err)
	}

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, address.SchemePositional, list.Scheme)
	assert.Equal(t, "Bruno", list.Agents[1].Name)
	assert.Equal(t, "1", list.Agents[1].Address)
	assert.Empty(t, list.Agents[1].URL)

	f.svc.SetCardURL(func(addr string) string { return "https://cards.test/card/" + addr })
	list, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cards.test/card/0", list.Agents[0].URL)
}
