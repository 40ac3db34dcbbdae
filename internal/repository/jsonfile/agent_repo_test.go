package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	xerrors "github.com/gidl59/pay4you-cards-luxury4/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, scheme address.Scheme) *AgentRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	repo, err := NewAgentRepository(path, scheme)
	require.NoError(t, err)
	return repo
}

func mario() *agent.Agent {
	return &agent.Agent{
		Name:         "Mario Rossi",
		Phone:        "+39 333 0000000",
		WhatsApp:     "+393330000000",
		Social:       map[string]string{"instagram": "mario.rossi"},
		AddressLines: []string{"Via Roma 1", "00100 Roma"},
		Extra:        map[string]string{agent.ExtraRole: "Consulente", agent.ExtraCompany: "Pay4You"},
	}
}

func TestNewAgentRepositoryCreatesDocument(t *testing.T) {
	repo := newTestRepo(t, address.Slug{})

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	positional := newTestRepo(t, address.Positional{})
	data, err = os.ReadFile(positional.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCreateThenGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	created, err := repo.Create(ctx, mario())
	require.NoError(t, err)
	assert.Equal(t, "mario-rossi", created.Address)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", got.Name)
	assert.Equal(t, "+39 333 0000000", got.Phone)
	assert.Equal(t, "+393330000000", got.WhatsApp)
	assert.Empty(t, got.Email)
	assert.Equal(t, map[string]string{"instagram": "mario.rossi"}, got.Social)
	assert.Equal(t, []string{"Via Roma 1", "00100 Roma"}, got.AddressLines)
	assert.Equal(t, "Consulente", got.Role())
	assert.Equal(t, "Pay4You", got.Company())
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateRequiresName(t *testing.T) {
	repo := newTestRepo(t, address.Slug{})

	_, err := repo.Create(context.Background(), &agent.Agent{Name: "   ", Phone: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))
}

func TestCreateSlugCollision(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	_, err := repo.Create(ctx, mario())
	require.NoError(t, err)

	dup := mario()
	dup.Name = "MARIO rossi"
	dup.Phone = "+39 000"
	_, err = repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrConflict))

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, "+39 333 0000000", got.Phone)
	assert.Equal(t, "Mario Rossi", got.Name)
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()

	repo := newTestRepo(t, address.Slug{})
	_, err := repo.Get(ctx, "nobody")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	positional := newTestRepo(t, address.Positional{})
	_, err = positional.Create(ctx, mario())
	require.NoError(t, err)

	for _, addr := range []string{"1", "-1", "abc", "00"} {
		_, err = positional.Get(ctx, addr)
		assert.True(t, errors.Is(err, xerrors.ErrNotFound), "address %q", addr)
	}
}

func TestPositionalCreateAndDeleteRefused(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Positional{})

	for i, name := range []string{"Anna", "Bruno", "Carla"} {
		a, err := repo.Create(ctx, &agent.Agent{Name: name})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), a.Address)
	}

	err := repo.Delete(ctx, "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrConflict))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Carla", list[2].Name)
	assert.Equal(t, "2", list[2].Address)

	err = repo.Delete(ctx, "9")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestSlugDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	_, err := repo.Create(ctx, mario())
	require.NoError(t, err)
	_, err = repo.Create(ctx, &agent.Agent{Name: "Lucia Bianchi"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "mario-rossi"))

	_, err = repo.Get(ctx, "mario-rossi")
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))

	got, err := repo.Get(ctx, "lucia-bianchi")
	require.NoError(t, err)
	assert.Equal(t, "Lucia Bianchi", got.Name)

	assert.True(t, errors.Is(repo.Delete(ctx, "mario-rossi"), xerrors.ErrNotFound))
}

func TestPartialUpdateKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	created, err := repo.Create(ctx, mario())
	require.NoError(t, err)

	email := "mario@example.com"
	name := "Mario Rossi Jr"
	req := &agent.UpdateAgentRequest{
		Email: &email,
		Name:  &name,
		Extra: map[string]string{agent.ExtraRole: ""},
	}
	updated, err := repo.Update(ctx, "mario-rossi", func(a *agent.Agent) error {
		req.Apply(a)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "mario-rossi", updated.Address)
	assert.Equal(t, "Mario Rossi Jr", updated.Name)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "+39 333 0000000", updated.Phone)
	assert.Equal(t, map[string]string{"instagram": "mario.rossi"}, updated.Social)
	assert.Empty(t, updated.Role())
	assert.Equal(t, "Pay4You", updated.Company())
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, updated.Name, got.Name)
	assert.Equal(t, updated.Email, got.Email)
}

func TestUpdateRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})
	_, err := repo.Create(ctx, mario())
	require.NoError(t, err)

	_, err = repo.Update(ctx, "mario-rossi", func(a *agent.Agent) error {
		a.Name = " "
		return nil
	})
	assert.True(t, errors.Is(err, xerrors.ErrInvalidInput))

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", got.Name)
}

func TestUpdateMissing(t *testing.T) {
	repo := newTestRepo(t, address.Slug{})
	_, err := repo.Update(context.Background(), "ghost", func(*agent.Agent) error { return nil })
	assert.True(t, errors.Is(err, xerrors.ErrNotFound))
}

func TestUpdateMutatorErrorLeavesRecord(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})
	_, err := repo.Create(ctx, mario())
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, "mario-rossi", func(a *agent.Agent) error {
		a.Phone = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, "+39 333 0000000", got.Phone)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &agent.Agent{Name: fmt.Sprintf("Agent %d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestConcurrentPositionalCreatesGetDistinctIndexes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Positional{})

	const n = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := repo.Create(ctx, &agent.Agent{Name: fmt.Sprintf("Agent %d", i)})
			if assert.NoError(t, err) {
				mu.Lock()
				seen[a.Address] = true
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprint(i)], "index %d", i)
	}
}

func TestLegacyArrayDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agents.json")
	legacy := `[
    {
        "name": "Mario Rossi",
        "phone": "+39 333 0000000",
        "whatsapp": null,
        "email": "",
        "gallery": "https://example.com/gallery",
        "photo": "uploads/mario.jpg"
    }
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	t.Run("positional", func(t *testing.T) {
		repo, err := NewAgentRepository(path, address.Positional{})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "0")
		require.NoError(t, err)
		assert.Equal(t, "Mario Rossi", got.Name)
		assert.Empty(t, got.WhatsApp)
		assert.Equal(t, "uploads/mario.jpg", got.Photo)
		assert.Equal(t, "https://example.com/gallery", got.Extra[agent.ExtraGallery])
	})

	t.Run("slug store keeps index addresses", func(t *testing.T) {
		repo, err := NewAgentRepository(path, address.Slug{})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "0")
		require.NoError(t, err)
		assert.Equal(t, "Mario Rossi", got.Name)

		_, err = repo.Create(ctx, &agent.Agent{Name: "Lucia Bianchi"})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Contains(t, doc, "0")
		assert.Contains(t, doc, "lucia-bianchi")
	})
}

func TestRejectsNonStringUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"X","rating":5}]`), 0o644))

	_, err := NewAgentRepository(path, address.Positional{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrStorage))
	assert.Contains(t, err.Error(), "rating")
}

func TestFailedWriteLeavesPriorDocument(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.json")
	repo, err := NewAgentRepository(path, address.Slug{})
	require.NoError(t, err)
	_, err = repo.Create(ctx, mario())
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	_, err = repo.Create(ctx, &agent.Agent{Name: "Lucia Bianchi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, xerrors.ErrStorage))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdatedAtMovesForward(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	created, err := repo.Create(ctx, mario())
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.Address, nil)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestDocumentKeepsMarkupLiteral(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, address.Slug{})

	rec := mario()
	rec.Website = "https://example.com/?a=1&b=<2>"
	rec.Extra[agent.ExtraCompany] = "Rossi & Figli <Roma>"
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, `"website": "https://example.com/?a=1&b=<2>"`)
	assert.Contains(t, doc, `"company": "Rossi & Figli <Roma>"`)
	assert.NotContains(t, doc, `\u0026`)
	assert.NotContains(t, doc, `\u003c`)

	got, err := repo.Get(ctx, "mario-rossi")
	require.NoError(t, err)
	assert.Equal(t, "Rossi & Figli <Roma>", got.Company())
}

func TestCanceledContext(t *testing.T) {
	repo := newTestRepo(t, address.Slug{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
