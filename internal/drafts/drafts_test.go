package drafts

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowbridge/internal/graphstore"
	"github.com/vk/flowbridge/internal/workflow"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "", ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStores(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			s, _ := newRedisStore(t, 0)
			return s
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			// --- Arrange ---
			ctx := context.Background()
			s := newStore(t)

			// --- Act ---
			require.NoError(t, s.Save(ctx, "b", []byte(`{"v":1}`)))
			require.NoError(t, s.Save(ctx, "a", []byte(`{"v":2}`)))
			require.NoError(t, s.Save(ctx, "b", []byte(`{"v":3}`)))

			// --- Assert ---
			data, err := s.Load(ctx, "b")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":3}`, string(data))

			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids)

			require.NoError(t, s.Delete(ctx, "a"))
			_, err = s.Load(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NoError(t, s.Delete(ctx, "missing"))
		})
	}
}

func TestRedisStore_KeysAndExpiry(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "wf", []byte("{}")))

	assert.True(t, mr.Exists(DefaultKeyPrefix+"wf"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultKeyPrefix+"wf"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "wf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore_FailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisOptions{Addr: "127.0.0.1:1"})

	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestAutosaver_SavesOnlyOnChange(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	src := graphstore.New()
	store := NewMemoryStore()
	a := NewAutosaver(src, store, time.Hour, nil)

	// --- Act & Assert ---
	saved, err := a.SaveNow(ctx)
	require.NoError(t, err)
	assert.True(t, saved, "the first save always writes")

	saved, err = a.SaveNow(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "unchanged documents are not rewritten")

	src.AddNode(workflow.KindOpenPage, workflow.Position{X: 10, Y: 20})
	saved, err = a.SaveNow(ctx)
	require.NoError(t, err)
	assert.True(t, saved)

	data, err := store.Load(ctx, src.ID())
	require.NoError(t, err)
	doc, err := workflow.DecodeDocument(data)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 1)
}

func TestAutosaver_RunSavesOnShutdown(t *testing.T) {
	src := graphstore.New()
	store := NewMemoryStore()
	a := NewAutosaver(src, store, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	src.AddNode(workflow.KindWait, workflow.Position{})
	cancel()
	<-done

	_, err := store.Load(context.Background(), src.ID())
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	store := NewMemoryStore()
	src := graphstore.New()
	src.SetName("draft")
	src.AddNode(workflow.KindWait, workflow.Position{})
	data, err := src.Export()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, src.ID(), data))
	require.NoError(t, store.Save(ctx, "broken", []byte(`{"name":"x"}`)))

	// --- Act ---
	dst := graphstore.New()
	ok, err := Restore(ctx, store, src.ID(), dst)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "draft", dst.Name())
	assert.Len(t, dst.Nodes(), 1)

	ok, err = Restore(ctx, store, "nothing", dst)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = Restore(ctx, store, "broken", dst)
	assert.Error(t, err)
}
