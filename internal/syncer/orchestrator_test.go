package syncer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/ingest"
	"github.com/Hedok25/photo-services/pkg/lock"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/Hedok25/photo-services/pkg/marketplace"
	"github.com/Hedok25/photo-services/pkg/shard"
	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	source   string
	products []marketplace.Product
	err      error
	panics   bool
	calls    atomic.Int32
}

func (c *fakeClient) Source() string {
	return c.source
}

func (c *fakeClient) Fetch(context.Context) ([]marketplace.Product, error) {
	c.calls.Add(1)
	if c.panics {
		panic("catalog exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.products, nil
}

func newTestLogger() log.LoggerService {
	return log.NewWriterLoggerService("test", config.LogServerConfig{Level: "ERROR"}, io.Discard)
}

func newTestStore(t *testing.T) *store.GormStore {
	t.Helper()

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "photos.db")})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("bytes of " + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestPipeline(t *testing.T, metadata store.MetadataStore, server *httptest.Server) *ingest.Pipeline {
	t.Helper()
	fs := afero.NewBasePathFs(afero.NewMemMapFs(), "/images")
	require.NoError(t, fs.MkdirAll(".", 0755))
	return ingest.NewPipeline(fs, shard.NewAllocator(fs, 0), metadata, ingest.Options{HTTPClient: server.Client()}, newTestLogger())
}

func runsBySource(t *testing.T, metadata store.MetadataStore) map[string]models.SyncRun {
	t.Helper()
	runs, err := metadata.ListSyncRuns(context.Background(), 0)
	require.NoError(t, err)

	bySource := map[string]models.SyncRun{}
	for _, run := range runs {
		bySource[run.Source] = run
	}
	return bySource
}

func TestOrchestrator_ExampleScenario(t *testing.T) {
	metadata := newTestStore(t)
	server := newImageServer(t)
	ctx := context.Background()

	wb := &fakeClient{source: "wb", products: []marketplace.Product{
		{SKU: "wb-sku-1", Photos: []string{server.URL + "/wb/1.jpg"}},
	}}
	orchestrator := NewOrchestrator([]marketplace.Client{wb}, newTestPipeline(t, metadata, server), metadata, nil, newTestLogger())

	orchestrator.RunSync(ctx)
	orchestrator.RunSync(ctx)

	count, err := metadata.CountImages(ctx, store.ImageQuery{Source: "wb", SKU: "wb-sku-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	runs, err := metadata.ListSyncRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest := runs[0]
	assert.Equal(t, models.SyncStatusSuccess, latest.Status)
	assert.Equal(t, 1, latest.Products)
	assert.Equal(t, 1, latest.Duplicates)
	assert.Zero(t, latest.Inserted)
	assert.NotNil(t, latest.FinishedAt)
	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)
	assert.Equal(t, 1, runs[1].Inserted)
}

func TestOrchestrator_SourcesAreIsolated(t *testing.T) {
	metadata := newTestStore(t)
	server := newImageServer(t)
	ctx := context.Background()

	good := &fakeClient{source: "wb", products: []marketplace.Product{
		{SKU: "a", Photos: []string{server.URL + "/a.jpg", server.URL + "/b.jpg"}},
	}}
	broken := &fakeClient{source: "ozon", err: &marketplace.StatusError{Code: http.StatusInternalServerError, URL: "x"}}
	panicking := &fakeClient{source: "shop", panics: true}

	orchestrator := NewOrchestrator(
		[]marketplace.Client{broken, good, panicking},
		newTestPipeline(t, metadata, server),
		metadata, nil, newTestLogger())

	orchestrator.RunSync(ctx)

	count, err := metadata.CountImages(ctx, store.ImageQuery{Source: "wb"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	runs := runsBySource(t, metadata)
	require.Len(t, runs, 3)
	assert.Equal(t, models.SyncStatusSuccess, runs["wb"].Status)
	assert.Equal(t, 2, runs["wb"].Inserted)
	assert.Equal(t, models.SyncStatusFailed, runs["ozon"].Status)
	assert.Contains(t, runs["ozon"].LastError, "500")
	assert.Equal(t, models.SyncStatusFailed, runs["shop"].Status)
	assert.Contains(t, runs["shop"].LastError, "catalog exploded")
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context) (lock.Release, error) {
	return nil, lock.ErrLocked
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context) (lock.Release, error) {
	return nil, errors.New("redis unreachable")
}

func TestOrchestrator_SkipsWhenLocked(t *testing.T) {
	for name, locker := range map[string]lock.Locker{"held": heldLocker{}, "broken": brokenLocker{}} {
		t.Run(name, func(t *testing.T) {
			metadata := newTestStore(t)
			client := &fakeClient{source: "wb"}

			orchestrator := NewOrchestrator([]marketplace.Client{client}, nil, metadata, locker, newTestLogger())
			orchestrator.RunSync(context.Background())

			assert.Zero(t, client.calls.Load())
			assert.Empty(t, runsBySource(t, metadata))
		})
	}
}

// blockingClient holds the first pass open until released.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (c *blockingClient) Source() string {
	return "wb"
}

func (c *blockingClient) Fetch(context.Context) ([]marketplace.Product, error) {
	if c.calls.Add(1) == 1 {
		close(c.started)
		<-c.release
	}
	return nil, nil
}

func TestOrchestrator_OverlappingPassIsSkipped(t *testing.T) {
	metadata := newTestStore(t)
	client := &blockingClient{started: make(chan struct{}), release: make(chan struct{})}
	orchestrator := NewOrchestrator([]marketplace.Client{client}, nil, metadata, nil, newTestLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.RunSync(context.Background())
	}()

	<-client.started
	orchestrator.RunSync(context.Background())
	close(client.release)
	<-done

	assert.Equal(t, int32(1), client.calls.Load())

	orchestrator.RunSync(context.Background())
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestNewWithFs(t *testing.T) {
	redis := miniredis.RunT(t)
	metadata := newTestStore(t)

	cfg := config.GetServerDefault()
	cfg.Storage.Root = "/data/images"
	cfg.Sync.Lock.Redis = true
	cfg.Sync.Lock.Addr = redis.Addr()
	cfg.Marketplaces.WB.Enabled = true
	cfg.Marketplaces.WB.APIKey = "key"

	base := afero.NewMemMapFs()
	orchestrator, err := NewWithFs(context.Background(), &cfg, base, metadata, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = orchestrator.Close() })

	exists, err := afero.DirExists(base, "/data/images")
	require.NoError(t, err)
	assert.True(t, exists)
	require.Len(t, orchestrator.clients, 1)
	assert.Equal(t, "wb", orchestrator.clients[0].Source())
	assert.Len(t, orchestrator.locker.(lock.Chain), 2)
}

func TestNewWithFs_LocalLockOnly(t *testing.T) {
	metadata := newTestStore(t)

	cfg := config.GetServerDefault()
	cfg.Sync.Lock.Redis = false

	orchestrator, err := NewWithFs(context.Background(), &cfg, afero.NewMemMapFs(), metadata, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = orchestrator.Close() })

	assert.Len(t, orchestrator.locker.(lock.Chain), 1)
	assert.Empty(t, orchestrator.closers)
}

func TestNewWithFs_InvalidDurations(t *testing.T) {
	metadata := newTestStore(t)

	cfg := config.GetServerDefault()
	cfg.Sync.DownloadTimeout = "later"

	_, err := NewWithFs(context.Background(), &cfg, afero.NewMemMapFs(), metadata, newTestLogger())
	assert.ErrorContains(t, err, "download_timeout")
}
