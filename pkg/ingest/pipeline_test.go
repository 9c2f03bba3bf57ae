package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/Hedok25/photo-services/pkg/marketplace"
	"github.com/Hedok25/photo-services/pkg/shard"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// photoServer serves mutable byte payloads by path.
type photoServer struct {
	mu     sync.Mutex
	photos map[string][]byte
	server *httptest.Server
}

func newPhotoServer(t *testing.T) *photoServer {
	t.Helper()
	ps := &photoServer{photos: map[string][]byte{}}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		data, ok := ps.photos[r.URL.Path]
		ps.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(ps.server.Close)
	return ps
}

func (ps *photoServer) set(path string, data []byte) string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.photos[path] = data
	return ps.server.URL + path
}

type fixture struct {
	fs       afero.Fs
	store    store.MetadataStore
	pipeline *Pipeline
	photos   *photoServer
}

func newFixture(t *testing.T, metadata store.MetadataStore, opts Options, maxFiles int) *fixture {
	t.Helper()

	if metadata == nil {
		metadata = newTestStore(t)
	}

	photos := newPhotoServer(t)
	if opts.HTTPClient == nil {
		opts.HTTPClient = photos.server.Client()
	}

	fs := afero.NewBasePathFs(afero.NewMemMapFs(), "/images")
	require.NoError(t, fs.MkdirAll(".", 0755))

	logger := log.NewWriterLoggerService("test", config.LogServerConfig{Level: "ERROR"}, io.Discard)
	pipeline := NewPipeline(fs, shard.NewAllocator(fs, maxFiles), metadata, opts, logger)

	return &fixture{fs: fs, store: metadata, pipeline: pipeline, photos: photos}
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

func (f *fixture) files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, dir)
	if errors.Is(err, afero.ErrFileNotFound) {
		return nil
	}
	require.NoError(t, err)

	names := []string{}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (f *fixture) count(t *testing.T, query store.ImageQuery) int64 {
	t.Helper()
	n, err := f.store.CountImages(context.Background(), query)
	require.NoError(t, err)
	return n
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestPipeline_StoresNewPhotos(t *testing.T) {
	f := newFixture(t, nil, Options{}, 0)
	ctx := context.Background()

	front := []byte("front bytes")
	product := marketplace.Product{
		SKU: "WB-1",
		Photos: []string{
			f.photos.set("/img/front.png", front),
			f.photos.set("/img/back", []byte("back bytes")),
		},
	}

	result := f.pipeline.Ingest(ctx, product, "wb")
	assert.Equal(t, Result{Photos: 2, Inserted: 2}, result)
	assert.Len(t, f.files(t, "001"), 2)

	image, err := f.store.FindImage(ctx, store.ImageQuery{Source: "wb", SKU: "WB-1", Hash: digest(front)})
	require.NoError(t, err)
	assert.Equal(t, "front.png", image.OriginalName)
	assert.Equal(t, "image/png", image.MimeType)
	assert.Equal(t, int64(len(front)), image.FileSize)
	assert.Equal(t, "Photo for WB-1", image.Description)
	assert.Equal(t, "wb,WB-1", image.Tags)
	assert.True(t, image.IsPublic)
	require.NotNil(t, image.MarketplaceSKU)
	assert.Equal(t, "WB-1", *image.MarketplaceSKU)
	assert.Equal(t, "001/"+image.Filename, image.FilePath)
	assert.Regexp(t, `^wb_WB-1_\d+_[0-9a-f]{8}\.png$`, image.Filename)

	stored, err := afero.ReadFile(f.fs, image.FilePath)
	require.NoError(t, err)
	assert.Equal(t, front, stored)
}

func TestPipeline_IsIdempotent(t *testing.T) {
	f := newFixture(t, nil, Options{}, 0)
	ctx := context.Background()

	product := marketplace.Product{
		SKU: "OZ-7",
		Photos: []string{
			f.photos.set("/a.jpg", []byte("a")),
			f.photos.set("/b.jpg", []byte("b")),
		},
	}

	first := f.pipeline.Ingest(ctx, product, "ozon")
	second := f.pipeline.Ingest(ctx, product, "ozon")

	assert.Equal(t, Result{Photos: 2, Inserted: 2}, first)
	assert.Equal(t, Result{Photos: 2, Duplicates: 2}, second)
	assert.Equal(t, int64(2), f.count(t, store.ImageQuery{Source: "ozon", SKU: "OZ-7"}))
	assert.Len(t, f.files(t, "001"), 2)
}

func TestPipeline_ChangedPhotoAppendsRecord(t *testing.T) {
	f := newFixture(t, nil, Options{}, 0)
	ctx := context.Background()

	url := f.photos.set("/main.jpg", []byte("v1"))
	product := marketplace.Product{SKU: "S", Photos: []string{url}}

	require.Equal(t, 1, f.pipeline.Ingest(ctx, product, "wb").Inserted)

	f.photos.set("/main.jpg", []byte("v2"))
	require.Equal(t, 1, f.pipeline.Ingest(ctx, product, "wb").Inserted)

	assert.Equal(t, int64(2), f.count(t, store.ImageQuery{Source: "wb", SKU: "S"}))
	assert.Len(t, f.files(t, "001"), 2)

	latest, err := f.store.LatestImage(ctx, "wb", "S")
	require.NoError(t, err)
	assert.Equal(t, digest([]byte("v2")), latest.Hash)
}

func TestPipeline_DedupIsScopedBySourceAndSKU(t *testing.T) {
	f := newFixture(t, nil, Options{}, 0)
	ctx := context.Background()

	url := f.photos.set("/shared.jpg", []byte("same bytes"))

	assert.Equal(t, 1, f.pipeline.Ingest(ctx, marketplace.Product{SKU: "A", Photos: []string{url}}, "wb").Inserted)
	assert.Equal(t, 1, f.pipeline.Ingest(ctx, marketplace.Product{SKU: "B", Photos: []string{url}}, "wb").Inserted)
	assert.Equal(t, 1, f.pipeline.Ingest(ctx, marketplace.Product{SKU: "A", Photos: []string{url}}, "ozon").Inserted)

	assert.Equal(t, int64(3), f.count(t, store.ImageQuery{Hash: digest([]byte("same bytes"))}))
}

func TestPipeline_DownloadFailureIsIsolated(t *testing.T) {
	f := newFixture(t, nil, Options{}, 0)
	ctx := context.Background()

	product := marketplace.Product{
		SKU: "S",
		Photos: []string{
			f.photos.server.URL + "/missing.jpg",
			"",
			f.photos.set("/ok.jpg", []byte("ok")),
		},
	}

	result := f.pipeline.Ingest(ctx, product, "wb")
	assert.Equal(t, Result{Photos: 2, Inserted: 1, Failed: 1}, result)
	assert.Len(t, f.files(t, "001"), 1)
}

func TestPipeline_AcceptsAnySuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNonAuthoritativeInfo)
		_, _ = w.Write([]byte("cached bytes"))
	}))
	defer server.Close()

	f := newFixture(t, nil, Options{HTTPClient: server.Client()}, 0)

	product := marketplace.Product{SKU: "S", Photos: []string{server.URL + "/cdn.jpg"}}

	result := f.pipeline.Ingest(context.Background(), product, "wb")
	assert.Equal(t, Result{Photos: 1, Inserted: 1}, result)
	assert.Equal(t, int64(1), f.count(t, store.ImageQuery{Hash: digest([]byte("cached bytes"))}))
}

func TestPipeline_OversizedDownloadLeavesNoFile(t *testing.T) {
	f := newFixture(t, nil, Options{MaxDownloadSize: 4}, 0)

	product := marketplace.Product{SKU: "S", Photos: []string{f.photos.set("/big.jpg", []byte("0123456789"))}}

	result := f.pipeline.Ingest(context.Background(), product, "wb")
	assert.Equal(t, Result{Photos: 1, Failed: 1}, result)
	assert.Empty(t, f.files(t, "001"))
	assert.Zero(t, f.count(t, store.ImageQuery{}))
}

type failingInsertStore struct {
	store.MetadataStore
}

func (failingInsertStore) CreateImage(context.Context, *models.Image) error {
	return errors.New("disk full")
}

func TestPipeline_InsertFailureRemovesFile(t *testing.T) {
	f := newFixture(t, failingInsertStore{MetadataStore: newTestStore(t)}, Options{}, 0)

	product := marketplace.Product{SKU: "S", Photos: []string{f.photos.set("/a.jpg", []byte("a"))}}

	result := f.pipeline.Ingest(context.Background(), product, "wb")
	assert.Equal(t, Result{Photos: 1, Failed: 1}, result)
	assert.Empty(t, f.files(t, "001"))
}

func TestPipeline_RollsOverFullShard(t *testing.T) {
	f := newFixture(t, nil, Options{}, 2)

	product := marketplace.Product{
		SKU: "S",
		Photos: []string{
			f.photos.set("/1.jpg", []byte("1")),
			f.photos.set("/2.jpg", []byte("2")),
			f.photos.set("/3.jpg", []byte("3")),
		},
	}

	result := f.pipeline.Ingest(context.Background(), product, "wb")
	assert.Equal(t, 3, result.Inserted)
	assert.Len(t, f.files(t, "001"), 2)
	assert.Len(t, f.files(t, "002"), 1)
}

type recordingReplica struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (r *recordingReplica) Put(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if r.err != nil {
		return r.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[key] = buf.Bytes()
	return nil
}

func TestPipeline_ReplicatesInsertedPhotos(t *testing.T) {
	replica := &recordingReplica{objects: map[string][]byte{}}
	f := newFixture(t, nil, Options{Replica: replica}, 0)
	ctx := context.Background()

	product := marketplace.Product{SKU: "S", Photos: []string{f.photos.set("/a.jpg", []byte("a"))}}

	require.Equal(t, 1, f.pipeline.Ingest(ctx, product, "wb").Inserted)
	require.Equal(t, 1, f.pipeline.Ingest(ctx, product, "wb").Duplicates)

	image, err := f.store.LatestImage(ctx, "wb", "S")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{image.FilePath: []byte("a")}, replica.objects)
}

func TestPipeline_ReplicaFailureKeepsRecord(t *testing.T) {
	replica := &recordingReplica{err: errors.New("bucket gone")}
	f := newFixture(t, nil, Options{Replica: replica}, 0)

	product := marketplace.Product{SKU: "S", Photos: []string{f.photos.set("/a.jpg", []byte("a"))}}

	result := f.pipeline.Ingest(context.Background(), product, "wb")
	assert.Equal(t, 1, result.Inserted)
	assert.Len(t, f.files(t, "001"), 1)
}

func TestResult_Add(t *testing.T) {
	total := Result{Photos: 1, Inserted: 1}
	total.Add(Result{Photos: 3, Duplicates: 2, Failed: 1})
	assert.Equal(t, Result{Photos: 4, Inserted: 1, Duplicates: 2, Failed: 1}, total)
}
