// Package ingest downloads marketplace photos into sharded storage and
// records every previously unseen (source, sku, hash) combination.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/db/store"
	"github.com/Hedok25/photo-services/pkg/log"
	"github.com/Hedok25/photo-services/pkg/marketplace"
	"github.com/Hedok25/photo-services/pkg/replica"
	"github.com/Hedok25/photo-services/pkg/shard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

const (
	defaultTimeout = 60 * time.Second
	defaultMaxSize = 32 * 1024 * 1024
)

// Options tune downloads. Zero values fall back to defaults.
type Options struct {
	MaxDownloadSize int64
	DownloadTimeout time.Duration
	HTTPClient      *http.Client
	// Replica receives a copy of every inserted file when set.
	Replica replica.Replica
}

// Result counts what happened to the photos of one product.
type Result struct {
	Photos     int
	Inserted   int
	Duplicates int
	Failed     int
}

func (r *Result) Add(other Result) {
	r.Photos += other.Photos
	r.Inserted += other.Inserted
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
}

type outcome int

const (
	inserted outcome = iota
	duplicate
)

// Pipeline ingests products. It is safe for concurrent use by several
// sources when they share one allocator.
type Pipeline struct {
	fs        afero.Fs
	allocator *shard.Allocator
	store     store.MetadataStore
	replica   replica.Replica
	client    *http.Client
	timeout   time.Duration
	maxSize   int64
	log       log.LoggerService

	now    func() time.Time
	suffix func() (string, error)
}

// NewPipeline writes files to fs, which must be the images root that
// allocator manages.
func NewPipeline(fs afero.Fs, allocator *shard.Allocator, metadata store.MetadataStore, opts Options, logger log.LoggerService) *Pipeline {
	timeout := opts.DownloadTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxSize := opts.MaxDownloadSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Pipeline{
		fs:        fs,
		allocator: allocator,
		store:     metadata,
		replica:   opts.Replica,
		client:    client,
		timeout:   timeout,
		maxSize:   maxSize,
		log:       logger,
		now:       time.Now,
		suffix:    randomSuffix,
	}
}

// Ingest processes the photos of product in order. Failures are logged and
// counted; they never stop the remaining photos.
func (p *Pipeline) Ingest(ctx context.Context, product marketplace.Product, source string) Result {
	var result Result

	for _, url := range product.Photos {
		if url == "" {
			continue
		}
		result.Photos++

		out, err := p.ingestPhoto(ctx, product.SKU, source, url)
		if err != nil {
			p.log.Error("Failed to ingest photo %s for %s: %v", url, product.SKU, err)
			result.Failed++
			continue
		}

		switch out {
		case inserted:
			result.Inserted++
		case duplicate:
			result.Duplicates++
		}
	}

	return result
}

func (p *Pipeline) ingestPhoto(ctx context.Context, sku, source, url string) (outcome, error) {
	name, err := newPhotoName(source, sku, url, p.now(), p.suffix)
	if err != nil {
		return 0, err
	}

	target, err := p.allocator.Allocate()
	if err != nil {
		return 0, fmt.Errorf("allocate shard: %w", err)
	}
	filePath := target.File(name.Filename)

	size, hash, err := p.download(ctx, url, filePath)
	if err != nil {
		return 0, err
	}

	existing, err := p.store.FindImage(ctx, store.ImageQuery{Source: source, SKU: sku, Hash: hash})
	switch {
	case err == nil:
		p.remove(filePath)
		p.log.Debug("Photo for %s (%s) unchanged, kept %s", sku, hash[:7], existing.Filename)
		return duplicate, nil
	case !errors.Is(err, store.ErrNotFound):
		p.remove(filePath)
		return 0, fmt.Errorf("lookup hash: %w", err)
	}

	state := "new"
	if _, err := p.store.LatestImage(ctx, source, sku); err == nil {
		state = "changed"
	} else if !errors.Is(err, store.ErrNotFound) {
		p.log.Warn("Failed to look up previous photo for %s: %v", sku, err)
	}

	skuValue := sku
	image := &models.Image{
		Filename:       name.Filename,
		OriginalName:   name.OriginalName,
		FilePath:       filePath,
		FileSize:       size,
		MimeType:       mimeType(name.Ext),
		Description:    fmt.Sprintf("Photo for %s", sku),
		Tags:           fmt.Sprintf("%s,%s", source, sku),
		IsPublic:       true,
		Source:         source,
		MarketplaceSKU: &skuValue,
		Hash:           hash,
	}

	if err := p.store.CreateImage(ctx, image); err != nil {
		p.remove(filePath)
		return 0, fmt.Errorf("insert record: %w", err)
	}

	p.log.Info("Stored %s photo for %s: %s (%s)", state, sku, filePath, humanize.Bytes(uint64(size)))
	p.replicate(ctx, image)

	return inserted, nil
}

func (p *Pipeline) replicate(ctx context.Context, image *models.Image) {
	if p.replica == nil {
		return
	}

	file, err := p.fs.Open(image.FilePath)
	if err != nil {
		p.log.Warn("Failed to open %s for replication: %v", image.FilePath, err)
		return
	}
	defer file.Close()

	if err := p.replica.Put(ctx, image.FilePath, file, image.FileSize, image.MimeType); err != nil {
		p.log.Warn("Failed to replicate %s: %v", image.FilePath, err)
	}
}

func (p *Pipeline) remove(name string) {
	if err := p.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.log.Warn("Failed to remove %s: %v", name, err)
	}
}
