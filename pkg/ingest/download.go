package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/afero"
)

var errTooLarge = errors.New("photo exceeds the maximum download size")

// download streams url into name on fs and returns its size and SHA-256 hex
// digest. A failed download leaves no file behind.
func (p *Pipeline) download(ctx context.Context, url, name string) (int64, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, "", fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	file, err := p.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, "", fmt.Errorf("create file: %w", err)
	}

	size, digest, err := copyHashed(file, resp.Body, p.maxSize)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close file: %w", closeErr)
	}
	if err != nil {
		p.remove(name)
		return 0, "", err
	}

	return size, digest, nil
}

// copyHashed copies at most limit bytes, hashing them on the way.
func copyHashed(dst afero.File, src io.Reader, limit int64) (int64, string, error) {
	hash := sha256.New()

	n, err := io.Copy(io.MultiWriter(dst, hash), io.LimitReader(src, limit+1))
	if err != nil {
		return n, "", fmt.Errorf("write file: %w", err)
	}
	if n > limit {
		return n, "", errTooLarge
	}

	return n, hex.EncodeToString(hash.Sum(nil)), nil
}
