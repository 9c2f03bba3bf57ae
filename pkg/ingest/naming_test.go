package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSuffix() (string, error) {
	return "0a1b2c3d", nil
}

func TestNewPhotoName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		source   string
		sku      string
		url      string
		filename string
		original string
		ext      string
	}{
		{
			name:     "keeps extension",
			source:   "ozon",
			sku:      "SKU-1",
			url:      "https://cdn.ozon.ru/s3/multimedia/photo.PNG?w=1000",
			filename: "ozon_SKU-1_1700000000123_0a1b2c3d.PNG",
			original: "photo.PNG",
			ext:      ".PNG",
		},
		{
			name:     "defaults to jpg",
			source:   "wb",
			sku:      "123",
			url:      "https://basket.wb.ru/vol1/part2/123/images/big/1",
			filename: "wb_123_1700000000123_0a1b2c3d.jpg",
			original: "1",
			ext:      ".jpg",
		},
		{
			name:     "unsafe sku characters",
			source:   "shop",
			sku:      "a/b c",
			url:      "http://shop/a.webp",
			filename: "shop_a_b_c_1700000000123_0a1b2c3d.webp",
			original: "a.webp",
			ext:      ".webp",
		},
		{
			name:     "no path",
			source:   "wb",
			sku:      "x",
			url:      "https://cdn.example/",
			filename: "wb_x_1700000000123_0a1b2c3d.jpg",
			original: "photo.jpg",
			ext:      ".jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newPhotoName(tt.source, tt.sku, tt.url, now, fixedSuffix)
			require.NoError(t, err)
			assert.Equal(t, tt.filename, got.Filename)
			assert.Equal(t, tt.original, got.OriginalName)
			assert.Equal(t, tt.ext, got.Ext)
		})
	}
}

func TestNewPhotoName_Errors(t *testing.T) {
	now := time.Now()

	_, err := newPhotoName("wb", "x", "ftp://host/a.jpg", now, fixedSuffix)
	assert.Error(t, err)

	_, err = newPhotoName("wb", "x", "://bad", now, fixedSuffix)
	assert.Error(t, err)

	_, err = newPhotoName("wb", "x", "https://host/a.jpg", now, func() (string, error) {
		return "", errors.New("no entropy")
	})
	assert.ErrorContains(t, err, "no entropy")
}

func TestRandomSuffix(t *testing.T) {
	suffix, err := randomSuffix()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{8}$`, suffix)
}

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		".jpg":  "image/jpeg",
		".JPEG": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".tiff": "image/tiff",
		".avif": "image/avif",
	}

	for ext, want := range tests {
		t.Run(ext, func(t *testing.T) {
			assert.Equal(t, want, mimeType(ext))
		})
	}
}
