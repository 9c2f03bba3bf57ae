package ingest

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultExt     = ".jpg"
	suffixAlphabet = "0123456789abcdef"
	suffixLength   = 8
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// photoName holds everything derived from a photo URL before download.
type photoName struct {
	Filename     string
	OriginalName string
	Ext          string
}

func randomSuffix() (string, error) {
	return gonanoid.Generate(suffixAlphabet, suffixLength)
}

// newPhotoName builds "{source}_{sku}_{unixms}_{suffix}{ext}" for rawURL.
func newPhotoName(source, sku, rawURL string, now time.Time, suffix func() (string, error)) (photoName, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return photoName{}, fmt.Errorf("invalid photo url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return photoName{}, fmt.Errorf("unsupported photo url scheme '%s'", u.Scheme)
	}

	original := path.Base(u.Path)
	if original == "/" || original == "." {
		original = ""
	}

	ext := path.Ext(original)
	if !validExt(ext) {
		ext = defaultExt
	}
	if original == "" {
		original = "photo" + ext
	}

	random, err := suffix()
	if err != nil {
		return photoName{}, fmt.Errorf("failed to generate filename suffix: %w", err)
	}

	return photoName{
		Filename:     fmt.Sprintf("%s_%s_%d_%s%s", safeSegment(source), safeSegment(sku), now.UnixMilli(), random, ext),
		OriginalName: original,
		Ext:          ext,
	}, nil
}

// safeSegment replaces everything outside [A-Za-z0-9.-] with '_'.
func safeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// mimeType maps a file extension to its image content type.
func mimeType(ext string) string {
	ext = strings.ToLower(ext)
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}
