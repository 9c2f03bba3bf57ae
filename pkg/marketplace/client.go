// Package marketplace fetches product catalogs from marketplace APIs and
// normalizes them into SKU to photo URL lists.
package marketplace

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrHTTPStatus matches any non-2xx response from a catalog API.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrMalformedPayload is returned when a response cannot be decoded or
	// lacks the fields needed to continue pagination.
	ErrMalformedPayload = errors.New("malformed catalog payload")
)

// Product is one marketplace item with its ordered photo URLs.
type Product struct {
	SKU    string
	Photos []string
}

// Client fetches the full catalog of one source. Every call to Fetch starts
// pagination from the beginning; on error no products are returned.
type Client interface {
	Source() string
	Fetch(ctx context.Context) ([]Product, error)
}

// newProduct trims the SKU, drops empty and repeated photo URLs and reports
// false when nothing usable remains.
func newProduct(sku string, photos ...[]string) (Product, bool) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Product{}, false
	}

	seen := map[string]struct{}{}
	urls := []string{}
	for _, group := range photos {
		for _, photo := range group {
			photo = strings.TrimSpace(photo)
			if photo == "" {
				continue
			}
			if _, ok := seen[photo]; ok {
				continue
			}
			seen[photo] = struct{}{}
			urls = append(urls, photo)
		}
	}

	if len(urls) == 0 {
		return Product{}, false
	}
	return Product{SKU: sku, Photos: urls}, true
}
