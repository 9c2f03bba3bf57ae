package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Hedok25/photo-services/pkg/log"
)

// Pagination selects how a JSONClient addresses pages.
type Pagination string

const (
	PaginationOffset Pagination = "offset"
	PaginationPage   Pagination = "page"
)

type jsonProduct struct {
	SKU    string   `json:"sku"`
	Image  string   `json:"image"`
	Photos []string `json:"photos"`
}

// JSONClient reads a generic catalog served as
// GET {endpoint}?limit=N&offset=K (or &page=P), answering either
// {"products":[...]} or a bare array of {"sku","image","photos"} objects.
type JSONClient struct {
	name       string
	pagination Pagination
	transport  *transport
	log        log.LoggerService
}

func NewJSONClient(name string, pagination Pagination, token string, opts Options, logger log.LoggerService) (*JSONClient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("json catalog: name is required")
	}
	if pagination != PaginationOffset && pagination != PaginationPage {
		return nil, fmt.Errorf("json catalog %s: unsupported pagination '%s'", name, pagination)
	}
	if _, err := url.Parse(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("json catalog %s: invalid endpoint: %w", name, err)
	}

	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	t, err := newTransport(opts, headers)
	if err != nil {
		return nil, fmt.Errorf("json catalog %s: %w", name, err)
	}

	return &JSONClient{
		name:       name,
		pagination: pagination,
		transport:  t,
		log:        logger,
	}, nil
}

func (c *JSONClient) Source() string {
	return c.name
}

func (c *JSONClient) Fetch(ctx context.Context) ([]Product, error) {
	products := []Product{}
	limit := c.transport.pageSize

	for page, offset := 1, 0; ; page, offset = page+1, offset+limit {
		pageURL, err := c.pageURL(page, offset)
		if err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if err := c.transport.getJSON(ctx, pageURL, &raw); err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", c.name, page, err)
		}

		items, err := decodeJSONProducts(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", c.name, page, err)
		}

		for _, item := range items {
			if product, ok := normalizeJSON(item); ok {
				products = append(products, product)
			}
		}

		c.log.Debug("Fetched page %d with %d products", page, len(items))

		if len(items) < limit {
			break
		}
	}

	return products, nil
}

func (c *JSONClient) pageURL(page, offset int) (string, error) {
	u, err := url.Parse(c.transport.endpoint)
	if err != nil {
		return "", fmt.Errorf("%s: invalid endpoint: %w", c.name, err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(c.transport.pageSize))
	switch c.pagination {
	case PaginationPage:
		q.Set("page", strconv.Itoa(page))
	default:
		q.Set("offset", strconv.Itoa(offset))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// decodeJSONProducts accepts both object-wrapped and bare-array payloads.
func decodeJSONProducts(raw json.RawMessage) ([]jsonProduct, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
	}

	switch trimmed[0] {
	case '[':
		var items []jsonProduct
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return items, nil
	case '{':
		var wrapped struct {
			Products *[]jsonProduct `json:"products"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if wrapped.Products == nil {
			return nil, fmt.Errorf("%w: missing products", ErrMalformedPayload)
		}
		return *wrapped.Products, nil
	default:
		return nil, fmt.Errorf("%w: unexpected payload", ErrMalformedPayload)
	}
}

func normalizeJSON(item jsonProduct) (Product, bool) {
	return newProduct(item.SKU, []string{item.Image}, item.Photos)
}
