package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/log"
)

const (
	ozonListPath = "/v3/product/list"
	ozonInfoPath = "/v3/product/info/list"
)

type ozonListRequest struct {
	Filter ozonFilter `json:"filter"`
	LastID string     `json:"last_id"`
	Limit  int        `json:"limit"`
}

type ozonFilter struct {
	Visibility string `json:"visibility"`
}

type ozonListResponse struct {
	Result *struct {
		Items []struct {
			ProductID int64  `json:"product_id"`
			OfferID   string `json:"offer_id"`
		} `json:"items"`
		Total  int     `json:"total"`
		LastID *string `json:"last_id"`
	} `json:"result"`
}

type ozonInfoRequest struct {
	ProductID []int64 `json:"product_id"`
}

type ozonInfoResponse struct {
	Items *[]ozonProductInfo `json:"items"`
}

type ozonProductInfo struct {
	ID           int64    `json:"id"`
	OfferID      string   `json:"offer_id"`
	PrimaryImage []string `json:"primary_image"`
	Images       []string `json:"images"`
}

// OzonClient pages through the Ozon Seller API with the "last_id" cursor and
// resolves photos for every page through the product info endpoint.
type OzonClient struct {
	transport *transport
	log       log.LoggerService
}

func NewOzonClient(clientID, apiKey string, opts Options, logger log.LoggerService) (*OzonClient, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ozon: client id and api key are required")
	}

	headers := http.Header{}
	headers.Set("Client-Id", clientID)
	headers.Set("Api-Key", apiKey)

	t, err := newTransport(opts, headers)
	if err != nil {
		return nil, fmt.Errorf("ozon: %w", err)
	}

	return &OzonClient{
		transport: t,
		log:       logger,
	}, nil
}

func (c *OzonClient) Source() string {
	return models.SourceOzon
}

func (c *OzonClient) Fetch(ctx context.Context) ([]Product, error) {
	products := []Product{}
	cursor := ""

	for page := 1; ; page++ {
		var list ozonListResponse
		err := c.transport.postJSON(ctx, ozonListPath, ozonListRequest{
			Filter: ozonFilter{Visibility: "ALL"},
			LastID: cursor,
			Limit:  c.transport.pageSize,
		}, &list)
		if err != nil {
			return nil, fmt.Errorf("ozon: list page %d: %w", page, err)
		}
		if list.Result == nil {
			return nil, fmt.Errorf("ozon: list page %d: %w: missing result", page, ErrMalformedPayload)
		}

		items := list.Result.Items
		if len(items) > 0 {
			ids := make([]int64, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ProductID)
			}

			batch, err := c.fetchInfo(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("ozon: info page %d: %w", page, err)
			}
			products = append(products, batch...)
		}

		c.log.Debug("Fetched page %d with %d items (total %d)", page, len(items), list.Result.Total)

		if len(items) < c.transport.pageSize {
			break
		}
		if list.Result.LastID == nil {
			return nil, fmt.Errorf("ozon: list page %d: %w: missing last_id", page, ErrMalformedPayload)
		}
		next := *list.Result.LastID
		if next == "" {
			break
		}
		if next == cursor {
			return nil, fmt.Errorf("ozon: list page %d: %w: cursor did not advance", page, ErrMalformedPayload)
		}
		cursor = next
	}

	return products, nil
}

// fetchInfo resolves offer ids and images, keeping the order of ids.
func (c *OzonClient) fetchInfo(ctx context.Context, ids []int64) ([]Product, error) {
	var info ozonInfoResponse
	if err := c.transport.postJSON(ctx, ozonInfoPath, ozonInfoRequest{ProductID: ids}, &info); err != nil {
		return nil, err
	}
	if info.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedPayload)
	}

	byID := make(map[int64]ozonProductInfo, len(*info.Items))
	for _, item := range *info.Items {
		byID[item.ID] = item
	}

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			c.log.Warn("Product %d is missing from the info response", id)
			continue
		}
		if product, ok := normalizeOzon(item); ok {
			products = append(products, product)
		}
	}
	return products, nil
}

func normalizeOzon(item ozonProductInfo) (Product, bool) {
	return newProduct(item.OfferID, item.PrimaryImage, item.Images)
}
