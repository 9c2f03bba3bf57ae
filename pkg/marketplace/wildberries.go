package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Hedok25/photo-services/pkg/db/models"
	"github.com/Hedok25/photo-services/pkg/log"
)

const wbCardsPath = "/content/v2/get/cards/list"

type wbCursor struct {
	Limit     int    `json:"limit"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	NmID      int64  `json:"nmID,omitempty"`
}

type wbCardsRequest struct {
	Settings struct {
		Cursor wbCursor `json:"cursor"`
		Filter struct {
			WithPhoto int `json:"withPhoto"`
		} `json:"filter"`
	} `json:"settings"`
}

type wbCardsResponse struct {
	Cards  *[]wbCard `json:"cards"`
	Cursor *struct {
		UpdatedAt string `json:"updatedAt"`
		NmID      int64  `json:"nmID"`
		Total     int    `json:"total"`
	} `json:"cursor"`
}

type wbCard struct {
	NmID       int64  `json:"nmID"`
	VendorCode string `json:"vendorCode"`
	Photos     []struct {
		Big string `json:"big"`
	} `json:"photos"`
	MediaFiles []string `json:"mediaFiles"`
}

// WildberriesClient pages through the Wildberries content API using the
// updatedAt/nmID cursor.
type WildberriesClient struct {
	transport *transport
	log       log.LoggerService
}

func NewWildberriesClient(apiKey string, opts Options, logger log.LoggerService) (*WildberriesClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("wb: api key is required")
	}

	headers := http.Header{}
	headers.Set("Authorization", apiKey)

	t, err := newTransport(opts, headers)
	if err != nil {
		return nil, fmt.Errorf("wb: %w", err)
	}

	return &WildberriesClient{
		transport: t,
		log:       logger,
	}, nil
}

func (c *WildberriesClient) Source() string {
	return models.SourceWB
}

func (c *WildberriesClient) Fetch(ctx context.Context) ([]Product, error) {
	products := []Product{}
	cursor := wbCursor{Limit: c.transport.pageSize}

	for page := 1; ; page++ {
		var req wbCardsRequest
		req.Settings.Cursor = cursor
		req.Settings.Filter.WithPhoto = -1

		var resp wbCardsResponse
		if err := c.transport.postJSON(ctx, wbCardsPath, req, &resp); err != nil {
			return nil, fmt.Errorf("wb: cards page %d: %w", page, err)
		}
		if resp.Cards == nil {
			return nil, fmt.Errorf("wb: cards page %d: %w: missing cards", page, ErrMalformedPayload)
		}
		cards := *resp.Cards

		for _, card := range cards {
			if product, ok := normalizeWB(card); ok {
				products = append(products, product)
			}
		}

		c.log.Debug("Fetched page %d with %d cards", page, len(cards))

		if len(cards) < cursor.Limit {
			break
		}
		if resp.Cursor == nil {
			return nil, fmt.Errorf("wb: cards page %d: %w: missing cursor", page, ErrMalformedPayload)
		}
		if resp.Cursor.Total < cursor.Limit {
			break
		}
		if resp.Cursor.UpdatedAt == cursor.UpdatedAt && resp.Cursor.NmID == cursor.NmID {
			return nil, fmt.Errorf("wb: cards page %d: %w: cursor did not advance", page, ErrMalformedPayload)
		}

		cursor = wbCursor{
			Limit:     cursor.Limit,
			UpdatedAt: resp.Cursor.UpdatedAt,
			NmID:      resp.Cursor.NmID,
		}
	}

	return products, nil
}

func normalizeWB(card wbCard) (Product, bool) {
	big := make([]string, 0, len(card.Photos))
	for _, photo := range card.Photos {
		big = append(big, photo.Big)
	}
	return newProduct(card.VendorCode, big, card.MediaFiles)
}
