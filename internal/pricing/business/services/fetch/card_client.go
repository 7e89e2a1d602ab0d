package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"pricewatch_api/internal/pricing/business/dto/responses"
	"pricewatch_api/internal/pricing/business/models"
)

// PriceSource отдаёт текущие цены и селлера по nm_id.
type PriceSource interface {
	Fetch(ctx context.Context, nmID int64) (*models.FetchResult, error)
}

var ErrProductNotFound = errors.New("product not found")

const (
	defaultBaseURL   = "https://card.wb.ru"
	requestTimeout   = 15 * time.Second
	requestRateLimit = 60 // requests per minute
)

// CardClient ходит в карточный API. Пара цен basic/product берётся из первого
// размера, где она заполнена; пустая пара — товар недоступен, не ошибка.
type CardClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewCardClient(baseURL string) *CardClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CardClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/requestRateLimit), requestRateLimit),
	}
}

func (c *CardClient) Fetch(ctx context.Context, nmID int64) (*models.FetchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/cards/v2/detail?appType=1&curr=rub&dest=-1257786&lang=ru&nm=%d", c.baseURL, nmID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	setBrowserHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("card request nm_id=%d: %w", nmID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card request nm_id=%d: unexpected status code: %s", nmID, resp.Status)
	}

	var cardResponse responses.CardDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&cardResponse); err != nil {
		return nil, fmt.Errorf("card response nm_id=%d: %w", nmID, err)
	}

	if len(cardResponse.Data.Products) == 0 {
		return nil, fmt.Errorf("nm_id=%d: %w", nmID, ErrProductNotFound)
	}

	p := cardResponse.Data.Products[0]

	var basicU, productU int64
	for _, s := range p.Sizes {
		if s.Price == nil {
			continue
		}
		if basicU == 0 {
			basicU = s.Price.Basic
		}
		if productU == 0 {
			productU = s.Price.Product
		}
		if basicU != 0 && productU != 0 {
			break
		}
	}

	result := &models.FetchResult{
		NmID:       nmID,
		Brand:      p.Brand,
		Title:      p.Name,
		SellerID:   p.SupplierID,
		SellerName: p.Supplier,
	}
	if basicU > 0 {
		result.PriceBeforeDiscount = float64(basicU) / 100.0
	}
	if productU > 0 {
		result.PriceAfterDiscount = float64(productU) / 100.0
	}
	return result, nil
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "ru,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
}
