package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptosim/cryptosim/internal/config"
	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const _quoteURL = "/api/v1/quote"

// Client pulls spot quotes from the external price API. Requests go through
// a limiter sized from config so polling many instruments stays inside the
// provider's request budget.
type Client struct {
	c   *resty.Client
	cfg config.PriceFeedConfig

	rateLimiter ratelimit.Limiter

	logger logger.Logger
}

func NewClient(cfg config.PriceFeedConfig, logger logger.Logger) *Client {
	client := resty.New().
		SetLogger(logger).
		SetBaseURL(cfg.Address)

	return &Client{
		c:           client,
		cfg:         cfg,
		rateLimiter: ratelimit.New(cfg.RequestsPerMin, ratelimit.Per(1*time.Minute)),
		logger:      logger,
	}
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty symbol", model.ErrInvalidArgument)
	}

	c.rateLimiter.Take()

	req := c.c.R().
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"currency": c.cfg.QuoteCurrency,
		}).
		SetResult(&model.QuoteResponse{}).
		SetError(&model.QuoteErrorResponse{}).
		SetContext(ctx)

	resp, err := req.Get(_quoteURL)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: can't send quote request", err)
	}
	defer resp.Body.Close()

	c.logger.Debugf("got response %s status: %s, %s", resp.Request.URL, resp.Status(), resp.Duration())

	if resp.IsError() {
		response := resp.Error().(*model.QuoteErrorResponse)
		return decimal.Decimal{}, fmt.Errorf("%w: %s: quote request error", model.ErrPriceUnavailable, response.Message)
	}
	if resp.IsSuccess() {
		quote := resp.Result().(*model.QuoteResponse)
		price, err := decimal.NewFromString(quote.Price)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("%w: can't parse quote price %q", err, quote.Price)
		}
		if !price.IsPositive() {
			return decimal.Decimal{}, fmt.Errorf("%w: non-positive quote %s for %s", model.ErrPriceUnavailable, price, symbol)
		}
		return price, nil
	}

	return decimal.Decimal{}, fmt.Errorf("quote unexpected request error: %s", resp.Status())
}
