// internal/providers/providers.go
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"opportunity-research/internal/common/config"
	httpclient "opportunity-research/internal/common/http"
	"opportunity-research/internal/common/logger"
	"opportunity-research/internal/common/metrics"
	"opportunity-research/internal/models"
)

// Config holds the commerce search gateway settings.
type Config struct {
	BaseURL        string
	APIKey         string
	ResultsPerPage int
	Timeout        time.Duration
}

// ConfigFrom converts the application config section.
func ConfigFrom(cfg config.ProvidersConfig) *Config {
	return &Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		ResultsPerPage: cfg.ResultsPerPage,
		Timeout:        time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}
}

// platformSpec describes how one platform's search is built and how its
// raw payload maps into canonical records.
type platformSpec struct {
	engine      string
	buildParams func(query string) url.Values
	mapResults  func(data map[string]interface{}, limit int) []models.PlatformProduct
}

var platformSpecs = map[models.Platform]platformSpec{
	models.PlatformAlibaba: {
		engine: "alibaba",
		buildParams: func(q string) url.Values {
			return url.Values{"engine": {"alibaba"}, "q": {q}, "page": {"1"}}
		},
		mapResults: mapAlibabaResults,
	},
	models.PlatformAmazon: {
		engine: "amazon",
		buildParams: func(q string) url.Values {
			return url.Values{"engine": {"amazon"}, "search_term": {q}, "amazon_domain": {"amazon.com"}}
		},
		mapResults: mapAmazonResults,
	},
	models.PlatformEbay: {
		engine: "ebay",
		buildParams: func(q string) url.Values {
			return url.Values{"engine": {"ebay"}, "_nkw": {q}, "ebay_domain": {"ebay.com"}}
		},
		mapResults: mapEbayResults,
	},
	models.PlatformWalmart: {
		engine: "walmart",
		buildParams: func(q string) url.Values {
			return url.Values{"engine": {"walmart"}, "query": {q}}
		},
		mapResults: mapWalmartResults,
	},
	models.PlatformGoogleShopping: {
		engine: "google_shopping",
		buildParams: func(q string) url.Values {
			return url.Values{"engine": {"google_shopping"}, "q": {q}, "gl": {"us"}, "hl": {"en"}}
		},
		mapResults: mapGoogleShoppingResults,
	},
}

// Client issues provider searches through the shared search gateway and
// normalizes the results into the canonical record model.
type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg *Config, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.With(map[string]interface{}{
			"component": "provider-client",
		}),
	}
}

// Search runs one platform's search. Every failure, whether network,
// status or mapping, is contained here: the method logs it and returns an
// empty list. A provider never raises past its adapter boundary.
func (c *Client) Search(ctx context.Context, platform models.Platform, query string) []models.PlatformProduct {
	start := time.Now()
	products, err := c.searchPlatform(ctx, platform, query)
	metrics.ProviderSearchDuration.WithLabelValues(string(platform)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ProviderSearches.WithLabelValues(string(platform), "error").Inc()
		c.logger.Warn("provider search failed, returning empty results", map[string]interface{}{
			"platform": string(platform),
			"error":    err.Error(),
		})
		return []models.PlatformProduct{}
	}

	metrics.ProviderSearches.WithLabelValues(string(platform), "success").Inc()
	return products
}

func (c *Client) searchPlatform(ctx context.Context, platform models.Platform, query string) ([]models.PlatformProduct, error) {
	spec, ok := platformSpecs[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	data, err := c.callGateway(ctx, spec.buildParams(query))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", spec.engine, "search", err)
	}

	return spec.mapResults(data, c.config.ResultsPerPage), nil
}

func (c *Client) callGateway(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("api_key", c.config.APIKey)
	q.Set("output", "json")
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return nil, fmt.Errorf("search gateway error %d: %s", resp.StatusCode, snippet)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return data, nil
}
