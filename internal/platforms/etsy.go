package platforms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfauto/marketer/internal/models"
)

const etsyAPIBase = "https://openapi.etsy.com/v3/application"

// EtsyClient searches active listings on the Etsy open API.
type EtsyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEtsyClient creates an Etsy API client.
func NewEtsyClient(apiKey string, logger *slog.Logger) *EtsyClient {
	return &EtsyClient{
		baseURL:    etsyAPIBase,
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

func (c *EtsyClient) Name() string              { return "Etsy" }
func (c *EtsyClient) Type() models.PlatformType { return models.PlatformTypeAffiliate }

type etsyListing struct {
	ListingID   int64    `json:"listing_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Tags        []string `json:"tags"`
	Price       struct {
		Amount  int64 `json:"amount"`
		Divisor int64 `json:"divisor"`
	} `json:"price"`
}

// TestConnection pings the openapi-ping endpoint Etsy provides for exactly
// this purpose.
func (c *EtsyClient) TestConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, c.baseURL+"/openapi-ping")
	if err != nil {
		return err
	}
	return httpJSON(c.httpClient, req, c.Name(), nil)
}

// Search returns active listings matching the keywords.
func (c *EtsyClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	q := url.Values{}
	q.Set("keywords", query)
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, c.baseURL+"/listings/active?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []etsyListing `json:"results"`
	}
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}

	opps := make([]models.Opportunity, 0, len(resp.Results))
	for _, l := range resp.Results {
		opps = append(opps, c.toOpportunity(l))
	}
	c.logger.Debug("etsy search", "keywords", query, "results", len(opps))
	return opps, nil
}

// Details fetches one listing by id.
func (c *EtsyClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/listings/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var l etsyListing
	if err := httpJSON(c.httpClient, req, c.Name(), &l); err != nil {
		return nil, err
	}
	opp := c.toOpportunity(l)
	return &opp, nil
}

func (c *EtsyClient) toOpportunity(l etsyListing) models.Opportunity {
	// Etsy prices come as amount/divisor pairs; normalize to cents.
	var cents models.Cents
	if l.Price.Divisor > 0 {
		cents = models.Cents(l.Price.Amount * 100 / l.Price.Divisor)
	}
	return models.Opportunity{
		ID:          strconv.FormatInt(l.ListingID, 10),
		Title:       l.Title,
		Description: l.Description,
		URL:         l.URL,
		Budget:      cents,
		Tags:        l.Tags,
	}
}

func (c *EtsyClient) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build etsy request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	return req, nil
}
