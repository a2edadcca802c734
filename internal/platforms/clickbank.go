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

const clickbankAPIBase = "https://api.clickbank.com/rest/1.3"

// ClickBankClient browses the ClickBank marketplace for promotable products.
type ClickBankClient struct {
	baseURL    string
	devKey     string
	clerkKey   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClickBankClient creates a ClickBank API client. ClickBank authenticates
// with a developer key plus a clerk key in a single header.
func NewClickBankClient(devKey, clerkKey string, logger *slog.Logger) *ClickBankClient {
	return &ClickBankClient{
		baseURL:    clickbankAPIBase,
		devKey:     devKey,
		clerkKey:   clerkKey,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

func (c *ClickBankClient) Name() string              { return "Clickbank" }
func (c *ClickBankClient) Type() models.PlatformType { return models.PlatformTypeAffiliate }

type clickbankProduct struct {
	Site          string   `json:"site"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Gravity       float64  `json:"gravity"`
	AvgConversion float64  `json:"averageEarningsPerSale"`
	Categories    []string `json:"categories"`
}

// TestConnection validates the key pair against the account endpoint.
func (c *ClickBankClient) TestConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, c.baseURL+"/accounts/list")
	if err != nil {
		return err
	}
	return httpJSON(c.httpClient, req, c.Name(), nil)
}

// Search lists marketplace products for the query.
func (c *ClickBankClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("resultsPerPage", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, c.baseURL+"/marketplace/products?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp struct {
		Products []clickbankProduct `json:"products"`
	}
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}

	opps := make([]models.Opportunity, 0, len(resp.Products))
	for _, p := range resp.Products {
		opps = append(opps, c.toOpportunity(p))
	}
	c.logger.Debug("clickbank search", "term", query, "results", len(opps))
	return opps, nil
}

// Details fetches one marketplace product by its site nickname.
func (c *ClickBankClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/marketplace/products/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var p clickbankProduct
	if err := httpJSON(c.httpClient, req, c.Name(), &p); err != nil {
		return nil, err
	}
	opp := c.toOpportunity(p)
	return &opp, nil
}

func (c *ClickBankClient) toOpportunity(p clickbankProduct) models.Opportunity {
	return models.Opportunity{
		ID:          p.Site,
		Title:       p.Title,
		Description: p.Description,
		URL:         "https://" + p.Site + ".clickbank.net",
		Budget:      models.Cents(p.AvgConversion * 100),
		Tags:        p.Categories,
	}
}

func (c *ClickBankClient) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build clickbank request: %w", err)
	}
	req.Header.Set("Authorization", c.devKey+":"+c.clerkKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}
