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

const freelancerAPIBase = "https://www.freelancer.com/api"

// FreelancerClient searches active projects on the Freelancer marketplace.
type FreelancerClient struct {
	baseURL    string
	oauthToken string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFreelancerClient creates a Freelancer API client.
func NewFreelancerClient(oauthToken string, logger *slog.Logger) *FreelancerClient {
	return &FreelancerClient{
		baseURL:    freelancerAPIBase,
		oauthToken: oauthToken,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

func (c *FreelancerClient) Name() string              { return "Freelancer" }
func (c *FreelancerClient) Type() models.PlatformType { return models.PlatformTypeFreelance }

type freelancerProject struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Desc   string `json:"preview_description"`
	SeoURL string `json:"seo_url"`
	Budget struct {
		Minimum float64 `json:"minimum"`
	} `json:"budget"`
	Jobs []struct {
		Name string `json:"name"`
	} `json:"jobs"`
}

type freelancerSearchResponse struct {
	Result struct {
		Projects []freelancerProject `json:"projects"`
	} `json:"result"`
}

// TestConnection checks the token against the self endpoint.
func (c *FreelancerClient) TestConnection(ctx context.Context) error {
	req, err := c.newRequest(ctx, c.baseURL+"/users/0.1/self/")
	if err != nil {
		return err
	}
	return httpJSON(c.httpClient, req, c.Name(), nil)
}

// Search returns active projects matching the query.
func (c *FreelancerClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("project_statuses[]", "active")

	req, err := c.newRequest(ctx, c.baseURL+"/projects/0.1/projects/active/?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp freelancerSearchResponse
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}

	opps := make([]models.Opportunity, 0, len(resp.Result.Projects))
	for _, p := range resp.Result.Projects {
		opps = append(opps, c.toOpportunity(p))
	}
	c.logger.Debug("freelancer search", "query", query, "results", len(opps))
	return opps, nil
}

// Details fetches one project by id.
func (c *FreelancerClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/projects/0.1/projects/"+url.PathEscape(id)+"/")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result freelancerProject `json:"result"`
	}
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}
	opp := c.toOpportunity(resp.Result)
	return &opp, nil
}

func (c *FreelancerClient) toOpportunity(p freelancerProject) models.Opportunity {
	tags := make([]string, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		tags = append(tags, j.Name)
	}
	return models.Opportunity{
		ID:          strconv.FormatInt(p.ID, 10),
		Title:       p.Title,
		Description: p.Desc,
		URL:         "https://www.freelancer.com/projects/" + p.SeoURL,
		Budget:      models.Cents(p.Budget.Minimum * 100),
		Tags:        tags,
	}
}

func (c *FreelancerClient) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build freelancer request: %w", err)
	}
	req.Header.Set("freelancer-oauth-v1", c.oauthToken)
	return req, nil
}
