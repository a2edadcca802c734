package platforms

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/wolfauto/marketer/internal/models"
)

const (
	amazonAPIBase = "https://webservices.amazon.com/paapi5"
	amazonRegion  = "us-east-1"
	amazonService = "ProductAdvertisingAPI"
)

// AmazonClient searches the Product Advertising API for items worth
// promoting through an Associates link.
type AmazonClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	partnerTag string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewAmazonClient creates an Amazon Associates client.
func NewAmazonClient(accessKey, secretKey, partnerTag string, logger *slog.Logger) *AmazonClient {
	return &AmazonClient{
		baseURL:    amazonAPIBase,
		accessKey:  accessKey,
		secretKey:  secretKey,
		partnerTag: partnerTag,
		httpClient: newHTTPClient(),
		logger:     logger,
		now:        time.Now,
	}
}

func (c *AmazonClient) Name() string              { return "Amazon Associates" }
func (c *AmazonClient) Type() models.PlatformType { return models.PlatformTypeAffiliate }

type amazonItem struct {
	ASIN      string `json:"ASIN"`
	DetailURL string `json:"DetailPageURL"`
	ItemInfo  struct {
		Title struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Title"`
	} `json:"ItemInfo"`
	Offers struct {
		Listings []struct {
			Price struct {
				Amount float64 `json:"Amount"`
			} `json:"Price"`
		} `json:"Listings"`
	} `json:"Offers"`
}

// TestConnection issues a minimal SearchItems call; PA-API has no dedicated
// ping endpoint.
func (c *AmazonClient) TestConnection(ctx context.Context) error {
	_, err := c.Search(ctx, "ping", 1)
	return err
}

// Search runs a PA-API SearchItems request.
func (c *AmazonClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	req, err := c.newRequest(ctx, "SearchItems", map[string]interface{}{
		"Keywords":   query,
		"ItemCount":  limit,
		"PartnerTag": c.partnerTag,
		"Resources":  []string{"ItemInfo.Title", "Offers.Listings.Price"},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		SearchResult struct {
			Items []amazonItem `json:"Items"`
		} `json:"SearchResult"`
	}
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}

	opps := make([]models.Opportunity, 0, len(resp.SearchResult.Items))
	for _, item := range resp.SearchResult.Items {
		opps = append(opps, c.toOpportunity(item))
	}
	c.logger.Debug("amazon search", "keywords", query, "results", len(opps))
	return opps, nil
}

// Details runs a PA-API GetItems request for one ASIN.
func (c *AmazonClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	req, err := c.newRequest(ctx, "GetItems", map[string]interface{}{
		"ItemIds":    []string{id},
		"PartnerTag": c.partnerTag,
		"Resources":  []string{"ItemInfo.Title", "Offers.Listings.Price"},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		ItemsResult struct {
			Items []amazonItem `json:"Items"`
		} `json:"ItemsResult"`
	}
	if err := httpJSON(c.httpClient, req, c.Name(), &resp); err != nil {
		return nil, err
	}
	if len(resp.ItemsResult.Items) == 0 {
		return nil, nil
	}
	opp := c.toOpportunity(resp.ItemsResult.Items[0])
	return &opp, nil
}

func (c *AmazonClient) toOpportunity(item amazonItem) models.Opportunity {
	var cents models.Cents
	if len(item.Offers.Listings) > 0 {
		cents = models.Cents(item.Offers.Listings[0].Price.Amount * 100)
	}
	return models.Opportunity{
		ID:     item.ASIN,
		Title:  item.ItemInfo.Title.DisplayValue,
		URL:    item.DetailURL,
		Budget: cents,
	}
}

func (c *AmazonClient) newRequest(ctx context.Context, operation string, payload map[string]interface{}) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal amazon request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+strings.ToLower(operation), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build amazon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", "com.amazon.paapi5.v1.ProductAdvertisingAPIv1."+operation)
	c.sign(req, body)
	return req, nil
}

// sign adds the AWS Signature Version 4 headers PA-API requires. The
// signed header set is fixed to the four headers every request carries.
func (c *AmazonClient) sign(req *http.Request, body []byte) {
	now := c.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	req.Header.Set("X-Amz-Date", amzDate)

	canonicalHeaders := "content-encoding:" + req.Header.Get("Content-Encoding") + "\n" +
		"host:" + req.URL.Host + "\n" +
		"x-amz-date:" + amzDate + "\n" +
		"x-amz-target:" + req.Header.Get("X-Amz-Target") + "\n"
	signedHeaders := "content-encoding;host;x-amz-date;x-amz-target"

	bodyHash := sha256.Sum256(body)
	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		req.URL.EscapedPath(),
		"",
		canonicalHeaders,
		signedHeaders,
		hex.EncodeToString(bodyHash[:]),
	}, "\n")

	scope := dateStamp + "/" + amazonRegion + "/" + amazonService + "/aws4_request"
	requestHash := sha256.Sum256([]byte(canonicalRequest))
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hex.EncodeToString(requestHash[:]),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+c.secretKey), dateStamp)
	key = hmacSHA256(key, amazonRegion)
	key = hmacSHA256(key, amazonService)
	key = hmacSHA256(key, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Header.Set("Authorization",
		"AWS4-HMAC-SHA256 Credential="+c.accessKey+"/"+scope+
			", SignedHeaders="+signedHeaders+
			", Signature="+signature)
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
