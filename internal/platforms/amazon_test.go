package platforms

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestAmazonRequestSigning(t *testing.T) {
	client := NewAmazonClient("AKIDEXAMPLE", "secret-key", "wolf-20", slog.Default())
	client.now = func() time.Time {
		return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	}

	req, err := client.newRequest(context.Background(), "SearchItems", map[string]interface{}{
		"Keywords":   "golang",
		"PartnerTag": "wolf-20",
	})
	if err != nil {
		t.Fatalf("newRequest: %v", err)
	}

	if got := req.URL.Path; got != "/paapi5/searchitems" {
		t.Errorf("path = %q, want /paapi5/searchitems", got)
	}
	if got := req.Header.Get("X-Amz-Date"); got != "20260102T150405Z" {
		t.Errorf("X-Amz-Date = %q, want 20260102T150405Z", got)
	}
	if got := req.Header.Get("X-Amz-Target"); got != "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems" {
		t.Errorf("X-Amz-Target = %q", got)
	}
	if got := req.Header.Get("Content-Encoding"); got != "amz-1.0" {
		t.Errorf("Content-Encoding = %q, want amz-1.0", got)
	}

	authz := req.Header.Get("Authorization")
	wantPrefix := "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20260102/us-east-1/ProductAdvertisingAPI/aws4_request" +
		", SignedHeaders=content-encoding;host;x-amz-date;x-amz-target, Signature="
	if !strings.HasPrefix(authz, wantPrefix) {
		t.Fatalf("Authorization = %q, want prefix %q", authz, wantPrefix)
	}
	signature := strings.TrimPrefix(authz, wantPrefix)
	if len(signature) != 64 {
		t.Errorf("signature length = %d, want 64 hex characters", len(signature))
	}

	// Signing is deterministic for identical inputs and clock.
	again, err := client.newRequest(context.Background(), "SearchItems", map[string]interface{}{
		"Keywords":   "golang",
		"PartnerTag": "wolf-20",
	})
	if err != nil {
		t.Fatalf("newRequest: %v", err)
	}
	if again.Header.Get("Authorization") != authz {
		t.Error("same request signed twice produced different signatures")
	}
}
