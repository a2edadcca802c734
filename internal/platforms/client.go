// Package platforms contains thin REST clients for the external services a
// platform record can point at. Clients only fetch and decode; everything
// stateful (tasks, activities, earnings) is written by the caller.
package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfauto/marketer/internal/models"
)

// Client is the minimal surface the engine and the sync endpoints need from
// an external platform.
type Client interface {
	// Name returns the canonical platform name this client serves.
	Name() string

	// Type returns the platform category the client belongs to.
	Type() models.PlatformType

	// TestConnection verifies the credentials against the live API.
	TestConnection(ctx context.Context) error

	// Search fetches up to limit opportunities matching the query.
	Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error)

	// Details fetches a single opportunity by its platform-side id.
	Details(ctx context.Context, id string) (*models.Opportunity, error)
}

// APIError carries the upstream status code so handlers can map platform
// failures to 500s without leaking response bodies.
type APIError struct {
	Platform string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %s", e.Platform, e.Status, e.Body)
}

// httpJSON issues the request and decodes a JSON body into out. Non-2xx
// responses become an *APIError with a truncated body.
func httpJSON(client *http.Client, req *http.Request, platform string, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Platform: platform, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", platform, err)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// Registry maps platform names to their clients. Lookup is
// case-insensitive, matching platform name uniqueness.
type Registry struct {
	clients map[string]Client
}

// NewRegistry builds a registry over the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[strings.ToLower(c.Name())] = c
	}
	return r
}

// Register adds or replaces a client.
func (r *Registry) Register(c Client) {
	r.clients[strings.ToLower(c.Name())] = c
}

// ForPlatform returns the client serving the named platform, or nil when no
// client is registered for it.
func (r *Registry) ForPlatform(name string) Client {
	return r.clients[strings.ToLower(name)]
}

// Names lists the registered platform names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for _, c := range r.clients {
		names = append(names, c.Name())
	}
	return names
}
