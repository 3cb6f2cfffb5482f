package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/craftpanel/pluginhub/pkg/observability"
)

const polymartBaseURL = "https://api.polymart.org/v1/"

// polymartVersionPageSize bounds the version listing; the upstream reports
// no total count for updates.
const polymartVersionPageSize = 50

// TokenSource supplies the Polymart link token for a panel user, or empty
// when the user has no active link.
type TokenSource interface {
	Token(ctx context.Context, userID string) (string, error)
}

// PolymartService adapts the Polymart REST API. Requests are scoped to the
// panel user found in the context: premium resources are only listed, and
// downloads only resolvable, when that user holds a link token.
type PolymartService struct {
	client *upstreamClient
	tokens TokenSource
}

// NewPolymartService creates the Polymart adapter. tokens may be nil, in
// which case every request behaves as unlinked.
func NewPolymartService(tokens TokenSource, opts Options) *PolymartService {
	return &PolymartService{
		client: newUpstreamClient(ProviderPolymart, polymartBaseURL, opts),
		tokens: tokens,
	}
}

// looseBool decodes the booleans Polymart variously encodes as true/false,
// 0/1, or "0"/"1".
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

type polymartResource struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	Subtitle     string      `json:"subtitle"`
	URL          string      `json:"url"`
	ThumbnailURL string      `json:"thumbnailURL"`
	CanDownload  looseBool   `json:"canDownload"`
}

type polymartEnvelope struct {
	Response struct {
		Success looseBool          `json:"success"`
		Total   int                `json:"total"`
		Result  []polymartResource `json:"result"`
		Updates []struct {
			ID      json.Number `json:"id"`
			Title   string      `json:"title"`
			Version string      `json:"version"`
		} `json:"updates"`
	} `json:"response"`
}

func (s *PolymartService) userToken(ctx context.Context) string {
	if s.tokens == nil {
		return ""
	}
	userID := observability.GetUserID(ctx)
	if userID == "" {
		return ""
	}
	token, err := s.tokens.Token(ctx, userID)
	if err != nil {
		s.client.logger.WithError(err).Error("Failed to load Polymart link token")
		return ""
	}
	return token
}

// Search implements PluginService. Premium resources are hidden from users
// without an active link because they could not download them anyway.
func (s *PolymartService) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	body := map[string]interface{}{
		"start": (filters.Page - 1) * filters.PageSize,
		"limit": filters.PageSize,
		"query": filters.Query,
	}
	if token := s.userToken(ctx); token != "" {
		body["token"] = token
	} else {
		body["premium"] = "0"
	}

	var resp polymartEnvelope
	if err := s.client.postJSON(ctx, "search", "search", body, &resp); err != nil {
		return SearchResult{Plugins: []Plugin{}}, nil
	}

	plugins := make([]Plugin, 0, len(resp.Response.Result))
	for _, resource := range resp.Response.Result {
		icon := resource.ThumbnailURL
		p := Plugin{
			ID:               resource.ID.String(),
			Name:             resource.Title,
			ShortDescription: resource.Subtitle,
			URL:              resource.URL,
			IconURL:          &icon,
		}
		if !resource.CanDownload {
			external := resource.URL
			p.ExternalURL = &external
		}
		plugins = append(plugins, p)
	}

	return SearchResult{Plugins: plugins, Total: resp.Response.Total}, nil
}

// Versions implements PluginService. Polymart reports no total for updates,
// so callers see exactly what one page returned.
func (s *PolymartService) Versions(ctx context.Context, pluginID string) ([]PluginVersion, error) {
	body := map[string]interface{}{
		"resource_id": pluginID,
		"start":       0,
		"limit":       polymartVersionPageSize,
	}

	var resp polymartEnvelope
	if err := s.client.postJSON(ctx, "versions", "getResourceUpdates", body, &resp); err != nil {
		return nil, err
	}

	versions := make([]PluginVersion, 0, len(resp.Response.Updates))
	for _, update := range resp.Response.Updates {
		name := update.Version
		if update.Title != "" && update.Title != name {
			name += " - " + update.Title
		}
		versions = append(versions, PluginVersion{ID: update.ID.String(), Name: name})
	}
	return versions, nil
}

// DownloadURL implements PluginService. versionID is accepted but ignored:
// Polymart can only generate a download link for the current version of a
// resource.
func (s *PolymartService) DownloadURL(ctx context.Context, pluginID, versionID string) (string, error) {
	body := map[string]interface{}{
		"resource_id": pluginID,
	}
	if token := s.userToken(ctx); token != "" {
		body["token"] = token
	}

	var resp struct {
		Response struct {
			Success looseBool `json:"success"`
			Result  struct {
				URL string `json:"url"`
			} `json:"result"`
		} `json:"response"`
	}
	if err := s.client.postJSON(ctx, "download_url", "getDownloadURL", body, &resp); err != nil {
		return "", err
	}
	if !resp.Response.Success || resp.Response.Result.URL == "" {
		return "", fmt.Errorf("polymart refused to generate a download url for resource %s: %w", pluginID, ErrNoDownloadURL)
	}
	return resp.Response.Result.URL, nil
}

// AuthorizeUser starts the account-linking handshake: it registers the
// callback with Polymart and returns the URL the user's browser must visit
// to approve the link.
func (s *PolymartService) AuthorizeUser(ctx context.Context, service, returnURL, state string) (string, error) {
	body := map[string]interface{}{
		"service":      service,
		"return_url":   returnURL,
		"return_token": false,
		"state":        state,
	}

	var resp struct {
		Response struct {
			Success looseBool `json:"success"`
			Result  struct {
				URL string `json:"url"`
			} `json:"result"`
		} `json:"response"`
	}
	if err := s.client.postJSON(ctx, "authorize_user", "authorizeUser", body, &resp); err != nil {
		return "", err
	}
	if !resp.Response.Success || resp.Response.Result.URL == "" {
		return "", errors.New("polymart rejected the user authorization request")
	}
	return resp.Response.Result.URL, nil
}

// InvalidateToken revokes a link token upstream. Callers treat failures as
// best-effort cleanup.
func (s *PolymartService) InvalidateToken(ctx context.Context, token string) error {
	body := map[string]interface{}{"token": token}
	return s.client.postJSON(ctx, "invalidate_token", "invalidateAuthToken", body, nil)
}
