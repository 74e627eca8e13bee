package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"animehub/pkg/models"
)

// MirrorSource reads GET {BaseURL}/animes, a JSON array of CatalogEntry.
type MirrorSource struct {
	BaseURL string
	Client  *http.Client
}

func NewMirrorSource(baseURL string, timeout time.Duration) *MirrorSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MirrorSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *MirrorSource) Name() string {
	return "mirror"
}

func (s *MirrorSource) Fetch(ctx context.Context) ([]models.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/animes", nil)
	if err != nil {
		return nil, fmt.Errorf("mirror: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mirror: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out []models.CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mirror: decode json: %w", err)
	}
	return out, nil
}
