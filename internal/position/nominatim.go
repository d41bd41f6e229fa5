package position

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/munchmap/truck-radar/internal/models"
)

// NominatimProvider reverse-geocodes through a Nominatim-style HTTP
// endpoint. The position fix itself comes from the host application via
// SetPosition; the server has no device GPS of its own.
type NominatimProvider struct {
	BaseURL string
	Client  *http.Client

	coord   models.Coordinate
	havePos bool
}

// NewNominatimProvider creates a provider against the given base URL,
// e.g. "https://nominatim.openstreetmap.org".
func NewNominatimProvider(baseURL string) *NominatimProvider {
	return &NominatimProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetPosition records the latest fix reported by the host application.
func (p *NominatimProvider) SetPosition(coord models.Coordinate) {
	p.coord = coord
	p.havePos = true
}

func (p *NominatimProvider) RequestPermission(ctx context.Context) (bool, error) {
	return p.havePos, nil
}

func (p *NominatimProvider) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if !p.havePos {
		return models.Coordinate{}, ErrUnavailable
	}
	return p.coord, nil
}

// ReverseGeocode resolves a coordinate to a display address. An empty
// address with nil error is a valid outcome when the endpoint has no
// result for the point.
func (p *NominatimProvider) ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error) {
	url := fmt.Sprintf("%s/reverse?format=jsonv2&lat=%.6f&lon=%.6f", p.BaseURL, coord.Latitude, coord.Longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("geocoder status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var obj struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", err
	}
	return obj.DisplayName, nil
}
