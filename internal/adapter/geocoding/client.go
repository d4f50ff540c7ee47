// internal/adapter/geocoding/client.go
package geocoding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoArmGo/PlacesApp/internal/config"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/tidwall/gjson"
)

const (
	geocodePath = "/maps/api/geocode/json"

	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

const (
	errRequestFailed = "Geocoding request failed, check your network or API key."
	errNoLocation    = "Could not find location for the specified address."
)

// Client представляет клиент для Google Geocoding API.
type Client struct {
	httpClient *http.Client // HTTP-клиент для выполнения запросов
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewClient создает новый экземпляр Client.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.GeocodingBaseURL, "/"),
		apiKey:     cfg.GoogleAPIKey,
		logger:     logger,
	}
}

// Resolve переводит адрес в координаты.
// Адрес, для которого ничего не найдено, - это 422, любой сбой запроса - 500.
func (c *Client) Resolve(ctx context.Context, address string) (domain.Location, error) {
	params := url.Values{}
	params.Add("address", address)
	params.Add("key", c.apiKey)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, geocodePath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Location{}, domain.NewInternal(errRequestFailed, fmt.Errorf("build geocode request: %w", err))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("geocode request failed", "error", err)
		return domain.Location{}, domain.NewInternal(errRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Location{}, domain.NewInternal(errRequestFailed, fmt.Errorf("read geocode response: %w", err))
	}

	c.logger.Debug("geocode response",
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Location{}, domain.NewInternal(errRequestFailed,
			fmt.Errorf("geocoding API returned status %d", resp.StatusCode))
	}

	return parseLocation(body)
}

func parseLocation(body []byte) (domain.Location, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Location{}, domain.NewUnprocessable(errNoLocation, nil)
	}
	if !gjson.ValidBytes(body) {
		return domain.Location{}, domain.NewInternal(errRequestFailed, errors.New("malformed geocode response"))
	}

	status := gjson.GetBytes(body, "status").String()
	switch status {
	case statusOK:
	case statusZeroResults:
		return domain.Location{}, domain.NewUnprocessable(errNoLocation, nil)
	default:
		return domain.Location{}, domain.NewInternal(fmt.Sprintf("Geocoding failed with status: %s", status), nil)
	}

	loc := gjson.GetBytes(body, "results.0.geometry.location")
	if !loc.Exists() {
		return domain.Location{}, domain.NewUnprocessable(errNoLocation, nil)
	}

	return domain.Location{
		Lat: loc.Get("lat").Float(),
		Lng: loc.Get("lng").Float(),
	}, nil
}
