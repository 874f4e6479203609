// Package clients provides HTTP clients for communicating with the bikepark service.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/illmade-knight/bikepark/internal/api"
	"github.com/illmade-knight/bikepark/pkg/locations"
	"github.com/rs/zerolog"
)

// LocationsClient talks to the /api resources of a running bikepark server.
// Error responses are turned back into the locations sentinel errors.
type LocationsClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewLocationsClient creates a new client for the bikepark API.
func NewLocationsClient(baseURL string, logger zerolog.Logger) *LocationsClient {
	return &LocationsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("client", "bikepark").Logger(),
	}
}

func (c *LocationsClient) Create(ctx context.Context, loc locations.Location) (locations.Location, error) {
	var created locations.Location
	err := c.do(ctx, http.MethodPost, "/api/localizacaos", loc, http.StatusCreated, &created)
	return created, err
}

// Update reserves one slot on loc.
func (c *LocationsClient) Update(ctx context.Context, loc locations.Location) (locations.Location, error) {
	var updated locations.Location
	err := c.do(ctx, http.MethodPut, "/api/localizacaos", loc, http.StatusOK, &updated)
	if err == nil {
		c.logger.Info().Str("localizacao_id", updated.ID).Int("qtd_reservada", updated.QtdReservada).Msg("Reserved slot")
	}
	return updated, err
}

// Cancel releases one slot on the location at the given address.
func (c *LocationsClient) Cancel(ctx context.Context, endereco, numero string) (locations.Location, error) {
	body := map[string]string{"endereco": endereco, "numero": numero}
	var cancelled locations.Location
	err := c.do(ctx, http.MethodPost, "/api/localizacaos/cancela", body, http.StatusOK, &cancelled)
	if err == nil {
		c.logger.Info().Str("localizacao_id", cancelled.ID).Int("qtd_reservada", cancelled.QtdReservada).Msg("Released slot")
	}
	return cancelled, err
}

func (c *LocationsClient) ListAvailable(ctx context.Context) ([]locations.Location, error) {
	var all []locations.Location
	err := c.do(ctx, http.MethodGet, "/api/localizacaos", nil, http.StatusOK, &all)
	return all, err
}

func (c *LocationsClient) GetByID(ctx context.Context, id string) (locations.Location, error) {
	var loc locations.Location
	err := c.do(ctx, http.MethodGet, "/api/localizacaos/"+url.PathEscape(id), nil, http.StatusOK, &loc)
	return loc, err
}

func (c *LocationsClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/localizacaos/"+url.PathEscape(id), nil, http.StatusOK, nil)
}

func (c *LocationsClient) Search(ctx context.Context, query string) ([]locations.Location, error) {
	var results []locations.Location
	path := "/api/_search/localizacaos?query=" + url.QueryEscape(query)
	err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &results)
	return results, err
}

func (c *LocationsClient) Reindex(ctx context.Context) (int, error) {
	var resp struct {
		Indexed int `json:"indexed"`
	}
	err := c.do(ctx, http.MethodPost, "/api/_reindex/localizacaos", nil, http.StatusOK, &resp)
	return resp.Indexed, err
}

func (c *LocationsClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s %s request: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute %s %s request: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// decodeError maps an error response onto the locations sentinel errors.
func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch body.Error {
	case api.ErrKeyIDNull, api.ErrKeyBadRequest:
		return fmt.Errorf("%w: %s", locations.ErrValidation, body.Message)
	case api.ErrKeyNotFound:
		return fmt.Errorf("%w: %s", locations.ErrNotFound, body.Message)
	}
	if body.Message != "" {
		return fmt.Errorf("bikepark returned status %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("bikepark returned unexpected status code: %d", resp.StatusCode)
}
