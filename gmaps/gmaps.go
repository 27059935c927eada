package gmaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseUrl = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Client resolves driving distances through the Distance Matrix API.
// It implements types.DistanceLookup.
type Client struct {
	ApiKey  string
	BaseUrl string
	http    *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		ApiKey:  apiKey,
		BaseUrl: defaultBaseUrl,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type matrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int `json:"value"` // meters
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (c *Client) Distance(ctx context.Context, originLat, originLon float64, destination string) (float64, time.Duration, error) {
	q := url.Values{}
	q.Set("origins", fmt.Sprintf("%f,%f", originLat, originLon))
	q.Set("destinations", destination)
	q.Set("key", c.ApiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseUrl+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch distance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var matrix matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		return 0, 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(matrix.Rows) == 0 || len(matrix.Rows[0].Elements) == 0 {
		return 0, 0, fmt.Errorf("empty distance matrix for destination %q", destination)
	}

	element := matrix.Rows[0].Elements[0]
	if element.Status != "OK" {
		return 0, 0, fmt.Errorf("no valid route for destination %q: %s", destination, element.Status)
	}

	km := float64(element.Distance.Value) / 1000.0
	travel := time.Duration(element.Duration.Value) * time.Second
	return km, travel, nil
}
