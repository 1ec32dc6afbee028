package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"
	requestTimeout = 10 * time.Second
)

// OpenWeatherClient reports current ambient temperature via the OpenWeather
// current-conditions endpoint.
type OpenWeatherClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenWeatherClient(apiKey string) *OpenWeatherClient {
	return &OpenWeatherClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type weatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Message string `json:"message,omitempty"`
}

func (c *OpenWeatherClient) CurrentTemperature(ctx context.Context, city string) (float64, error) {
	if city == "" {
		return 0, fmt.Errorf("city is required")
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openWeatherURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("weather request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result weatherResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("unmarshal weather response: %w", err)
	}

	return result.Main.Temp, nil
}
