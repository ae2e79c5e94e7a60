package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/citysun/sunshine-tracker/internal/store"
	"github.com/sony/gobreaker"
)

// ErrMissingTimestamp marks a response without a dt field. The resulting
// record would have no capture time, so it is dropped rather than stored.
var ErrMissingTimestamp = errors.New("response has no observation timestamp")

// CurrentProvider fetches live conditions from OpenWeatherMap.
type CurrentProvider struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewCurrentProvider(client *http.Client, apiKey string) *CurrentProvider {
	return &CurrentProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("openweather"),
	}
}

// Fetch retrieves and parses a snapshot for the given catalog city.
// The record carries the catalog name, not the provider's resolved name,
// so it joins cleanly against the cities table. Fields absent from the
// response map to zero values, except the timestamp, which is mandatory.
func (p *CurrentProvider) Fetch(ctx context.Context, city catalog.City) (store.WeatherRecord, error) {
	if p.apiKey == "" {
		return store.WeatherRecord{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", city.Lat))
		values.Set("lon", fmt.Sprintf("%f", city.Lon))
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return store.WeatherRecord{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt   *int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Visibility int    `json:"visibility"`
		Name       string `json:"name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return store.WeatherRecord{}, fmt.Errorf("decode openweather response: %w", err)
	}

	if payload.Dt == nil {
		return store.WeatherRecord{}, ErrMissingTimestamp
	}

	var description string
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	return store.WeatherRecord{
		City:        city.Name,
		Temp:        payload.Main.Temp,
		Clouds:      payload.Clouds.All,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Description: description,
		Timestamp:   *payload.Dt,
	}, nil
}
