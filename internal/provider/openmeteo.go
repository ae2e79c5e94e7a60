package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/citysun/sunshine-tracker/internal/catalog"
	"github.com/sony/gobreaker"
)

// DailyCloudCover is one day of the archive series. The mean is nil on
// days the provider has no data for.
type DailyCloudCover struct {
	Date           string
	CloudCoverMean *float64
}

// ArchiveProvider fetches daily cloud-cover aggregates from the
// Open-Meteo archive API. No API key required.
type ArchiveProvider struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewArchiveProvider(client *http.Client) *ArchiveProvider {
	return &ArchiveProvider{
		baseURL: "https://archive-api.open-meteo.com/v1/archive",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("openmeteo-archive"),
	}
}

// FetchDaily returns the cloud-cover-mean series for [startDate, endDate]
// inclusive (ISO dates). The provider returns parallel-indexed arrays;
// a length mismatch is zipped to the shorter side.
func (p *ArchiveProvider) FetchDaily(ctx context.Context, city catalog.City, startDate, endDate string) ([]DailyCloudCover, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", city.Lat))
		values.Set("longitude", fmt.Sprintf("%f", city.Lon))
		values.Set("start_date", startDate)
		values.Set("end_date", endDate)
		values.Set("daily", "cloud_cover_mean")
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time           []string   `json:"time"`
			CloudCoverMean []*float64 `json:"cloud_cover_mean"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode openmeteo archive response: %w", err)
	}

	n := len(payload.Daily.Time)
	if len(payload.Daily.CloudCoverMean) < n {
		n = len(payload.Daily.CloudCoverMean)
	}

	series := make([]DailyCloudCover, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, DailyCloudCover{
			Date:           payload.Daily.Time[i],
			CloudCoverMean: payload.Daily.CloudCoverMean[i],
		})
	}
	return series, nil
}
