package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	openMeteoSource  = "open-meteo"
	openMeteoHourly  = "temperature_2m,relative_humidity_2m,wind_speed_10m,precipitation,weather_code"
	openMeteoHourFmt = "2006-01-02T15:04"
)

// OpenMeteo reads hourly history from the Open-Meteo archive API.
type OpenMeteo struct {
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*OpenMeteo)(nil)

func NewOpenMeteo(baseURL string, timeout time.Duration) *OpenMeteo {
	return &OpenMeteo{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type openMeteoResponse struct {
	Hourly struct {
		Time             []string   `json:"time"`
		Temperature      []*float64 `json:"temperature_2m"`
		RelativeHumidity []*float64 `json:"relative_humidity_2m"`
		WindSpeed        []*float64 `json:"wind_speed_10m"`
		Precipitation    []*float64 `json:"precipitation"`
		WeatherCode      []*float64 `json:"weather_code"`
	} `json:"hourly"`
}

func (o *OpenMeteo) Lookup(ctx context.Context, lat, lng float64, at time.Time) (*Conditions, error) {
	day := at.UTC().Format("2006-01-02")
	query := url.Values{
		"latitude":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(lng, 'f', 4, 64)},
		"start_date": {day},
		"end_date":   {day},
		"hourly":     {openMeteoHourly},
		"timezone":   {"UTC"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/archive?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("[weather Lookup] %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[weather Lookup] %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("[weather Lookup] status %d: %s", resp.StatusCode, string(body))
	}

	var decoded openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("[weather Lookup] decoding: %w", err)
	}

	hour := at.UTC().Truncate(time.Hour)
	wanted := hour.Format(openMeteoHourFmt)
	for i, ts := range decoded.Hourly.Time {
		if ts != wanted {
			continue
		}
		c := &Conditions{
			Time:             hour,
			TemperatureC:     valueAt(decoded.Hourly.Temperature, i),
			RelativeHumidity: valueAt(decoded.Hourly.RelativeHumidity, i),
			WindSpeedKmh:     valueAt(decoded.Hourly.WindSpeed, i),
			PrecipitationMm:  valueAt(decoded.Hourly.Precipitation, i),
			Source:           openMeteoSource,
		}
		if code := valueAt(decoded.Hourly.WeatherCode, i); code != nil {
			wc := int(*code)
			c.WeatherCode = &wc
		}
		if c.TemperatureC == nil && c.WindSpeedKmh == nil && c.PrecipitationMm == nil {
			return nil, nil
		}
		return c, nil
	}
	return nil, nil
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
