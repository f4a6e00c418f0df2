package weather_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-strava-proxy/weather"
	"github.com/stretchr/testify/require"
)

const archiveResponse = `{
  "latitude": 51.5,
  "longitude": -0.12,
  "hourly": {
    "time": ["2024-03-10T06:00", "2024-03-10T07:00", "2024-03-10T08:00"],
    "temperature_2m": [4.1, 5.3, null],
    "relative_humidity_2m": [88, 84, null],
    "wind_speed_10m": [11.2, 12.9, null],
    "precipitation": [0, 0.2, null],
    "weather_code": [3, 61, null]
  }
}`

func TestOpenMeteo_Lookup(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, archiveResponse)
	}))
	t.Cleanup(server.Close)

	o := weather.NewOpenMeteo(server.URL+"/", time.Second)

	t.Run("hour of the start", func(t *testing.T) {
		c, err := o.Lookup(context.Background(), 51.5007, -0.1246, time.Date(2024, 3, 10, 7, 42, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotNil(t, c)
		require.Equal(t, time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC), c.Time)
		require.InDelta(t, 5.3, *c.TemperatureC, 0.001)
		require.InDelta(t, 0.2, *c.PrecipitationMm, 0.001)
		require.Equal(t, 61, *c.WeatherCode)
		require.Equal(t, "open-meteo", c.Source)

		require.Equal(t, "/v1/archive", gotPath)
		require.Equal(t, []string{"2024-03-10"}, gotQuery["start_date"])
		require.Equal(t, []string{"51.5007"}, gotQuery["latitude"])
	})

	t.Run("hour with no data", func(t *testing.T) {
		c, err := o.Lookup(context.Background(), 51.5, -0.12, time.Date(2024, 3, 10, 8, 5, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Nil(t, c)
	})

	t.Run("hour outside the response", func(t *testing.T) {
		c, err := o.Lookup(context.Background(), 51.5, -0.12, time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Nil(t, c)
	})
}

func TestOpenMeteo_LookupError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`, http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	_, err := weather.NewOpenMeteo(server.URL, time.Second).Lookup(context.Background(), 1, 2, time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
}

func TestNop(t *testing.T) {
	c, err := weather.Nop{}.Lookup(context.Background(), 1, 2, time.Now())
	require.NoError(t, err)
	require.Nil(t, c)
}
