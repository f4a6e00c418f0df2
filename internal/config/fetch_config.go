package config

import "time"

type Fetch struct{}

var _ FetchConfig = Fetch{}

func (Fetch) GetAPIBaseURL() string {
	return GetEnv("STRAVA_API_BASE_URL", "https://www.strava.com/api/v3")
}

func (Fetch) GetAPITimeout() time.Duration {
	return GetDurationEnv("API_TIMEOUT", 15*time.Second)
}

func (Fetch) GetActivitiesPageSize() int {
	return GetIntEnv("ACTIVITIES_PAGE_SIZE", 9)
}

// GetDetailWorkers limits concurrent detail requests against the provider
func (Fetch) GetDetailWorkers() int {
	return GetIntEnv("DETAIL_WORKERS", 4)
}

// GetWeatherBaseURL enables weather enrichment when set (e.g. https://archive-api.open-meteo.com)
func (Fetch) GetWeatherBaseURL() string {
	return GetEnv("WEATHER_BASE_URL", "")
}
