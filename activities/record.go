package activities

import (
	"encoding/json"
	"strconv"
	"time"
)

// Record is a provider activity object, summary or detail, kept as decoded JSON so that
// fields the proxy does not know about pass through to the client untouched.
type Record map[string]any

// WeatherField is the key enrichment data is attached under
const WeatherField = "weather"

// ID returns the activity id as a string
func (r Record) ID() (string, bool) {
	switch id := r["id"].(type) {
	case json.Number:
		return id.String(), id.String() != ""
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	}
	return "", false
}

// StartLatLng reads the [lat, lng] pair. Manual activities have an empty array.
func (r Record) StartLatLng() (lat, lng float64, ok bool) {
	pair, isSlice := r["start_latlng"].([]any)
	if !isSlice || len(pair) != 2 {
		return 0, 0, false
	}
	lat, latOK := toFloat(pair[0])
	lng, lngOK := toFloat(pair[1])
	return lat, lng, latOK && lngOK
}

// StartDate reads the UTC start_date
func (r Record) StartDate() (time.Time, bool) {
	s, ok := r["start_date"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}
