package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MissingFieldError reports a required key absent from a decoded payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// WeatherResponse is the One Call snapshot: current conditions plus the
// hourly forecast in chronological order. The remote payload also carries
// daily, minutely and alerts blocks; those are not decoded.
type WeatherResponse struct {
	Current Weather   `json:"current"`
	Hourly  []Weather `json:"hourly"`
}

func (w *WeatherResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Current *Weather   `json:"current"`
		Hourly  *[]Weather `json:"hourly"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Current == nil {
		return &MissingFieldError{Field: "current"}
	}
	if raw.Hourly == nil {
		return &MissingFieldError{Field: "hourly"}
	}
	w.Current = *raw.Current
	w.Hourly = *raw.Hourly
	return nil
}

// Weather is a single reading, either the current one or an hourly slot.
type Weather struct {
	Dt         int64       `json:"dt"`
	Sunrise    int64       `json:"sunrise,omitempty"`
	Sunset     int64       `json:"sunset,omitempty"`
	Temp       float64     `json:"temp"`
	FeelsLike  float64     `json:"feels_like"`
	Pressure   int         `json:"pressure"`
	Humidity   int         `json:"humidity"`
	DewPoint   float64     `json:"dew_point"`
	UVI        float64     `json:"uvi"`
	Clouds     int         `json:"clouds"`
	Visibility int         `json:"visibility"`
	WindSpeed  float64     `json:"wind_speed"`
	WindDeg    int         `json:"wind_deg"`
	WindGust   float64     `json:"wind_gust,omitempty"`
	Pop        float64     `json:"pop,omitempty"`
	Conditions []Condition `json:"weather"`
}

type weatherAlias Weather

func (w *Weather) UnmarshalJSON(data []byte) error {
	aux := struct {
		*weatherAlias
		Dt   *int64   `json:"dt"`
		Temp *float64 `json:"temp"`
	}{weatherAlias: (*weatherAlias)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Dt == nil {
		return &MissingFieldError{Field: "dt"}
	}
	if aux.Temp == nil {
		return &MissingFieldError{Field: "temp"}
	}
	w.Dt = *aux.Dt
	w.Temp = *aux.Temp
	return nil
}

// Time returns the reading's timestamp in UTC.
func (w Weather) Time() time.Time {
	return time.Unix(w.Dt, 0).UTC()
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// WeatherReport is what the service hands to API clients.
type WeatherReport struct {
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
	Weather   WeatherResponse `json:"weather"`
	Cached    bool            `json:"cached"`
	FetchedAt time.Time       `json:"fetched_at"`
}
