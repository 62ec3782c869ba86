package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-onecall/internal/config"
	"github.com/fakhrymubarak/weather-onecall/internal/model"
	"github.com/fakhrymubarak/weather-onecall/internal/network"
	"github.com/fakhrymubarak/weather-onecall/internal/redis"
	redisv9 "github.com/redis/go-redis/v9"
)

var ErrAPIKeyMissing = errors.New("API key missing")

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	GetWeather(ctx context.Context, lat, lon float64) (*model.WeatherReport, error)
}

// snapshotCache is the subset of the Redis client the repository uses.
type snapshotCache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

type weatherRepository struct {
	redisClient snapshotCache
	httpClient  *http.Client
	now         func() time.Time
}

// NewWeatherRepository creates a repository backed by the shared Redis client.
// Without an explicit client, requests go through http.DefaultClient.
func NewWeatherRepository(httpClient ...*http.Client) WeatherRepository {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &weatherRepository{
		redisClient: redis.GetClient(),
		httpClient:  client,
		now:         time.Now,
	}
}

// OneCallURL assembles the One Call request for a coordinate.
func OneCallURL(baseURL, apiKey, units string, exclude []string, lat, lon float64) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api url %q is not absolute", baseURL)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if len(exclude) > 0 {
		q.Set("exclude", strings.Join(exclude, ","))
	}
	if units != "" {
		q.Set("units", units)
	}
	q.Set("appid", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:onecall:%.4f,%.4f", lat, lon)
}

// GetWeather returns the cached snapshot for the coordinate, fetching and
// caching a fresh one on a miss. Cache failures fall through to the API.
func (r *weatherRepository) GetWeather(ctx context.Context, lat, lon float64) (*model.WeatherReport, error) {
	key := cacheKey(lat, lon)
	if cached, err := r.getFromCache(ctx, key); err == nil {
		return cached, nil
	} else if !errors.Is(err, redisv9.Nil) {
		config.GetLogger().Warnw("Snapshot cache unavailable", "key", key, "error", err)
	}

	report, err := r.fetchFromExternalAPI(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	r.cacheReport(ctx, key, report)
	return report, nil
}

func (r *weatherRepository) getFromCache(ctx context.Context, key string) (*model.WeatherReport, error) {
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var report model.WeatherReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, err
	}

	report.Cached = true
	return &report, nil
}

// fetchFromExternalAPI waits for the fetch callback until ctx is done. An
// abandoned fetch still runs to completion; its result is dropped.
func (r *weatherRepository) fetchFromExternalAPI(ctx context.Context, lat, lon float64) (*model.WeatherReport, error) {
	apiKey := config.GetOpenWeatherMapAPIKey()
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	u, err := OneCallURL(config.GetOneCallApiUrl(), apiKey, config.GetUnits(), config.GetExclude(), lat, lon)
	if err != nil {
		return nil, err
	}

	done := make(chan network.Result[model.WeatherResponse], 1)
	network.Fetch(r.httpClient, u, func(res network.Result[model.WeatherResponse]) {
		done <- res
	})

	select {
	case res := <-done:
		weather, err := res.Unwrap()
		if err != nil {
			return nil, err
		}
		return &model.WeatherReport{
			Lat:       lat,
			Lon:       lon,
			Weather:   weather,
			FetchedAt: r.now().UTC(),
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *weatherRepository) cacheReport(ctx context.Context, key string, report *model.WeatherReport) {
	b, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, key, b, config.GetCacheExpiration()).Err(); err != nil {
		config.GetLogger().Warnw("Could not cache snapshot", "key", key, "error", err)
	}
}
