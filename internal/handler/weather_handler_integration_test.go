package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fakhrymubarak/weather-onecall/internal/model"
	"github.com/fakhrymubarak/weather-onecall/internal/redis"
	"github.com/fakhrymubarak/weather-onecall/internal/repository"
	"github.com/fakhrymubarak/weather-onecall/internal/service"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const mockOneCallBody = `{"lat": 51.5074, "lon": -0.1278, "timezone": "Europe/London",
  "current": {"dt": 1700000000, "temp": 9.1, "humidity": 81, "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}]},
  "hourly": [{"dt": 1700000000, "temp": 9.1}, {"dt": 1700003600, "temp": 8.7}],
  "daily": [{"dt": 1700000000, "temp": {"day": 10.2}}]}`

type WeatherAPITestSuite struct {
	suite.Suite
	httpServer *httptest.Server
	mockOWM    *httptest.Server
	miniRedis  *miniredis.Miniredis
	owmHits    atomic.Int32
}

func (suite *WeatherAPITestSuite) SetupSuite() {
	suite.miniRedis = miniredis.NewMiniRedis()
	suite.Require().NoError(suite.miniRedis.Start())
	viper.Set("redis.addr", suite.miniRedis.Addr())
	redis.ResetClientForTest()

	suite.mockOWM = suite.mockOWMApi()
	viper.Set("openweathermap.api_url", suite.mockOWM.URL+"/data/2.5/onecall")

	weatherRepo := repository.NewWeatherRepository(suite.mockOWM.Client())
	weatherService := service.NewWeatherService(weatherRepo)

	mux := http.NewServeMux()
	mux.HandleFunc("/weather", NewWeatherHandler(weatherService).HandleWeather)
	suite.httpServer = httptest.NewServer(mux)
}

func (suite *WeatherAPITestSuite) TearDownSuite() {
	suite.httpServer.Close()
	suite.mockOWM.Close()
	suite.miniRedis.Close()
	redis.ResetClientForTest()
	viper.Set("redis.addr", "localhost:6379")
	viper.Set("openweathermap.api_url", "https://api.openweathermap.org/data/2.5/onecall")
}

func (suite *WeatherAPITestSuite) SetupTest() {
	suite.T().Setenv("OPENWEATHERMAP_API_KEY", "test_api_key")
	suite.miniRedis.FlushAll()
	suite.owmHits.Store(0)
}

func TestWeatherAPITestSuite(t *testing.T) {
	suite.Run(t, new(WeatherAPITestSuite))
}

func (suite *WeatherAPITestSuite) get(path string) (*http.Response, model.Response) {
	resp, err := suite.httpServer.Client().Get(suite.httpServer.URL + path)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	var envelope model.Response
	suite.Require().NoError(json.Unmarshal(body, &envelope), string(body))
	return resp, envelope
}

func (suite *WeatherAPITestSuite) TestWeather_NotCachedThenCached() {
	resp, envelope := suite.get("/weather?lat=51.5074&lon=-0.1278")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("Success", envelope.Message)

	data := envelope.Data.(map[string]interface{})
	suite.Equal(false, data["cached"])
	weather := data["weather"].(map[string]interface{})
	suite.Len(weather["hourly"], 2)
	suite.NotContains(weather, "daily")

	resp, envelope = suite.get("/weather?lat=51.5074&lon=-0.1278")
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal(true, envelope.Data.(map[string]interface{})["cached"])
	suite.Equal(int32(1), suite.owmHits.Load())
}

func (suite *WeatherAPITestSuite) TestWeather_InvalidAPIKey() {
	suite.T().Setenv("OPENWEATHERMAP_API_KEY", "invalid_key")

	resp, envelope := suite.get("/weather?lat=51.5074&lon=-0.1278")
	suite.Equal(http.StatusBadGateway, resp.StatusCode)
	suite.Require().NotNil(envelope.Error)
	assert.Contains(suite.T(), *envelope.Error, "Failed to fetch weather data")
}

func (suite *WeatherAPITestSuite) TestWeather_UnknownLocation() {
	resp, _ := suite.get("/weather?lat=0&lon=0")
	suite.Equal(http.StatusBadGateway, resp.StatusCode)
}

func (suite *WeatherAPITestSuite) TestWeather_BadRequest() {
	resp, envelope := suite.get("/weather?lat=north&lon=0")
	suite.Equal(http.StatusBadRequest, resp.StatusCode)
	suite.Require().NotNil(envelope.Error)
	suite.Equal(int32(0), suite.owmHits.Load())
}

func (suite *WeatherAPITestSuite) mockOWMApi() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.owmHits.Add(1)
		q := r.URL.Query()
		if q.Get("appid") != "test_api_key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		if q.Get("lat") == "51.5074" && q.Get("lon") == "-0.1278" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(mockOneCallBody))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod": "404", "message": "location not found"}`))
	}))
}
