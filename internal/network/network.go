// Package network fetches a URL and decodes its JSON body into a caller-chosen
// type. There is no retry, no caching and no cancellation once a Fetch starts.
package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	neturl "net/url"

	"github.com/fakhrymubarak/weather-onecall/internal/config"
)

// Result carries the outcome of one fetch: either Value or Err is meaningful.
type Result[T any] struct {
	Value T
	Err   *NetworkError
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap returns the result as a conventional value/error pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		return r.Value, r.Err
	}
	return r.Value, nil
}

// Fetch issues a GET for url on a new goroutine and calls completion exactly
// once with the outcome, on that goroutine. A nil client means
// http.DefaultClient.
func Fetch[T any](client *http.Client, url string, completion func(Result[T])) {
	go func() {
		v, nerr := get[T](context.Background(), client, url)
		completion(Result[T]{Value: v, Err: nerr})
	}()
}

// Get is the blocking form of Fetch. A non-nil error is always a *NetworkError.
func Get[T any](ctx context.Context, client *http.Client, url string) (T, error) {
	v, nerr := get[T](ctx, client, url)
	if nerr != nil {
		return v, nerr
	}
	return v, nil
}

func get[T any](ctx context.Context, client *http.Client, url string) (T, *NetworkError) {
	var zero T
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		config.GetLogger().Errorw("Could not build request", "url", redact(url), "error", err)
		return zero, transportError(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			uerr.URL = redact(uerr.URL)
		}
		config.GetLogger().Errorw("Request failed", "url", redact(url), "error", err)
		return zero, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return zero, invalidResponse(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		config.GetLogger().Errorw("Reading response body failed", "url", redact(url), "error", err)
		return zero, transportError(err)
	}
	if len(body) == 0 {
		return zero, invalidData()
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		config.GetLogger().Errorw("Decoding response body failed", "url", redact(url), "error", err)
		return zero, decodingError(err)
	}
	return v, nil
}

// redact drops the query string, which carries the API key.
func redact(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	return u.String()
}
