package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type getWeatherArgs struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// getWeatherTool is read-only: it only queries the forecast service.
type getWeatherTool struct {
	client  *http.Client
	baseURL string
}

func NewGetWeather(client *http.Client, baseURL string) Tool {
	return &getWeatherTool{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (t *getWeatherTool) Name() string { return NameGetWeather }

func (t *getWeatherTool) Description() string {
	return "Get the current weather at a location"
}

func (t *getWeatherTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{` +
		`"latitude":{"type":"number"},"longitude":{"type":"number"}},` +
		`"required":["latitude","longitude"]}`)
}

func (t *getWeatherTool) Call(ctx context.Context, input string) (string, error) {
	var args getWeatherArgs
	if err := decodeArgs(input, &args); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(*args.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(*args.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m")
	q.Set("hourly", "temperature_2m")
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build weather request failed: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read weather response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("weather response status %d", resp.StatusCode)
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("weather response is not json")
	}
	return string(raw), nil
}
