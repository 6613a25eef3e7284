package appsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const DefaultBaseURL = "https://api.appsheet.com"

type Response struct {
	Data []byte
}

// Transport handles low-level HTTP and the AppSheet access key
type Transport struct {
	BaseURL    string
	AccessKey  string
	HTTPClient *http.Client
}

func NewTransport(baseURL, accessKey string) *Transport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Transport{
		BaseURL:    baseURL,
		AccessKey:  accessKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// helper: build full URL with escaped path segments
func (t *Transport) buildURL(segments ...string) string {
	u, _ := url.Parse(t.BaseURL)
	return u.JoinPath(segments...).String()
}

// Post sends a POST request with JSON body
func (t *Transport) Post(ctx context.Context, data any, segments ...string) (*Response, error) {
	fullURL := t.buildURL(segments...)

	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if t.AccessKey != "" {
		req.Header.Set("ApplicationAccessKey", t.AccessKey)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("POST %s failed with status code %d: %s", fullURL, resp.StatusCode, string(b))
	}

	resdata, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Data: resdata,
	}, nil
}
