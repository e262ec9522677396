// Package api talks to the backend's HTTP negotiation endpoints.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"ekyc_capture/native/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Client exchanges SDP offers with the backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient creates an API client rooted at baseURL. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, log logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// ExchangeOffer posts the local offer to endpoint and returns the answer.
// Every failure wraps domain.ErrNegotiationFailed.
func (c *Client) ExchangeOffer(ctx context.Context, endpoint string, offer domain.SDPPayload) (domain.SDPPayload, error) {
	var answer domain.SDPPayload

	body, err := json.Marshal(offer)
	if err != nil {
		return answer, fmt.Errorf("%w: marshal offer: %v", domain.ErrNegotiationFailed, err)
	}

	url := c.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return answer, fmt.Errorf("%w: create http request: %v", domain.ErrNegotiationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Infof("[api] posting offer to %s", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return answer, fmt.Errorf("%w: http request: %v", domain.ErrNegotiationFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return answer, fmt.Errorf("%w: read response: %v", domain.ErrNegotiationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return answer, fmt.Errorf("%w: http %d: %s", domain.ErrNegotiationFailed, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, &answer); err != nil {
		return answer, fmt.Errorf("%w: unmarshal answer: %v", domain.ErrNegotiationFailed, err)
	}
	if answer.SDP == "" {
		return answer, fmt.Errorf("%w: empty answer", domain.ErrNegotiationFailed)
	}

	c.log.Infof("[api] answer received (%s)", answer.Type)
	return answer, nil
}

func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}
