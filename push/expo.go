// Package push wraps the Expo push gateway. Dispatch is best-effort:
// invalid tokens are filtered, requests are chunked per the gateway's
// per-request limit, and transport failures are logged, never returned.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"

	"planora-server/metrics"
)

const DefaultGatewayURL = "https://exp.host/--/api/v2/push/send"

// DefaultChunkSize matches the Expo push API limit of 100 notifications
// per request.
const DefaultChunkSize = 100

var tokenPattern = regexp.MustCompile(`^Expo(nent)?PushToken\[[^\[\]]+\]$`)

type Notification struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type Client struct {
	gatewayURL string
	chunkSize  int
	httpClient *http.Client
}

func NewClient(gatewayURL string, chunkSize int) *Client {
	if gatewayURL == "" {
		gatewayURL = DefaultGatewayURL
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Client{
		gatewayURL: gatewayURL,
		chunkSize:  chunkSize,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// IsValidToken reports whether token looks like an Expo push token,
// e.g. "ExponentPushToken[xxxxxxxx]".
func (c *Client) IsValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Dispatch filters out notifications with malformed tokens, splits the
// rest into chunks and submits each chunk independently. A failed chunk
// is logged and does not block the remaining chunks. Dispatch never
// returns an error to the caller.
func (c *Client) Dispatch(notifications []Notification) {
	valid := notifications[:0:0]
	for _, n := range notifications {
		if !c.IsValidToken(n.To) {
			metrics.PushDropped.Inc()
			continue
		}
		valid = append(valid, n)
	}
	if len(valid) == 0 {
		return
	}

	for start := 0; start < len(valid); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]
		if err := c.sendChunk(chunk); err != nil {
			metrics.PushChunkFailures.Inc()
			log.Printf("[PUSH] Chunk of %d failed: %v", len(chunk), err)
			continue
		}
		metrics.PushSent.Add(float64(len(chunk)))
	}
}

func (c *Client) sendChunk(chunk []Notification) error {
	body, err := json.Marshal(chunk)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &gatewayError{status: resp.StatusCode}
	}
	return nil
}

type gatewayError struct {
	status int
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("push gateway returned status %d", e.status)
}
