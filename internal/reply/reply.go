package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/malonaz/companion/internal/configuration"
	"github.com/malonaz/companion/internal/text"
)

// requestID is sent with every query. The service ignores it.
const requestID = 1

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("reply service returned status %d", e.StatusCode)
}

// Request is the wire shape of a query.
type Request struct {
	ID        int    `json:"id"`
	QueryBody string `json:"Query_body"`
	UserName  string `json:"User_Name"`
}

// Client queries the reply service.
type Client struct {
	url        string
	userName   string
	httpClient *http.Client
}

// NewClient instantiates and returns a new client.
// A zero timeout uses the default of 60 seconds. A negative timeout disables it.
func NewClient(config *configuration.ReplyConfig, userName string, timeout int) *Client {
	httpClient := &http.Client{}
	switch {
	case timeout == 0:
		httpClient.Timeout = 60 * time.Second
	case timeout > 0:
		httpClient.Timeout = time.Duration(timeout) * time.Second
	}
	return &Client{
		url:        config.URL,
		userName:   userName,
		httpClient: httpClient,
	}
}

// Reply sends a query and returns the raw reply value, before normalization.
func (c *Client) Reply(ctx context.Context, query string) (any, error) {
	body, err := json.Marshal(&Request{ID: requestID, QueryBody: query, UserName: c.userName})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request")
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrap(err, "sending request")
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(payload)}
	}

	value, err := text.Extract(payload)
	if err != nil {
		return nil, errors.Wrap(err, "extracting reply")
	}
	return value, nil
}
