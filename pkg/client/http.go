package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jensneuse/abstractlogger"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
)

// RequestError carries the GraphQL error list of a failed query or
// mutation.
type RequestError struct {
	Errors []common.GraphQLError
}

func (e *RequestError) Error() string {
	if len(e.Errors) == 0 {
		return "graphql request error"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Message
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Message, len(e.Errors)-1)
}

// HTTPClient is the plain request/response GraphQL transport. It POSTs
// documents to one endpoint and carries the session bearer token.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	log      abstractlogger.Logger

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(endpoint string, httpClient *http.Client, log abstractlogger.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = abstractlogger.NoopLogger
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   httpClient,
		log:      log,
	}
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token. Satisfies the websocket
// transport's TokenProvider, so both transports share one credential.
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Execute POSTs the document and unmarshals the data field into out (when
// out is non-nil). GraphQL errors surface as a *RequestError.
func (c *HTTPClient) Execute(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(common.Request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result common.ExecutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Errors) > 0 {
		c.log.Debug("client.HTTPClient.Execute",
			abstractlogger.String("status", "graphql errors"),
			abstractlogger.Int("count", len(result.Errors)),
		)
		return &RequestError{Errors: result.Errors}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// decodeData unmarshals a subscription event payload into out.
func decodeData(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}
