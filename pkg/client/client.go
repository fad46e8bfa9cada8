// Package client provides high-level access to the WinCC Unified GraphQL
// API: session management over HTTP and typed tag/alarm/browse operations,
// with subscriptions multiplexed over a shared WebSocket connection.
package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jensneuse/abstractlogger"

	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/common"
	"github.com/vogler75/winccua-graphql-dashboard-sub000/pkg/transport"
)

// Config holds the client configuration. HTTPEndpoint is required;
// WSEndpoint only when subscriptions are used.
type Config struct {
	HTTPEndpoint string
	WSEndpoint   string

	HTTPClient *http.Client
	Logger     abstractlogger.Logger

	// Subprotocol pins the websocket dialect; default negotiates.
	Subprotocol common.Subprotocol

	// AckTimeout and KeepAliveInterval tune the websocket connection.
	AckTimeout        time.Duration
	KeepAliveInterval time.Duration

	// ExtendSessionInterval is the cadence of the background session
	// refresh started by Login. Zero disables auto extension.
	ExtendSessionInterval time.Duration
}

// Client is the WinCC Unified API facade. Queries and mutations go over
// HTTP; subscriptions share one websocket connected lazily on first use.
type Client struct {
	cfg  Config
	http *HTTPClient
	log  abstractlogger.Logger

	mu         sync.Mutex
	ws         *transport.Conn
	extendStop chan struct{}
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = abstractlogger.NoopLogger
	}
	return &Client{
		cfg:  cfg,
		http: NewHTTPClient(cfg.HTTPEndpoint, cfg.HTTPClient, cfg.Logger),
		log:  cfg.Logger,
	}
}

// Login authenticates and stores the bearer token for both transports.
// When ExtendSessionInterval is set, a background refresh keeps the session
// alive until Logout or Close.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var result struct {
		Login Session `json:"login"`
	}
	err := c.http.Execute(ctx, loginMutation, map[string]any{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	session := &result.Login
	if session.Error.failed() {
		return nil, fmt.Errorf("login: %w", *session.Error)
	}
	if session.Token != nil {
		c.http.SetToken(*session.Token)
	}

	if c.cfg.ExtendSessionInterval > 0 {
		c.startExtender()
	}

	c.log.Debug("client.Login", abstractlogger.String("user", username))

	return session, nil
}

// Logout ends the session, stops the background refresh, and clears the
// token. The websocket, if connected, is torn down: its handshake
// credential is no longer valid.
func (c *Client) Logout(ctx context.Context, allSessions bool) (bool, error) {
	c.stopExtender()
	c.disconnectWS()

	var result struct {
		Logout bool `json:"logout"`
	}
	err := c.http.Execute(ctx, logoutMutation, map[string]any{
		"allSessions": allSessions,
	}, &result)

	c.http.SetToken("")

	if err != nil {
		return false, fmt.Errorf("logout: %w", err)
	}
	return result.Logout, nil
}

// Session returns the current session information.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var result struct {
		Session []*Session `json:"session"`
	}
	err := c.http.Execute(ctx, sessionQuery, map[string]any{
		"allSessions": false,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(result.Session) == 0 {
		return nil, fmt.Errorf("get session: no sessions in response")
	}

	session := result.Session[0]
	if session.Error.failed() {
		return nil, fmt.Errorf("get session: %w", *session.Error)
	}
	return session, nil
}

// SetToken replaces the credential for both transports. A connected
// websocket presented the old token at handshake time and is disconnected;
// the next subscription reconnects with the new one.
func (c *Client) SetToken(token string) {
	c.http.SetToken(token)
	c.disconnectWS()
}

// Close tears down the websocket and stops the session refresh. It does
// not log out; use Logout for that.
func (c *Client) Close() error {
	c.stopExtender()
	c.disconnectWS()
	return nil
}

// TagValues reads the current values of the named tags.
func (c *Client) TagValues(ctx context.Context, names []string) ([]*TagValue, error) {
	var result struct {
		TagValues []*TagValue `json:"tagValues"`
	}
	err := c.http.Execute(ctx, tagValuesQuery, map[string]any{
		"names":      names,
		"directRead": false,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("tag values: %w", err)
	}
	return result.TagValues, nil
}

// WriteTagValues writes the given values.
func (c *Client) WriteTagValues(ctx context.Context, input []*TagValueInput) ([]*WriteTagResult, error) {
	var result struct {
		WriteTagValues []*WriteTagResult `json:"writeTagValues"`
	}
	err := c.http.Execute(ctx, writeTagValuesMutation, map[string]any{
		"input": input,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("write tag values: %w", err)
	}
	return result.WriteTagValues, nil
}

// Browse lists objects of the tag namespace matching the filter.
func (c *Client) Browse(ctx context.Context, filter BrowseFilter) ([]*BrowseEntry, error) {
	language := filter.Language
	if language == "" {
		language = "en-US"
	}
	variables := map[string]any{
		"nameFilters":       filter.NameFilters,
		"objectTypeFilters": filter.ObjectTypeFilters,
		"baseTypeFilters":   filter.BaseTypeFilters,
		"language":          language,
	}

	var result struct {
		Browse []*BrowseEntry `json:"browse"`
	}
	if err := c.http.Execute(ctx, browseQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("browse: %w", err)
	}
	return result.Browse, nil
}

// ActiveAlarms returns the currently active alarms.
func (c *Client) ActiveAlarms(ctx context.Context) ([]*Alarm, error) {
	var result struct {
		ActiveAlarms []*Alarm `json:"activeAlarms"`
	}
	if err := c.http.Execute(ctx, activeAlarmsQuery, nil, &result); err != nil {
		return nil, fmt.Errorf("active alarms: %w", err)
	}
	return result.ActiveAlarms, nil
}

// AcknowledgeAlarms acknowledges the addressed alarm instances.
func (c *Client) AcknowledgeAlarms(ctx context.Context, input []*AlarmIdentifier) ([]*AlarmOperationResult, error) {
	var result struct {
		AcknowledgeAlarms []*AlarmOperationResult `json:"acknowledgeAlarms"`
	}
	err := c.http.Execute(ctx, acknowledgeAlarmsMutation, map[string]any{
		"input": input,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("acknowledge alarms: %w", err)
	}
	return result.AcknowledgeAlarms, nil
}

// LoggedTagValues reads historical values from the logging subsystem.
func (c *Client) LoggedTagValues(ctx context.Context, filter LoggedTagValuesFilter) ([]*LoggedTagValue, error) {
	sortingMode := filter.SortingMode
	if sortingMode == "" {
		sortingMode = "TIME_ASC"
	}
	boundingMode := filter.BoundingValuesMode
	if boundingMode == "" {
		boundingMode = "NO_BOUNDING_VALUES"
	}
	variables := map[string]any{
		"names":              filter.Names,
		"maxNumberOfValues":  filter.MaxNumberOfValues,
		"sortingMode":        sortingMode,
		"boundingValuesMode": boundingMode,
	}
	if filter.StartTime != "" {
		variables["startTime"] = filter.StartTime
	}
	if filter.EndTime != "" {
		variables["endTime"] = filter.EndTime
	}

	var result struct {
		LoggedTagValues []*LoggedTagValue `json:"loggedTagValues"`
	}
	if err := c.http.Execute(ctx, loggedTagValuesQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("logged tag values: %w", err)
	}
	return result.LoggedTagValues, nil
}

// startExtender launches the background session refresh once.
func (c *Client) startExtender() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.extendStop != nil {
		return
	}
	c.extendStop = make(chan struct{})
	go c.extendLoop(c.extendStop)
}

func (c *Client) stopExtender() {
	c.mu.Lock()
	stop := c.extendStop
	c.extendStop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
}

// extendLoop refreshes the session at the configured cadence. The session
// query returns a fresh token; only the HTTP credential is rotated, a live
// websocket keeps the credential it presented at handshake time.
func (c *Client) extendLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.ExtendSessionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			session, err := c.Session(ctx)
			cancel()
			if err != nil {
				c.log.Error("client.extendLoop", abstractlogger.Error(err))
				continue
			}
			if session.Token != nil {
				c.http.SetToken(*session.Token)
			}
		}
	}
}
