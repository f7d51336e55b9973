package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shineum/contact-api/internal/email"
	"github.com/shineum/contact-api/internal/provider"
)

// Config holds the configuration for creating a Graph Provider.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string

	// Logger receives token refresh records. Defaults to slog.Default().
	Logger *slog.Logger
}

// Provider sends messages via the Microsoft Graph API using OAuth2
// client credentials.
type Provider struct {
	sender     string
	graphURL   string
	httpClient *http.Client
	token      *tokenCache
	logger     *slog.Logger
}

// New creates a new Graph Provider.
func New(cfg Config) *Provider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		url.PathEscape(cfg.TenantID),
	)
	graphURL := fmt.Sprintf(
		"https://graph.microsoft.com/v1.0/users/%s/sendMail",
		url.PathEscape(cfg.Sender),
	)

	client := &http.Client{Timeout: 30 * time.Second}
	return newWithOverrides(cfg, graphURL, tokenURL, client)
}

// newWithOverrides creates a Provider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg Config, graphURL, tokenURL string, client *http.Client) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger:     logger,
		sender:     cfg.Sender,
		graphURL:   graphURL,
		httpClient: client,
		token:      newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Name returns the provider name.
func (g *Provider) Name() string {
	return "graph"
}

// Send delivers the message with one sendMail call. A 401 triggers a
// single token refresh and one more attempt; nothing else is retried.
func (g *Provider) Send(ctx context.Context, msg *email.Message) error {
	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	token, err := g.token.Token(ctx)
	if err != nil {
		return classifyTokenError(err)
	}

	err = g.doSendRequest(ctx, token, bodyJSON)

	var sendErr *sendError
	if errors.As(err, &sendErr) && sendErr.statusCode == http.StatusUnauthorized {
		g.logger.InfoContext(ctx, "refreshing Graph API token after 401")
		token, refreshErr := g.token.ForceRefresh(ctx)
		if refreshErr != nil {
			return classifyTokenError(refreshErr)
		}
		err = g.doSendRequest(ctx, token, bodyJSON)
	}

	return classify(err)
}

// doSendRequest performs a single POST to the sendMail endpoint.
func (g *Provider) doSendRequest(ctx context.Context, token string, bodyJSON []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	// 202 Accepted is the documented success status for sendMail.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		return &sendError{statusCode: resp.StatusCode, code: graphErrResp.Error.Code, message: graphErrResp.Error.Message}
	}
	return &sendError{statusCode: resp.StatusCode, message: string(body)}
}

// sendError is a non-success answer from the sendMail endpoint.
type sendError struct {
	statusCode int
	code       string
	message    string
}

func (e *sendError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("Graph API error (HTTP %d, %s): %s", e.statusCode, e.code, e.message)
	}
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// classify maps a send result onto the provider error classes. 401 and
// 403 mean the application identity was refused.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var sendErr *sendError
	if errors.As(err, &sendErr) {
		switch sendErr.statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.AuthError(err)
		}
	}
	return provider.TransportError(err)
}

func classifyTokenError(err error) error {
	var tokErr *tokenError
	if errors.As(err, &tokErr) {
		return provider.AuthError(fmt.Errorf("failed to get access token: %w", err))
	}
	return provider.TransportError(fmt.Errorf("failed to get access token: %w", err))
}
