package declaration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LYTE-studios/werkr-engine/internal/common/config"
	domainerr "github.com/LYTE-studios/werkr-engine/internal/common/errors"
	"github.com/LYTE-studios/werkr-engine/internal/common/metrics"
)

// ErrNotReady is returned by Status while the declaration service has not
// yet resolved the declaration.
var ErrNotReady = errors.New("declaration not yet resolved")

// CreateRequest carries everything the declaration service needs to file a
// declaration for an approved application.
type CreateRequest struct {
	EmployerReference string  `json:"employerReference"`
	NISS              string  `json:"niss"`
	EmploymentType    string  `json:"employmentType"`
	PlannedHours      float64 `json:"plannedHours"`
	StartTime         string  `json:"startTime"` // RFC 3339
	EndTime           string  `json:"endTime"`   // RFC 3339
}

type cancelRequest struct {
	DeclarationID string `json:"declarationId"`
	Cancel        bool   `json:"cancel"`
}

// Resolution is the terminal verdict reported by the declaration service.
type Resolution struct {
	Success bool
	Reason  string
}

type statusResponse struct {
	Status string `json:"status"` // pending, accepted, refused
	Reason string `json:"reason,omitempty"`
}

type createResponse struct {
	ID string `json:"id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Service is the declaration-service surface the sync layer and the poller
// consume.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (string, error)
	Cancel(ctx context.Context, declarationID string) error
	Status(ctx context.Context, declarationID string) (*Resolution, error)
}

// Client talks to the declaration service over HTTP. Every call carries a
// short-lived bearer assertion obtained from a separate auth endpoint; the
// assertion is cached but refreshed once it comes within 30 seconds of
// expiry, so in practice nearly every call fetches a fresh one.
type Client struct {
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	employerRef  string
	httpClient   *http.Client
	retries      int
	retryDelay   time.Duration

	// tokenMu guards the cached assertion: one client is shared by the
	// poller's per-declaration goroutines.
	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.DeclarationConfig) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		employerRef:  cfg.EmployerReference,
		httpClient:   &http.Client{Timeout: config.GetDuration(cfg.RequestTimeout)},
		retries:      cfg.SubmitRetries,
		retryDelay:   config.GetDuration(cfg.RetryDelay),
	}
}

// bearerToken returns a valid assertion, fetching one through the client
// credentials flow when the cached token is missing or close to expiry. The
// mutex is held across the fetch so concurrent callers share one request.
// Token fetch failures are a distinct, retryable error class from
// declaration-processing failures.
func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > 30*time.Second {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(data.Encode()))
		if err != nil {
			return "", fmt.Errorf("failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
			continue
		}

		var tok tokenResponse
		err = json.NewDecoder(resp.Body).Decode(&tok)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to decode token response: %w", err)
			continue
		}

		c.accessToken = tok.AccessToken
		c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
		return c.accessToken, nil
	}

	return "", domainerr.NewTokenFetchFailed(lastErr)
}

// Create submits a declaration and returns the identifier the service
// assigned. The id is never generated locally.
func (c *Client) Create(ctx context.Context, req CreateRequest) (string, error) {
	if req.EmployerReference == "" {
		req.EmployerReference = c.employerRef
	}
	var out createResponse
	if err := c.post(ctx, "/declarations", req, &out, http.StatusCreated); err != nil {
		metrics.DeclarationRequests.WithLabelValues("create", "error").Inc()
		return "", err
	}
	if out.ID == "" {
		metrics.DeclarationRequests.WithLabelValues("create", "error").Inc()
		return "", domainerr.NewExternalIntegrationFailure("declaration-service",
			errors.New("create response carried no declaration id"))
	}
	metrics.DeclarationRequests.WithLabelValues("create", "ok").Inc()
	return out.ID, nil
}

// Cancel submits the cancel payload variant referencing a stored declaration
// id.
func (c *Client) Cancel(ctx context.Context, declarationID string) error {
	req := cancelRequest{DeclarationID: declarationID, Cancel: true}
	if err := c.post(ctx, "/declarations", req, nil, http.StatusOK); err != nil {
		metrics.DeclarationRequests.WithLabelValues("cancel", "error").Inc()
		return err
	}
	metrics.DeclarationRequests.WithLabelValues("cancel", "ok").Inc()
	return nil
}

// Status polls a declaration. ErrNotReady signals the service has not yet
// reached a verdict.
func (c *Client) Status(ctx context.Context, declarationID string) (*Resolution, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	statusURL := fmt.Sprintf("%s/declarations/%s", c.baseURL, url.PathEscape(declarationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domainerr.NewExternalIntegrationFailure("declaration-service", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotReady
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, domainerr.NewExternalIntegrationFailure("declaration-service",
			fmt.Errorf("status request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, domainerr.NewExternalIntegrationFailure("declaration-service",
			fmt.Errorf("failed to decode status response: %w", err))
	}

	switch st.Status {
	case "pending", "":
		return nil, ErrNotReady
	case "accepted":
		return &Resolution{Success: true}, nil
	default:
		reason := st.Reason
		if reason == "" {
			reason = st.Status
		}
		return &Resolution{Success: false, Reason: reason}, nil
	}
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}, wantStatus int) error {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != wantStatus {
			lastErr = fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
			// Client errors will not improve on retry.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return domainerr.NewExternalIntegrationFailure("declaration-service",
					fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	return domainerr.NewExternalIntegrationFailure("declaration-service", lastErr)
}
