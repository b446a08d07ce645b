package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/entitlement"
	"lexiscan.ai/cli/internal/core/offer"
)

// LexiscanAPIGateway implements the CatalogGateway interface against the
// lexiscan backend.
type LexiscanAPIGateway struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	retryPolicy *RetryPolicy
	breaker     *CircuitBreaker
	logger      ports.LoggingGateway
	stats       *APIStats
	mutex       sync.RWMutex
}

// APIStats tracks API usage statistics
type APIStats struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	AverageLatency     time.Duration `json:"average_latency"`
	LastRequestTime    time.Time     `json:"last_request_time"`
	LastError          string        `json:"last_error,omitempty"`
}

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	Multiplier  float64       `json:"multiplier"`
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// CircuitBreaker implements circuit breaker pattern
type CircuitBreaker struct {
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
	mutex           sync.RWMutex
}

// CircuitBreakerState represents the circuit breaker state
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// CanExecute returns true if the circuit breaker allows execution
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastFailureTime) >= cb.resetTimeout {
			cb.state = StateHalfOpen
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful execution
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount = 0
	cb.state = StateClosed
}

// RecordFailure records a failed execution
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// NewLexiscanAPIGateway creates a new API gateway
func NewLexiscanAPIGateway(endpoint, apiKey string, logger ports.LoggingGateway) *LexiscanAPIGateway {
	return &LexiscanAPIGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryPolicy: DefaultRetryPolicy(),
		breaker:     NewCircuitBreaker(5, 60*time.Second),
		logger:      logger,
		stats:       &APIStats{},
	}
}

// NewTestAPIGateway creates a new API gateway with test-friendly settings
func NewTestAPIGateway(endpoint, apiKey string, logger ports.LoggingGateway) *LexiscanAPIGateway {
	return &LexiscanAPIGateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		retryPolicy: &RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    100 * time.Millisecond,
			Multiplier:  2.0,
		},
		breaker: NewCircuitBreaker(3, 5*time.Second),
		logger:  logger,
		stats:   &APIStats{},
	}
}

// GetSubscriptionProducts fetches the purchasable products.
func (g *LexiscanAPIGateway) GetSubscriptionProducts(ctx context.Context) ([]entitlement.Product, error) {
	var dtos []ProductDto
	if err := g.get(ctx, "/api/catalog/products", &dtos); err != nil {
		return nil, err
	}
	products := make([]entitlement.Product, len(dtos))
	for i, d := range dtos {
		products[i] = d.toDomain()
	}
	return products, nil
}

// GetFeatureCatalog fetches the display catalog of metered features.
func (g *LexiscanAPIGateway) GetFeatureCatalog(ctx context.Context) ([]entitlement.CatalogEntry, error) {
	var dtos []FeatureDto
	if err := g.get(ctx, "/api/catalog/features", &dtos); err != nil {
		return nil, err
	}
	entries := make([]entitlement.CatalogEntry, len(dtos))
	for i, d := range dtos {
		entries[i] = d.toDomain()
	}
	return entries, nil
}

// GetPlanFeatureLimits fetches the per-tier monthly limits.
func (g *LexiscanAPIGateway) GetPlanFeatureLimits(ctx context.Context) ([]entitlement.PlanFeatureLimit, error) {
	var dtos []PlanLimitDto
	if err := g.get(ctx, "/api/catalog/limits", &dtos); err != nil {
		return nil, err
	}
	limits := make([]entitlement.PlanFeatureLimit, len(dtos))
	for i, d := range dtos {
		limits[i] = d.toDomain()
	}
	return limits, nil
}

// GetActiveOffers fetches the currently configured offers.
func (g *LexiscanAPIGateway) GetActiveOffers(ctx context.Context) ([]offer.Offer, error) {
	var dtos []OfferDto
	if err := g.get(ctx, "/api/catalog/offers", &dtos); err != nil {
		return nil, err
	}
	offers := make([]offer.Offer, len(dtos))
	for i, d := range dtos {
		offers[i] = d.toDomain()
	}
	return offers, nil
}

// GetUserSubscription fetches the account's subscription record. A 404
// answer maps to nil, meaning the account has no subscription yet.
func (g *LexiscanAPIGateway) GetUserSubscription(ctx context.Context, accountID string) (*entitlement.SubscriptionState, error) {
	var dto SubscriptionDto
	found, err := g.getOptional(ctx, g.userPath(accountID, "subscription"), &dto)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	sub := dto.toDomain()
	return &sub, nil
}

// GetFeatureUsage fetches the account's remaining-use counters.
func (g *LexiscanAPIGateway) GetFeatureUsage(ctx context.Context, accountID string) (entitlement.FeatureUsage, error) {
	var dto UsageDto
	if err := g.get(ctx, g.userPath(accountID, "usage"), &dto); err != nil {
		return nil, err
	}
	return dto.toDomain(), nil
}

// EnsureUserOfferState reads or creates the account's state for an offer.
// The server keeps the existing record when one exists, so the countdown
// never restarts.
func (g *LexiscanAPIGateway) EnsureUserOfferState(ctx context.Context, accountID, offerID string) (*offer.State, error) {
	var dto OfferStateDto
	path := g.userPath(accountID, "offers", offerID, "ensure")
	if err := g.send(ctx, http.MethodPost, path, nil, &dto); err != nil {
		return nil, err
	}
	state := dto.toDomain()
	return &state, nil
}

// UpsertUserOfferState writes the account's offer state as given.
func (g *LexiscanAPIGateway) UpsertUserOfferState(ctx context.Context, accountID string, state offer.State) error {
	path := g.userPath(accountID, "offers", state.OfferID)
	return g.send(ctx, http.MethodPut, path, offerStateToDTO(state), nil)
}

// DismissUserOffer marks the account's offer state dismissed.
func (g *LexiscanAPIGateway) DismissUserOffer(ctx context.Context, accountID, offerID string) error {
	path := g.userPath(accountID, "offers", offerID, "dismiss")
	return g.send(ctx, http.MethodPost, path, nil, nil)
}

// DecrementFeatureUsage reports the account's remaining count for a feature.
// The write carries the absolute value, so a duplicated delivery cannot
// double-spend quota.
func (g *LexiscanAPIGateway) DecrementFeatureUsage(ctx context.Context, accountID string, feature entitlement.Feature, remaining int) error {
	path := g.userPath(accountID, "usage", string(feature))
	return g.send(ctx, http.MethodPut, path, UsageWriteDto{Remaining: remaining}, nil)
}

// GrantManualSubscription grants the account a subscription outside the
// normal purchase flow, referencing the product and optional offer.
func (g *LexiscanAPIGateway) GrantManualSubscription(ctx context.Context, accountID, productID string, offerID *string) error {
	path := g.userPath(accountID, "subscription", "grant")
	return g.send(ctx, http.MethodPost, path, GrantDto{ProductID: productID, OfferID: offerID}, nil)
}

// CreateChat creates a chat under the account and returns the server id.
func (g *LexiscanAPIGateway) CreateChat(ctx context.Context, accountID string, c chat.Chat) (string, error) {
	var created ChatCreatedDto
	if err := g.send(ctx, http.MethodPost, g.userPath(accountID, "chats"), chatToDTO(c), &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// AppendChatMessage appends a message to an account chat.
func (g *LexiscanAPIGateway) AppendChatMessage(ctx context.Context, accountID, chatID string, m chat.Message) error {
	path := g.userPath(accountID, "chats", chatID, "messages")
	return g.send(ctx, http.MethodPost, path, messageToDTO(m), nil)
}

// ListChats lists the account's chats.
func (g *LexiscanAPIGateway) ListChats(ctx context.Context, accountID string) ([]chat.Chat, error) {
	var dtos []RemoteChatDto
	if err := g.get(ctx, g.userPath(accountID, "chats"), &dtos); err != nil {
		return nil, err
	}
	chats := make([]chat.Chat, len(dtos))
	for i, d := range dtos {
		chats[i] = d.toDomain()
	}
	return chats, nil
}

// ListAnalyses lists the account's analysis history.
func (g *LexiscanAPIGateway) ListAnalyses(ctx context.Context, accountID string) ([]ports.AnalysisSummary, error) {
	var dtos []AnalysisSummaryDto
	if err := g.get(ctx, g.userPath(accountID, "analyses"), &dtos); err != nil {
		return nil, err
	}
	summaries := make([]ports.AnalysisSummary, len(dtos))
	for i, d := range dtos {
		summaries[i] = d.toDomain()
	}
	return summaries, nil
}

// TestConnection tests the API connection and authentication
func (g *LexiscanAPIGateway) TestConnection(ctx context.Context) error {
	endpoint := g.getEndpoint()
	g.logger.Log(ports.LogLevelInfo, "Testing API connection", map[string]interface{}{
		"endpoint": endpoint,
	})
	if err := g.get(ctx, "/health", nil); err != nil {
		return err
	}
	if g.apiKey != "" {
		if err := g.get(ctx, "/api/account", nil); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEndpoint safely updates the API endpoint at runtime
func (g *LexiscanAPIGateway) UpdateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.logger.Log(ports.LogLevelInfo, "Updating API endpoint", map[string]interface{}{
		"old_endpoint": g.endpoint,
		"new_endpoint": endpoint,
	})
	g.endpoint = endpoint
	return nil
}

// GetUsageStats returns API usage statistics
func (g *LexiscanAPIGateway) GetUsageStats() APIStats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return *g.stats
}

func (g *LexiscanAPIGateway) userPath(accountID string, parts ...string) string {
	path := "/api/users/" + url.PathEscape(accountID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func (g *LexiscanAPIGateway) getEndpoint() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.endpoint
}

// get performs a GET request and decodes the response into out when non-nil.
func (g *LexiscanAPIGateway) get(ctx context.Context, path string, out interface{}) error {
	return g.send(ctx, http.MethodGet, path, nil, out)
}

// getOptional performs a GET request where a 404 answer is a valid "not
// found" result rather than an error.
func (g *LexiscanAPIGateway) getOptional(ctx context.Context, path string, out interface{}) (bool, error) {
	found := true
	err := g.executeWithRetry(ctx, func() error {
		status, body, err := g.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			found = false
			return nil
		}
		if err := checkStatus(status, body); err != nil {
			return err
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// send performs a request with the retry policy and circuit breaker, JSON
// encoding in when non-nil and decoding the response into out when non-nil.
func (g *LexiscanAPIGateway) send(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return g.executeWithRetry(ctx, func() error {
		status, body, err := g.doRequest(ctx, method, path, payload)
		if err != nil {
			return err
		}
		if err := checkStatus(status, body); err != nil {
			return err
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	})
}

func (g *LexiscanAPIGateway) doRequest(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.getEndpoint()+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setRequestHeaders(req)
	g.logHTTPRequest(req, payload)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	g.logHTTPResponse(resp, body, latency)
	g.updateLatency(latency)
	return resp.StatusCode, body, nil
}

func checkStatus(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return fmt.Errorf("authentication failed - check your API key")
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return nil
}

// executeWithRetry executes a function with retry logic and circuit breaker
func (g *LexiscanAPIGateway) executeWithRetry(ctx context.Context, fn func() error) error {
	if !g.breaker.CanExecute() {
		return fmt.Errorf("circuit breaker is open")
	}

	var lastErr error
	for attempt := 0; attempt < g.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := g.calculateDelay(attempt)
			g.logger.Log(ports.LogLevelDebug, "Retrying request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay,
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		g.recordAttempt()

		err := fn()
		if err == nil {
			g.breaker.RecordSuccess()
			g.recordSuccess()
			return nil
		}

		lastErr = err
		g.breaker.RecordFailure()
		g.recordFailure(err.Error())

		if !g.shouldRetry(err) {
			break
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", g.retryPolicy.MaxAttempts, lastErr)
}

// setRequestHeaders sets common request headers
func (g *LexiscanAPIGateway) setRequestHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "lexiscan-cli/1.0.0")
	req.Header.Set("X-Version", "1.0")

	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

// isDebugEnabled checks if debug logging is enabled
func (g *LexiscanAPIGateway) isDebugEnabled() bool {
	return g.logger != nil && g.logger.GetLogLevel() == ports.LogLevelDebug
}

// logHTTPRequest logs HTTP request details for debugging
func (g *LexiscanAPIGateway) logHTTPRequest(req *http.Request, body []byte) {
	if !g.isDebugEnabled() {
		return
	}

	bodyPreview := string(body)
	if len(bodyPreview) > 1000 {
		bodyPreview = bodyPreview[:1000] + "... (truncated)"
	}

	g.logger.Log(ports.LogLevelDebug, "HTTP Request", map[string]interface{}{
		"method":       req.Method,
		"url":          req.URL.String(),
		"body_size":    len(body),
		"body_preview": bodyPreview,
	})
}

// logHTTPResponse logs HTTP response details for debugging
func (g *LexiscanAPIGateway) logHTTPResponse(resp *http.Response, body []byte, latency time.Duration) {
	if !g.isDebugEnabled() {
		return
	}

	bodyPreview := string(body)
	if len(bodyPreview) > 1000 {
		bodyPreview = bodyPreview[:1000] + "... (truncated)"
	}

	g.logger.Log(ports.LogLevelDebug, "HTTP Response", map[string]interface{}{
		"status_code":  resp.StatusCode,
		"body_size":    len(body),
		"body_preview": bodyPreview,
		"latency_ms":   latency.Milliseconds(),
	})
}

// calculateDelay calculates the delay for retry attempts
func (g *LexiscanAPIGateway) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(g.retryPolicy.BaseDelay) *
		float64(attempt) * g.retryPolicy.Multiplier)

	if delay > g.retryPolicy.MaxDelay {
		delay = g.retryPolicy.MaxDelay
	}

	return delay
}

// shouldRetry determines if an error should trigger a retry
func (g *LexiscanAPIGateway) shouldRetry(err error) bool {
	// Don't retry on authentication errors
	if err.Error() == "authentication failed - check your API key" {
		return false
	}
	return true
}

func (g *LexiscanAPIGateway) recordAttempt() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.stats.TotalRequests++
	g.stats.LastRequestTime = time.Now()
}

func (g *LexiscanAPIGateway) recordSuccess() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.stats.SuccessfulRequests++
	g.stats.LastError = ""
}

func (g *LexiscanAPIGateway) recordFailure(errorMsg string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.stats.FailedRequests++
	g.stats.LastError = errorMsg
}

// updateLatency updates average latency
func (g *LexiscanAPIGateway) updateLatency(latency time.Duration) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.stats.AverageLatency == 0 {
		g.stats.AverageLatency = latency
	} else {
		// Simple moving average
		g.stats.AverageLatency = (g.stats.AverageLatency + latency) / 2
	}
}
