// Package llm wraps the Anthropic Messages API behind a caching, retrying
// client. The client never returns an error to callers for model-side
// breakdowns: after the retry budget is spent it degrades to a canned
// apology so the tutoring conversation can continue.
package llm

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"solbot-backend/internal/cache"
	"solbot-backend/internal/models"
	"solbot-backend/internal/store"
)

const (
	anthropicVersion = "2023-06-01"
	messagesPath     = "/v1/messages"

	// historyWindow caps how many prior turns are forwarded to the model.
	historyWindow = 8

	// cacheKeySystemPrefix bounds how much of the system prompt feeds the
	// cache key. Prompts for the same phase share a long common prefix, so
	// the first 800 characters are enough to tell phases apart.
	cacheKeySystemPrefix = 800

	// cacheableTemperature is the highest temperature whose responses are
	// cached. Above it, sampling variety is the point of the call.
	cacheableTemperature = 0.6
)

// Degraded reply texts, returned verbatim when the model cannot be reached.
const (
	timeoutFallback   = "I'm taking too long to respond. Please try again with a simpler query or check your network connection."
	transportFallback = "I'm having network connectivity issues right now. Please check your internet connection and try again."
)

// Turn is one prior message of conversation history, in model wire roles.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CallParams describes one model invocation.
type CallParams struct {
	UserID         string
	ConversationID string
	Phase          string
	Component      string
	System         string
	Message        string
	History        []Turn
	Temperature    float64
	MaxTokens      int
}

// CallResult is the outcome of a model invocation. Degraded results carry a
// canned Text and the underlying failure in FailureReason.
type CallResult struct {
	Text          string
	Degraded      bool
	CacheHit      bool
	InputTokens   int
	OutputTokens  int
	DurationMs    int64
	FailureReason string
}

// Config holds the client's tunables.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	MaxRetries     int
	RetryBackoff   time.Duration
	AttemptTimeout time.Duration
	CacheTTL       time.Duration
	CacheSize      int
}

// Client calls the Anthropic Messages API with response caching, bounded
// retries and asynchronous interaction auditing.
type Client struct {
	apiKey         string
	model          string
	baseURL        string
	httpClient     *http.Client
	cache          *cache.TTLCache
	auditStore     store.Store
	maxRetries     int
	retryBackoff   time.Duration
	attemptTimeout time.Duration
	now            func() time.Time
}

// NewClient creates a Client. auditStore may be nil to disable interaction
// auditing.
func NewClient(cfg Config, auditStore store.Store) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &Client{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		cache:          cache.New(cfg.CacheTTL, cfg.CacheSize),
		auditStore:     auditStore,
		maxRetries:     cfg.MaxRetries,
		retryBackoff:   cfg.RetryBackoff,
		attemptTimeout: cfg.AttemptTimeout,
		now:            time.Now,
	}
}

// ModelName returns the configured model identifier.
func (c *Client) ModelName() string {
	return c.model
}

// cacheKey derives the response-cache key from the prompt prefix, the
// trimmed message and the last history turn.
func cacheKey(params CallParams) string {
	system := params.System
	if len(system) > cacheKeySystemPrefix {
		system = system[:cacheKeySystemPrefix]
	}
	lastTurn := ""
	if n := len(params.History); n > 0 {
		lastTurn = params.History[n-1].Role + ":" + params.History[n-1].Content
	}
	sum := md5.Sum([]byte(system + "|" + strings.TrimSpace(params.Message) + "|" + lastTurn))
	return hex.EncodeToString(sum[:])
}

// CallModel invokes the model. Cache hits and degraded outcomes are both
// reported through CallResult rather than an error; the only error returned
// is the caller's own context cancellation.
func (c *Client) CallModel(ctx context.Context, params CallParams) (CallResult, error) {
	key := cacheKey(params)
	cacheable := params.Temperature <= cacheableTemperature

	if cacheable {
		if v, ok := c.cache.Get(key); ok {
			log.Printf("[LLMClient] Cache hit for user %s, phase %s", params.UserID, params.Phase)
			result := CallResult{Text: v.(string), CacheHit: true}
			c.auditAsync(params, result)
			return result, nil
		}
	}

	start := c.now()
	var lastFailure string
	var degradedText string

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("WARN [LLMClient] Retrying model call for user %s (attempt %d/%d): %s",
				params.UserID, attempt+1, c.maxRetries+1, lastFailure)
			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
				return CallResult{}, ctx.Err()
			}
		}

		text, usage, err := c.attempt(ctx, params)
		if err == nil {
			result := CallResult{
				Text:         text,
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				DurationMs:   c.now().Sub(start).Milliseconds(),
			}
			if cacheable {
				c.cache.Set(key, text)
			}
			c.auditAsync(params, result)
			return result, nil
		}

		if ctx.Err() != nil {
			// The caller gave up; their context error wins.
			return CallResult{}, ctx.Err()
		}

		lastFailure = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			degradedText = timeoutFallback
		} else {
			degradedText = transportFallback
		}
	}

	log.Printf("ERROR [LLMClient] Model call failed after %d attempts for user %s: %s",
		c.maxRetries+1, params.UserID, lastFailure)

	result := CallResult{
		Text:          degradedText,
		Degraded:      true,
		DurationMs:    c.now().Sub(start).Milliseconds(),
		FailureReason: lastFailure,
	}
	c.auditAsync(params, result)
	return result, nil
}

// --- Anthropic wire types ---

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// attempt performs one HTTP round trip with a per-attempt deadline.
func (c *Client) attempt(ctx context.Context, params CallParams) (string, anthropicUsage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	history := params.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, t := range history {
		messages = append(messages, anthropicMessage{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: params.Message})

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		System:      params.System,
		Messages:    messages,
	})
	if err != nil {
		return "", anthropicUsage{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", anthropicUsage{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return "", anthropicUsage{}, context.DeadlineExceeded
		}
		return "", anthropicUsage{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", anthropicUsage{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", anthropicUsage{}, fmt.Errorf("api error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", anthropicUsage{}, fmt.Errorf("api error (status %d)", resp.StatusCode)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", anthropicUsage{}, fmt.Errorf("failed to decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", anthropicUsage{}, fmt.Errorf("empty response from model")
	}

	return text.String(), parsed.Usage, nil
}

// auditAsync records the interaction in the background on a context detached
// from the request. Audit failures are logged and never surface to callers.
func (c *Client) auditAsync(params CallParams, result CallResult) {
	if c.auditStore == nil {
		return
	}

	interaction := models.LLMInteraction{
		UserID:         params.UserID,
		ConversationID: params.ConversationID,
		Phase:          params.Phase,
		Component:      params.Component,
		SystemPrompt:   params.System,
		UserMessage:    params.Message,
		RawResponse:    result.Text,
		ModelName:      c.model,
		Temperature:    params.Temperature,
		MaxTokens:      params.MaxTokens,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		DurationMs:     result.DurationMs,
		CacheHit:       result.CacheHit,
		Error:          result.FailureReason,
		CreatedAt:      c.now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.auditStore.SaveLLMInteraction(ctx, interaction); err != nil {
			log.Printf("WARN [LLMClient] Failed to record interaction for user %s: %v", params.UserID, err)
		}
	}()
}
