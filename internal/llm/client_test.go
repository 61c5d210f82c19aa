package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:         "test-key",
		Model:          "claude-3-5-sonnet-20241022",
		BaseURL:        baseURL,
		MaxRetries:     2,
		RetryBackoff:   5 * time.Millisecond,
		AttemptTimeout: time.Second,
		CacheTTL:       time.Minute,
		CacheSize:      10,
	}
}

func successBody(text string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"content": []map[string]string{{"type": "text", "text": text}},
		"usage":   map[string]int{"input_tokens": 42, "output_tokens": 17},
	})
	return b
}

func TestCallModelSuccess(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(successBody("Hello student!"))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	result, err := c.CallModel(context.Background(), CallParams{
		UserID:      "user-1",
		System:      "system prompt",
		Message:     "hi",
		Temperature: 0.5,
		MaxTokens:   1000,
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello student!", result.Text)
	assert.False(t, result.Degraded)
	assert.False(t, result.CacheHit)
	assert.Equal(t, 42, result.InputTokens)
	assert.Equal(t, 17, result.OutputTokens)

	assert.Equal(t, "system prompt", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "hi", gotReq.Messages[0].Content)
}

func TestCallModelCachesLowTemperature(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(successBody("cached reply"))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	params := CallParams{UserID: "user-1", System: "s", Message: "same question", Temperature: 0.5, MaxTokens: 100}

	first, err := c.CallModel(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := c.CallModel(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "cached reply", second.Text)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call should be served from cache")
}

func TestCallModelSkipsCacheAtHighTemperature(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(successBody("fresh reply"))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	params := CallParams{UserID: "user-1", System: "s", Message: "same question", Temperature: 0.9, MaxTokens: 100}

	_, err := c.CallModel(context.Background(), params)
	require.NoError(t, err)
	_, err = c.CallModel(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCallModelRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"type":"api_error","message":"overloaded"}}`))
			return
		}
		w.Write(successBody("finally"))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	result, err := c.CallModel(context.Background(), CallParams{UserID: "u", Message: "m", Temperature: 0.5, MaxTokens: 10})

	require.NoError(t, err)
	assert.Equal(t, "finally", result.Text)
	assert.False(t, result.Degraded)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCallModelDegradesAfterRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"overloaded"}}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)
	result, err := c.CallModel(context.Background(), CallParams{UserID: "u", Message: "m", Temperature: 0.5, MaxTokens: 10})

	require.NoError(t, err, "exhausted retries degrade, they do not error")
	assert.True(t, result.Degraded)
	assert.Equal(t, transportFallback, result.Text)
	assert.Contains(t, result.FailureReason, "overloaded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
}

func TestCallModelDegradesWithTimeoutFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(successBody("too late"))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AttemptTimeout = 20 * time.Millisecond
	c := NewClient(cfg, nil)

	result, err := c.CallModel(context.Background(), CallParams{UserID: "u", Message: "m", Temperature: 0.5, MaxTokens: 10})

	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.Equal(t, timeoutFallback, result.Text)
}

func TestCallModelHonorsCallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.Write(successBody("never seen"))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.CallModel(ctx, CallParams{UserID: "u", Message: "m", Temperature: 0.5, MaxTokens: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallModelForwardsBoundedHistory(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write(successBody("ok"))
	}))
	defer server.Close()

	history := make([]Turn, 0, 12)
	for i := 0; i < 12; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, Turn{Role: role, Content: "turn"})
	}

	c := NewClient(testConfig(server.URL), nil)
	_, err := c.CallModel(context.Background(), CallParams{
		UserID: "u", Message: "latest", History: history, Temperature: 0.5, MaxTokens: 10,
	})

	require.NoError(t, err)
	// 8 history turns plus the new message.
	assert.Len(t, gotReq.Messages, 9)
	assert.Equal(t, "latest", gotReq.Messages[8].Content)
}

func TestCacheKeyDependsOnLastHistoryTurn(t *testing.T) {
	base := CallParams{UserID: "u", System: "s", Message: "m", Temperature: 0.5}
	withHistory := base
	withHistory.History = []Turn{{Role: "assistant", Content: "prior"}}

	assert.NotEqual(t, cacheKey(base), cacheKey(withHistory))
	assert.Equal(t, cacheKey(base), cacheKey(CallParams{UserID: "other", System: "s", Message: " m ", Temperature: 0.5}),
		"key ignores user identity and message padding")
}

func TestModelName(t *testing.T) {
	c := NewClient(testConfig("http://example.invalid"), nil)
	assert.Equal(t, "claude-3-5-sonnet-20241022", c.ModelName())
}
