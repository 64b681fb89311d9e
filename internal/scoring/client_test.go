package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-audit-go/internal/config"
	"call-audit-go/internal/logger"
	"call-audit-go/internal/types"
)

func testClient(t *testing.T, serverURL string) (*Client, *[]time.Duration) {
	t.Helper()
	cfg := config.Config{
		GPTAPIURL:      serverURL,
		YandexAPIKey:   "test-key",
		YandexFolderID: "folder",
		GPTModel:       "yandexgpt-lite",
		RetryAttempts:  3,
		RateLimitDelay: 5 * time.Second,
		RetryDelay:     2 * time.Second,
		ScoringTimeout: 5 * time.Second,
	}
	c := NewClient(cfg, nil, logger.New())
	var slept []time.Duration
	c.policy.Sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func completionJSON(text string) string {
	envelope := map[string]any{
		"result": map[string]any{
			"alternatives": []any{
				map[string]any{"message": map[string]any{"text": text}},
			},
		},
	}
	raw, _ := json.Marshal(envelope)
	return string(raw)
}

const rubricJSON = `{
  "greeting": 8, "greeting_comment": "named clinic",
  "needs": 7, "needs_comment": "two questions",
  "presentation": 9, "presentation_comment": "two slots, price",
  "objection": 6, "objection_comment": "partly",
  "closing": 8, "closing_comment": "summarized",
  "bonus": 3, "bonus_comment": "friendly",
  "summary": "good call",
  "recommendation": "ask the marketing question"
}`

func TestScoreCallParsesFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, completionJSON("```json\n"+rubricJSON+"\n```"))
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	res, err := c.ScoreCall(context.Background(), "transcript", types.SentimentSummary{Operator: "positive"})
	require.NoError(t, err)
	assert.Empty(t, *slept)
	assert.Equal(t, 8, res.Greeting)
	assert.Equal(t, 3, res.Bonus)
	assert.InDelta(t, 8.2, res.AggregateScore(), 0.0001)
}

func TestScoreCallRetriesRateLimitThenSucceeds(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionJSON(rubricJSON))
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	res, err := c.ScoreCall(context.Background(), "transcript", types.SentimentSummary{})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// 429 waits the rate-limit delay, not the generic retry delay
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, *slept)
	assert.Equal(t, 7, res.Needs)
}

func TestScoreCallExhaustsOnServerErrors(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	_, err := c.ScoreCall(context.Background(), "transcript", types.SentimentSummary{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 3, attempts)
	// no backoff after the final attempt
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *slept)
}

func TestScoreCallMalformedPayloadIsTerminal(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		fmt.Fprint(w, completionJSON("I cannot answer in JSON, sorry."))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.ScoreCall(context.Background(), "transcript", types.SentimentSummary{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.False(t, errors.Is(err, ErrExhausted))
	// transported fine: the parse failure does not re-enter the retry loop
	assert.Equal(t, 1, attempts)
}

func TestOperatorSummaryWithoutDataSkipsModel(t *testing.T) {
	c, _ := testClient(t, "http://127.0.0.1:0") // must not be contacted
	text, err := c.OperatorSummary(context.Background(), "Anna", nil)
	require.NoError(t, err)
	assert.Equal(t, "Not enough data for analysis", text)
}

func TestPolicyStopsAfterSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, RateLimitDelay: 5 * time.Second, RetryDelay: 2 * time.Second, Sleep: func(time.Duration) {}}
	calls := 0
	err := p.Run(func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyExhaustionWrapsLastError(t *testing.T) {
	p := Policy{MaxAttempts: 2, Sleep: func(time.Duration) {}}
	err := p.Run(func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Contains(t, err.Error(), "boom")
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripFences(in), "input %q", in)
	}
}
