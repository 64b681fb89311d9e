package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"call-audit-go/internal/config"
	"call-audit-go/internal/logger"
	"call-audit-go/internal/types"
)

// ErrMalformedResponse marks a response that was transported fine but
// did not contain a parseable rubric payload. Distinct from transport
// exhaustion so callers can tell the failure classes apart.
var ErrMalformedResponse = errors.New("malformed model response")

const (
	scoringTemperature = 0.1
	summaryTemperature = 0.5
	maxTokens          = 2000
)

// Client scores call transcripts through the YandexGPT completion API.
type Client struct {
	apiURL   string
	apiKey   string
	folderID string
	model    string
	rubric   []Section
	policy   Policy
	http     *http.Client
	log      *logger.Logger
}

func NewClient(cfg config.Config, rubric []Section, log *logger.Logger) *Client {
	if len(rubric) == 0 {
		rubric = DefaultRubric()
	}
	return &Client{
		apiURL:   cfg.GPTAPIURL,
		apiKey:   cfg.YandexAPIKey,
		folderID: cfg.YandexFolderID,
		model:    cfg.GPTModel,
		rubric:   rubric,
		policy: Policy{
			MaxAttempts:    cfg.RetryAttempts,
			RateLimitDelay: cfg.RateLimitDelay,
			RetryDelay:     cfg.RetryDelay,
		},
		http: &http.Client{Timeout: cfg.ScoringTimeout},
		log:  log,
	}
}

type message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionRequest struct {
	ModelURI          string `json:"modelUri"`
	CompletionOptions struct {
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"maxTokens"`
	} `json:"completionOptions"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

// ScoreCall evaluates one transcript against the rubric. Transport
// failures are retried per the policy; a malformed payload in an
// otherwise successful response is a terminal scoring failure.
func (c *Client) ScoreCall(ctx context.Context, transcript string, sentiment types.SentimentSummary) (*types.RubricResult, error) {
	prompt := buildRubricPrompt(c.rubric, transcript, sentiment)
	messages := []message{
		{Role: "system", Text: systemPrompt},
		{Role: "user", Text: prompt},
	}

	c.log.Info("requesting rubric evaluation from model")
	raw, err := c.complete(ctx, messages, scoringTemperature)
	if err != nil {
		return nil, err
	}

	clean := stripFences(raw)
	var result types.RubricResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		c.log.WithFields(logrus.Fields{
			"error":        err.Error(),
			"raw_response": truncate(raw, 500),
		}).Error("model response is not valid rubric JSON")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.log.WithField("score", fmt.Sprintf("%.1f", result.AggregateScore())).Info("call scored")
	return &result, nil
}

// OperatorSummary condenses the per-call recommendations into one
// paragraph. Uses a higher temperature than scoring.
func (c *Client) OperatorSummary(ctx context.Context, operator string, recommendations []string) (string, error) {
	if len(recommendations) == 0 {
		return "Not enough data for analysis", nil
	}
	prompt := buildOperatorSummaryPrompt(operator, recommendations)
	c.log.WithField("operator", operator).Info("generating operator summary")
	return c.complete(ctx, []message{{Role: "user", Text: prompt}}, summaryTemperature)
}

// complete sends one completion request under the retry policy and
// returns the model's text.
func (c *Client) complete(ctx context.Context, messages []message, temperature float64) (string, error) {
	reqBody := completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", c.folderID, c.model),
		Messages: messages,
	}
	reqBody.CompletionOptions.Temperature = temperature
	reqBody.CompletionOptions.MaxTokens = maxTokens
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.WithError(err).Warn("completion request failed")
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusOK:
			var parsed completionResponse
			if err := json.Unmarshal(body, &parsed); err != nil {
				return fmt.Errorf("decode completion: %v body=%s", err, truncate(string(body), 200))
			}
			if len(parsed.Result.Alternatives) == 0 {
				return fmt.Errorf("completion has no alternatives")
			}
			text = parsed.Result.Alternatives[0].Message.Text
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			c.log.Warn("model rate limit exceeded, backing off")
			return ErrRateLimited
		default:
			c.log.WithFields(logrus.Fields{
				"status": resp.StatusCode,
				"body":   truncate(string(body), 200),
			}).Error("completion API error")
			return fmt.Errorf("completion API status %d", resp.StatusCode)
		}
	}

	if err := c.policy.Run(op); err != nil {
		return "", err
	}
	return text, nil
}

// stripFences removes a markdown code fence around the model's payload,
// including an optional leading "json" language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "```") {
		parts := strings.Split(s, "```")
		if len(parts) >= 2 {
			s = parts[1]
		}
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(s, "json")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
