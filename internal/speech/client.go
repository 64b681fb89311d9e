package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/types"
)

// Client talks to the speech-analysis service over HTTP: upload the
// recording, poll the operation until it completes, then fetch the
// analysis document.
type Client struct {
	host   string
	apiKey string
	http   *http.Client
	log    *logger.Logger

	pollInterval time.Duration
	maxPolls     int
}

var _ Analyzer = (*Client)(nil)

func NewClient(host, apiKey string, log *logger.Logger) *Client {
	return &Client{
		host:         strings.TrimRight(host, "/"),
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log,
		pollInterval: 1500 * time.Millisecond,
		maxPolls:     40,
	}
}

type publishResponse struct {
	Code   int    `json:"code"`
	Reason string `json:"reason,omitempty"`
	Data   struct {
		OperationID string `json:"operation_id"`
		Status      string `json:"status"`
		ResultURL   string `json:"result_url"`
	} `json:"data"`
}

type statusResponse struct {
	Code   int    `json:"code"`
	Reason string `json:"reason,omitempty"`
	Data   struct {
		Status    string `json:"status"` // Queued, Processing, Success, Failed
		ResultURL string `json:"result_url"`
	} `json:"data"`
}

type analysisDocument struct {
	Transcript string `json:"transcript"`
	Sentiment  struct {
		Operator string `json:"operator"`
		Client   string `json:"client"`
	} `json:"sentiment"`
	Statistics struct {
		Interruptions int `json:"interruptions"`
	} `json:"statistics"`
}

// Analyze runs the full upload -> poll -> fetch sequence for one file.
func (c *Client) Analyze(ctx context.Context, audioPath string) (*Result, error) {
	if c.host == "" {
		return nil, fmt.Errorf("speech API host not configured")
	}
	log := c.log.WithField("module", "speech")

	operationID, resultURL, err := c.publish(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	// Already-analyzed recordings come back with a result immediately.
	if resultURL == "" {
		resultURL, err = c.poll(ctx, operationID)
		if err != nil {
			return nil, err
		}
	}
	log.WithField("result_url", resultURL).Info("speech analysis ready")
	return c.fetchResult(ctx, resultURL)
}

func (c *Client) publish(ctx context.Context, audioPath string) (string, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", "", fmt.Errorf("read audio: %w", err)
	}
	_ = w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/analyze", &buf)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	var resp publishResponse
	if err := c.doJSON(ctx, req, &resp); err != nil {
		return "", "", fmt.Errorf("publish audio: %w", err)
	}
	if resp.Code != 200 {
		return "", "", fmt.Errorf("publish rejected: code=%d reason=%s", resp.Code, resp.Reason)
	}
	if resp.Data.ResultURL != "" && strings.EqualFold(resp.Data.Status, "success") {
		return "", resp.Data.ResultURL, nil
	}
	return resp.Data.OperationID, "", nil
}

func (c *Client) poll(ctx context.Context, operationID string) (string, error) {
	base := c.host + "/operations"
	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		u, _ := url.Parse(base)
		q := u.Query()
		q.Set("id", operationID)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)

		var s statusResponse
		if err := c.doJSON(ctx, req, &s); err != nil {
			c.log.WithError(err).Warn("speech status poll failed")
			continue
		}
		c.log.WithFields(logrus.Fields{
			"operation_id": operationID,
			"status":       s.Data.Status,
		}).Debug("speech operation status")

		switch s.Data.Status {
		case "Success":
			return s.Data.ResultURL, nil
		case "Queued", "Processing":
			continue
		case "Failed":
			return "", fmt.Errorf("speech analysis failed: %s", s.Reason)
		}
	}
	return "", fmt.Errorf("speech analysis did not complete in time")
}

func (c *Client) fetchResult(ctx context.Context, resultURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	var doc analysisDocument
	if err := c.doJSON(ctx, req, &doc); err != nil {
		return nil, fmt.Errorf("fetch analysis: %w", err)
	}
	if doc.Transcript == "" {
		return nil, fmt.Errorf("analysis document has empty transcript")
	}
	return &Result{
		Transcript: doc.Transcript,
		Sentiment: types.SentimentSummary{
			Operator:      doc.Sentiment.Operator,
			Client:        doc.Sentiment.Client,
			Interruptions: doc.Statistics.Interruptions,
		},
	}, nil
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, target any) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second
	var lastErr error
	op := func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", string(body))
			return lastErr
		}
		if len(body) == 0 {
			lastErr = fmt.Errorf("empty body")
			return lastErr
		}
		if err := json.Unmarshal(body, target); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(body))
			return backoff.Permanent(lastErr)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return lastErr
	}
	return nil
}
