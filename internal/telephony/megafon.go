package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/store"
	"call-audit-go/internal/types"
)

const pbxTimeFormat = "20060102T150405Z"

// Client talks to the Megafon PBX CRM API. The API is form-encoded on the
// way in and JSON on the way out.
type Client struct {
	host     string
	key      string
	http     *http.Client
	download *http.Client // media downloads get a much longer timeout
	log      *logger.Logger
}

func NewClient(host, key string, downloadTimeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		host:     strings.TrimRight(host, "/"),
		key:      key,
		http:     &http.Client{Timeout: 15 * time.Second},
		download: &http.Client{Timeout: downloadTimeout},
		log:      log,
	}
}

type historyItem struct {
	CallID   string `json:"callid"`
	UID      string `json:"uid"`
	User     string `json:"user"`
	Phone    string `json:"phone"`
	Duration string `json:"duration"`
	Link     string `json:"link"`
	Start    string `json:"start"`
}

// SyncHistory pulls recent call history from the PBX and inserts unseen
// calls as NEW records. Returns the number of records added.
func (c *Client) SyncHistory(ctx context.Context, st store.CallStore, daysBack int) (int, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -daysBack)

	form := url.Values{
		"cmd":       {"history"},
		"crm_token": {c.key},
		"start":     {start.UTC().Format(pbxTimeFormat)},
		"end":       {end.UTC().Format(pbxTimeFormat)},
		"limit":     {"100"},
	}

	var items []historyItem
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("pbx server error: %s", truncate(string(body), 200))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("pbx error %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}
		items, err = parseHistory(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return 0, fmt.Errorf("pbx history: %w", err)
	}

	added := 0
	for _, item := range items {
		id := item.CallID
		if id == "" {
			id = item.UID
		}
		if id == "" {
			continue
		}
		exists, err := st.Exists(ctx, id)
		if err != nil {
			return added, fmt.Errorf("check existing %s: %w", id, err)
		}
		if exists {
			continue
		}
		duration, _ := strconv.Atoi(item.Duration)
		date := time.Now()
		if item.Start != "" {
			if t, err := time.Parse(pbxTimeFormat, item.Start); err == nil {
				date = t
			}
		}
		rec := &types.CallRecord{
			ID:       id,
			Date:     date,
			Operator: item.User,
			Phone:    item.Phone,
			Duration: duration,
			AudioURL: item.Link,
			Status:   types.StatusNew,
		}
		if err := st.Upsert(ctx, rec); err != nil {
			return added, fmt.Errorf("insert %s: %w", id, err)
		}
		added++
	}

	c.log.WithFields(logrus.Fields{"fetched": len(items), "added": added}).Info("pbx history synced")
	return added, nil
}

// parseHistory accepts either a bare JSON array or {"calls": [...]}.
func parseHistory(body []byte) ([]historyItem, error) {
	var list []historyItem
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Calls []historyItem `json:"calls"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected pbx response: %s", truncate(string(body), 200))
	}
	return wrapped.Calls, nil
}

// ParseWebhook converts a PBX webhook form post into a NEW call record.
// Only completed calls carrying a recording link are ingested; anything
// else returns ok=false.
func ParseWebhook(form url.Values) (*types.CallRecord, bool) {
	if form.Get("cmd") != "history" || form.Get("status") != "Success" || form.Get("link") == "" {
		return nil, false
	}
	id := form.Get("callid")
	if id == "" {
		return nil, false
	}
	duration, _ := strconv.Atoi(form.Get("duration"))
	operator := form.Get("user")
	if operator == "" {
		operator = "unknown"
	}
	return &types.CallRecord{
		ID:       id,
		Date:     time.Now(),
		Operator: operator,
		Phone:    form.Get("phone"),
		Duration: duration,
		AudioURL: form.Get("link"),
		Status:   types.StatusNew,
	}, true
}

// DownloadAudio fetches a recording into dest. The destination file is
// removed again on any failure so a partial download never survives.
func (c *Client) DownloadAudio(ctx context.Context, audioURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download audio: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
