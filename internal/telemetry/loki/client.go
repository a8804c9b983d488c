// Package loki pushes telemetry events consumed from Kafka to Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

// Entry is one log line with the stream labels it belongs to.
type Entry struct {
	Timestamp time.Time
	Line      string
	Labels    map[string]string
}

var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields are the parts of a telemetry event used for labels and timestamp.
// Tenant and user ids stay in the line; they would explode stream cardinality as labels.
type eventFields struct {
	EventType string `json:"eventType"`
	Source    string `json:"source"`
	CreatedAt string `json:"createdAt"`
}

// EntryFromEventJSON turns an event JSON (a Kafka message value) into an Entry labelled by
// event_type and source. Unparsable input becomes an unlabelled entry stamped with now.
func EntryFromEventJSON(raw []byte, now time.Time) Entry {
	e := Entry{Timestamp: now, Line: string(raw), Labels: map[string]string{}}
	var f eventFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return e
	}
	if f.EventType != "" {
		e.Labels["event_type"] = f.EventType
	}
	if f.Source != "" {
		e.Labels["source"] = f.Source
	}
	if t, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil && !t.IsZero() {
		e.Timestamp = t
	}
	return e
}

// Client pushes log lines to a Loki instance.
type Client struct {
	baseURL string
	job     string
	http    *http.Client
	now     func() time.Time
}

// NewClient returns a Client for baseURL (e.g. http://localhost:3100). job is the job label; empty means vyre-ats.
func NewClient(baseURL, job string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("loki: base URL is empty")
	}
	if job == "" {
		job = "vyre-ats"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		job:     job,
		http:    &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}, nil
}

// PushEventJSON pushes a single event JSON.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	return c.Push(ctx, EntryFromEventJSON(raw, c.now().UTC()))
}

// Push sends entries in one request, grouped into one stream per distinct label set.
// Every stream carries the job label. Returns an error on transport failure or a non-2xx answer.
func (c *Client) Push(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	payload, err := json.Marshal(PushRequest{Streams: c.streams(entries)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/loki/api/v1/push", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}

func (c *Client) streams(entries []Entry) []Stream {
	var out []Stream
	index := map[string]int{}
	for _, e := range entries {
		labels := c.labels(e.Labels)
		key := labelKey(labels)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Stream{Stream: labels})
		}
		out[i].Values = append(out[i].Values, []string{strconv.FormatInt(e.Timestamp.UnixNano(), 10), e.Line})
	}
	return out
}

func (c *Client) labels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	out["job"] = c.job
	for k, v := range in {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			out[k] = s
		}
	}
	return out
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}
