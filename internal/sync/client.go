package sync

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"onboarding-hub/internal/domain"
)

// ErrStreamClosed is returned by Stream when the server ends the event stream.
var ErrStreamClosed = errors.New("event stream closed by server")

// Client is the replica's view of the sync server.
type Client interface {
	FetchState(ctx context.Context) (domain.SharedDocument, error)
	PushState(ctx context.Context, doc domain.SharedDocument) error
	Stream(ctx context.Context, handle func(payload []byte)) error
}

type SyncClient struct {
	baseURL    string
	httpClient *http.Client
	// the event stream is long-lived, so it gets a client without a timeout
	streamClient *http.Client
}

func NewSyncClient(baseURL string) *SyncClient {
	return &SyncClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

// call sync server to get the current shared document
func (s *SyncClient) FetchState(ctx context.Context) (domain.SharedDocument, error) {
	var doc domain.SharedDocument

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/state", nil)
	if err != nil {
		return doc, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "fetch state"); err != nil {
		return doc, err
	}

	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode shared state: %w", err)
	}
	return doc, nil
}

// PushState sends the full document; the server merges it field by field.
func (s *SyncClient) PushState(ctx context.Context, doc domain.SharedDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/state", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp, "push state")
}

// Stream reads GET /api/events and calls handle with the data of each event.
// It returns when ctx is cancelled, the connection fails or the server closes
// the stream; it never reconnects.
func (s *SyncClient) Stream(ctx context.Context, handle func(payload []byte)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "open event stream"); err != nil {
		return err
	}

	err = readEvents(resp.Body, handle)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// readEvents splits a text/event-stream body into events. Multi-line data
// fields are joined with "\n"; comments and other fields are skipped.
func readEvents(r io.Reader, handle func(payload []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var data []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case line == "":
			if len(data) > 0 {
				handle([]byte(strings.Join(data, "\n")))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return ErrStreamClosed
}

func checkStatus(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf(
		"sync server %s error: status=%d body=%s",
		action,
		resp.StatusCode,
		string(b),
	)
}
