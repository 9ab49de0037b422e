// Package share encodes a schedule, its completion set and comments into a
// self-contained link payload.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"onboarding-hub/internal/domain"
)

var ErrEmptyPayload = errors.New("empty share payload")

// Payload is what a share link carries. Comments travel under "comments",
// not "weeklyComments".
type Payload struct {
	Schedule       []domain.Week               `json:"schedule"`
	CompletedTasks []string                    `json:"completedTasks"`
	Comments       map[string][]domain.Comment `json:"comments"`
}

// Encode returns the UTF-8 JSON of p in standard base64.
func Encode(p Payload) (string, error) {
	if p.CompletedTasks == nil {
		p.CompletedTasks = []string{}
	}
	if p.Comments == nil {
		p.Comments = map[string][]domain.Comment{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode share payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Decode reverses Encode. Missing comments decode as an empty map.
func Decode(s string) (Payload, error) {
	var p Payload
	s = strings.TrimSpace(s)
	if s == "" {
		return p, ErrEmptyPayload
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return p, fmt.Errorf("decode share payload: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("parse share payload: %w", err)
	}
	if p.Comments == nil {
		p.Comments = map[string][]domain.Comment{}
	}
	return p, nil
}

// Link appends the encoded payload to base as the data query parameter.
func Link(base string, p Payload) (string, error) {
	encoded, err := Encode(p)
	if err != nil {
		return "", err
	}
	return base + "?data=" + url.QueryEscape(encoded), nil
}

// FromLink accepts either a bare payload or a URL carrying ?data=.
func FromLink(s string) (Payload, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "?") || strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return Payload{}, fmt.Errorf("parse share link: %w", err)
		}
		data := u.Query().Get("data")
		if data == "" {
			return Payload{}, ErrEmptyPayload
		}
		return Decode(data)
	}
	return Decode(s)
}
