// Package remote connects a timeline.Store to a duochat API server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chat "duochat/internal/pkg/chat/application/domain"
	"duochat/internal/pkg/chat/application/usecase"
	"duochat/internal/pkg/chat/timeline"
)

// HTTPGateway calls the request/response API.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway targets baseURL, e.g. "http://localhost:8080/api/v1".
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var _ timeline.Gateway = (*HTTPGateway)(nil)

func (g *HTTPGateway) FetchHistory(ctx context.Context, conversationID, viewerID string) (*usecase.History, error) {
	u := fmt.Sprintf("%s/chat/%s/messages?viewer_id=%s", g.baseURL, url.PathEscape(conversationID), url.QueryEscape(viewerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var h usecase.History
	if err := g.do(req, http.StatusOK, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (g *HTTPGateway) AppendMessage(ctx context.Context, conversationID, senderID, content string) (*chat.Message, error) {
	body, err := json.Marshal(map[string]string{"senderId": senderID, "content": content})
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/chat/%s", g.baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var msg chat.Message
	if err := g.do(req, http.StatusCreated, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// do sends req and decodes the body. Error statuses map back onto the
// use case error classes so callers can match them with errors.Is.
func (g *HTTPGateway) do(req *http.Request, want int, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &e)
		class := usecase.ErrPersistence
		switch resp.StatusCode {
		case http.StatusNotFound:
			class = usecase.ErrNotFound
		case http.StatusBadRequest:
			class = usecase.ErrValidation
		}
		return fmt.Errorf("%w: status %d: %s", class, resp.StatusCode, e.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
