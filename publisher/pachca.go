package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Entity types accepted by the Pachca messages API.
const (
	EntityDiscussion = "discussion"
	EntityThread     = "thread"
)

// PachcaClient implements ChatAPI against the Pachca REST API.
type PachcaClient struct {
	PostURL   string       // e.g. "https://api.pachca.com/api/shared/v1/messages"
	Token     string       // bearer token of the bot
	HTTP      *http.Client // injected for testability
	Log       *zap.Logger
	UserAgent string
}

type messageRequest struct {
	Message messageBody `json:"message"`
}

type messageBody struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Content    string `json:"content"`
}

// idResponse is the {"data": {"id": ...}} envelope both endpoints answer with.
type idResponse struct {
	Data struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

// NewPachcaClient returns a ready-to-use client. A zero timeout leaves
// requests unbounded.
func NewPachcaClient(postURL, token string, timeout time.Duration, log *zap.Logger) *PachcaClient {
	return &PachcaClient{
		PostURL:   strings.TrimRight(postURL, "/"),
		Token:     token,
		HTTP:      &http.Client{Timeout: timeout},
		Log:       log,
		UserAgent: "activity-bot/1.0",
	}
}

// PostMessage creates a message in a discussion or thread and returns its id.
func (p *PachcaClient) PostMessage(ctx context.Context, entityType string, entityID int64, content string) (int64, error) {
	body, err := json.Marshal(messageRequest{Message: messageBody{
		EntityType: entityType,
		EntityID:   entityID,
		Content:    content,
	}})
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}
	return p.post(ctx, p.PostURL, body)
}

// CreateThread opens a thread under messageID and returns the thread id.
func (p *PachcaClient) CreateThread(ctx context.Context, messageID int64) (int64, error) {
	return p.post(ctx, fmt.Sprintf("%s/%d/thread", p.PostURL, messageID), []byte("{}"))
}

func (p *PachcaClient) post(ctx context.Context, url string, body []byte) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.Token)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pachca request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("pachca returned %d: %s", resp.StatusCode, string(b))
	}

	var out idResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode pachca response: %w", err)
	}
	if out.Data.ID == 0 {
		return 0, fmt.Errorf("pachca response has no data.id")
	}
	if p.Log != nil {
		p.Log.Debug("pachca response", zap.String("url", url), zap.Int64("id", out.Data.ID))
	}
	return out.Data.ID, nil
}
