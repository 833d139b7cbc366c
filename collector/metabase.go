package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doesntneedname/activity-bot/apperrors"
	"go.uber.org/zap"
)

// MetabaseClient implements Source against the Metabase REST API.
// Every request carries transport-level basic auth because the instance sits
// behind a protected proxy.
type MetabaseClient struct {
	BaseURL       string       // e.g. "https://metabase.example.com"
	Username      string       // Metabase login
	Password      string       // Metabase password
	BasicAuthUser string       // proxy basic auth
	BasicAuthPass string       // proxy basic auth
	HTTP          *http.Client // injected for testability
	Log           *zap.Logger
	UserAgent     string
}

// sessionResponse is the body of POST /api/session.
type sessionResponse struct {
	ID string `json:"id"`
}

// cardQueryResponse is the minimal subset of POST /api/card/{id}/query.
type cardQueryResponse struct {
	Data struct {
		Rows            [][]any `json:"rows"`
		ResultsMetadata struct {
			Columns []column `json:"columns"`
		} `json:"results_metadata"`
	} `json:"data"`
}

type column struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// label is the key a column's values are stored under.
func (c column) label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// NewMetabaseClient returns a ready-to-use client. A zero timeout leaves
// requests unbounded.
func NewMetabaseClient(baseURL, username, password, basicUser, basicPass string, timeout time.Duration, log *zap.Logger) *MetabaseClient {
	return &MetabaseClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Username:      username,
		Password:      password,
		BasicAuthUser: basicUser,
		BasicAuthPass: basicPass,
		HTTP:          &http.Client{Timeout: timeout},
		Log:           log,
		UserAgent:     "activity-bot/1.0",
	}
}

// Authenticate implements Source.
func (m *MetabaseClient) Authenticate(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": m.Username,
		"password": m.Password,
	})
	if err != nil {
		return "", apperrors.New(apperrors.ErrorTypeAuth, "encode credentials", err)
	}

	var out sessionResponse
	if err := m.post(ctx, "/api/session", payload, nil, &out); err != nil {
		return "", apperrors.New(apperrors.ErrorTypeAuth, "open metabase session", err)
	}
	if out.ID == "" {
		return "", apperrors.New(apperrors.ErrorTypeAuth, "metabase session response has no id", nil)
	}
	return out.ID, nil
}

// Fetch implements Source.
func (m *MetabaseClient) Fetch(ctx context.Context, id MetricID, token string) FetchResult {
	var out cardQueryResponse
	path := fmt.Sprintf("/api/card/%d/query", id)
	headers := map[string]string{"X-Metabase-Session": token}
	if err := m.post(ctx, path, []byte("{}"), headers, &out); err != nil {
		return FetchResult{
			Records: []Record{},
			Outcome: OutcomeFailed,
			Err:     apperrors.New(apperrors.ErrorTypeFetch, fmt.Sprintf("card %d", id), err),
		}
	}

	records := zipRows(out.Data.Rows, out.Data.ResultsMetadata.Columns)
	if len(records) == 0 {
		return FetchResult{Records: records, Outcome: OutcomeEmpty}
	}
	return FetchResult{Records: records, Outcome: OutcomeOK}
}

// zipRows turns Metabase's parallel column/row arrays into one Record per
// row. Cells without a matching column are dropped.
func zipRows(rows [][]any, cols []column) []Record {
	if len(rows) == 0 || len(cols) == 0 {
		return []Record{}
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(cols))
		for i, val := range row {
			if i >= len(cols) {
				break
			}
			rec[cols[i].label()] = val
		}
		records = append(records, rec)
	}
	return records
}

// post sends a JSON body and decodes a JSON answer into out.
func (m *MetabaseClient) post(ctx context.Context, path string, body []byte, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if m.BasicAuthUser != "" || m.BasicAuthPass != "" {
		req.SetBasicAuth(m.BasicAuthUser, m.BasicAuthPass)
	}

	client := m.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("metabase request error: %w", err)
	}
	defer resp.Body.Close()

	if m.Log != nil {
		m.Log.Debug("metabase response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	}

	// Metabase answers 200 for session and 202 for card queries.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("metabase returned %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode metabase response: %w", err)
	}
	return nil
}
