package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/session"
	"github.com/claude/setlog/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the setlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the session and history live on the server (accessed over Tailscale).
// The server identifies the caller, so the userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToAgg maps MCP bucket values to REST API agg parameter values.
func bucketToAgg(bucket string) string {
	switch bucket {
	case "day":
		return "daily"
	case "week":
		return "weekly"
	default:
		return "monthly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*session.View, error) {
	var view session.View
	if err := c.get(ctx, "/api/v1/session", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) QueryPersonalRecords(ctx context.Context, _ int) ([]models.PersonalRecord, error) {
	var recs []models.PersonalRecord
	if err := c.get(ctx, "/api/v1/records", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, start, end time.Time, _ int) ([]models.WorkoutRow, error) {
	var workouts []models.WorkoutRow
	if err := c.get(ctx, "/api/v1/workouts", timeParams(start, end), &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, workoutID uuid.UUID, _ int) (*storage.WorkoutDetail, error) {
	var detail storage.WorkoutDetail
	if err := c.get(ctx, "/api/v1/workouts/"+workoutID.String(), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	var periods []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/training-summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) GetDataStats(ctx context.Context, _ int) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
