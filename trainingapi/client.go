package trainingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/models/reports"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("training-reports/trainingapi")

var ErrMissingToken = errors.New("request context has no token")

// StatusError is a non-2xx answer from the training backend.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Client talks to the training backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter <-chan time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

// NewClient reads REPORT_API_BASE_URL, REPORT_API_TIMEOUT_SECONDS (default 30)
// and REPORT_API_RATE_LIMIT_PER_MIN (default 0, unlimited).
func NewClient(opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("REPORT_API_BASE_URL"))
	timeout := 30
	if v := strings.TrimSpace(os.Getenv("REPORT_API_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}
	if v := strings.TrimSpace(os.Getenv("REPORT_API_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.limiter = time.Tick(time.Minute / time.Duration(n))
		}
	}
	for _, o := range opts {
		o(c)
	}
	if c.baseURL == "" {
		return nil, errors.New("training api base url is empty")
	}
	return c, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case <-c.limiter:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get issues GET {base}{path}?params and returns the body of a 2xx answer.
func (c *Client) get(ctx context.Context, rc models.RequestContext, op, path string, params url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "trainingapi."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, status, err := c.do(ctx, rc, op, path, params)
	span.SetAttributes(
		attribute.String("http.path", path),
		attribute.Int("http.status_code", status),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, rc models.RequestContext, op, path string, params url.Values) ([]byte, int, error) {
	token := strings.TrimSpace(rc.Token)
	if token == "" {
		token, _ = utils.GetTokenFromContext(ctx)
	}
	if token == "" {
		return nil, 0, ErrMissingToken
	}
	if err := c.wait(ctx); err != nil {
		return nil, 0, err
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		req.Header.Set("x-correlation-id", cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &StatusError{Operation: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, rc models.RequestContext, op, path string, params url.Values, dest any) error {
	body, err := c.get(ctx, rc, op, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

func (c *Client) GetStates(ctx context.Context, rc models.RequestContext) ([]models.State, error) {
	var rows []stateDTO
	if err := c.getJSON(ctx, rc, "states", "/states", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.State, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *Client) GetDivisions(ctx context.Context, rc models.RequestContext, stateId string) ([]models.Division, error) {
	var rows []divisionDTO
	path := "/state/" + url.PathEscape(stateId) + "/divisions"
	if err := c.getJSON(ctx, rc, "divisions", path, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.Division, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel(stateId))
	}
	return out, nil
}

func (c *Client) GetDistrictsByState(ctx context.Context, rc models.RequestContext, stateId string) ([]models.District, error) {
	return c.districts(ctx, rc, "/state/"+url.PathEscape(stateId)+"/districts")
}

func (c *Client) GetDistrictsByDivision(ctx context.Context, rc models.RequestContext, divisionId string) ([]models.District, error) {
	return c.districts(ctx, rc, "/division/"+url.PathEscape(divisionId)+"/districts")
}

func (c *Client) districts(ctx context.Context, rc models.RequestContext, path string) ([]models.District, error) {
	var rows []districtDTO
	if err := c.getJSON(ctx, rc, "districts", path, nil, &rows); err != nil {
		return nil, err
	}
	out := make([]models.District, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *Client) GetMonthlyReport(ctx context.Context, rc models.RequestContext, f reports.MonthlyFilter) (*reports.MonthlyPayload, error) {
	params := url.Values{}
	params.Set("stateId", f.StateId)
	params.Set("year", strconv.Itoa(f.Year))
	params.Set("month", strconv.Itoa(f.Month))
	body, err := c.get(ctx, rc, "monthly report", "/monthly-report", params)
	if err != nil {
		return nil, err
	}
	return reports.DecodeMonthlyPayload(body)
}

// SyncDetails asks the backend to refresh its aggregates and returns its message.
func (c *Client) SyncDetails(ctx context.Context, rc models.RequestContext) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.getJSON(ctx, rc, "sync details", "/sync-details", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *Client) GetMasterReport(ctx context.Context, rc models.RequestContext, f reports.MasterFilter) ([]reports.EmployeeReportRow, error) {
	params := url.Values{}
	params.Set("state", f.State)
	params.Set("division", f.Division)
	params.Set("district", f.District)
	var rows []reports.EmployeeReportRow
	if err := c.getJSON(ctx, rc, "master report", "/reports", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetTrainingsReport(ctx context.Context, rc models.RequestContext, employeeId string, t reports.TrainingType) ([]reports.TrainingReportRow, error) {
	params := url.Values{}
	params.Set("type", string(t))
	var rows []reports.TrainingReportRow
	path := "/trainings-reports/" + url.PathEscape(employeeId)
	if err := c.getJSON(ctx, rc, "trainings report", path, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) GetTrainingFeedbacks(ctx context.Context, rc models.RequestContext, trainingId string) ([]reports.Feedback, error) {
	var rows []reports.Feedback
	path := "/feedbacks/training/" + url.PathEscape(trainingId)
	if err := c.getJSON(ctx, rc, "feedbacks", path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
