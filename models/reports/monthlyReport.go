package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoReport       = errors.New("no report has been generated")
	ErrReportInFlight = errors.New("a report for these filters is already being generated")
)

type MonthlyFilter struct {
	StateId string `json:"stateId" form:"stateId" validate:"required"`
	Year    int    `json:"year" form:"year" validate:"required"`
	Month   int    `json:"month" form:"month" validate:"required,min=1,max=12"`
}

var monthlyFilterMessages = map[string]string{
	"stateId": "Please select state",
	"year":    "Please select year",
	"month":   "Please select month",
}

// Validate checks required fields, that Year is one of YearOptions(now) and that
// Month is not in the future on the report calendar.
func (f MonthlyFilter) Validate(now time.Time) utils.FieldErrors {
	now = reportClock(now)
	fe := utils.ValidateStruct(f, monthlyFilterMessages)
	if fe == nil {
		fe = utils.FieldErrors{}
	}
	if !fe.Has("year") && !slices.Contains(YearOptions(now), f.Year) {
		fe["year"] = monthlyFilterMessages["year"]
	}
	if !fe.Has("month") && !fe.Has("year") && f.Year == now.Year() && f.Month > int(now.Month()) {
		fe["month"] = monthlyFilterMessages["month"]
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Key identifies the filter set for in-flight deduplication.
func (f MonthlyFilter) Key() string {
	return fmt.Sprintf("%s:%04d:%02d", f.StateId, f.Year, f.Month)
}

// MonthlyPayload is the decoded monthly-report response.
type MonthlyPayload struct {
	Departments []models.Department
	Cells       MonthlyCells
}

// DecodeMonthlyPayload accepts both generations of the monthly-report body:
// "departments" or "departmentss", "reportSRM" or "SRMReport", and flat or
// nested cell sections.
func DecodeMonthlyPayload(body []byte) (*MonthlyPayload, error) {
	var raw struct {
		Departments  []models.Department `json:"departments"`
		Departmentss []models.Department `json:"departmentss"`
		Report       json.RawMessage     `json:"report"`
		ReportSRM    json.RawMessage     `json:"reportSRM"`
		SRMReport    json.RawMessage     `json:"SRMReport"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode monthly report: %w", err)
	}

	p := &MonthlyPayload{Departments: raw.Departments}
	if len(p.Departments) == 0 {
		p.Departments = raw.Departmentss
	}
	if p.Departments == nil {
		p.Departments = []models.Department{}
	}

	districts, err := DecodeDistrictCells(raw.Report)
	if err != nil {
		return nil, fmt.Errorf("decode monthly report: report: %w", err)
	}
	stateRaw := raw.ReportSRM
	if isEmpty(stateRaw) {
		stateRaw = raw.SRMReport
	}
	state, err := DecodeStateCells(stateRaw)
	if err != nil {
		return nil, fmt.Errorf("decode monthly report: state report: %w", err)
	}
	p.Cells = MonthlyCells{Districts: districts, State: state}
	return p, nil
}

// MonthlySource is the backend the monthly report is fetched from.
type MonthlySource interface {
	GetMonthlyReport(ctx context.Context, rc models.RequestContext, f MonthlyFilter) (*MonthlyPayload, error)
	SyncDetails(ctx context.Context, rc models.RequestContext) (string, error)
}

type MonthlyReportRequest struct {
	Filter    MonthlyFilter
	StateName string
	Districts []models.District
	Now       time.Time
	// Sync runs SyncDetails before the fetch. A failed sync does not block the report.
	Sync bool
}

// MonthlyReport is a generated report as served to the dashboard and exporter.
type MonthlyReport struct {
	Filter      MonthlyFilter `json:"filter"`
	StateName   string        `json:"stateName"`
	MonthName   string        `json:"monthName"`
	GeneratedAt time.Time     `json:"generatedAt"`
	SyncMessage string        `json:"syncMessage,omitempty"`
	Notice      *utils.Notice `json:"notice,omitempty"`
	Grid        *Grid         `json:"grid"`
}

// FileName is the export file name for this report.
func (r *MonthlyReport) FileName() string {
	return ExportFileName(r.StateName, r.Filter.Year, r.Filter.Month)
}

// FetchMonthlyReport validates the filter, fetches the payload and builds the grid.
// Validation failures are returned as utils.FieldErrors; fetch failures as *utils.Notice.
func FetchMonthlyReport(ctx context.Context, src MonthlySource, rc models.RequestContext, req MonthlyReportRequest) (*MonthlyReport, error) {
	started := time.Now()
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = reportClock(now)
	if fe := req.Filter.Validate(now); fe != nil {
		return nil, fe
	}

	report := &MonthlyReport{
		Filter:    req.Filter,
		StateName: req.StateName,
		MonthName: MonthName(req.Filter.Month),
	}

	if req.Sync {
		msg, err := src.SyncDetails(ctx, rc)
		if err != nil {
			config.LogError(config.GetLogger(), "reports", "FetchMonthlyReport", "sync details", req.Filter, err)
			report.Notice = utils.NewErrorNotice("Failed to sync details", err)
		} else {
			report.SyncMessage = msg
			config.GetLogger().WithFields(logrus.Fields{"field": "sync", "message": msg}).Info("sync details")
		}
	}

	payload, err := src.GetMonthlyReport(ctx, rc, req.Filter)
	if err != nil {
		config.LogError(config.GetLogger(), "reports", "FetchMonthlyReport", "get monthly report", req.Filter, err)
		return nil, utils.AsNotice(err, "Failed to generate report")
	}

	dates := DatesInMonth(req.Filter.Year, req.Filter.Month, now)
	report.Grid = BuildReportGrid(payload.Departments, req.Districts, dates, payload.Cells)
	report.GeneratedAt = now
	if !report.Grid.GrandTotals.Reconciles() {
		config.GetLogger().WithFields(logrus.Fields{"filter": req.Filter}).Error("monthly report totals do not reconcile")
	}

	logSlowReport(ctx, "MonthlyReport", started, map[string]any{
		"state": req.Filter.StateId,
		"year":  req.Filter.Year,
		"month": req.Filter.Month,
	})
	return report, nil
}
