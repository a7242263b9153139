package reportview

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/location"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/models/reports"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

// Source is everything the monthly view reads from the backend.
type Source interface {
	location.Source
	reports.MonthlySource
}

// MonthlyView is the monthly report screen for one session: the filter
// selection, the displayed report and the generate/export actions.
//
// A failed generation leaves the displayed report untouched. Changing any
// filter clears it. Only one generation runs at a time.
type MonthlyView struct {
	mu sync.Mutex

	src    reports.MonthlySource
	loader *location.Loader
	rc     models.RequestContext
	now    func() time.Time
	sync   bool

	states    []models.State
	selection *location.Selection
	year      int
	month     int
	version   int // bumped on every filter change
	stateSeq  int // bumped on every SelectState call
	inFlight  bool
	report    *reports.MonthlyReport
}

type Option func(*MonthlyView)

func WithClock(now func() time.Time) Option {
	return func(v *MonthlyView) { v.now = now }
}

// WithSync runs sync-details before each generation.
func WithSync(on bool) Option {
	return func(v *MonthlyView) { v.sync = on }
}

func NewMonthlyView(src Source, rc models.RequestContext, opts ...Option) *MonthlyView {
	v := &MonthlyView{
		src:       src,
		loader:    location.NewLoader(src),
		rc:        rc,
		now:       config.ReportNow,
		selection: location.NewSelection(location.CascadeDistricts),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// LoadStates fills the state options. Users pinned to one state see only it,
// and it is preselected.
func (v *MonthlyView) LoadStates(ctx context.Context) ([]models.State, *utils.Notice) {
	states, notice := v.loader.States(ctx, v.rc)
	if !v.rc.Role.Can(models.CapabilityViewAllStates) {
		own, ok := models.FindState(states, v.rc.StateId)
		states = []models.State{}
		if ok {
			states = append(states, own)
		}
	}

	v.mu.Lock()
	v.states = states
	v.mu.Unlock()

	if len(states) == 1 && !v.rc.Role.Can(models.CapabilityViewAllStates) {
		if n := v.SelectState(ctx, states[0].Id); n != nil && notice == nil {
			notice = n
		}
	}
	return states, notice
}

// SelectState loads the state's districts. The returned notice reports a failed
// or empty district load, or a state outside the user's scope. When calls
// overlap, the most recent one wins regardless of which load finishes first.
func (v *MonthlyView) SelectState(ctx context.Context, stateId string) *utils.Notice {
	allowed, err := v.rc.AllowedState(stateId)
	if stateId != "" && err != nil {
		return utils.NewErrorNotice("You are not allowed to view this state", err)
	}
	if stateId == "" {
		allowed = ""
	}

	v.mu.Lock()
	v.stateSeq++
	seq := v.stateSeq
	v.mu.Unlock()

	sel := location.NewSelection(location.CascadeDistricts)
	sel.SetState(ctx, v.loader, v.rc, allowed)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.stateSeq {
		return sel.Notice
	}
	v.selection = sel
	v.filterChanged()
	return sel.Notice
}

func (v *MonthlyView) SelectYear(year int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// a new year starts with no month picked
	if year != v.year {
		v.month = 0
	}
	v.year = year
	v.filterChanged()
}

func (v *MonthlyView) SelectMonth(month int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.month = month
	v.filterChanged()
}

func (v *MonthlyView) filterChanged() {
	v.version++
	v.report = nil
}

func (v *MonthlyView) Filter() reports.MonthlyFilter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return reports.MonthlyFilter{StateId: v.selection.StateId, Year: v.year, Month: v.month}
}

func (v *MonthlyView) Districts() location.Districts {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection.Districts
}

func (v *MonthlyView) YearOptions() []int {
	return reports.YearOptions(v.now())
}

func (v *MonthlyView) MonthOptions() []reports.MonthOption {
	v.mu.Lock()
	year := v.year
	v.mu.Unlock()
	return reports.MonthOptions(year, v.now())
}

// Generating reports whether a generation is outstanding (the button is disabled).
func (v *MonthlyView) Generating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inFlight
}

// Report is the displayed report, nil before the first successful generation
// and after any filter change.
func (v *MonthlyView) Report() *reports.MonthlyReport {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.report
}

// Generate fetches and builds the report for the current filters. It returns
// reports.ErrReportInFlight while another generation is running,
// utils.FieldErrors for an incomplete filter and *utils.Notice when the fetch
// fails. A result whose filters changed mid-flight is returned but not displayed.
func (v *MonthlyView) Generate(ctx context.Context) (*reports.MonthlyReport, error) {
	if err := v.rc.Role.Require(models.CapabilityViewMonthlyReport); err != nil {
		return nil, err
	}

	v.mu.Lock()
	if v.inFlight {
		v.mu.Unlock()
		return nil, reports.ErrReportInFlight
	}
	v.inFlight = true
	version := v.version
	req := reports.MonthlyReportRequest{
		Filter:    reports.MonthlyFilter{StateId: v.selection.StateId, Year: v.year, Month: v.month},
		StateName: v.stateName(v.selection.StateId),
		Districts: append([]models.District{}, v.selection.Districts.All...),
		Now:       v.now(),
		Sync:      v.sync,
	}
	v.mu.Unlock()

	report, err := reports.FetchMonthlyReport(ctx, v.src, v.rc, req)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.inFlight = false
	if err != nil {
		return nil, err
	}
	if version == v.version {
		v.report = report
	}
	return report, nil
}

func (v *MonthlyView) stateName(id string) string {
	if s, ok := models.FindState(v.states, id); ok {
		return s.StateName
	}
	return id
}

// Export renders the displayed report. Before any successful generation it
// returns reports.ErrNoReport.
func (v *MonthlyView) Export() ([]byte, string, error) {
	if err := v.rc.Role.Require(models.CapabilityExportReport); err != nil {
		return nil, "", err
	}
	report := v.Report()
	if report == nil {
		return nil, "", reports.ErrNoReport
	}
	data, err := reports.WriteMonthlyReportExcel(report.Grid)
	if err != nil {
		return nil, "", err
	}
	return data, report.FileName(), nil
}
