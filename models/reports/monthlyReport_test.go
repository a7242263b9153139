package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

const samplePayload = `{
  "departments": [{"id":"d1","name":"Health"},{"_id":"d2","name":"Police"}],
  "report": {
    "Raipur":   {"01-08-2025": {"Health": {"attendanceCount": 12, "trainingCount": 2}}},
    "Bastar":   {"01-08-2025": {"Police": {"attendanceCount": 5, "trainingCount": 1}},
                 "02-08-2025": {"Health": {"attendanceCount": 3, "trainingCount": 1}}},
    "Durg":     {"02-08-2025": {"Police": {"attendanceCount": 7, "trainingCount": 1}}}
  },
  "reportSRM": {
    "01-08-2025": {"Health": {"attendanceCount": 4, "trainingCount": 1}},
    "02-08-2025": {"Police": {"attendanceCount": 1, "trainingCount": 1}}
  }
}`

var sampleDistricts = []models.District{
	{Id: "1", DistrictNameEng: "Raipur", IsLightHouse: true},
	{Id: "2", DistrictNameEng: "Bastar"},
	{Id: "3", DistrictNameEng: "Durg", IsLightHouse: true},
	{Id: "4", DistrictNameEng: "Anuppur"},
}

func sampleGrid(t *testing.T) *Grid {
	t.Helper()
	p, err := DecodeMonthlyPayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	dates := []string{"01-08-2025", "02-08-2025", "03-08-2025"}
	return BuildReportGrid(p.Departments, sampleDistricts, dates, p.Cells)
}

func TestBuildReportGrid_SubTotalIsSumOfBands(t *testing.T) {
	g := sampleGrid(t)
	for _, group := range g.Dates {
		for _, row := range group.Rows {
			sum := row.State.Value
			for _, v := range row.Lighthouse {
				sum += v.Value
			}
			for _, v := range row.NonLighthouse {
				sum += v.Value
			}
			if row.SubTotal.Value != sum {
				t.Fatalf("%s/%s: expected sub total %d, got %d", group.Date, row.Department, sum, row.SubTotal.Value)
			}
		}
	}
}

func TestBuildReportGrid_GrandTotalsReconcile(t *testing.T) {
	g := sampleGrid(t)

	dateTotals, rowSubTotals := 0, 0
	for _, group := range g.Dates {
		dateTotals += group.Total.Value
		for _, row := range group.Rows {
			rowSubTotals += row.SubTotal.Value
		}
	}
	gt := g.GrandTotals
	if gt.SubTotal != dateTotals || gt.Total != dateTotals || rowSubTotals != dateTotals {
		t.Fatalf("expected subTotal == total == %d, got subTotal %d total %d rows %d", dateTotals, gt.SubTotal, gt.Total, rowSubTotals)
	}
	// 12 + 5 + 3 + 7 districts, 4 + 1 state
	if gt.Total != 32 {
		t.Fatalf("expected grand total 32, got %d", gt.Total)
	}
	if gt.Count != 7 || gt.CountOfTrainings != 7 {
		t.Fatalf("expected 7 trainings, got count %d countOfTrainings %d", gt.Count, gt.CountOfTrainings)
	}
	if !gt.Reconciles() {
		t.Fatalf("expected grand totals to reconcile: %+v", gt)
	}
}

func TestBuildReportGrid_ColumnBands(t *testing.T) {
	g := sampleGrid(t)
	wantLH := []string{"Durg", "Raipur"}
	wantNLH := []string{"Anuppur", "Bastar"}
	if len(g.Lighthouse) != len(wantLH) || len(g.NonLighthouse) != len(wantNLH) {
		t.Fatalf("expected %d/%d districts, got %d/%d", len(wantLH), len(wantNLH), len(g.Lighthouse), len(g.NonLighthouse))
	}
	for i, name := range wantLH {
		if g.Lighthouse[i].DistrictNameEng != name {
			t.Fatalf("lighthouse[%d] expected %s, got %s", i, name, g.Lighthouse[i].DistrictNameEng)
		}
	}
	for i, name := range wantNLH {
		if g.NonLighthouse[i].DistrictNameEng != name {
			t.Fatalf("non-lighthouse[%d] expected %s, got %s", i, name, g.NonLighthouse[i].DistrictNameEng)
		}
	}
	if got := g.GrandTotals.Lighthouse; got[0] != 7 || got[1] != 12 {
		t.Fatalf("expected lighthouse totals [7 12], got %v", got)
	}
	if got := g.GrandTotals.NonLighthouse; got[0] != 0 || got[1] != 8 {
		t.Fatalf("expected non-lighthouse totals [0 8], got %v", got)
	}
	if g.DataColumnCount() != 10 {
		t.Fatalf("expected 10 data columns, got %d", g.DataColumnCount())
	}
}

func TestBuildReportGrid_DateGroupTotals(t *testing.T) {
	g := sampleGrid(t)
	cases := []struct {
		date      string
		total     int
		trainings int
	}{
		{"01-08-2025", 21, 4},
		{"02-08-2025", 11, 3},
		{"03-08-2025", 0, 0},
	}
	for i, tc := range cases {
		group := g.Dates[i]
		if group.Date != tc.date {
			t.Fatalf("expected date %s, got %s", tc.date, group.Date)
		}
		if group.Total.Value != tc.total || group.CountOfTrainings.Value != tc.trainings {
			t.Fatalf("%s: expected total %d trainings %d, got %d %d", tc.date, tc.total, tc.trainings, group.Total.Value, group.CountOfTrainings.Value)
		}
		if len(group.Rows) != 2 {
			t.Fatalf("%s: expected a row per department, got %d", tc.date, len(group.Rows))
		}
	}
}

func TestBuildReportGrid_NoDepartments(t *testing.T) {
	cells := MonthlyCells{Districts: NewCellIndex(), State: NewCellIndex()}
	cells.Districts.Add("Raipur", "01-08-2025", "Health", Cell{AttendanceCount: 9, TrainingCount: 1})

	g := BuildReportGrid(nil, sampleDistricts, []string{"01-08-2025", "02-08-2025"}, cells)
	if len(g.Dates) != 2 {
		t.Fatalf("expected one group per date, got %d", len(g.Dates))
	}
	for _, group := range g.Dates {
		if !group.NoDepartments || len(group.Rows) != 0 {
			t.Fatalf("%s: expected a No Departments placeholder, got %+v", group.Date, group)
		}
	}
	gt := g.GrandTotals
	if gt.State != 0 || gt.SubTotal != 0 || gt.Total != 0 || gt.Count != 0 || gt.CountOfTrainings != 0 {
		t.Fatalf("expected zero grand totals, got %+v", gt)
	}
	for _, v := range append(gt.Lighthouse, gt.NonLighthouse...) {
		if v != 0 {
			t.Fatalf("expected zero district totals, got %+v", gt)
		}
	}
	if !g.Empty() {
		t.Fatalf("expected grid without departments to be empty")
	}
}

func TestBuildReportGrid_MissingCellIsPlainZero(t *testing.T) {
	g := sampleGrid(t)
	// Anuppur has no cells at all
	v := g.Dates[0].Rows[0].NonLighthouse[0]
	if v.Value != 0 || v.Active {
		t.Fatalf("expected inactive zero, got %+v", v)
	}
	c := MonthlyCells{}.District("Nowhere", "01-08-2025", "Health")
	if c.AttendanceCount != 0 || c.TrainingCount != 0 {
		t.Fatalf("expected zero cell, got %+v", c)
	}
	if active := g.Dates[0].Rows[0].Lighthouse[1]; !active.Active || active.Value != 12 {
		t.Fatalf("expected Raipur health badge of 12, got %+v", active)
	}
}

func TestDecodeMonthlyPayload_LegacyFlatShape(t *testing.T) {
	body := `{
	  "departmentss": ["Health"],
	  "report": [
	    {"Date": "2025-08-01T00:00:00.000Z", "Department": "Health", "Raipur": 6, "Bastar": 0}
	  ],
	  "SRMReport": [
	    {"Date": "2025-08-01", "Department": "Health", "total": 2}
	  ]
	}`
	p, err := DecodeMonthlyPayload([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Departments) != 1 || p.Departments[0].Name != "Health" {
		t.Fatalf("expected Health department, got %+v", p.Departments)
	}
	if c := p.Cells.District("Raipur", "01-08-2025", "Health"); c.AttendanceCount != 6 || c.TrainingCount != 1 {
		t.Fatalf("expected Raipur 6/1, got %+v", c)
	}
	if c := p.Cells.District("Bastar", "01-08-2025", "Health"); c.AttendanceCount != 0 || c.TrainingCount != 0 {
		t.Fatalf("expected Bastar 0/0, got %+v", c)
	}
	if c := p.Cells.StateLevel("01-08-2025", "Health"); c.AttendanceCount != 2 || c.TrainingCount != 1 {
		t.Fatalf("expected state 2/1, got %+v", c)
	}
}

func TestDecodeMonthlyPayload_Empty(t *testing.T) {
	p, err := DecodeMonthlyPayload([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Departments == nil || len(p.Departments) != 0 {
		t.Fatalf("expected empty department list, got %v", p.Departments)
	}
	if p.Cells.Districts.Len() != 0 || p.Cells.State.Len() != 0 {
		t.Fatalf("expected no cells")
	}
}

func TestDecodeStateCells_TotalWrapper(t *testing.T) {
	ix, err := DecodeStateCells([]byte(`{"total": {"01-08-2025": {"Health": 3}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := ix.Lookup(StateOwner, "01-08-2025", "Health"); c.AttendanceCount != 3 {
		t.Fatalf("expected 3, got %+v", c)
	}
}

func TestCell_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in       string
		expected Cell
	}{
		{`{"attendanceCount": 4, "trainingCount": 2}`, Cell{4, 2}},
		{`{"value": 3}`, Cell{3, 1}},
		{`5`, Cell{5, 1}},
		{`"7"`, Cell{7, 1}},
		{`0`, Cell{0, 0}},
		{`null`, Cell{}},
		{`{"attendanceCount": 2.0}`, Cell{2, 0}},
	}
	for _, tc := range cases {
		var c Cell
		if err := c.UnmarshalJSON([]byte(tc.in)); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.in, err)
		}
		if c != tc.expected {
			t.Fatalf("%s: expected %+v, got %+v", tc.in, tc.expected, c)
		}
	}

	var c Cell
	if err := c.UnmarshalJSON([]byte(`"lots"`)); err == nil {
		t.Fatalf("expected error for non-numeric cell")
	}
}

func TestMonthlyFilter_Validate(t *testing.T) {
	now := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		filter MonthlyFilter
		fields []string
	}{
		{"valid", MonthlyFilter{StateId: "s1", Year: 2025, Month: 8}, nil},
		{"past year", MonthlyFilter{StateId: "s1", Year: 2023, Month: 12}, nil},
		{"missing all", MonthlyFilter{}, []string{"stateId", "year", "month"}},
		{"old year", MonthlyFilter{StateId: "s1", Year: 2022, Month: 1}, []string{"year"}},
		{"future month", MonthlyFilter{StateId: "s1", Year: 2025, Month: 9}, []string{"month"}},
		{"month range", MonthlyFilter{StateId: "s1", Year: 2024, Month: 13}, []string{"month"}},
	}
	for _, tc := range cases {
		fe := tc.filter.Validate(now)
		if len(fe) != len(tc.fields) {
			t.Fatalf("%s: expected %d field errors, got %v", tc.name, len(tc.fields), fe)
		}
		for _, f := range tc.fields {
			if !fe.Has(f) {
				t.Fatalf("%s: expected error on %s, got %v", tc.name, f, fe)
			}
		}
	}
	if fe := (MonthlyFilter{}).Validate(now); fe["stateId"] != "Please select state" {
		t.Fatalf("expected state message, got %q", fe["stateId"])
	}
}

func TestMonthlyFilter_ValidateOnReportCalendar(t *testing.T) {
	t.Setenv("REPORT_TIMEZONE", "Asia/Kolkata")
	// 01:30 on 1 September in India, still 31 August in UTC.
	now := time.Date(2025, 8, 31, 20, 0, 0, 0, time.UTC)
	if fe := (MonthlyFilter{StateId: "s1", Year: 2025, Month: 9}).Validate(now); fe != nil {
		t.Fatalf("expected September to be selectable, got %v", fe)
	}
	if fe := (MonthlyFilter{StateId: "s1", Year: 2025, Month: 10}).Validate(now); !fe.Has("month") {
		t.Fatalf("expected October to be a future month, got %v", fe)
	}

	t.Setenv("REPORT_TIMEZONE", "UTC")
	if fe := (MonthlyFilter{StateId: "s1", Year: 2025, Month: 9}).Validate(now); !fe.Has("month") {
		t.Fatalf("expected September to be a future month in UTC, got %v", fe)
	}
}

type fakeMonthlySource struct {
	payload  *MonthlyPayload
	err      error
	syncErr  error
	syncs    int
	requests []MonthlyFilter
}

func (f *fakeMonthlySource) GetMonthlyReport(ctx context.Context, rc models.RequestContext, filter MonthlyFilter) (*MonthlyPayload, error) {
	f.requests = append(f.requests, filter)
	return f.payload, f.err
}

func (f *fakeMonthlySource) SyncDetails(ctx context.Context, rc models.RequestContext) (string, error) {
	f.syncs++
	return "synced", f.syncErr
}

func TestFetchMonthlyReport(t *testing.T) {
	p, err := DecodeMonthlyPayload([]byte(samplePayload))
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	src := &fakeMonthlySource{payload: p, syncErr: errors.New("timeout")}
	now := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)

	report, err := FetchMonthlyReport(context.Background(), src, models.RequestContext{Role: models.RoleSRM, StateId: "s1"}, MonthlyReportRequest{
		Filter:    MonthlyFilter{StateId: "s1", Year: 2025, Month: 8},
		StateName: "Chhattisgarh",
		Districts: sampleDistricts,
		Now:       now,
		Sync:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.syncs != 1 {
		t.Fatalf("expected one sync, got %d", src.syncs)
	}
	if report.Notice == nil || report.Notice.Level != utils.NoticeLevelError {
		t.Fatalf("expected sync failure notice, got %+v", report.Notice)
	}
	if len(report.Grid.Dates) != 2 {
		t.Fatalf("expected 2 dates up to today, got %d", len(report.Grid.Dates))
	}
	if report.Grid.GrandTotals.Total != 32 {
		t.Fatalf("expected total 32, got %d", report.Grid.GrandTotals.Total)
	}
	if report.FileName() != "Monthly_Report_Chhattisgarh_2025_8.xlsx" {
		t.Fatalf("unexpected file name %s", report.FileName())
	}
}

func TestFetchMonthlyReport_Errors(t *testing.T) {
	now := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)
	src := &fakeMonthlySource{err: errors.New("monthly report api error 500: boom")}

	_, err := FetchMonthlyReport(context.Background(), src, models.RequestContext{}, MonthlyReportRequest{Now: now})
	var fe utils.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected field errors, got %v", err)
	}
	if len(src.requests) != 0 {
		t.Fatalf("expected no fetch for an invalid filter")
	}

	_, err = FetchMonthlyReport(context.Background(), src, models.RequestContext{}, MonthlyReportRequest{
		Filter: MonthlyFilter{StateId: "s1", Year: 2025, Month: 7},
		Now:    now,
	})
	var n *utils.Notice
	if !errors.As(err, &n) || n.Message != "Failed to generate report" {
		t.Fatalf("expected generate notice, got %v", err)
	}
}
