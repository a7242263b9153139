package reports

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i + 1
	}
	cases := []struct {
		page      int
		from, to  int
		summary   string
		effective int
	}{
		{1, 1, 10, "Showing 1 to 10 of 23 entries", 1},
		{3, 21, 23, "Showing 21 to 23 of 23 entries", 3},
		{9, 21, 23, "Showing 21 to 23 of 23 entries", 3},
		{0, 1, 10, "Showing 1 to 10 of 23 entries", 1},
	}
	for _, tc := range cases {
		p := Paginate(items, tc.page, MasterReportPerPage)
		if p.Summary != tc.summary || p.Page != tc.effective {
			t.Fatalf("page %d: expected %q on page %d, got %q on page %d", tc.page, tc.summary, tc.effective, p.Summary, p.Page)
		}
		if p.Items[0] != tc.from || p.Items[len(p.Items)-1] != tc.to {
			t.Fatalf("page %d: expected items %d..%d, got %v", tc.page, tc.from, tc.to, p.Items)
		}
		if p.TotalPages != 3 {
			t.Fatalf("expected 3 pages, got %d", p.TotalPages)
		}
	}

	empty := Paginate([]int{}, 1, 10)
	if empty.Summary != "Showing 0 to 0 of 0 entries" || len(empty.Items) != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}

func TestFormatTime12h(t *testing.T) {
	cases := []struct{ in, expected string }{
		{"00:15", "12:15 AM"},
		{"09:05", "9:05 AM"},
		{"12:00", "12:00 PM"},
		{"18:45", "6:45 PM"},
		{"", ""},
		{"noon", "noon"},
	}
	for _, tc := range cases {
		if got := FormatTime12h(tc.in); got != tc.expected {
			t.Fatalf("FormatTime12h(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestParseTrainingType(t *testing.T) {
	cases := []struct {
		in       string
		expected TrainingType
	}{
		{"", TrainingTypeAll},
		{"Completed", TrainingTypeCompleted},
		{"scheduled", TrainingTypeScheduled},
		{"cancelled", TrainingTypeCancelled},
	}
	for _, tc := range cases {
		got, err := ParseTrainingType(tc.in)
		if err != nil || got != tc.expected {
			t.Fatalf("ParseTrainingType(%q) expected %s, got %s (%v)", tc.in, tc.expected, got, err)
		}
	}
	if _, err := ParseTrainingType("pending"); !errors.Is(err, ErrUnknownTrainingType) {
		t.Fatalf("expected ErrUnknownTrainingType, got %v", err)
	}
}

func TestMasterRowsDecode(t *testing.T) {
	var employees []EmployeeReportRow
	raw := `[{"_id":"e1","name":"Asha","designation":"ANM","state":{"stateName":"Chhattisgarh"},
	  "division":{"name":"Raipur"},"district":{"districtNameEng":"Durg"},"totalTraining":4,"completedTraining":3}]`
	if err := json.Unmarshal([]byte(raw), &employees); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := employees[0]
	if e.Id != "e1" || e.TotalTraining != 4 || e.CompletedTraining != 3 {
		t.Fatalf("unexpected employee %+v", e)
	}
	if e.Location() != "Chhattisgarh / Raipur / Durg" {
		t.Fatalf("unexpected location %q", e.Location())
	}

	var trainings []TrainingReportRow
	raw = `[{"_id":"t1","title":"CPR","departments":{"departmentName":"Health"},"startTime":"09:30","endTime":"13:00","totalAttendance":20}]`
	if err := json.Unmarshal([]byte(raw), &trainings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := trainings[0]
	if tr.Id != "t1" || tr.Department != "Health" || tr.TimeRange != "9:30 AM to 1:00 PM" {
		t.Fatalf("unexpected training %+v", tr)
	}
}

func TestMasterFilter_Validate(t *testing.T) {
	if fe := (MasterFilter{}).Validate(); fe["state"] != "Please select state" {
		t.Fatalf("expected state error, got %v", fe)
	}
	if fe := (MasterFilter{State: "s1"}).Validate(); fe != nil {
		t.Fatalf("expected valid filter, got %v", fe)
	}
}

func TestFilterFeedbacks(t *testing.T) {
	at := func(s string) *time.Time {
		v, _ := time.Parse(time.RFC3339, s)
		return &v
	}
	feedbacks := []Feedback{
		{Id: "1", Name: "Ravi", Mobile: "+91 98765-43210", TrainerRating: 5, ContentRating: 4, Status: true, SubmittedAt: at("2025-08-01T20:00:00Z")},
		{Id: "2", Name: "Meena", Suggestions: "More practical sessions", TrainerRating: 3, ContentRating: 3, Status: true, SubmittedAt: at("2025-08-03T04:00:00Z")},
		{Id: "3", Name: "Kiran", Mobile: "9000011111", Status: false},
	}
	ids := func(fs []Feedback) string {
		s := ""
		for _, f := range fs {
			s += f.Id
		}
		return s
	}

	cases := []struct {
		name     string
		filter   FeedbackFilter
		expected string
	}{
		{"all", FeedbackFilter{}, "123"},
		{"requested", FeedbackFilter{Type: "requested"}, "3"},
		{"received", FeedbackFilter{Type: "received"}, "12"},
		{"search name", FeedbackFilter{Search: "meen"}, "2"},
		{"search suggestions", FeedbackFilter{Search: "PRACTICAL"}, "2"},
		{"search mobile digits", FeedbackFilter{Search: "9876543210"}, "1"},
		{"search mobile raw", FeedbackFilter{Search: "90000"}, "3"},
		// 20:00Z is the next morning in India
		{"date", FeedbackFilter{Date: "2025-08-02"}, "1"},
		{"rating", FeedbackFilter{Rating: "4"}, "1"},
		{"rating either", FeedbackFilter{Rating: "3"}, "2"},
		{"combined", FeedbackFilter{Type: "received", Rating: "5", Search: "ravi"}, "1"},
	}
	t.Setenv("REPORT_TIMEZONE", "")
	for _, tc := range cases {
		if got := ids(FilterFeedbacks(feedbacks, tc.filter)); got != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, got)
		}
	}

	s := SummarizeFeedbacks(feedbacks)
	if s.Total != 3 || s.Received != 2 || s.AverageTrainerRating != "4.00" || s.AverageContentRating != "3.50" {
		t.Fatalf("unexpected summary %+v", s)
	}
	if empty := SummarizeFeedbacks(nil); empty.AverageTrainerRating != "0.00" {
		t.Fatalf("expected 0.00 average, got %s", empty.AverageTrainerRating)
	}
}

func TestFeedbackFilter_Validate(t *testing.T) {
	cases := []struct {
		filter FeedbackFilter
		field  string
	}{
		{FeedbackFilter{Type: "pending"}, "type"},
		{FeedbackFilter{Date: "02-08-2025"}, "date"},
		{FeedbackFilter{Rating: "9"}, "rating"},
	}
	for _, tc := range cases {
		if fe := tc.filter.Validate(); !fe.Has(tc.field) {
			t.Fatalf("expected %s error for %+v, got %v", tc.field, tc.filter, fe)
		}
	}
	if fe := (FeedbackFilter{Type: "received", Date: "2025-08-02", Rating: "5"}).Validate(); fe != nil {
		t.Fatalf("expected valid filter, got %v", fe)
	}
}
