package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

const (
	MasterReportPerPage = 10
	NoMasterReportData  = "No report data available for the selected criteria"
)

type MasterFilter struct {
	State    string `json:"state" form:"state" validate:"required"`
	Division string `json:"division" form:"division"`
	District string `json:"district" form:"district"`
}

func (f MasterFilter) Validate() utils.FieldErrors {
	return utils.ValidateStruct(f, map[string]string{"state": "Please select state"})
}

type EmployeeReportRow struct {
	Id                string          `json:"id"`
	Name              string          `json:"name"`
	Designation       string          `json:"designation"`
	State             models.State    `json:"state"`
	Division          models.Division `json:"division"`
	District          models.District `json:"district"`
	TotalTraining     int             `json:"totalTraining"`
	ScheduledTraining int             `json:"scheduledTraining"`
	CompletedTraining int             `json:"completedTraining"`
	CancelledTraining int             `json:"cancelledTraining"`
}

func (r *EmployeeReportRow) UnmarshalJSON(b []byte) error {
	type alias EmployeeReportRow
	var raw struct {
		alias
		ID  json.RawMessage `json:"id"`
		OID json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = EmployeeReportRow(raw.alias)
	r.Id = models.FlexibleID(raw.ID, raw.OID)
	return nil
}

// Location is the "state / division / district" label shown beside the employee.
func (r EmployeeReportRow) Location() string {
	return fmt.Sprintf("%s / %s / %s", r.State.StateName, r.Division.Name, r.District.DistrictNameEng)
}

type TrainingType string

const (
	TrainingTypeAll       TrainingType = "all"
	TrainingTypeScheduled TrainingType = "scheduled"
	TrainingTypeCompleted TrainingType = "completed"
	TrainingTypeCancelled TrainingType = "cancelled"
)

var ErrUnknownTrainingType = errors.New("unknown training type")

// ParseTrainingType treats an empty value as TrainingTypeAll.
func ParseTrainingType(s string) (TrainingType, error) {
	switch TrainingType(strings.ToLower(strings.TrimSpace(s))) {
	case "", TrainingTypeAll:
		return TrainingTypeAll, nil
	case TrainingTypeScheduled:
		return TrainingTypeScheduled, nil
	case TrainingTypeCompleted:
		return TrainingTypeCompleted, nil
	case TrainingTypeCancelled:
		return TrainingTypeCancelled, nil
	}
	return "", ErrUnknownTrainingType
}

type TrainingReportRow struct {
	Id                string `json:"id"`
	Title             string `json:"title"`
	TrainerName       string `json:"trainerName"`
	Department        string `json:"department"`
	TrainingType      string `json:"trainingType"`
	Date              string `json:"date"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	TimeRange         string `json:"timeRange"`
	CreatedAt         string `json:"createdAt"`
	TotalAttendance   int    `json:"totalAttendance"`
	RequestedFeedback int    `json:"requestedFeedback"`
	ReceivedFeedback  int    `json:"receivedFeedback"`
}

func (r *TrainingReportRow) UnmarshalJSON(b []byte) error {
	type alias TrainingReportRow
	var raw struct {
		alias
		ID          json.RawMessage `json:"id"`
		OID         json.RawMessage `json:"_id"`
		Departments *struct {
			DepartmentName string `json:"departmentName"`
		} `json:"departments"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = TrainingReportRow(raw.alias)
	r.Id = models.FlexibleID(raw.ID, raw.OID)
	if r.Department == "" && raw.Departments != nil {
		r.Department = raw.Departments.DepartmentName
	}
	if r.StartTime != "" || r.EndTime != "" {
		r.TimeRange = FormatTime12h(r.StartTime) + " to " + FormatTime12h(r.EndTime)
	}
	return nil
}

// FormatTime12h turns "HH:MM" into "h:MM AM/PM". Unparseable input is returned as is.
func FormatTime12h(hhmm string) string {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm == "" {
		return ""
	}
	hours, minutes, ok := strings.Cut(hhmm, ":")
	if !ok {
		return hhmm
	}
	hour, err := strconv.Atoi(hours)
	if err != nil || hour < 0 || hour > 23 {
		return hhmm
	}
	switch {
	case hour == 0:
		return "12:" + minutes + " AM"
	case hour == 12:
		return "12:" + minutes + " PM"
	case hour > 12:
		return strconv.Itoa(hour-12) + ":" + minutes + " PM"
	default:
		return strconv.Itoa(hour) + ":" + minutes + " AM"
	}
}

// Page is one page of a client-side paginated table.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalPages int    `json:"totalPages"`
	Total      int    `json:"total"`
	Summary    string `json:"summary"`
	Message    string `json:"message,omitempty"`
}

// Paginate slices items for a 1-based page. Out of range pages are clamped.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = MasterReportPerPage
	}
	total := len(items)
	totalPages := (total + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}

	p := Page[T]{Page: page, PerPage: perPage, TotalPages: totalPages, Total: total, Items: []T{}}
	if total == 0 {
		p.Summary = "Showing 0 to 0 of 0 entries"
		return p
	}
	from := (page - 1) * perPage
	to := min(from+perPage, total)
	p.Items = items[from:to]
	p.Summary = fmt.Sprintf("Showing %d to %d of %d entries", from+1, to, total)
	return p
}
