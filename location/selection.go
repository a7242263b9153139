package location

import (
	"context"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

// Cascade picks which child list a state selection loads.
type Cascade int

const (
	// CascadeDistricts: state → districts (monthly report).
	CascadeDistricts Cascade = iota
	// CascadeDivisions: state → divisions → districts (master report).
	CascadeDivisions
)

// Selection is a cascading state/division/district filter. Choosing a parent
// always clears every child selection and child option list before loading.
type Selection struct {
	Cascade    Cascade
	StateId    string
	DivisionId string
	DistrictId string
	Divisions  []models.Division
	Districts  Districts
	// Notice is the outcome of the most recent load, nil when it succeeded.
	Notice *utils.Notice
}

func NewSelection(c Cascade) *Selection {
	s := &Selection{Cascade: c}
	s.clearBelowState()
	return s
}

func (s *Selection) clearBelowState() {
	s.DivisionId = ""
	s.Divisions = []models.Division{}
	s.clearBelowDivision()
}

func (s *Selection) clearBelowDivision() {
	s.DistrictId = ""
	s.Districts = newDistricts(nil)
}

func (s *Selection) SetState(ctx context.Context, l *Loader, rc models.RequestContext, stateId string) {
	s.StateId = stateId
	s.clearBelowState()
	s.Notice = nil
	if stateId == "" {
		return
	}
	switch s.Cascade {
	case CascadeDivisions:
		s.Divisions, s.Notice = l.Divisions(ctx, rc, stateId)
	default:
		s.Districts, s.Notice = l.DistrictsByState(ctx, rc, stateId)
	}
}

// SetDivision only applies to CascadeDivisions selections.
func (s *Selection) SetDivision(ctx context.Context, l *Loader, rc models.RequestContext, divisionId string) {
	s.DivisionId = divisionId
	s.clearBelowDivision()
	s.Notice = nil
	if divisionId == "" || s.Cascade != CascadeDivisions {
		return
	}
	s.Districts, s.Notice = l.DistrictsByDivision(ctx, rc, divisionId)
}

func (s *Selection) SetDistrict(districtId string) {
	s.DistrictId = districtId
}
