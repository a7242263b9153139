package location

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

type fakeSource struct {
	districts   map[string][]models.District // by state
	byDivision  map[string][]models.District
	divisions   map[string][]models.Division
	failState   string
	calledState []string
}

func (f *fakeSource) GetStates(ctx context.Context, rc models.RequestContext) ([]models.State, error) {
	return []models.State{{Id: "s1", StateName: "Chhattisgarh"}}, nil
}

func (f *fakeSource) GetDivisions(ctx context.Context, rc models.RequestContext, stateId string) ([]models.Division, error) {
	if stateId == f.failState {
		return nil, errors.New("network down")
	}
	return f.divisions[stateId], nil
}

func (f *fakeSource) GetDistrictsByState(ctx context.Context, rc models.RequestContext, stateId string) ([]models.District, error) {
	f.calledState = append(f.calledState, stateId)
	if stateId == f.failState {
		return nil, errors.New("network down")
	}
	return f.districts[stateId], nil
}

func (f *fakeSource) GetDistrictsByDivision(ctx context.Context, rc models.RequestContext, divisionId string) ([]models.District, error) {
	return f.byDivision[divisionId], nil
}

func newFake() *fakeSource {
	return &fakeSource{
		districts: map[string][]models.District{
			"s1": {
				{Id: "d1", DistrictNameEng: "Raipur", IsLightHouse: true},
				{Id: "d2", DistrictNameEng: "Bastar"},
				{Id: "d3", DistrictNameEng: "Durg", IsLightHouse: true},
			},
		},
		divisions:  map[string][]models.Division{"s1": {{Id: "v1", Name: "Raipur"}}, "s2": {{Id: "v2", Name: "Indore"}}},
		byDivision: map[string][]models.District{"v1": {{Id: "d1", DistrictNameEng: "Raipur"}}},
		failState:  "bad",
	}
}

func TestLoader_DistrictsByState(t *testing.T) {
	l := NewLoader(newFake())
	ctx := context.Background()
	rc := models.RequestContext{Token: "t"}

	d, notice := l.DistrictsByState(ctx, rc, "s1")
	if notice != nil {
		t.Fatalf("unexpected notice %+v", notice)
	}
	if len(d.All) != 3 || len(d.Lighthouse) != 2 || len(d.NonLighthouse) != 1 {
		t.Fatalf("unexpected bands %+v", d)
	}
	if d.Lighthouse[0].DistrictNameEng != "Durg" {
		t.Fatalf("expected Durg first, got %s", d.Lighthouse[0].DistrictNameEng)
	}

	d, notice = l.DistrictsByState(ctx, rc, "empty")
	if notice == nil || notice.Level != utils.NoticeLevelInfo || notice.Message != "No districts found for the selected state" {
		t.Fatalf("expected info notice, got %+v", notice)
	}
	if d.All == nil || len(d.All) != 0 {
		t.Fatalf("expected empty list, got %v", d.All)
	}

	d, notice = l.DistrictsByState(ctx, rc, "bad")
	if notice == nil || notice.Level != utils.NoticeLevelError || notice.Message != "Failed to load districts" {
		t.Fatalf("expected error notice, got %+v", notice)
	}
	if len(d.All) != 0 {
		t.Fatalf("expected empty list on failure, got %v", d.All)
	}
}

func TestSelection_StateResetsChildren(t *testing.T) {
	src := newFake()
	l := NewLoader(src)
	ctx := context.Background()
	rc := models.RequestContext{Token: "t"}

	s := NewSelection(CascadeDivisions)
	s.SetState(ctx, l, rc, "s1")
	s.SetDivision(ctx, l, rc, "v1")
	s.SetDistrict("d1")
	if len(s.Divisions) != 1 || len(s.Districts.All) != 1 || s.DistrictId != "d1" {
		t.Fatalf("unexpected selection %+v", s)
	}

	s.SetState(ctx, l, rc, "s2")
	if s.DivisionId != "" || s.DistrictId != "" {
		t.Fatalf("expected child selections cleared, got division %q district %q", s.DivisionId, s.DistrictId)
	}
	if len(s.Districts.All) != 0 {
		t.Fatalf("expected district options cleared, got %v", s.Districts.All)
	}
	if len(s.Divisions) != 1 || s.Divisions[0].Id != "v2" {
		t.Fatalf("expected divisions of s2, got %v", s.Divisions)
	}

	s.SetDivision(ctx, l, rc, "v1")
	s.SetDistrict("d1")
	s.SetDivision(ctx, l, rc, "")
	if s.DistrictId != "" || len(s.Districts.All) != 0 {
		t.Fatalf("expected district cleared with division, got %+v", s)
	}
}

func TestSelection_FailedLoadLeavesEmptyOptions(t *testing.T) {
	src := newFake()
	l := NewLoader(src)
	s := NewSelection(CascadeDistricts)
	ctx := context.Background()
	rc := models.RequestContext{Token: "t"}

	s.SetState(ctx, l, rc, "s1")
	if len(s.Districts.All) != 3 {
		t.Fatalf("expected 3 districts, got %d", len(s.Districts.All))
	}
	s.SetState(ctx, l, rc, "bad")
	if s.Notice == nil || s.Notice.Level != utils.NoticeLevelError {
		t.Fatalf("expected error notice, got %+v", s.Notice)
	}
	if len(s.Districts.All) != 0 {
		t.Fatalf("expected old districts discarded, got %v", s.Districts.All)
	}
	s.SetState(ctx, l, rc, "")
	if s.Notice != nil || len(src.calledState) != 2 {
		t.Fatalf("expected clearing the state not to fetch, got %v", src.calledState)
	}
}
