package location

import (
	"context"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
)

const (
	msgStatesFailed    = "Failed to load states"
	msgDivisionsFailed = "Failed to load divisions"
	msgDistrictsFailed = "Failed to load districts"
	msgNoDistricts     = "No districts found for the selected state"
)

// Source is the backend the location hierarchy is read from.
type Source interface {
	GetStates(ctx context.Context, rc models.RequestContext) ([]models.State, error)
	GetDivisions(ctx context.Context, rc models.RequestContext, stateId string) ([]models.Division, error)
	GetDistrictsByState(ctx context.Context, rc models.RequestContext, stateId string) ([]models.District, error)
	GetDistrictsByDivision(ctx context.Context, rc models.RequestContext, divisionId string) ([]models.District, error)
}

// Loader fetches filter options. Failures never escape as errors: the list
// comes back empty with a notice for the user.
type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Districts is a district list with its report column bands.
type Districts struct {
	All           []models.District `json:"districts"`
	Lighthouse    []models.District `json:"lighthouse"`
	NonLighthouse []models.District `json:"nonLighthouse"`
}

func newDistricts(all []models.District) Districts {
	if all == nil {
		all = []models.District{}
	}
	lh, nlh := models.PartitionDistricts(all)
	return Districts{All: all, Lighthouse: lh, NonLighthouse: nlh}
}

func (l *Loader) States(ctx context.Context, rc models.RequestContext) ([]models.State, *utils.Notice) {
	states, err := l.src.GetStates(ctx, rc)
	if err != nil {
		config.LogError(config.GetLogger(), "location", "States", "get states", nil, err)
		return []models.State{}, utils.NewErrorNotice(msgStatesFailed, err)
	}
	if states == nil {
		states = []models.State{}
	}
	return states, nil
}

func (l *Loader) Divisions(ctx context.Context, rc models.RequestContext, stateId string) ([]models.Division, *utils.Notice) {
	if stateId == "" {
		return []models.Division{}, nil
	}
	divisions, err := l.src.GetDivisions(ctx, rc, stateId)
	if err != nil {
		config.LogError(config.GetLogger(), "location", "Divisions", "get divisions", stateId, err)
		return []models.Division{}, utils.NewErrorNotice(msgDivisionsFailed, err)
	}
	if divisions == nil {
		divisions = []models.Division{}
	}
	return divisions, nil
}

// DistrictsByState loads the districts of a state. An empty state is an info
// notice, not a failure.
func (l *Loader) DistrictsByState(ctx context.Context, rc models.RequestContext, stateId string) (Districts, *utils.Notice) {
	if stateId == "" {
		return newDistricts(nil), nil
	}
	districts, err := l.src.GetDistrictsByState(ctx, rc, stateId)
	if err != nil {
		config.LogError(config.GetLogger(), "location", "DistrictsByState", "get districts", stateId, err)
		return newDistricts(nil), utils.NewErrorNotice(msgDistrictsFailed, err)
	}
	if len(districts) == 0 {
		return newDistricts(nil), utils.NewInfoNotice(msgNoDistricts)
	}
	return newDistricts(districts), nil
}

func (l *Loader) DistrictsByDivision(ctx context.Context, rc models.RequestContext, divisionId string) (Districts, *utils.Notice) {
	if divisionId == "" {
		return newDistricts(nil), nil
	}
	districts, err := l.src.GetDistrictsByDivision(ctx, rc, divisionId)
	if err != nil {
		config.LogError(config.GetLogger(), "location", "DistrictsByDivision", "get districts", divisionId, err)
		return newDistricts(nil), utils.NewErrorNotice(msgDistrictsFailed, err)
	}
	return newDistricts(districts), nil
}
