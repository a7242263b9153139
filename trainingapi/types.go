package trainingapi

import (
	"bytes"
	"encoding/json"

	"bitbucket.org/mmdatafocus/training_reports/models"
)

type stateDTO struct {
	ID        json.RawMessage `json:"id"`
	OID       json.RawMessage `json:"_id"`
	StateName string          `json:"stateName"`
}

func (d stateDTO) toModel() models.State {
	return models.State{Id: models.FlexibleID(d.ID, d.OID), StateName: d.StateName}
}

type divisionDTO struct {
	ID    json.RawMessage `json:"id"`
	OID   json.RawMessage `json:"_id"`
	Name  string          `json:"name"`
	State json.RawMessage `json:"state"`
}

func (d divisionDTO) toModel(stateId string) models.Division {
	div := models.Division{Id: models.FlexibleID(d.ID, d.OID), Name: d.Name, StateId: refID(d.State)}
	if div.StateId == "" {
		div.StateId = stateId
	}
	return div
}

type districtDTO struct {
	ID              json.RawMessage `json:"id"`
	OID             json.RawMessage `json:"_id"`
	DistrictName    string          `json:"districtName"`
	DistrictNameEng string          `json:"districtNameEng"`
	IsLightHouse    bool            `json:"isLightHouse"`
	Division        json.RawMessage `json:"division"`
}

func (d districtDTO) toModel() models.District {
	return models.District{
		Id:              models.FlexibleID(d.ID, d.OID),
		DistrictName:    d.DistrictName,
		DistrictNameEng: d.DistrictNameEng,
		IsLightHouse:    d.IsLightHouse,
		DivisionId:      refID(d.Division),
	}
}

// refID reads a reference that is either a bare id or a populated {"_id": ...} object.
func refID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return models.FlexibleID(raw)
	}
	var ref struct {
		ID  json.RawMessage `json:"id"`
		OID json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return models.FlexibleID(ref.ID, ref.OID)
}
