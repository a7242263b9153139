package models

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type State struct {
	Id        string `json:"id"`
	StateName string `json:"stateName"`
}

type Division struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	StateId string `json:"stateId,omitempty"`
}

type District struct {
	Id              string `json:"id"`
	DistrictName    string `json:"districtName,omitempty"`
	DistrictNameEng string `json:"districtNameEng"`
	IsLightHouse    bool   `json:"isLightHouse"`
	DivisionId      string `json:"divisionId,omitempty"`
}

// PartitionDistricts splits districts into the lighthouse and non-lighthouse
// column bands. Every input district lands in exactly one band; each band is
// sorted by English name using English collation, ties keep input order.
func PartitionDistricts(districts []District) (lighthouse []District, nonLighthouse []District) {
	lighthouse = make([]District, 0, len(districts))
	nonLighthouse = make([]District, 0, len(districts))
	for _, d := range districts {
		if d.IsLightHouse {
			lighthouse = append(lighthouse, d)
		} else {
			nonLighthouse = append(nonLighthouse, d)
		}
	}
	SortDistrictsByName(lighthouse)
	SortDistrictsByName(nonLighthouse)
	return lighthouse, nonLighthouse
}

func SortDistrictsByName(districts []District) {
	// a Collator is not safe for concurrent use; one per call
	c := collate.New(language.English)
	sort.SliceStable(districts, func(i, j int) bool {
		return c.CompareString(districts[i].DistrictNameEng, districts[j].DistrictNameEng) < 0
	})
}

func FindState(states []State, id string) (State, bool) {
	for _, s := range states {
		if s.Id == id {
			return s, true
		}
	}
	return State{}, false
}
