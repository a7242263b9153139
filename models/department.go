package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Department is the row grouping key of the monthly report. Cells are keyed by Name.
type Department struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts {"id", "name"}, {"_id", "name"} or a bare name string.
func (d *Department) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		*d = Department{Id: name, Name: name}
		return nil
	}

	var raw struct {
		Id   json.RawMessage `json:"id"`
		OID  json.RawMessage `json:"_id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return errors.New("department name is required")
	}
	d.Name = raw.Name
	d.Id = FlexibleID(raw.Id, raw.OID)
	if d.Id == "" {
		d.Id = raw.Name
	}
	return nil
}

// FlexibleID returns the first non-empty id among candidates, accepting string or number JSON.
func FlexibleID(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		c = bytes.TrimSpace(c)
		if len(c) == 0 || string(c) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			if s != "" {
				return s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(c, &n); err == nil {
			return n.String()
		}
	}
	return ""
}
