package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// StateOwner is the owner key that state-level (SRM) cells are stored under.
const StateOwner = "total"

// Cell is one (owner, date, department) aggregate.
type Cell struct {
	AttendanceCount int `json:"attendanceCount"`
	TrainingCount   int `json:"trainingCount"`
}

// UnmarshalJSON accepts {"attendanceCount", "trainingCount"}, the older
// {"value"} form, or a bare number. The last two carry no training count, so one
// training is assumed whenever attendance is positive.
func (c *Cell) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*c = Cell{}
		return nil
	}
	if b[0] != '{' {
		n, err := parseCount(b)
		if err != nil {
			return err
		}
		*c = cellFromValue(n)
		return nil
	}

	var raw struct {
		AttendanceCount json.RawMessage `json:"attendanceCount"`
		TrainingCount   json.RawMessage `json:"trainingCount"`
		Value           json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.AttendanceCount) == 0 && len(raw.Value) > 0 {
		n, err := parseCount(raw.Value)
		if err != nil {
			return err
		}
		*c = cellFromValue(n)
		return nil
	}
	attendance, err := parseCount(raw.AttendanceCount)
	if err != nil {
		return fmt.Errorf("attendanceCount: %w", err)
	}
	trainings, err := parseCount(raw.TrainingCount)
	if err != nil {
		return fmt.Errorf("trainingCount: %w", err)
	}
	*c = Cell{AttendanceCount: attendance, TrainingCount: trainings}
	return nil
}

func cellFromValue(n int) Cell {
	c := Cell{AttendanceCount: n}
	if n > 0 {
		c.TrainingCount = 1
	}
	return c
}

var errNotACount = errors.New("not a count")

// parseCount reads a JSON number or numeric string; absent/null is 0.
func parseCount(b json.RawMessage) (int, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return 0, nil
	}
	var n json.Number
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		n = json.Number(s)
	} else if err := json.Unmarshal(b, &n); err != nil {
		return 0, fmt.Errorf("%w: %s", errNotACount, string(b))
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errNotACount, string(b))
	}
	return int(math.Round(f)), nil
}

type deptCells map[string]Cell
type dateCells map[string]deptCells

// CellIndex resolves (owner, date, department) to a Cell. Owners are district
// English names, or StateOwner. Missing keys resolve to the zero Cell.
type CellIndex struct {
	owners map[string]dateCells
}

func NewCellIndex() *CellIndex {
	return &CellIndex{owners: map[string]dateCells{}}
}

// Add accumulates c into the addressed cell.
func (ix *CellIndex) Add(owner, date, dept string, c Cell) {
	if ix.owners == nil {
		ix.owners = map[string]dateCells{}
	}
	dates, ok := ix.owners[owner]
	if !ok {
		dates = dateCells{}
		ix.owners[owner] = dates
	}
	depts, ok := dates[date]
	if !ok {
		depts = deptCells{}
		dates[date] = depts
	}
	cur := depts[dept]
	cur.AttendanceCount += c.AttendanceCount
	cur.TrainingCount += c.TrainingCount
	depts[dept] = cur
}

func (ix *CellIndex) Lookup(owner, date, dept string) Cell {
	if ix == nil {
		return Cell{}
	}
	return ix.owners[owner][date][dept]
}

func (ix *CellIndex) Owners() []string {
	if ix == nil {
		return nil
	}
	out := make([]string, 0, len(ix.owners))
	for o := range ix.owners {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Len counts stored cells.
func (ix *CellIndex) Len() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, dates := range ix.owners {
		for _, depts := range dates {
			n += len(depts)
		}
	}
	return n
}

// MonthlyCells holds the district-level and state-level cells of one report.
type MonthlyCells struct {
	Districts *CellIndex
	State     *CellIndex
}

func (m MonthlyCells) District(name, date, dept string) Cell {
	return m.Districts.Lookup(name, date, dept)
}

func (m MonthlyCells) StateLevel(date, dept string) Cell {
	return m.State.Lookup(StateOwner, date, dept)
}

func isArray(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}

func isEmpty(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}

// flatRecord is one row of the flat payload shape:
// {"Date": "...", "Department": "...", "<owner>": <count>, ...}
func decodeFlatRecords(raw json.RawMessage) ([]flatRecord, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]flatRecord, 0, len(rows))
	for i, row := range rows {
		rec := flatRecord{values: map[string]Cell{}}
		for k, v := range row {
			switch strings.ToLower(k) {
			case "date":
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					return nil, fmt.Errorf("row %d: date: %w", i, err)
				}
				d, err := NormalizeDate(s)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				rec.date = d
			case "department":
				if err := json.Unmarshal(v, &rec.dept); err != nil {
					return nil, fmt.Errorf("row %d: department: %w", i, err)
				}
			default:
				var c Cell
				if err := json.Unmarshal(v, &c); err != nil {
					return nil, fmt.Errorf("row %d: %s: %w", i, k, err)
				}
				rec.values[k] = c
			}
		}
		if rec.date == "" || rec.dept == "" {
			return nil, fmt.Errorf("row %d: date and department are required", i)
		}
		out = append(out, rec)
	}
	return out, nil
}

type flatRecord struct {
	date   string
	dept   string
	values map[string]Cell
}

// DecodeDistrictCells reads the district-level "report" section, flat or nested
// (district → date → department → cell).
func DecodeDistrictCells(raw json.RawMessage) (*CellIndex, error) {
	ix := NewCellIndex()
	if isEmpty(raw) {
		return ix, nil
	}
	if isArray(raw) {
		rows, err := decodeFlatRecords(raw)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			for owner, c := range r.values {
				ix.Add(owner, r.date, r.dept, c)
			}
		}
		return ix, nil
	}

	var nested map[string]map[string]map[string]Cell
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	for owner, dates := range nested {
		for rawDate, depts := range dates {
			date, err := NormalizeDate(rawDate)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", owner, err)
			}
			for dept, c := range depts {
				ix.Add(owner, date, dept, c)
			}
		}
	}
	return ix, nil
}

// DecodeStateCells reads the state-level section. Accepted shapes: flat rows
// (the "total" column, or the sum of all value columns when it is absent),
// date → department → cell, or {"total": date → department → cell}.
func DecodeStateCells(raw json.RawMessage) (*CellIndex, error) {
	ix := NewCellIndex()
	if isEmpty(raw) {
		return ix, nil
	}
	if isArray(raw) {
		rows, err := decodeFlatRecords(raw)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if c, ok := lookupFold(r.values, StateOwner); ok {
				ix.Add(StateOwner, r.date, r.dept, c)
				continue
			}
			for _, c := range r.values {
				ix.Add(StateOwner, r.date, r.dept, c)
			}
		}
		return ix, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	if sub, ok := top[StateOwner]; ok && len(top) == 1 {
		return DecodeStateCells(sub)
	}
	for rawDate, deptsRaw := range top {
		date, err := NormalizeDate(rawDate)
		if err != nil {
			return nil, err
		}
		var depts map[string]Cell
		if err := json.Unmarshal(deptsRaw, &depts); err != nil {
			return nil, fmt.Errorf("%s: %w", rawDate, err)
		}
		for dept, c := range depts {
			ix.Add(StateOwner, date, dept, c)
		}
	}
	return ix, nil
}

func lookupFold(m map[string]Cell, key string) (Cell, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return Cell{}, false
}
