package reports

import (
	"bitbucket.org/mmdatafocus/training_reports/models"
)

// GridValue is a rendered count. Active marks a cell with activity (> 0),
// which the dashboard shows as a badge and the export highlights.
type GridValue struct {
	Value  int  `json:"value"`
	Active bool `json:"active"`
}

func newGridValue(v int) GridValue {
	return GridValue{Value: v, Active: v > 0}
}

// GridRow is one (date, department) row.
type GridRow struct {
	Department    string      `json:"department"`
	State         GridValue   `json:"state"`
	Lighthouse    []GridValue `json:"lighthouse"`
	NonLighthouse []GridValue `json:"nonLighthouse"`
	SubTotal      GridValue   `json:"subTotal"`
	Count         GridValue   `json:"count"`
}

// DateGroup is the set of rows sharing one date. Total and CountOfTrainings are
// rendered once, merged across the group's rows.
type DateGroup struct {
	Date             string    `json:"date"`
	NoDepartments    bool      `json:"noDepartments"`
	Rows             []GridRow `json:"rows"`
	Total            GridValue `json:"total"`
	CountOfTrainings GridValue `json:"countOfTrainings"`
}

type GrandTotals struct {
	State            int   `json:"state"`
	Lighthouse       []int `json:"lighthouse"`
	NonLighthouse    []int `json:"nonLighthouse"`
	SubTotal         int   `json:"subTotal"`
	Total            int   `json:"total"`
	Count            int   `json:"count"`
	CountOfTrainings int   `json:"countOfTrainings"`
}

// Reconciles reports whether the redundant total columns agree with the bands.
func (t GrandTotals) Reconciles() bool {
	sum := t.State
	for _, v := range t.Lighthouse {
		sum += v
	}
	for _, v := range t.NonLighthouse {
		sum += v
	}
	return sum == t.SubTotal && t.SubTotal == t.Total && t.Count == t.CountOfTrainings
}

// Grid is the complete monthly pivot: every value, including all totals, is
// final once BuildReportGrid returns.
type Grid struct {
	Departments   []models.Department `json:"departments"`
	Lighthouse    []models.District   `json:"lighthouse"`
	NonLighthouse []models.District   `json:"nonLighthouse"`
	Dates         []DateGroup         `json:"dates"`
	GrandTotals   GrandTotals         `json:"grandTotals"`
}

// Empty is true when there is nothing to show: no dates, or no department rows at all.
func (g *Grid) Empty() bool {
	if g == nil || len(g.Dates) == 0 {
		return true
	}
	for _, d := range g.Dates {
		if !d.NoDepartments && len(d.Rows) > 0 {
			return false
		}
	}
	return true
}

// DataColumnCount is the number of columns after Date: Department, State, every
// district, Sub Total, Total, Count and Count of Trainings.
func (g *Grid) DataColumnCount() int {
	return 2 + len(g.Lighthouse) + len(g.NonLighthouse) + 4
}

// BuildReportGrid pivots (owner, date, department) cells into the monthly grid.
// Districts are split into lighthouse and non-lighthouse bands, each sorted by
// English name. Missing cells count as zero.
func BuildReportGrid(departments []models.Department, districts []models.District, dates []string, cells MonthlyCells) *Grid {
	lighthouse, nonLighthouse := models.PartitionDistricts(districts)
	g := &Grid{
		Departments:   append([]models.Department{}, departments...),
		Lighthouse:    lighthouse,
		NonLighthouse: nonLighthouse,
		Dates:         make([]DateGroup, 0, len(dates)),
		GrandTotals: GrandTotals{
			Lighthouse:    make([]int, len(lighthouse)),
			NonLighthouse: make([]int, len(nonLighthouse)),
		},
	}
	gt := &g.GrandTotals

	for _, date := range dates {
		group := DateGroup{Date: date}
		if len(departments) == 0 {
			group.NoDepartments = true
			group.Rows = []GridRow{}
			g.Dates = append(g.Dates, group)
			continue
		}

		total, trainings := 0, 0
		group.Rows = make([]GridRow, 0, len(departments))
		for _, dept := range departments {
			row := GridRow{
				Department:    dept.Name,
				Lighthouse:    make([]GridValue, len(lighthouse)),
				NonLighthouse: make([]GridValue, len(nonLighthouse)),
			}

			sc := cells.StateLevel(date, dept.Name)
			row.State = newGridValue(sc.AttendanceCount)
			gt.State += sc.AttendanceCount
			subTotal, count := sc.AttendanceCount, sc.TrainingCount

			for i, d := range lighthouse {
				c := cells.District(d.DistrictNameEng, date, dept.Name)
				row.Lighthouse[i] = newGridValue(c.AttendanceCount)
				gt.Lighthouse[i] += c.AttendanceCount
				subTotal += c.AttendanceCount
				count += c.TrainingCount
			}
			for i, d := range nonLighthouse {
				c := cells.District(d.DistrictNameEng, date, dept.Name)
				row.NonLighthouse[i] = newGridValue(c.AttendanceCount)
				gt.NonLighthouse[i] += c.AttendanceCount
				subTotal += c.AttendanceCount
				count += c.TrainingCount
			}

			row.SubTotal = newGridValue(subTotal)
			row.Count = newGridValue(count)
			gt.SubTotal += subTotal
			gt.Count += count
			total += subTotal
			trainings += count
			group.Rows = append(group.Rows, row)
		}

		group.Total = newGridValue(total)
		group.CountOfTrainings = newGridValue(trainings)
		gt.Total += total
		gt.CountOfTrainings += trainings
		g.Dates = append(g.Dates, group)
	}
	return g
}
