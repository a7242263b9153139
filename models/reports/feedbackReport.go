package reports

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/training_reports/config"
	"bitbucket.org/mmdatafocus/training_reports/models"
	"bitbucket.org/mmdatafocus/training_reports/utils"
	"github.com/shopspring/decimal"
)

type Feedback struct {
	Id            string     `json:"id"`
	Name          string     `json:"name"`
	Mobile        string     `json:"mobile"`
	Suggestions   string     `json:"suggestions"`
	TrainerRating int        `json:"trainerRating"`
	ContentRating int        `json:"contentRating"`
	Status        bool       `json:"status"`
	SubmittedAt   *time.Time `json:"submittedAt"`
}

func (f *Feedback) UnmarshalJSON(b []byte) error {
	type alias Feedback
	var raw struct {
		alias
		ID  json.RawMessage `json:"id"`
		OID json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = Feedback(raw.alias)
	f.Id = models.FlexibleID(raw.ID, raw.OID)
	return nil
}

type FeedbackFilter struct {
	// requested: feedback asked for but not submitted; received: submitted.
	Type   string `json:"type" form:"type" validate:"omitempty,oneof=all requested received"`
	Search string `json:"search" form:"search"`
	Date   string `json:"date" form:"date" validate:"omitempty,datetime=2006-01-02"`
	Rating string `json:"rating" form:"rating" validate:"omitempty,oneof=1 2 3 4 5"`
}

func (f FeedbackFilter) Validate() utils.FieldErrors {
	return utils.ValidateStruct(f, map[string]string{
		"type":   "Please select a valid feedback type",
		"date":   "Please select a valid date",
		"rating": "Please select a valid rating",
	})
}

// FilterFeedbacks applies the type, search, date and rating filters. All set
// filters must match.
func FilterFeedbacks(feedbacks []Feedback, f FeedbackFilter) []Feedback {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	searchDigits := utils.DigitsOnly(search)
	rating, _ := strconv.Atoi(strings.TrimSpace(f.Rating))
	loc := config.ReportLocation()

	out := make([]Feedback, 0, len(feedbacks))
	for _, fb := range feedbacks {
		switch f.Type {
		case "requested":
			if fb.Status {
				continue
			}
		case "received":
			if !fb.Status {
				continue
			}
		}
		if search != "" && !matchesFeedbackSearch(fb, search, searchDigits) {
			continue
		}
		if f.Date != "" && (fb.SubmittedAt == nil || fb.SubmittedAt.In(loc).Format("2006-01-02") != f.Date) {
			continue
		}
		if rating != 0 && fb.TrainerRating != rating && fb.ContentRating != rating {
			continue
		}
		out = append(out, fb)
	}
	return out
}

func matchesFeedbackSearch(fb Feedback, search, searchDigits string) bool {
	if strings.Contains(strings.ToLower(fb.Name), search) ||
		strings.Contains(strings.ToLower(fb.Suggestions), search) {
		return true
	}
	if fb.Mobile == "" {
		return false
	}
	if strings.Contains(fb.Mobile, search) {
		return true
	}
	// "+91 98765-43210" and "9876543210" are the same number
	return searchDigits != "" && strings.Contains(utils.NormalizeMobile(fb.Mobile), searchDigits)
}

type FeedbackSummary struct {
	Total                int    `json:"total"`
	Received             int    `json:"received"`
	AverageTrainerRating string `json:"averageTrainerRating"`
	AverageContentRating string `json:"averageContentRating"`
}

// SummarizeFeedbacks averages ratings over submitted feedbacks to two decimals.
// Unrated (0) values are left out of their average.
func SummarizeFeedbacks(feedbacks []Feedback) FeedbackSummary {
	s := FeedbackSummary{Total: len(feedbacks)}
	var trainerSum, contentSum, trainerN, contentN int64
	for _, fb := range feedbacks {
		if !fb.Status {
			continue
		}
		s.Received++
		if fb.TrainerRating > 0 {
			trainerSum += int64(fb.TrainerRating)
			trainerN++
		}
		if fb.ContentRating > 0 {
			contentSum += int64(fb.ContentRating)
			contentN++
		}
	}
	s.AverageTrainerRating = average(trainerSum, trainerN)
	s.AverageContentRating = average(contentSum, contentN)
	return s
}

func average(sum, n int64) string {
	if n == 0 {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromInt(sum).Div(decimal.NewFromInt(n)).StringFixed(2)
}
