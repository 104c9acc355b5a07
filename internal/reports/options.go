package reports

import (
	"slices"
	"strings"
)

// Options lists the distinct values a filter form can offer for a row set.
type Options struct {
	Reps       []string `json:"reps"`
	Customers  []string `json:"customers"`
	JobTypes   []string `json:"job_types"`
	JobNumbers []string `json:"job_numbers"`
	MinDate    string   `json:"min_date,omitempty"`
	MaxDate    string   `json:"max_date,omitempty"`
}

// FilterOptions collects sorted distinct filter values and the dated span of
// rows. Blank values are skipped.
func FilterOptions(rows []Row) Options {
	reps := make(map[string]struct{})
	customers := make(map[string]struct{})
	jobTypes := make(map[string]struct{})
	jobNumbers := make(map[string]struct{})
	var opts Options
	for _, r := range rows {
		addDistinct(reps, r.Rep)
		addDistinct(customers, r.Customer)
		addDistinct(jobTypes, r.JobType)
		addDistinct(jobNumbers, r.JobNumber)
		if !r.HasDate() {
			continue
		}
		if opts.MinDate == "" || r.Date < opts.MinDate {
			opts.MinDate = r.Date
		}
		if r.Date > opts.MaxDate {
			opts.MaxDate = r.Date
		}
	}
	opts.Reps = sortedKeys(reps)
	opts.Customers = sortedKeys(customers)
	opts.JobTypes = sortedKeys(jobTypes)
	opts.JobNumbers = sortedKeys(jobNumbers)
	return opts
}

func addDistinct(set map[string]struct{}, value string) {
	if v := strings.TrimSpace(value); v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
