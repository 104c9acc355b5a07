package reporthttp

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fleetledger/fleetledger/internal/reports"
)

// reportQuery is the raw query string of every report endpoint.
type reportQuery struct {
	Month      string   `query:"month" validate:"omitempty,datetime=2006-01"`
	From       string   `query:"from" validate:"required_with=To,omitempty,datetime=2006-01-02"`
	To         string   `query:"to" validate:"required_with=From,omitempty,datetime=2006-01-02"`
	FilterFrom string   `query:"f_from" validate:"omitempty,datetime=2006-01-02"`
	FilterTo   string   `query:"f_to" validate:"omitempty,datetime=2006-01-02"`
	MarginMin  *float64 `query:"margin_min" validate:"required_with=MarginMax"`
	MarginMax  *float64 `query:"margin_max" validate:"required_with=MarginMin"`
	SalesMin   *float64 `query:"sales_min" validate:"required_with=SalesMax"`
	SalesMax   *float64 `query:"sales_max" validate:"required_with=SalesMin"`
	Reps       []string `query:"rep" validate:"dive,max=120"`
	Customers  []string `query:"customer" validate:"dive,max=120"`
	JobTypes   []string `query:"job_type" validate:"dive,max=120"`
	JobNumbers []string `query:"job_number" validate:"dive,max=64"`
	Sources    []string `query:"source" validate:"dive,oneof=costing rental sla"`
	Search     string   `query:"q" validate:"max=64"`
	Sort       string   `query:"sort" validate:"omitempty,max=32"`
	Dir        string   `query:"dir" validate:"omitempty,oneof=asc desc"`
	Top        int      `query:"top" validate:"gte=0,lte=50"`
	Page       int      `query:"page" validate:"gte=0"`
	PerPage    int      `query:"per_page" validate:"gte=0,lte=500"`
}

// fieldErrors maps query parameter names to a reason.
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for name, reason := range f {
		parts = append(parts, name+": "+reason)
	}
	return "invalid query: " + strings.Join(parts, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})
	return v
}

func parseQuery(v *validator.Validate, values url.Values) (reportQuery, error) {
	errs := fieldErrors{}
	q := reportQuery{
		Month:      strings.TrimSpace(values.Get("month")),
		From:       strings.TrimSpace(values.Get("from")),
		To:         strings.TrimSpace(values.Get("to")),
		FilterFrom: strings.TrimSpace(values.Get("f_from")),
		FilterTo:   strings.TrimSpace(values.Get("f_to")),
		Reps:       multi(values, "rep"),
		Customers:  multi(values, "customer"),
		JobTypes:   multi(values, "job_type"),
		JobNumbers: multi(values, "job_number"),
		Sources:    multi(values, "source"),
		Search:     strings.TrimSpace(values.Get("q")),
		Sort:       strings.TrimSpace(values.Get("sort")),
		Dir:        strings.ToLower(strings.TrimSpace(values.Get("dir"))),
	}
	q.MarginMin = optionalFloat(values, "margin_min", errs)
	q.MarginMax = optionalFloat(values, "margin_max", errs)
	q.SalesMin = optionalFloat(values, "sales_min", errs)
	q.SalesMax = optionalFloat(values, "sales_max", errs)
	q.Top = optionalInt(values, "top", errs)
	q.Page = optionalInt(values, "page", errs)
	q.PerPage = optionalInt(values, "per_page", errs)
	if len(errs) > 0 {
		return reportQuery{}, errs
	}

	if err := v.Struct(q); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return reportQuery{}, err
		}
		for _, fieldErr := range verrs {
			errs[fieldName(fieldErr.Field())] = describe(fieldErr)
		}
		return reportQuery{}, errs
	}
	return q, nil
}

// fieldName strips the index validator appends to dived slice elements.
func fieldName(field string) string {
	if i := strings.IndexByte(field, '['); i > 0 {
		return field[:i]
	}
	return field
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return "expected format " + fe.Param()
	case "required_with":
		return "must be given together with its pair"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func multi(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func optionalFloat(values url.Values, key string, errs fieldErrors) *float64 {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errs[key] = "must be a number"
		return nil
	}
	return &v
}

func optionalInt(values url.Values, key string, errs fieldErrors) int {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs[key] = "must be an integer"
		return 0
	}
	return v
}

// window resolves the fetch window. An explicit from/to pair wins over month,
// and with neither the current month is used.
func (q reportQuery) window(now time.Time) (reports.Window, error) {
	if q.From != "" {
		return reports.Window{From: q.From, To: q.To}, nil
	}
	month := q.Month
	if month == "" {
		month = now.Format("2006-01")
	}
	return reports.MonthWindow(month)
}

func (q reportQuery) filter() reports.FilterState {
	f := reports.DefaultFilter()
	if q.FilterFrom != "" || q.FilterTo != "" {
		f = f.WithDateRange(q.FilterFrom, q.FilterTo)
	}
	if q.MarginMin != nil && q.MarginMax != nil {
		f = f.WithMargin(*q.MarginMin, *q.MarginMax)
	}
	if q.SalesMin != nil && q.SalesMax != nil {
		f = f.WithSales(*q.SalesMin, *q.SalesMax)
	}
	if len(q.Reps) > 0 {
		f = f.WithReps(q.Reps...)
	}
	if len(q.Customers) > 0 {
		f = f.WithCustomers(q.Customers...)
	}
	if len(q.JobTypes) > 0 {
		f = f.WithJobTypes(q.JobTypes...)
	}
	if len(q.JobNumbers) > 0 {
		f = f.WithJobNumbers(q.JobNumbers...)
	}
	if len(q.Sources) > 0 {
		kinds := make([]reports.SourceKind, 0, len(q.Sources))
		for _, s := range q.Sources {
			kinds = append(kinds, reports.SourceKind(s))
		}
		f = f.WithSources(kinds...)
	}
	if q.Search != "" {
		f = f.WithJobNumberQuery(q.Search)
	}
	return f
}

func (q reportQuery) sort() (reports.SortState, error) {
	if q.Sort == "" {
		state := reports.DefaultSort()
		if q.Dir != "" {
			state.Direction = reports.ParseDirection(q.Dir)
		}
		return state, nil
	}
	key, err := reports.ParseSortKey(q.Sort)
	if err != nil {
		return reports.SortState{}, err
	}
	return reports.SortState{Key: key, Direction: reports.ParseDirection(q.Dir)}, nil
}

// request turns the query into a service request for kind.
func (q reportQuery) request(kind reports.Kind, now time.Time) (reports.Request, error) {
	w, err := q.window(now)
	if err != nil {
		return reports.Request{}, err
	}
	sortState, err := q.sort()
	if err != nil {
		return reports.Request{}, err
	}
	return reports.Request{
		Window:  w,
		Kind:    kind,
		Filter:  q.filter(),
		Sort:    sortState,
		TopN:    q.Top,
		Page:    q.Page,
		PerPage: q.PerPage,
	}, nil
}

func fileStem(kind string, w reports.Window) string {
	return fmt.Sprintf("fleetledger-%s-%s_%s", kind, w.From, w.To)
}
