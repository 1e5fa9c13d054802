package query

import (
	"context"
	"log/slog"
	"time"
)

// Fetch is one candidate fetch against the store.
type Fetch struct {
	Where   Predicate // nil matches every row
	Order   []Order
	Include []string
	// Limit and Offset page in the store; zero Limit fetches every row.
	Limit  int
	Offset int
}

// FetchFunc returns the rows matching f and the number of rows matching
// f.Where regardless of Limit and Offset.
type FetchFunc[R any] func(ctx context.Context, f Fetch) ([]R, int, error)

// Request is one listing call as parsed by the transport layer.
type Request struct {
	Filters Filters
	Sort    string
	Page    int
	PerPage int
	// Columns limits the relations hydrated to those the named fields need.
	// Nil hydrates everything.
	Columns   []string
	SkipStats bool
	// All returns every record on one page regardless of MaxPerPage.
	// Exports set it.
	All bool
}

// Page is the result of a listing call.
type Page struct {
	Data       []Record `json:"data"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalPages int      `json:"totalPages"`
	Stats      []Stat   `json:"stats,omitempty"`
}

// Listing wires a catalog to a store fetch, a projector and statistics.
type Listing[R any] struct {
	Name    string
	Catalog *Catalog
	// Required lists filter parameters a request must carry.
	Required   []string
	Fetch      FetchFunc[R]
	Project    func(row R, now time.Time) Record
	Buckets    []Bucket
	MaxPerPage int
	// Now defaults to time.Now; tests inject a fixed clock.
	Now    func() time.Time
	Logger *slog.Logger
}

// Run executes a listing request: compile filters, plan the sort, fetch the
// candidate set, project it, apply residual filters and the virtual sort,
// compute statistics over the whole filtered set, then paginate.
func (l *Listing[R]) Run(ctx context.Context, req Request) (*Page, error) {
	for _, key := range l.Required {
		if !req.Filters.Has(key) {
			return nil, InputError(key + " is required")
		}
	}

	now := l.now()
	compiled := Compile(l.Catalog, req.Filters)
	plan := l.Catalog.PlanSort(ParseSort(req.Sort))
	page, perPage := NormalizePage(req.Page, req.PerPage, l.MaxPerPage)
	if req.All {
		page, perPage = 1, Unbounded
	}

	fetch := Fetch{
		Where:   compiled.Native,
		Order:   plan.Native,
		Include: l.includes(req.Columns, compiled, plan),
	}
	// Paging in the store is only equivalent when nothing after the fetch
	// can drop or reorder rows and no statistics need the full id set.
	pushdown := len(compiled.Residual) == 0 && plan.Virtual == nil &&
		(req.SkipStats || len(l.Buckets) == 0) && perPage < Unbounded
	if pushdown {
		fetch.Limit = perPage
		fetch.Offset = Offset(page, perPage)
	}

	rows, total, err := l.Fetch(ctx, fetch)
	if err != nil {
		return nil, l.fail(StageFetch, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = l.Project(row, now)
	}

	if pushdown {
		return &Page{
			Data:       records,
			Total:      total,
			Page:       page,
			PerPage:    perPage,
			TotalPages: TotalPages(total, perPage),
		}, nil
	}

	records = FilterRecords(records, compiled.Residual)
	if plan.Virtual != nil {
		SortRecords(records, *plan.Virtual, plan.VirtualKind)
	}

	var stats []Stat
	if !req.SkipStats && len(l.Buckets) > 0 {
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.String(l.Catalog.IDKey)
		}
		stats, err = Aggregate(ctx, l.Buckets, ids, now)
		if err != nil {
			return nil, l.fail(StageStats, err)
		}
	}

	return &Page{
		Data:       Paginate(records, page, perPage),
		Total:      len(records),
		Page:       page,
		PerPage:    perPage,
		TotalPages: TotalPages(len(records), perPage),
		Stats:      stats,
	}, nil
}

// Get fetches one entity by identifier with every relation hydrated.
func (l *Listing[R]) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return nil, InputError("id is required")
	}
	idField, _ := l.Catalog.Resolve(l.Catalog.IDKey)
	rows, _, err := l.Fetch(ctx, Fetch{
		Where:   Cond{Key: idField.Key, Path: idField.Path, Op: OpEq, Kind: idField.Value, Value: id},
		Order:   []Order{{Key: idField.Key, Path: idField.Path}},
		Include: l.Catalog.Includes(nil),
		Limit:   1,
	})
	if err != nil {
		return nil, l.fail(StageFetch, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return l.Project(rows[0], l.now()), nil
}

func (l *Listing[R]) includes(columns []string, compiled Compiled, plan SortPlan) []string {
	if columns == nil {
		return l.Catalog.Includes(nil)
	}
	keys := append([]string(nil), columns...)
	keys = append(keys, compiled.ResidualKeys()...)
	if plan.Virtual != nil {
		keys = append(keys, plan.Virtual.Key)
	}
	return l.Catalog.Includes(keys)
}

func (l *Listing[R]) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

func (l *Listing[R]) fail(stage Stage, err error) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("listing stage failed", "listing", l.Name, "stage", string(stage), "error", err)
	return &StageError{Listing: l.Name, Stage: stage, Err: err}
}
