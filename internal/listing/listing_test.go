package listing

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
	"github.com/alfredjeanlab/fleet/internal/store/memory"
	"github.com/alfredjeanlab/fleet/internal/store/postgres"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.Fixture()
	svc := New(st, Options{
		MaxPerPage: 50,
		Now:        func() time.Time { return memory.FixtureNow },
	})
	return svc, st
}

func filters(kv ...string) query.Filters {
	f := query.Filters{}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Add(kv[i], kv[i+1])
	}
	return f
}

func ids(page *query.Page) []string {
	out := make([]string, len(page.Data))
	for i, r := range page.Data {
		out[i] = r.String("id")
	}
	return out
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEquipment_HugePageWithoutStats(t *testing.T) {
	svc, _ := newTestService(t)
	page, err := svc.List(context.Background(), Equipment, query.Request{
		Filters:   filters("account_ids", "acc-1"),
		Page:      1<<62 + 1,
		PerPage:   10,
		SkipStats: true,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Data) != 0 || page.Total != 5 {
		t.Errorf("ids = %v total = %d, want none of 5", ids(page), page.Total)
	}
}

func TestEquipment_VirtualSortAcrossPages(t *testing.T) {
	svc, _ := newTestService(t)
	page, err := svc.List(context.Background(), Equipment, query.Request{
		Filters: filters("account_ids", "acc-1", "status", "active"),
		Sort:    "vendor_name:asc",
		Page:    1,
		PerPage: 2,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"e2", "e4"}, ids(page)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	var vendors []string
	for _, r := range page.Data {
		vendors = append(vendors, r.String("vendor_name"))
	}
	if diff := cmp.Diff([]string{"Acme", "Bravo"}, vendors); diff != "" {
		t.Errorf("vendors (-want +got):\n%s", diff)
	}
	if page.Total != 3 || page.TotalPages != 2 {
		t.Errorf("total = %d, totalPages = %d, want 3, 2", page.Total, page.TotalPages)
	}

	want := []query.Stat{
		{Name: "iot_equipped", Count: 2},
		{Name: "not_equipped", Count: 1},
		{Name: "dot_overdue", Count: 1},
		{Name: "ers_in_progress", Count: 1},
	}
	if diff := cmp.Diff(want, page.Stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}

	second, err := svc.List(context.Background(), Equipment, query.Request{
		Filters: filters("account_ids", "acc-1", "status", "active"),
		Sort:    "vendor_name:asc",
		Page:    2,
		PerPage: 2,
	})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if diff := cmp.Diff([]string{"e1"}, ids(second)); diff != "" {
		t.Errorf("page 2 ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(page.Stats, second.Stats); diff != "" {
		t.Errorf("stats depend on the page (-page1 +page2):\n%s", diff)
	}
}

func TestEquipment_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tc := range []struct {
		name    string
		filters query.Filters
		sort    string
		want    []string
	}{
		{"account scope", filters("account_ids", "acc-2"), "", []string{"e6"}},
		{"several accounts", filters("account_ids", "acc-1,acc-2", "equipment_type", "reefer"), "", []string{"e4"}},
		{"vendor is residual", filters("account_ids", "acc-1", "vendor_name", "acm"), "", []string{"e2", "e3"}},
		{"latitude tolerance", filters("account_ids", "acc-1", "latitude", "40.02"), "", []string{"e1", "e2"}},
		{"account search", filters("account_ids", "acc-1,acc-2", "account", "blue"), "", []string{"e6"}},
		{"equipment search", filters("account_ids", "acc-1", "equipment", "t-"), "unit_number:desc", []string{"e5", "e3", "e2", "e1"}},
		{"created on day", filters("account_ids", "acc-1", "created_at", "2024-02-03"), "", []string{"e2", "e3"}},
		{"created range", filters("account_ids", "acc-1", "created_from", "2024-03-01", "created_to", "2024-04-30"), "", []string{"e4", "e5"}},
		{"year", filters("account_ids", "acc-1", "year", "2019"), "", []string{"e2"}},
		{"contract term", filters("account_ids", "acc-1", "contract_term_type", "fixed"), "", []string{"e1"}},
		{"driver", filters("account_ids", "acc-1", "driver_name", "driver r-4"), "", []string{"e4"}},
		{"unparseable year ignored", filters("account_ids", "acc-2", "year", "soon"), "", []string{"e6"}},
		{"no match is empty", filters("account_ids", "acc-1", "vin", "nothing"), "", []string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.List(context.Background(), Equipment, query.Request{
				Filters:   tc.filters,
				Sort:      tc.sort,
				SkipStats: true,
			})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if diff := cmp.Diff(tc.want, ids(page)); diff != "" {
				t.Errorf("ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestList_RequiresAccountIDs(t *testing.T) {
	svc, st := newTestService(t)
	for _, name := range Names {
		_, err := svc.List(context.Background(), name, query.Request{Filters: filters("status", "active")})
		var inputErr query.InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("%s: err = %v, want InputError", name, err)
		}
	}
	if n := len(st.Fetches()); n != 0 {
		t.Errorf("store saw %d fetches for rejected requests", n)
	}
}

func TestList_UnknownListing(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.List(context.Background(), "trailers", query.Request{}); !errors.Is(err, ErrUnknownListing) {
		t.Errorf("List err = %v", err)
	}
	if _, err := svc.Get(context.Background(), "trailers", "x"); !errors.Is(err, ErrUnknownListing) {
		t.Errorf("Get err = %v", err)
	}
}

func TestList_StoreFailure(t *testing.T) {
	svc, st := newTestService(t)
	st.FailWith(errors.New("connection reset"))
	_, err := svc.List(context.Background(), Workorders, query.Request{Filters: filters("account_ids", "acc-1")})
	var stageErr *query.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("err = %v, want StageError", err)
	}
	if stageErr.Listing != Workorders || stageErr.Stage != query.StageFetch {
		t.Errorf("stage error = %+v", stageErr)
	}
}

func TestEquipment_ColumnsLimitIncludes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		columns []string
		filters query.Filters
		want    []string
	}{
		{"native only", []string{"id", "unit_number"}, filters("account_ids", "acc-1"), nil},
		{"vendor column", []string{"id", "vendor_name"}, filters("account_ids", "acc-1"), []string{store.IncludeIoTDevices}},
		{"residual filter", []string{"id"}, filters("account_ids", "acc-1", "contract_term_type", "fixed"), []string{store.IncludeContracts}},
		{"every column", nil, filters("account_ids", "acc-1"), []string{store.IncludeIoTDevices, store.IncludeContracts}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, st := newTestService(t)
			if _, err := svc.List(context.Background(), Equipment, query.Request{
				Filters: tc.filters,
				Columns: tc.columns,
			}); err != nil {
				t.Fatalf("List: %v", err)
			}
			fetches := st.Fetches()
			if len(fetches) != 1 {
				t.Fatalf("fetches = %d, want 1", len(fetches))
			}
			if diff := cmp.Diff(tc.want, fetches[0].Include); diff != "" {
				t.Errorf("include (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEquipment_Get(t *testing.T) {
	svc, _ := newTestService(t)
	rec, err := svc.Get(context.Background(), Equipment, "e1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for key, want := range map[string]any{
		"account_number":       "A-100",
		"account_name":         "Acme Logistics",
		"year":                 float64(2021),
		"latitude":             40.0,
		"last_ping_at":         day(2024, time.May, 31),
		"driver_name":          "Driver T-100",
		"vendor_name":          "Zeta",
		"contract_start_date":  day(2023, time.February, 1),
		"contract_end_date":    day(2026, time.January, 31),
		"contract_term_type":   "fixed",
		"attachment_url":       "https://files.example.com/sa-1.pdf",
		"attachment_mime_type": "application/pdf",
	} {
		if diff := cmp.Diff(want, rec.Get(key)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", key, diff)
		}
	}

	rec, err = svc.Get(context.Background(), Equipment, "e5")
	if err != nil {
		t.Fatalf("Get e5: %v", err)
	}
	for _, key := range []string{"year", "latitude", "vendor_name", "contract_end_date", "attachment_url"} {
		if v := rec.Get(key); v != nil {
			t.Errorf("%s = %v, want nil", key, v)
		}
	}

	if _, err := svc.Get(context.Background(), Equipment, "missing"); !errors.Is(err, query.ErrNotFound) {
		t.Errorf("Get missing err = %v", err)
	}
}

func TestPM_DueStatus(t *testing.T) {
	svc, _ := newTestService(t)
	page, err := svc.List(context.Background(), PM, query.Request{
		Filters: filters("account_ids", "acc-1"),
		Sort:    "next_due_at:asc",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if diff := cmp.Diff([]string{"pm4", "pm1", "pm2", "pm3"}, ids(page)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}

	type due struct {
		Status string
		Days   float64
	}
	var got []due
	for _, r := range page.Data {
		got = append(got, due{r.String("due_status"), r.Get("days_until_due").(float64)})
	}
	want := []due{
		{"ok", -32},
		{"overdue", -13},
		{"due_soon", 13},
		{"ok", 91},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("due (-want +got):\n%s", diff)
	}

	wantStats := []query.Stat{
		{Name: "overdue", Count: 1},
		{Name: "due_soon", Count: 1},
		{Name: "completed", Count: 1},
	}
	if diff := cmp.Diff(wantStats, page.Stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestPM_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tc := range []struct {
		name    string
		filters query.Filters
		want    []string
	}{
		{"due status is residual", filters("account_ids", "acc-1,acc-2", "due_status", "overdue"), []string{"pm1", "pm5"}},
		{"kind", filters("account_ids", "acc-1", "kind", "dot"), []string{"pm1", "pm4"}},
		{"unit through equipment", filters("account_ids", "acc-1", "unit_number", "r-4"), []string{"pm3"}},
		{"due range", filters("account_ids", "acc-1", "due_from", "2024-06-01", "due_to", "2024-06-30"), []string{"pm2"}},
		{"completed range open end", filters("account_ids", "acc-1", "completed_from", "2024-01-01"), []string{"pm4"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.List(context.Background(), PM, query.Request{Filters: tc.filters, SkipStats: true})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if diff := cmp.Diff(tc.want, ids(page)); diff != "" {
				t.Errorf("ids (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWorkorders(t *testing.T) {
	svc, _ := newTestService(t)
	page, err := svc.List(context.Background(), Workorders, query.Request{
		Filters: filters("account_ids", "acc-1"),
		Sort:    "priority_range:desc",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// Lowercased: "jan 2 – ..." > "dec 30 – ..." > missing.
	if diff := cmp.Diff([]string{"wo1", "wo2", "wo3"}, ids(page)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	var ranges []any
	for _, r := range page.Data {
		ranges = append(ranges, r.Get("priority_range"))
	}
	if diff := cmp.Diff([]any{"Jan 2 – Jan 5, 2024", "Dec 30 – Jan 3, 2023", nil}, ranges); diff != "" {
		t.Errorf("priority ranges (-want +got):\n%s", diff)
	}
	wantStats := []query.Stat{
		{Name: "emergency_in_progress", Count: 1},
		{Name: "open", Count: 1},
		{Name: "completed", Count: 1},
	}
	if diff := cmp.Diff(wantStats, page.Stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}

	page, err = svc.List(context.Background(), Workorders, query.Request{
		Filters:   filters("account_ids", "acc-1,acc-2", "vendor_name", "bra"),
		SkipStats: true,
	})
	if err != nil {
		t.Fatalf("List vendor: %v", err)
	}
	if diff := cmp.Diff([]string{"wo2"}, ids(page)); diff != "" {
		t.Errorf("vendor ids (-want +got):\n%s", diff)
	}
}

func TestPriorityRange(t *testing.T) {
	for _, tc := range []struct {
		start, end time.Time
		want       string
	}{
		{day(2024, time.January, 2), day(2024, time.January, 5), "Jan 2 – Jan 5, 2024"},
		{day(2023, time.December, 30), day(2024, time.January, 3), "Dec 30 – Jan 3, 2023"},
		{day(2024, time.March, 9), day(2024, time.March, 9), "Mar 9 – Mar 9, 2024"},
		{time.Date(2024, 7, 1, 23, 30, 0, 0, time.FixedZone("PDT", -7*3600)), day(2024, time.July, 4), "Jul 2 – Jul 4, 2024"},
	} {
		if got := PriorityRange(tc.start, tc.end); got != tc.want {
			t.Errorf("PriorityRange(%v, %v) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestProjection_EveryCatalogKey(t *testing.T) {
	svc, _ := newTestService(t)
	for name, id := range map[string]string{Equipment: "e5", PM: "pm2", Workorders: "wo3"} {
		rec, err := svc.Get(context.Background(), name, id)
		if err != nil {
			t.Fatalf("%s: Get: %v", name, err)
		}
		catalog, _ := svc.Catalog(name)
		want := catalog.Keys()
		got := make([]string, 0, len(rec))
		for k := range rec {
			got = append(got, k)
		}
		slices.Sort(want)
		slices.Sort(got)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s keys (-catalog +record):\n%s", name, diff)
		}

		again, _ := svc.Get(context.Background(), name, id)
		if diff := cmp.Diff(rec, again); diff != "" {
			t.Errorf("%s projection not deterministic:\n%s", name, diff)
		}
	}
}

func TestValidate(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Validate(postgres.NewWithDB(nil)); err != nil {
		t.Errorf("postgres schema: %v", err)
	}
	if err := svc.Validate(memory.New()); err != nil {
		t.Errorf("memory schema: %v", err)
	}
}
