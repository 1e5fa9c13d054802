// Package memory is an in-memory store.Store. It evaluates predicates by
// store path the way the SQL store does and is used as the store of tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

// Store holds fully hydrated rows. Fetches return copies with the relations
// that were not requested as includes stripped.
type Store struct {
	mu              sync.Mutex
	equipment       []*model.Equipment
	schedules       []*model.PMSchedule
	workorders      []*model.Workorder
	serviceRequests []*model.ServiceRequest

	fetches []query.Fetch
	counts  int
	err     error
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) AddEquipment(e ...*model.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment = append(s.equipment, e...)
}

func (s *Store) AddPMSchedules(p ...*model.PMSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, p...)
}

func (s *Store) AddWorkorders(w ...*model.Workorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workorders = append(s.workorders, w...)
}

func (s *Store) AddServiceRequests(r ...*model.ServiceRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serviceRequests = append(s.serviceRequests, r...)
}

// FailWith makes every later call return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Fetches returns every fetch received so far.
func (s *Store) Fetches() []query.Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]query.Fetch(nil), s.fetches...)
}

// Counts returns the number of Count calls received so far.
func (s *Store) Counts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Store) Close() error { return nil }

func (s *Store) FetchEquipment(_ context.Context, f query.Fetch) ([]*model.Equipment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, f)
	if s.err != nil {
		return nil, 0, s.err
	}
	rows, total, err := fetch(s, store.EntityEquipment, s.equipment, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.Equipment, len(rows))
	for i, e := range rows {
		out[i] = trimEquipment(e, f.Include)
	}
	return out, total, nil
}

func (s *Store) FetchPMSchedules(_ context.Context, f query.Fetch) ([]*model.PMSchedule, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, f)
	if s.err != nil {
		return nil, 0, s.err
	}
	rows, total, err := fetch(s, store.EntityPMSchedules, s.schedules, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.PMSchedule, len(rows))
	for i, p := range rows {
		cp := *p
		cp.Equipment = trimEquipment(p.Equipment, f.Include)
		out[i] = &cp
	}
	return out, total, nil
}

func (s *Store) FetchWorkorders(_ context.Context, f query.Fetch) ([]*model.Workorder, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, f)
	if s.err != nil {
		return nil, 0, s.err
	}
	rows, total, err := fetch(s, store.EntityWorkorders, s.workorders, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*model.Workorder, len(rows))
	for i, w := range rows {
		cp := *w
		cp.Equipment = trimEquipment(w.Equipment, f.Include)
		out[i] = &cp
	}
	return out, total, nil
}

func (s *Store) Count(_ context.Context, entity string, where query.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts++
	if s.err != nil {
		return 0, s.err
	}
	var rows []any
	switch entity {
	case store.EntityEquipment:
		rows = toAny(s.equipment)
	case store.EntityPMSchedules:
		rows = toAny(s.schedules)
	case store.EntityWorkorders:
		rows = toAny(s.workorders)
	case store.EntityServiceRequests:
		rows = toAny(s.serviceRequests)
	default:
		return 0, fmt.Errorf("count: unknown entity %q", entity)
	}
	n := 0
	for _, row := range rows {
		ok, err := s.eval(entity, row, where)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// ValidatePath walks path over the entity's relations and columns.
func (s *Store) ValidatePath(entity string, path query.Path) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	_, err := resolve(entity, nil, path)
	return err
}

func fetch[T any](s *Store, entity string, all []T, f query.Fetch) ([]T, int, error) {
	var matched []T
	for _, row := range all {
		ok, err := s.eval(entity, row, f.Where)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			matched = append(matched, row)
		}
	}

	var sortErr error
	sort.SliceStable(matched, func(i, j int) bool {
		for _, o := range f.Order {
			a, err := resolve(entity, matched[i], o.Path)
			if err != nil {
				sortErr = err
				return false
			}
			b, _ := resolve(entity, matched[j], o.Path)
			c := query.Compare(a, b, kindOf(a, b))
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, 0, sortErr
	}

	total := len(matched)
	if f.Offset > 0 {
		matched = matched[min(f.Offset, len(matched)):]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

// eval evaluates p against row. Conditions read their store path; Exists
// walks the related rows held by the store.
func (s *Store) eval(entity string, row any, p query.Predicate) (bool, error) {
	switch v := p.(type) {
	case nil:
		return true, nil
	case query.And:
		for _, c := range v {
			ok, err := s.eval(entity, row, c)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case query.Or:
		for _, c := range v {
			ok, err := s.eval(entity, row, c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.Not:
		ok, err := s.eval(entity, row, v.P)
		return !ok, err
	case query.Exists:
		relEntity, related, err := s.related(entity, row, v.Relation)
		if err != nil {
			return false, err
		}
		for _, r := range related {
			ok, err := s.eval(relEntity, r, v.Where)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.Cond:
		val, err := resolve(entity, row, v.Path)
		if err != nil {
			return false, err
		}
		return v.Match(func(string) any { return val }), nil
	}
	return false, fmt.Errorf("unsupported predicate %T", p)
}

func (s *Store) related(entity string, row any, relation string) (string, []any, error) {
	if entity != store.EntityEquipment {
		return "", nil, fmt.Errorf("%s has no to-many relation %q", entity, relation)
	}
	e := row.(*model.Equipment)
	switch relation {
	case "iot_devices":
		return "equipment_iot_devices", toAny(e.IoTDevices), nil
	case "pm_schedules":
		return store.EntityPMSchedules, filterByEquipment(s.schedules, e.ID, func(p *model.PMSchedule) string { return p.EquipmentID }), nil
	case "service_requests":
		return store.EntityServiceRequests, filterByEquipment(s.serviceRequests, e.ID, func(r *model.ServiceRequest) string { return r.EquipmentID }), nil
	case "workorders":
		return store.EntityWorkorders, filterByEquipment(s.workorders, e.ID, func(w *model.Workorder) string { return w.EquipmentID }), nil
	}
	return "", nil, fmt.Errorf("equipment has no relation %q", relation)
}

func filterByEquipment[T any](rows []T, id string, key func(T) string) []any {
	var out []any
	for _, r := range rows {
		if key(r) == id {
			out = append(out, r)
		}
	}
	return out
}

func toAny[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func trimEquipment(e *model.Equipment, include []string) *model.Equipment {
	if e == nil {
		return nil
	}
	cp := *e
	cp.IoTDevices, cp.TypeAllocations = nil, nil
	for _, inc := range include {
		switch inc {
		case store.IncludeIoTDevices:
			cp.IoTDevices = e.IoTDevices
		case store.IncludeContracts:
			cp.TypeAllocations = e.TypeAllocations
		}
	}
	return &cp
}

func kindOf(a, b any) query.ValueKind {
	v := a
	if v == nil {
		v = b
	}
	switch v.(type) {
	case time.Time:
		return query.Date
	case float64:
		return query.Number
	case bool:
		return query.Bool
	}
	return query.String
}
