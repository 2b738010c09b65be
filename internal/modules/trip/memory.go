package trip

import (
	"context"
	"sort"
	"sync"
)

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
)

// MemoryStore is an in-process Repository used when no database is
// configured and in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	trips      map[string]Trip
	days       map[string]Day
	activities map[string]Activity
	// order keeps activity insertion order for ties on time.
	order map[string]int
	seq   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:      map[string]Trip{},
		days:       map[string]Day{},
		activities: map[string]Activity{},
		order:      map[string]int{},
	}
}

func (m *MemoryStore) CreateTrip(_ context.Context, d *TripDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[d.ID] = d.Trip
	for _, day := range d.Days {
		acts := day.Activities
		day.Activities = nil
		m.days[day.ID] = day
		for _, a := range acts {
			m.putActivity(a)
		}
	}
	return nil
}

func (m *MemoryStore) GetTrip(_ context.Context, id string) (*Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) ListTrips(_ context.Context, userID string) ([]Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Trip{}
	for _, t := range m.trips {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) ListDays(_ context.Context, tripID string) ([]Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var days []Day
	index := map[string]int{}
	for _, d := range m.days {
		if d.TripID != tripID {
			continue
		}
		d.Activities = []Activity{}
		index[d.ID] = len(days)
		days = append(days, d)
	}
	for _, a := range m.activities {
		if i, ok := index[a.DayID]; ok {
			days[i].Activities = append(days[i].Activities, a)
		}
	}
	for i := range days {
		acts := days[i].Activities
		sort.Slice(acts, func(a, b int) bool { return m.order[acts[a].ID] < m.order[acts[b].ID] })
	}
	sortDays(days)
	return days, nil
}

func (m *MemoryStore) CreateActivity(_ context.Context, a *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putActivity(*a)
	return nil
}

func (m *MemoryStore) putActivity(a Activity) {
	m.seq++
	m.activities[a.ID] = a
	m.order[a.ID] = m.seq
}

func (m *MemoryStore) GetActivity(_ context.Context, id string) (*Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryStore) DeleteActivity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[id]; !ok {
		return ErrNotFound
	}
	delete(m.activities, id)
	delete(m.order, id)
	return nil
}

func (m *MemoryStore) SetBooked(_ context.Context, id string, booked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return ErrNotFound
	}
	a.IsBooked = booked
	m.activities[id] = a
	return nil
}

func (m *MemoryStore) UpdateCover(_ context.Context, tripID, cover string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	t.CoverImage = cover
	m.trips[tripID] = t
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, tripID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	m.trips[tripID] = t
	return nil
}
