package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trijayaagung/armada-studio/pose"
)

// Memory keeps every record in process. Default for tests and throwaway
// sessions.
type Memory struct {
	mu     sync.RWMutex
	models map[string]ModelAsset
	poses  map[string]pose.Pose
	fleet  map[string]FleetEntry
}

func NewMemory() *Memory {
	return &Memory{
		models: make(map[string]ModelAsset),
		poses:  make(map[string]pose.Pose),
		fleet:  make(map[string]FleetEntry),
	}
}

func (m *Memory) Init() error  { return nil }
func (m *Memory) Close() error { return nil }

func (m *Memory) ListModels(ctx context.Context) ([]ModelAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ModelAsset, 0, len(m.models))
	for _, v := range m.models {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetModel(ctx context.Context, id string) (*ModelAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.models[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *Memory) CreateModel(ctx context.Context, rec *ModelAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.models[rec.ID] = *rec
	return nil
}

func (m *Memory) DeleteModel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.models[id]; !ok {
		return ErrNotFound
	}
	delete(m.models, id)
	return nil
}

func (m *Memory) ListPoses(ctx context.Context, modelID string) ([]pose.Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pose.Pose, 0)
	for _, v := range m.poses {
		if v.ModelID == modelID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetPose(ctx context.Context, id string) (*pose.Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.poses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *Memory) CreatePose(ctx context.Context, p *pose.Pose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.poses[p.ID] = *p
	return nil
}

func (m *Memory) DeletePose(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.poses[id]; !ok {
		return ErrNotFound
	}
	delete(m.poses, id)
	return nil
}

func (m *Memory) ListFleet(ctx context.Context) ([]FleetEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FleetEntry, 0, len(m.fleet))
	for _, v := range m.fleet {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateFleetEntry(ctx context.Context, e *FleetEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.fleet[e.ID] = *e
	return nil
}

func (m *Memory) DeleteFleetEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fleet[id]; !ok {
		return ErrNotFound
	}
	delete(m.fleet, id)
	return nil
}
