// Package storage persists the administrative records: model assets, poses
// and fleet entries. The preview/capture core only ever sees these through
// the Backend interface.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trijayaagung/armada-studio/pose"
)

var ErrNotFound = errors.New("record not found")

// ModelAsset references an uploaded mesh/material container. Immutable once
// created. Poses and fleet entries reference it weakly; deleting a model does
// not cascade.
type ModelAsset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GLBFile   string    `json:"glb_file"`
	CreatedAt time.Time `json:"created_at"`
}

// FleetEntry is one vehicle of the armada: a model plus its livery art and
// the pose used for its thumbnail.
type FleetEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ModelID   string    `json:"model_id"`
	PoseID    string    `json:"pose_id,omitempty"`
	BodyFile  string    `json:"body_file,omitempty"`
	AlphaFile string    `json:"alpha_file,omitempty"`
	ThumbFile string    `json:"thumb_file,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend is the persistence collaborator. Create methods assign the ID on
// the passed pointer.
type Backend interface {
	Init() error
	Close() error

	ListModels(ctx context.Context) ([]ModelAsset, error)
	GetModel(ctx context.Context, id string) (*ModelAsset, error)
	CreateModel(ctx context.Context, m *ModelAsset) error
	DeleteModel(ctx context.Context, id string) error

	ListPoses(ctx context.Context, modelID string) ([]pose.Pose, error)
	GetPose(ctx context.Context, id string) (*pose.Pose, error)
	CreatePose(ctx context.Context, p *pose.Pose) error
	DeletePose(ctx context.Context, id string) error

	ListFleet(ctx context.Context) ([]FleetEntry, error)
	CreateFleetEntry(ctx context.Context, e *FleetEntry) error
	DeleteFleetEntry(ctx context.Context, id string) error
}

// Config selects and parameterizes a backend.
type Config struct {
	Type string `yaml:"type"` // "memory" or "sqlite"
	Path string `yaml:"path"` // sqlite database file
}

func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSqlite(cfg.Path)
	default:
		return nil, errors.Errorf("Unknown storage type %q", cfg.Type)
	}
}
