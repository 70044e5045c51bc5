package storage

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trijayaagung/armada-studio/pose"
)

// Sqlite persists records in a single database file, cgo-free.
type Sqlite struct {
	db *gorm.DB
}

type modelRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	GLBFile   string
	CreatedAt time.Time
}

func (modelRow) TableName() string { return "models" }

type poseRow struct {
	ID        string `gorm:"primaryKey"`
	ModelID   string `gorm:"index"`
	Name      string
	CamX      float32
	CamY      float32
	CamZ      float32
	TargetX   float32
	TargetY   float32
	TargetZ   float32
	CameraFOV *float32
	CameraZoom *float32
	CreatedAt time.Time
}

func (poseRow) TableName() string { return "poses" }

type fleetRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"index"`
	ModelID   string
	PoseID    string
	BodyFile  string
	AlphaFile string
	ThumbFile string
	CreatedAt time.Time
}

func (fleetRow) TableName() string { return "armada" }

func NewSqlite(path string) (*Sqlite, error) {
	if path == "" {
		path = "armada.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open sqlite db %q", path)
	}
	return &Sqlite{db: db}, nil
}

func (s *Sqlite) Init() error {
	if err := s.db.AutoMigrate(&modelRow{}, &poseRow{}, &fleetRow{}); err != nil {
		return errors.Wrapf(err, "Failed to migrate schema")
	}
	return nil
}

func (s *Sqlite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toPoseRow(p *pose.Pose) *poseRow {
	return &poseRow{
		ID:        p.ID,
		ModelID:   p.ModelID,
		Name:      p.Name,
		CamX:      p.CameraPos.X,
		CamY:      p.CameraPos.Y,
		CamZ:      p.CameraPos.Z,
		TargetX:   p.TargetPos.X,
		TargetY:   p.TargetPos.Y,
		TargetZ:   p.TargetPos.Z,
		CameraFOV: p.CameraFOV,
		CameraZoom: p.CameraZoom,
		CreatedAt: p.CreatedAt,
	}
}

func fromPoseRow(r *poseRow) pose.Pose {
	return pose.Pose{
		ID:         r.ID,
		ModelID:    r.ModelID,
		Name:       r.Name,
		CameraPos:  pose.Vector{X: r.CamX, Y: r.CamY, Z: r.CamZ},
		TargetPos:  pose.Vector{X: r.TargetX, Y: r.TargetY, Z: r.TargetZ},
		CameraFOV:  r.CameraFOV,
		CameraZoom: r.CameraZoom,
		CreatedAt:  r.CreatedAt,
	}
}

func (s *Sqlite) ListModels(ctx context.Context) ([]ModelAsset, error) {
	var rows []modelRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "Failed to list models")
	}
	out := make([]ModelAsset, len(rows))
	for i, r := range rows {
		out[i] = ModelAsset(r)
	}
	return out, nil
}

func (s *Sqlite) GetModel(ctx context.Context, id string) (*ModelAsset, error) {
	var r modelRow
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get model %q", id)
	}
	m := ModelAsset(r)
	return &m, nil
}

func (s *Sqlite) CreateModel(ctx context.Context, m *ModelAsset) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r := modelRow(*m)
	return errors.Wrapf(s.db.WithContext(ctx).Create(&r).Error, "Failed to create model")
}

func (s *Sqlite) DeleteModel(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&modelRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "Failed to delete model %q", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Sqlite) ListPoses(ctx context.Context, modelID string) ([]pose.Pose, error) {
	var rows []poseRow
	if err := s.db.WithContext(ctx).Where("model_id = ?", modelID).Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "Failed to list poses")
	}
	out := make([]pose.Pose, len(rows))
	for i := range rows {
		out[i] = fromPoseRow(&rows[i])
	}
	return out, nil
}

func (s *Sqlite) GetPose(ctx context.Context, id string) (*pose.Pose, error) {
	var r poseRow
	err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get pose %q", id)
	}
	p := fromPoseRow(&r)
	return &p, nil
}

func (s *Sqlite) CreatePose(ctx context.Context, p *pose.Pose) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return errors.Wrapf(s.db.WithContext(ctx).Create(toPoseRow(p)).Error, "Failed to create pose")
}

func (s *Sqlite) DeletePose(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&poseRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "Failed to delete pose %q", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Sqlite) ListFleet(ctx context.Context) ([]FleetEntry, error) {
	var rows []fleetRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "Failed to list fleet")
	}
	out := make([]FleetEntry, len(rows))
	for i, r := range rows {
		out[i] = FleetEntry(r)
	}
	return out, nil
}

func (s *Sqlite) CreateFleetEntry(ctx context.Context, e *FleetEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r := fleetRow(*e)
	return errors.Wrapf(s.db.WithContext(ctx).Create(&r).Error, "Failed to create fleet entry")
}

func (s *Sqlite) DeleteFleetEntry(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&fleetRow{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "Failed to delete fleet entry %q", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
