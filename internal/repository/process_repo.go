package repository

import (
	"context"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessFilter narrows process listings by ownership and status.
type ProcessFilter struct {
	CompanyID *uuid.UUID
	UnionID   *uuid.UUID
	Status    string
}

type ProcessRepository interface {
	Create(ctx context.Context, p *model.DemissaoProcess) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error)
	FindByIDWithDocuments(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error)
	// FindByIDForUpdate loads the process row under a lock; callers must be
	// inside RunInTx so the "all documents approved" check and the status
	// write happen atomically.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error)
	List(ctx context.Context, filter ProcessFilter, page, limit int) ([]model.DemissaoProcess, int64, error)
	Update(ctx context.Context, p *model.DemissaoProcess) error

	CreateSchedule(ctx context.Context, s *model.Schedule) error
	LatestScheduleForProcess(ctx context.Context, processID uuid.UUID) (*model.Schedule, error)
	UpdateSchedule(ctx context.Context, s *model.Schedule) error
}

type processRepository struct {
	db *gorm.DB
}

func NewProcessRepository(db *gorm.DB) ProcessRepository {
	return &processRepository{db: db}
}

func (r *processRepository) Create(ctx context.Context, p *model.DemissaoProcess) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *processRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error) {
	var p model.DemissaoProcess
	if err := GetDB(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *processRepository) FindByIDWithDocuments(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error) {
	var p model.DemissaoProcess
	err := GetDB(ctx, r.db).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at ASC") }).
		Preload("Company").
		Preload("Union").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *processRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DemissaoProcess, error) {
	var p model.DemissaoProcess
	if err := lockForUpdate(GetDB(ctx, r.db)).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *processRepository) List(ctx context.Context, filter ProcessFilter, page, limit int) ([]model.DemissaoProcess, int64, error) {
	var processes []model.DemissaoProcess
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.DemissaoProcess{})
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.UnionID != nil {
		query = query.Where("union_id = ?", *filter.UnionID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Documents").
		Preload("Company").
		Preload("Union").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&processes).Error; err != nil {
		return nil, 0, err
	}

	return processes, total, nil
}

func (r *processRepository) Update(ctx context.Context, p *model.DemissaoProcess) error {
	return GetDB(ctx, r.db).Save(p).Error
}

func (r *processRepository) CreateSchedule(ctx context.Context, s *model.Schedule) error {
	return GetDB(ctx, r.db).Create(s).Error
}

func (r *processRepository) LatestScheduleForProcess(ctx context.Context, processID uuid.UUID) (*model.Schedule, error) {
	var s model.Schedule
	err := GetDB(ctx, r.db).
		Where("process_id = ?", processID).
		Order("starts_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *processRepository) UpdateSchedule(ctx context.Context, s *model.Schedule) error {
	return GetDB(ctx, r.db).Save(s).Error
}
