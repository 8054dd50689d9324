package repository

import (
	"context"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, processID, docID uuid.UUID) (*model.Document, error)
	FindByProcessAndType(ctx context.Context, processID uuid.UUID, docType string) (*model.Document, error)
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
	CountByProcessAndStatus(ctx context.Context, processID uuid.UUID, status string) (int64, error)
	CountByProcess(ctx context.Context, processID uuid.UUID) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, processID, docID uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := GetDB(ctx, r.db).First(&doc, "id = ? AND process_id = ?", docID, processID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByProcessAndType(ctx context.Context, processID uuid.UUID, docType string) (*model.Document, error) {
	var doc model.Document
	err := GetDB(ctx, r.db).First(&doc, "process_id = ? AND type = ?", processID, docType).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.Document, error) {
	var docs []model.Document
	err := GetDB(ctx, r.db).
		Where("process_id = ?", processID).
		Order("uploaded_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Save(doc).Error
}

func (r *documentRepository) CountByProcessAndStatus(ctx context.Context, processID uuid.UUID, status string) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Document{}).
		Where("process_id = ? AND status = ?", processID, status).
		Count(&count).Error
	return count, err
}

func (r *documentRepository) CountByProcess(ctx context.Context, processID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Document{}).
		Where("process_id = ?", processID).
		Count(&count).Error
	return count, err
}
