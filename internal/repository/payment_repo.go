package repository

import (
	"context"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *paymentRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	err := GetDB(ctx, r.db).
		Where("process_id = ?", processID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	if err := GetDB(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *model.Payment) error {
	return GetDB(ctx, r.db).Save(p).Error
}
