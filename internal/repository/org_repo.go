package repository

import (
	"context"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrgRepository interface {
	CreateCompany(ctx context.Context, company *model.Company) error
	FindCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	FindCompanyByCNPJ(ctx context.Context, cnpj string) (*model.Company, error)
	ListCompanies(ctx context.Context, page, limit int) ([]model.Company, int64, error)

	CreateUnion(ctx context.Context, union *model.Union) error
	FindUnionByID(ctx context.Context, id uuid.UUID) (*model.Union, error)
	FindUnionByCNPJ(ctx context.Context, cnpj string) (*model.Union, error)
	ListUnions(ctx context.Context, page, limit int) ([]model.Union, int64, error)
}

type orgRepository struct {
	db *gorm.DB
}

func NewOrgRepository(db *gorm.DB) OrgRepository {
	return &orgRepository{db: db}
}

func (r *orgRepository) CreateCompany(ctx context.Context, company *model.Company) error {
	return GetDB(ctx, r.db).Create(company).Error
}

func (r *orgRepository) FindCompanyByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var company model.Company
	if err := GetDB(ctx, r.db).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *orgRepository) FindCompanyByCNPJ(ctx context.Context, cnpj string) (*model.Company, error) {
	var company model.Company
	if err := GetDB(ctx, r.db).First(&company, "cnpj = ?", cnpj).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *orgRepository) ListCompanies(ctx context.Context, page, limit int) ([]model.Company, int64, error) {
	var companies []model.Company
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Company{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name ASC").Offset(offset).Limit(limit).Find(&companies).Error; err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *orgRepository) CreateUnion(ctx context.Context, union *model.Union) error {
	return GetDB(ctx, r.db).Create(union).Error
}

func (r *orgRepository) FindUnionByID(ctx context.Context, id uuid.UUID) (*model.Union, error) {
	var union model.Union
	if err := GetDB(ctx, r.db).First(&union, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &union, nil
}

func (r *orgRepository) FindUnionByCNPJ(ctx context.Context, cnpj string) (*model.Union, error) {
	var union model.Union
	if err := GetDB(ctx, r.db).First(&union, "cnpj = ?", cnpj).Error; err != nil {
		return nil, err
	}
	return &union, nil
}

func (r *orgRepository) ListUnions(ctx context.Context, page, limit int) ([]model.Union, int64, error) {
	var unions []model.Union
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Union{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name ASC").Offset(offset).Limit(limit).Find(&unions).Error; err != nil {
		return nil, 0, err
	}
	return unions, total, nil
}
