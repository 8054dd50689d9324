package service

import (
	"context"
	"regexp"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/google/uuid"
)

type CreateOrgRequest struct {
	Name  string `json:"name" binding:"required"`
	CNPJ  string `json:"cnpj" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

type OrgService interface {
	CreateCompany(ctx context.Context, req CreateOrgRequest) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, page, limit int) ([]model.Company, int64, error)

	CreateUnion(ctx context.Context, req CreateOrgRequest) (*model.Union, error)
	GetUnion(ctx context.Context, id string) (*model.Union, error)
	ListUnions(ctx context.Context, page, limit int) ([]model.Union, int64, error)
}

type orgService struct {
	repo repository.OrgRepository
}

func NewOrgService(repo repository.OrgRepository) OrgService {
	return &orgService{repo: repo}
}

var cnpjDigits = regexp.MustCompile(`\D`)

// normalizeCNPJ strips punctuation and checks the digit count. Full check
// digit validation stays with the registration front end.
func normalizeCNPJ(raw string) (string, error) {
	digits := cnpjDigits.ReplaceAllString(raw, "")
	if len(digits) != 14 {
		return "", apperr.Validationf("invalid_cnpj", "CNPJ must have 14 digits")
	}
	return digits, nil
}

func (s *orgService) CreateCompany(ctx context.Context, req CreateOrgRequest) (*model.Company, error) {
	cnpj, err := normalizeCNPJ(req.CNPJ)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCompanyByCNPJ(ctx, cnpj); err == nil {
		return nil, apperr.Conflictf("cnpj_taken", "a company with this CNPJ already exists")
	}

	company := &model.Company{
		Name:  req.Name,
		CNPJ:  cnpj,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *orgService) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_company_id", "invalid company id")
	}
	company, err := s.repo.FindCompanyByID(ctx, parsed)
	if err != nil {
		return nil, apperr.NotFoundf("company_not_found", "company not found")
	}
	return company, nil
}

func (s *orgService) ListCompanies(ctx context.Context, page, limit int) ([]model.Company, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListCompanies(ctx, page, limit)
}

func (s *orgService) CreateUnion(ctx context.Context, req CreateOrgRequest) (*model.Union, error) {
	cnpj, err := normalizeCNPJ(req.CNPJ)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindUnionByCNPJ(ctx, cnpj); err == nil {
		return nil, apperr.Conflictf("cnpj_taken", "a union with this CNPJ already exists")
	}

	union := &model.Union{
		Name:  req.Name,
		CNPJ:  cnpj,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := s.repo.CreateUnion(ctx, union); err != nil {
		return nil, err
	}
	return union, nil
}

func (s *orgService) GetUnion(ctx context.Context, id string) (*model.Union, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_union_id", "invalid union id")
	}
	union, err := s.repo.FindUnionByID(ctx, parsed)
	if err != nil {
		return nil, apperr.NotFoundf("union_not_found", "union not found")
	}
	return union, nil
}

func (s *orgService) ListUnions(ctx context.Context, page, limit int) ([]model.Union, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListUnions(ctx, page, limit)
}
