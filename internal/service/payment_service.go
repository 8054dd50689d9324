package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	ProcessID string `json:"process_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type PaymentService interface {
	Create(ctx context.Context, req CreatePaymentRequest, actorID *uuid.UUID) (*model.Payment, error)
	ListByProcess(ctx context.Context, processID string) ([]model.Payment, error)
	MarkPaid(ctx context.Context, id string) (*model.Payment, error)
}

type paymentService struct {
	payments  repository.PaymentRepository
	processes repository.ProcessRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
}

func NewPaymentService(
	payments repository.PaymentRepository,
	processes repository.ProcessRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
) PaymentService {
	return &paymentService{
		payments:  payments,
		processes: processes,
		audit:     audit,
		txManager: txManager,
	}
}

// Create registers the settlement amount of a finished process. Processes
// still in the workflow cannot carry payments.
func (s *paymentService) Create(ctx context.Context, req CreatePaymentRequest, actorID *uuid.UUID) (*model.Payment, error) {
	processID, err := uuid.Parse(req.ProcessID)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		return nil, apperr.Validationf("invalid_amount", "amount must be a positive decimal")
	}

	var payment *model.Payment

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByID(txCtx, processID)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}
		if process.Status != model.StatusFinalizado {
			return apperr.Statef("process_not_finalized", "payments can only be created for finalized processes")
		}

		payment = &model.Payment{
			ProcessID: processID,
			CompanyID: process.CompanyID,
			Amount:    amount,
			Status:    model.PaymentPendente,
		}
		if err := s.payments.Create(txCtx, payment); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{"amount": amount.String()})
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionCreatePayment,
			EntityID:   payment.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListByProcess(ctx context.Context, processID string) ([]model.Payment, error) {
	parsed, err := uuid.Parse(processID)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	return s.payments.ListByProcess(ctx, parsed)
}

func (s *paymentService) MarkPaid(ctx context.Context, id string) (*model.Payment, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_payment_id", "invalid payment id")
	}

	payment, err := s.payments.FindByID(ctx, parsed)
	if err != nil {
		return nil, apperr.NotFoundf("payment_not_found", "payment not found")
	}
	if payment.Status == model.PaymentPago {
		return payment, nil
	}

	now := time.Now()
	payment.Status = model.PaymentPago
	payment.PaidAt = &now
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}
