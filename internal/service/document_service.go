package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/google/uuid"
)

// --- DTOs ---

// UploadItem is one (file reference, type) pair of an upload batch.
type UploadItem struct {
	Type    string
	FileRef string
}

// --- Interface ---

type DocumentService interface {
	Upload(ctx context.Context, processID string, items []UploadItem, actorID *uuid.UUID) ([]model.Document, error)
	Approve(ctx context.Context, processID, documentID string, actorID *uuid.UUID) (*model.Document, error)
	Reject(ctx context.Context, processID, documentID, motivo string, actorID *uuid.UUID) (*model.Document, error)
	ListByProcess(ctx context.Context, processID string) ([]model.Document, error)
}

type documentService struct {
	processes repository.ProcessRepository
	documents repository.DocumentRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	publisher StatusPublisher
}

func NewDocumentService(
	processes repository.ProcessRepository,
	documents repository.DocumentRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	publisher StatusPublisher,
) DocumentService {
	return &documentService{
		processes: processes,
		documents: documents,
		audit:     audit,
		txManager: txManager,
		publisher: publisher,
	}
}

// --- Implementation ---

// Upload stores a batch of documents for a process. The batch is
// all-or-nothing: every item is validated against the registry before any
// write happens, so a single conflicting type persists nothing.
func (s *documentService) Upload(ctx context.Context, processID string, items []UploadItem, actorID *uuid.UUID) ([]model.Document, error) {
	pid, err := uuid.Parse(processID)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	if len(items) == 0 {
		return nil, apperr.Validationf("empty_upload", "no documents provided")
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !model.IsValidDocumentType(item.Type) {
			return nil, apperr.Validationf("invalid_document_type", "invalid document type: %s", item.Type)
		}
		if seen[item.Type] {
			return nil, apperr.Validationf("duplicate_document_type", "duplicate document type in batch: %s", item.Type)
		}
		seen[item.Type] = true
	}

	var result []model.Document
	var statusChanged string

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}
		if process.Status == model.StatusFinalizado {
			return apperr.Statef("process_finalized", "cannot upload documents to a finalized process")
		}

		existing, err := s.documents.ListByProcess(txCtx, pid)
		if err != nil {
			return err
		}
		byType := make(map[string]*model.Document, len(existing))
		for i := range existing {
			byType[existing[i].Type] = &existing[i]
		}

		// Validate the whole batch before persisting anything.
		for _, item := range items {
			if doc, ok := byType[item.Type]; ok && doc.Status != model.DocumentRecusado {
				return apperr.Conflictf("document_already_submitted",
					"document %s was already submitted and cannot be replaced (current status: %s)", item.Type, doc.Status)
			}
		}

		for _, item := range items {
			if doc, ok := byType[item.Type]; ok {
				// Supersede the refused document in place.
				doc.FileRef = item.FileRef
				doc.Status = model.DocumentPendente
				doc.MotivoRecusa = ""
				doc.RejeitadoEm = nil
				doc.AprovadoEm = nil
				if err := s.documents.Update(txCtx, doc); err != nil {
					return err
				}
			} else {
				doc := &model.Document{
					ProcessID: pid,
					Type:      item.Type,
					FileRef:   item.FileRef,
					Status:    model.DocumentPendente,
				}
				if err := s.documents.Create(txCtx, doc); err != nil {
					return err
				}
			}
		}

		// A process rejected or flagged for missing documentation returns to
		// review once the company re-submits.
		if process.Status == model.StatusRejeitadoFaltaDocs || process.Status == model.StatusPendenteDocumentacao {
			process.Status = model.StatusAguardandoAprovacao
			if err := s.processes.Update(txCtx, process); err != nil {
				return err
			}
			statusChanged = process.Status
		}

		details, _ := json.Marshal(map[string]interface{}{
			"count": len(items),
			"types": documentTypesOf(items),
		})
		if err := s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionUploadDocuments,
			EntityID:   pid.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		}); err != nil {
			return err
		}

		result, err = s.documents.ListByProcess(txCtx, pid)
		return err
	})
	if err != nil {
		return nil, err
	}

	if statusChanged != "" {
		s.publishStatus(pid, statusChanged)
	}
	return result, nil
}

// Approve marks one document as APROVADO. Approving an already approved
// document is a no-op returning the current state. When the last open
// document is approved the owning process advances automatically, computed
// under the process row lock so concurrent approvals cannot both miss it.
func (s *documentService) Approve(ctx context.Context, processID, documentID string, actorID *uuid.UUID) (*model.Document, error) {
	pid, docID, err := parseProcessAndDocumentID(processID, documentID)
	if err != nil {
		return nil, err
	}

	var result *model.Document
	var statusChanged string

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		doc, err := s.documents.FindByID(txCtx, pid, docID)
		if err != nil {
			return apperr.NotFoundf("document_not_found", "document not found")
		}

		if doc.Status == model.DocumentAprovado {
			result = doc
			return nil
		}

		now := time.Now()
		doc.Status = model.DocumentAprovado
		doc.AprovadoEm = &now
		doc.MotivoRecusa = ""
		doc.RejeitadoEm = nil
		if err := s.documents.Update(txCtx, doc); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{"type": doc.Type})
		if err := s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionApproveDocument,
			EntityID:   doc.ID.String(),
			EntityName: doc.Type,
			Details:    string(details),
		}); err != nil {
			return err
		}

		advanced, err := s.advanceIfFullyApproved(txCtx, process)
		if err != nil {
			return err
		}
		if advanced {
			statusChanged = process.Status
		}

		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged != "" {
		s.publishStatus(pid, statusChanged)
	}
	return result, nil
}

// Reject marks one document as RECUSADO with a mandatory reason. An APROVADO
// document is immutable and cannot be rejected.
func (s *documentService) Reject(ctx context.Context, processID, documentID, motivo string, actorID *uuid.UUID) (*model.Document, error) {
	pid, docID, err := parseProcessAndDocumentID(processID, documentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(motivo) == "" {
		return nil, apperr.Validationf("motivo_required", "rejection reason is required")
	}

	var result *model.Document

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.processes.FindByID(txCtx, pid); err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		doc, err := s.documents.FindByID(txCtx, pid, docID)
		if err != nil {
			return apperr.NotFoundf("document_not_found", "document not found")
		}

		if doc.Status == model.DocumentAprovado {
			return apperr.Conflictf("document_approved", "an approved document cannot be rejected")
		}

		now := time.Now()
		doc.Status = model.DocumentRecusado
		doc.MotivoRecusa = motivo
		doc.RejeitadoEm = &now
		if err := s.documents.Update(txCtx, doc); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{"type": doc.Type, "motivo": motivo})
		if err := s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionRejectDocument,
			EntityID:   doc.ID.String(),
			EntityName: doc.Type,
			Details:    string(details),
		}); err != nil {
			return err
		}

		result = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *documentService) ListByProcess(ctx context.Context, processID string) ([]model.Document, error) {
	pid, err := uuid.Parse(processID)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	return s.documents.ListByProcess(ctx, pid)
}

// advanceIfFullyApproved moves a pre-approval process to documentos_aprovados
// once the registry holds no PENDENTE and no RECUSADO documents.
func (s *documentService) advanceIfFullyApproved(txCtx context.Context, process *model.DemissaoProcess) (bool, error) {
	if !process.IsPreApproval() {
		return false, nil
	}

	pending, err := s.documents.CountByProcessAndStatus(txCtx, process.ID, model.DocumentPendente)
	if err != nil {
		return false, err
	}
	refused, err := s.documents.CountByProcessAndStatus(txCtx, process.ID, model.DocumentRecusado)
	if err != nil {
		return false, err
	}
	if pending > 0 || refused > 0 {
		return false, nil
	}

	total, err := s.documents.CountByProcess(txCtx, process.ID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	process.Status = model.StatusDocumentosAprovados
	if err := s.processes.Update(txCtx, process); err != nil {
		return false, err
	}

	if err := s.audit.Create(txCtx, &model.AuditLog{
		Action:     model.ActionApproveDocs,
		EntityID:   process.ID.String(),
		EntityName: process.NomeFuncionario,
		Details:    `{"trigger":"last_document_approved"}`,
	}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *documentService) publishStatus(processID uuid.UUID, status string) {
	if s.publisher != nil {
		s.publisher.PublishProcessStatus(processID, status)
	}
}

// --- Helpers ---

func parseProcessAndDocumentID(processID, documentID string) (uuid.UUID, uuid.UUID, error) {
	pid, err := uuid.Parse(processID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	docID, err := uuid.Parse(documentID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validationf("invalid_document_id", "invalid document id")
	}
	return pid, docID, nil
}

func documentTypesOf(items []UploadItem) []string {
	types := make([]string, 0, len(items))
	for _, item := range items {
		types = append(types, item.Type)
	}
	return types
}
