package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/google/uuid"
)

// placeholderMeetLink is what the scheduling side stores before a real room
// exists; it never reaches a process.
const placeholderMeetLink = "https://meet.google.com"

// --- DTOs ---

type CreateProcessRequest struct {
	NomeFuncionario  string `json:"nome_funcionario" binding:"required"`
	EmailFuncionario string `json:"email_funcionario" binding:"omitempty,email"`
	FoneFuncionario  string `json:"telefone_funcionario"`
	CPFFuncionario   string `json:"cpf_funcionario"`
	Motivo           string `json:"motivo" binding:"required"`
	Exame            string `json:"exame"`
	CompanyID        string `json:"company_id" binding:"required"`
	UnionID          string `json:"union_id" binding:"required"`
}

type ScheduleMeetingRequest struct {
	Start       string `json:"start" binding:"required"` // RFC 3339
	End         string `json:"end" binding:"required"`
	UnionUserID string `json:"union_user_id"`
	VideoLink   string `json:"video_link"`
}

type FinalizeMeetingResult struct {
	Process   *model.DemissaoProcess `json:"process"`
	SessionID string                 `json:"session_id"`
	Completed bool                   `json:"session_completed"`
}

type ProcessListFilter struct {
	CompanyID string
	UnionID   string
	Status    string
	Page      int
	Limit     int
}

// --- Interface ---

type ProcessService interface {
	Create(ctx context.Context, req CreateProcessRequest, actorID *uuid.UUID) (*model.DemissaoProcess, error)
	Get(ctx context.Context, id string) (*model.DemissaoProcess, error)
	List(ctx context.Context, filter ProcessListFilter) ([]model.DemissaoProcess, int64, error)
	AprovarDocumentacao(ctx context.Context, id string, actorID *uuid.UUID) (*model.DemissaoProcess, error)
	RejeitarProcesso(ctx context.Context, id, motivo string, actorID *uuid.UUID) (*model.DemissaoProcess, error)
	Agendar(ctx context.Context, id string, req ScheduleMeetingRequest, actorID *uuid.UUID) (*model.DemissaoProcess, error)
	AvancarEtapa(ctx context.Context, id string, actorID *uuid.UUID) (*model.DemissaoProcess, error)
	SalvarRessalva(ctx context.Context, id, ressalvas string, actorID *uuid.UUID) error
	FinalizarReuniao(ctx context.Context, id string, actorID *uuid.UUID, meta RequestMeta) (*FinalizeMeetingResult, error)
	SyncVideoLink(ctx context.Context, id string) (string, error)
}

type processService struct {
	processes repository.ProcessRepository
	documents repository.DocumentRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	signing   SigningService
	publisher StatusPublisher
}

func NewProcessService(
	processes repository.ProcessRepository,
	documents repository.DocumentRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	signing SigningService,
	publisher StatusPublisher,
) ProcessService {
	return &processService{
		processes: processes,
		documents: documents,
		audit:     audit,
		txManager: txManager,
		signing:   signing,
		publisher: publisher,
	}
}

// --- Implementation ---

func (s *processService) Create(ctx context.Context, req CreateProcessRequest, actorID *uuid.UUID) (*model.DemissaoProcess, error) {
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return nil, apperr.Validationf("invalid_company_id", "invalid company id")
	}
	unionID, err := uuid.Parse(req.UnionID)
	if err != nil {
		return nil, apperr.Validationf("invalid_union_id", "invalid union id")
	}

	process := &model.DemissaoProcess{
		NomeFuncionario:  req.NomeFuncionario,
		EmailFuncionario: req.EmailFuncionario,
		FoneFuncionario:  req.FoneFuncionario,
		CPFFuncionario:   req.CPFFuncionario,
		Motivo:           req.Motivo,
		Exame:            req.Exame,
		CompanyID:        companyID,
		UnionID:          unionID,
		Status:           model.StatusAguardandoAprovacao,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.processes.Create(txCtx, process); err != nil {
			return err
		}
		details, _ := json.Marshal(map[string]interface{}{
			"company_id": companyID.String(),
			"union_id":   unionID.String(),
		})
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionCreateProcess,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}
	return process, nil
}

func (s *processService) Get(ctx context.Context, id string) (*model.DemissaoProcess, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	process, err := s.processes.FindByIDWithDocuments(ctx, pid)
	if err != nil {
		return nil, apperr.NotFoundf("process_not_found", "process not found")
	}
	return process, nil
}

func (s *processService) List(ctx context.Context, filter ProcessListFilter) ([]model.DemissaoProcess, int64, error) {
	repoFilter := repository.ProcessFilter{Status: filter.Status}
	if filter.CompanyID != "" {
		id, err := uuid.Parse(filter.CompanyID)
		if err != nil {
			return nil, 0, apperr.Validationf("invalid_company_id", "invalid company id")
		}
		repoFilter.CompanyID = &id
	}
	if filter.UnionID != "" {
		id, err := uuid.Parse(filter.UnionID)
		if err != nil {
			return nil, 0, apperr.Validationf("invalid_union_id", "invalid union id")
		}
		repoFilter.UnionID = &id
	}

	page, limit := filter.Page, filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.processes.List(ctx, repoFilter, page, limit)
}

// AprovarDocumentacao is the union's explicit aggregate approval; it is only
// legal once every document of the process is APROVADO.
func (s *processService) AprovarDocumentacao(ctx context.Context, id string, actorID *uuid.UUID) (*model.DemissaoProcess, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}

	var process *model.DemissaoProcess
	var statusChanged bool

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		process, err = s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		// Repeating the approval after the process moved on is a no-op.
		if !process.IsPreApproval() {
			if process.Status == model.StatusRejeitadoFaltaDocs {
				return apperr.Statef("process_rejected", "process was terminally rejected")
			}
			return nil
		}

		pending, err := s.documents.CountByProcessAndStatus(txCtx, pid, model.DocumentPendente)
		if err != nil {
			return err
		}
		if pending > 0 {
			return apperr.Statef("documentos_pendentes", "there are documents pending review")
		}
		refused, err := s.documents.CountByProcessAndStatus(txCtx, pid, model.DocumentRecusado)
		if err != nil {
			return err
		}
		if refused > 0 {
			return apperr.Statef("documentos_recusados", "there are refused documents that must be corrected")
		}
		total, err := s.documents.CountByProcess(txCtx, pid)
		if err != nil {
			return err
		}
		if total == 0 {
			return apperr.Statef("sem_documentos", "no documents were submitted")
		}

		process.Status = model.StatusDocumentosAprovados
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}
		statusChanged = true

		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionApproveDocs,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    `{"trigger":"aggregate_approval"}`,
		})
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStatus(pid, process.Status)
	}
	return process, nil
}

// RejeitarProcesso is the union's terminal rejection for missing
// documentation, legal only while the process is still under review.
func (s *processService) RejeitarProcesso(ctx context.Context, id, motivo string, actorID *uuid.UUID) (*model.DemissaoProcess, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}
	if strings.TrimSpace(motivo) == "" {
		return nil, apperr.Validationf("motivo_required", "rejection reason is required")
	}

	var process *model.DemissaoProcess
	var statusChanged bool

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		process, err = s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		if process.Status == model.StatusRejeitadoFaltaDocs {
			return nil
		}
		if !process.IsPreApproval() {
			return apperr.Statef("invalid_state", "process can no longer be rejected (status: %s)", process.Status)
		}

		now := time.Now()
		process.Status = model.StatusRejeitadoFaltaDocs
		process.MotivoRejeicao = motivo
		process.DataRejeicao = &now
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}
		statusChanged = true

		details, _ := json.Marshal(map[string]interface{}{"motivo": motivo})
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionRejectProcess,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStatus(pid, process.Status)
	}
	return process, nil
}

// Agendar attaches the homologation meeting slot and its video link, moving
// the process from documentos_aprovados to agendado.
func (s *processService) Agendar(ctx context.Context, id string, req ScheduleMeetingRequest, actorID *uuid.UUID) (*model.DemissaoProcess, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, apperr.Validationf("invalid_start", "start must be RFC 3339")
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, apperr.Validationf("invalid_end", "end must be RFC 3339")
	}
	if !end.After(start) {
		return nil, apperr.Validationf("invalid_slot", "end must be after start")
	}

	videoLink := ""
	if req.VideoLink != "" {
		videoLink, err = normalizeVideoLink(req.VideoLink)
		if err != nil {
			return nil, err
		}
	}

	var unionUserID *uuid.UUID
	if req.UnionUserID != "" {
		parsed, err := uuid.Parse(req.UnionUserID)
		if err != nil {
			return nil, apperr.Validationf("invalid_union_user_id", "invalid union user id")
		}
		unionUserID = &parsed
	}

	var process *model.DemissaoProcess

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		process, err = s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}
		if process.Status != model.StatusDocumentosAprovados {
			return apperr.Statef("invalid_state", "process must have approved documentation to be scheduled (status: %s)", process.Status)
		}

		schedule := &model.Schedule{
			ProcessID:   pid,
			UnionUserID: unionUserID,
			StartsAt:    start,
			EndsAt:      end,
			VideoLink:   videoLink,
			Status:      "agendado",
		}
		if err := s.processes.CreateSchedule(txCtx, schedule); err != nil {
			return err
		}

		process.Status = model.StatusAgendado
		process.ScheduledStart = &start
		process.ScheduledEnd = &end
		process.VideoLink = videoLink
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"starts_at": start.Format(time.RFC3339),
			"ends_at":   end.Format(time.RFC3339),
		})
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionScheduleMeeting,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(pid, process.Status)
	return process, nil
}

// AvancarEtapa is the explicit stage advance. Most transitions have their own
// dedicated action; this covers review completion and meeting start.
func (s *processService) AvancarEtapa(ctx context.Context, id string, actorID *uuid.UUID) (*model.DemissaoProcess, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}

	var process *model.DemissaoProcess

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		process, err = s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		var next string
		switch {
		case process.IsPreApproval():
			pending, err := s.documents.CountByProcessAndStatus(txCtx, pid, model.DocumentPendente)
			if err != nil {
				return err
			}
			if pending > 0 {
				return apperr.Statef("documentos_pendentes", "there are documents pending review")
			}
			refused, err := s.documents.CountByProcessAndStatus(txCtx, pid, model.DocumentRecusado)
			if err != nil {
				return err
			}
			if refused > 0 {
				return apperr.Statef("documentos_recusados", "there are refused documents that must be corrected")
			}
			next = model.StatusDocumentosAprovados
		case process.Status == model.StatusAgendado:
			if strings.TrimSpace(process.Ressalvas) == "" {
				return apperr.Statef("ressalvas_required", "ressalvas must be recorded before advancing")
			}
			next = model.StatusEmVideoconferencia
		default:
			return apperr.Statef("invalid_state", "cannot advance from status: %s", process.Status)
		}

		process.Status = next
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{"next": next})
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionAdvanceStage,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
			Details:    string(details),
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishStatus(pid, process.Status)
	return process, nil
}

func (s *processService) SalvarRessalva(ctx context.Context, id, ressalvas string, actorID *uuid.UUID) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validationf("invalid_process_id", "invalid process id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByID(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}
		process.Ressalvas = ressalvas
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}
		return s.audit.Create(txCtx, &model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionSaveRessalvas,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
		})
	})
}

// FinalizarReuniao closes the homologation meeting and opens the signature
// stage, creating the signing session when it does not exist yet. Calling it
// again while signatures are pending is a no-op returning the session, and a
// completed session short-circuits to success.
func (s *processService) FinalizarReuniao(ctx context.Context, id string, actorID *uuid.UUID, meta RequestMeta) (*FinalizeMeetingResult, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validationf("invalid_process_id", "invalid process id")
	}

	var result FinalizeMeetingResult
	var statusChanged bool

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		switch process.Status {
		case model.StatusAgendado, model.StatusEmVideoconferencia, model.StatusDocumentosAprovados:
			// proceed
		case model.StatusAssinaturaPendente, model.StatusFinalizado:
			// idempotent retry
		default:
			return apperr.Statef("invalid_state",
				"process must be scheduled or have approved documentation to finalize the meeting (status: %s)", process.Status)
		}

		// EnsureSession needs documents and organizations hydrated.
		full, err := s.processes.FindByIDWithDocuments(txCtx, pid)
		if err != nil {
			return err
		}
		full.Status = process.Status

		session, err := s.signing.EnsureSession(txCtx, full, meta)
		if err != nil {
			return err
		}
		result.SessionID = session.ID.String()
		result.Completed = session.IsCompleted

		if process.Status != model.StatusAssinaturaPendente && process.Status != model.StatusFinalizado {
			process.Status = model.StatusAssinaturaPendente
			if err := s.processes.Update(txCtx, process); err != nil {
				return err
			}
			statusChanged = true

			if schedule, err := s.processes.LatestScheduleForProcess(txCtx, pid); err == nil && schedule.Status == "agendado" {
				schedule.Status = "finalizado"
				if err := s.processes.UpdateSchedule(txCtx, schedule); err != nil {
					return err
				}
			}

			if err := s.audit.Create(txCtx, &model.AuditLog{
				UserID:     actorID,
				Action:     model.ActionFinalizeMeeting,
				EntityID:   process.ID.String(),
				EntityName: process.NomeFuncionario,
			}); err != nil {
				return err
			}
		}

		result.Process = process
		return nil
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStatus(pid, result.Process.Status)
	}
	return &result, nil
}

// SyncVideoLink copies the real meeting link from the latest schedule onto
// the process. Placeholder links never propagate.
func (s *processService) SyncVideoLink(ctx context.Context, id string) (string, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Validationf("invalid_process_id", "invalid process id")
	}

	var link string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		process, err := s.processes.FindByID(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("process_not_found", "process not found")
		}

		schedule, err := s.processes.LatestScheduleForProcess(txCtx, pid)
		if err != nil {
			return apperr.NotFoundf("schedule_not_found", "no meeting was scheduled for this process")
		}

		if schedule.VideoLink == "" || schedule.VideoLink == placeholderMeetLink {
			return apperr.NotFoundf("link_not_ready", "the meeting link was not created yet")
		}

		process.VideoLink = schedule.VideoLink
		if err := s.processes.Update(txCtx, process); err != nil {
			return err
		}

		link = schedule.VideoLink
		return s.audit.Create(txCtx, &model.AuditLog{
			Action:     model.ActionSyncVideoLink,
			EntityID:   process.ID.String(),
			EntityName: process.NomeFuncionario,
		})
	})
	if err != nil {
		return "", err
	}
	return link, nil
}

func (s *processService) publishStatus(processID uuid.UUID, status string) {
	if s.publisher != nil {
		s.publisher.PublishProcessStatus(processID, status)
	}
}

// normalizeVideoLink validates a meeting link once, at attach time. Reads
// never re-validate; a stored link is trusted.
func normalizeVideoLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + strings.TrimLeft(raw, "/")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", apperr.Validationf("invalid_video_link", "invalid video conference link")
	}
	if parsed.Scheme != "https" {
		return "", apperr.Validationf("invalid_video_link", "video conference link must use https")
	}
	if raw == placeholderMeetLink {
		return "", apperr.Validationf("invalid_video_link", "placeholder link is not a usable meeting room")
	}
	return raw, nil
}
