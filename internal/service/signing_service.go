package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/notify"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- DTOs ---

type SignResult struct {
	AllSigned bool `json:"all_signed"`
}

type PartyStatus struct {
	Role     string  `json:"role"`
	Name     string  `json:"name"`
	Signed   bool    `json:"signed"`
	SignedAt *string `json:"signed_at"`
}

type SessionStatusResponse struct {
	SessionID   string        `json:"session_id"`
	ProcessID   string        `json:"process_id"`
	IsCompleted bool          `json:"is_completed"`
	Parties     []PartyStatus `json:"parties"`
	CreatedAt   string        `json:"created_at"`
	CompletedAt *string       `json:"completed_at"`
}

type EvidenceResponse struct {
	SessionID    string                `json:"session"`
	HashOriginal string                `json:"hash_original"`
	IsCompleted  bool                  `json:"is_completed"`
	Events       []model.EvidenceEvent `json:"events"`
}

// --- Interface ---

type SigningService interface {
	// EnsureSession creates the signing session of a process with its three
	// parties, or returns the existing one. It joins the caller's
	// transaction context.
	EnsureSession(ctx context.Context, process *model.DemissaoProcess, meta RequestMeta) (*model.SigningSession, error)
	SendOTP(ctx context.Context, sessionID, role, token string, authenticated bool, meta RequestMeta) error
	VerifyAndSign(ctx context.Context, sessionID, role, otp string, consent bool, token string, authenticated bool, meta RequestMeta) (*SignResult, error)
	Status(ctx context.Context, sessionID string) (*SessionStatusResponse, error)
	Evidence(ctx context.Context, sessionID string) (*EvidenceResponse, error)
}

type signingService struct {
	sessions   repository.SigningRepository
	processes  repository.ProcessRepository
	audit      repository.AuditRepository
	txManager  repository.TransactionManager
	dispatcher notify.Dispatcher
	publisher  StatusPublisher
}

func NewSigningService(
	sessions repository.SigningRepository,
	processes repository.ProcessRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	dispatcher notify.Dispatcher,
	publisher StatusPublisher,
) SigningService {
	return &signingService{
		sessions:   sessions,
		processes:  processes,
		audit:      audit,
		txManager:  txManager,
		dispatcher: dispatcher,
		publisher:  publisher,
	}
}

func otpTTL() time.Duration {
	if raw := os.Getenv("OTP_TTL_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 10 * time.Minute
}

func magicLinkTTL() time.Duration {
	if raw := os.Getenv("MAGIC_LINK_TTL_SECONDS"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 48 * time.Hour
}

// --- Implementation ---

func (s *signingService) EnsureSession(ctx context.Context, process *model.DemissaoProcess, meta RequestMeta) (*model.SigningSession, error) {
	if existing, err := s.sessions.FindSessionByProcess(ctx, process.ID); err == nil {
		return existing, nil
	}

	docRef := homologationTermRef(process.Documents)
	session := &model.SigningSession{
		ProcessID:    process.ID,
		DocumentRef:  docRef,
		HashOriginal: hashSecret(docRef),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	parties := []model.Party{
		{
			SessionID: session.ID,
			Role:      model.PartyCompany,
			Name:      companyPartyName(process),
			Email:     companyPartyEmail(process),
			Phone:     companyPartyPhone(process),
		},
		{
			SessionID: session.ID,
			Role:      model.PartyUnion,
			Name:      unionPartyName(process),
			Email:     unionPartyEmail(process),
			Phone:     unionPartyPhone(process),
		},
		{
			SessionID: session.ID,
			Role:      model.PartyEmployee,
			Name:      process.NomeFuncionario,
			CPF:       process.CPFFuncionario,
			Email:     process.EmailFuncionario,
			Phone:     process.FoneFuncionario,
		},
	}
	for i := range parties {
		if err := s.sessions.CreateParty(ctx, &parties[i]); err != nil {
			return nil, err
		}
	}
	session.Parties = parties

	if err := s.recordEvent(ctx, session.ID, nil, model.EventSessionCreated, meta, map[string]interface{}{
		"process_id": process.ID.String(),
	}); err != nil {
		return nil, err
	}

	if err := s.issueEmployeeLink(ctx, session, meta); err != nil {
		return nil, err
	}

	return session, nil
}

// issueEmployeeLink generates the tokenized public link for the employee
// party, who has no platform login. Only the hash is stored.
func (s *signingService) issueEmployeeLink(ctx context.Context, session *model.SigningSession, meta RequestMeta) error {
	employee := session.PartyByRole(model.PartyEmployee)
	if employee == nil {
		return apperr.Internalf(nil, "session has no employee party")
	}

	token, err := generateMagicToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(magicLinkTTL())
	employee.MagicLinkHash = hashSecret(token)
	employee.MagicLinkExpiresAt = &expires
	if err := s.sessions.UpdateParty(ctx, employee); err != nil {
		return err
	}

	if err := s.recordEvent(ctx, session.ID, &employee.ID, model.EventEmployeeLinkGenerated, meta, nil); err != nil {
		return err
	}

	frontend := os.Getenv("FRONTEND_BASE_URL")
	if frontend == "" {
		frontend = "http://localhost:3001"
	}
	url := fmt.Sprintf("%s/assinaturas/convite/%s?sid=%s", frontend, token, session.ID)

	s.dispatch(func() error {
		return s.dispatcher.SendEmployeeLink(context.Background(), notify.Contact{
			Name:  employee.Name,
			Email: employee.Email,
			Phone: employee.Phone,
		}, url)
	})
	return nil
}

// SendOTP issues a fresh one-time code for a party, replacing any code issued
// before. The EMPLOYEE party authenticates with its magic link token; the
// other roles require a logged-in user.
func (s *signingService) SendOTP(ctx context.Context, sessionID, role, token string, authenticated bool, meta RequestMeta) error {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return apperr.Validationf("invalid_session_id", "invalid session id")
	}
	if !model.IsValidPartyRole(role) {
		return apperr.Validationf("invalid_role", "invalid signing role: %s", role)
	}

	var contact notify.Contact
	var code string

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.FindSessionByIDForUpdate(txCtx, sid)
		if err != nil {
			return apperr.NotFoundf("session_not_found", "signing session not found")
		}

		party := session.PartyByRole(role)
		if party == nil {
			return apperr.NotFoundf("party_not_found", "no party with role %s in this session", role)
		}
		if err := s.authorizeParty(party, role, token, authenticated); err != nil {
			return err
		}
		if party.Signed() {
			return apperr.Conflictf("already_signed", "party %s has already signed", role)
		}

		code, err = generateOTP()
		if err != nil {
			return err
		}
		expires := time.Now().Add(otpTTL())
		party.OTPHash = hashSecret(code)
		party.OTPExpiresAt = &expires
		if err := s.sessions.UpdateParty(txCtx, party); err != nil {
			return err
		}

		contact = notify.Contact{Name: party.Name, Email: party.Email, Phone: party.Phone}
		return s.recordEvent(txCtx, session.ID, &party.ID, model.EventOTPSent, meta, nil)
	})
	if err != nil {
		return err
	}

	s.dispatch(func() error {
		return s.dispatcher.SendOTP(context.Background(), contact, code)
	})
	return nil
}

// VerifyAndSign validates consent, the employee magic token and the OTP, then
// records the signature. The party update and the all-signed check run in one
// locked transaction so two parties signing at once cannot both miss the
// completion. A consumed OTP hash is cleared and cannot be replayed.
func (s *signingService) VerifyAndSign(ctx context.Context, sessionID, role, otp string, consent bool, token string, authenticated bool, meta RequestMeta) (*SignResult, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperr.Validationf("invalid_session_id", "invalid session id")
	}
	if !model.IsValidPartyRole(role) {
		return nil, apperr.Validationf("invalid_role", "invalid signing role: %s", role)
	}
	if !consent {
		return nil, apperr.Validationf("consent_required", "explicit consent is required to sign")
	}

	var result SignResult
	var finalizedProcessID uuid.UUID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.FindSessionByIDForUpdate(txCtx, sid)
		if err != nil {
			return apperr.NotFoundf("session_not_found", "signing session not found")
		}

		party := session.PartyByRole(role)
		if party == nil {
			return apperr.NotFoundf("party_not_found", "no party with role %s in this session", role)
		}
		if err := s.authorizeParty(party, role, token, authenticated); err != nil {
			return err
		}

		// A consumed code leaves no hash behind, so a replay after a
		// successful signature fails here as an auth refusal.
		if party.OTPHash == "" {
			return apperr.Authf("invalid_otp", "no active verification code")
		}
		if party.OTPExpiresAt == nil || time.Now().After(*party.OTPExpiresAt) {
			return apperr.Authf("otp_expired", "the verification code has expired")
		}
		if !verifySecret(otp, party.OTPHash) {
			return apperr.Authf("invalid_otp", "invalid verification code")
		}

		now := time.Now()
		party.SignedAt = &now
		party.SignedIP = meta.IP
		party.SignedUserAgent = meta.UserAgent
		party.ConsentRecorded = true
		// Single use: the consumed code is gone even inside its validity
		// window, and the employee link dies with the signature.
		party.OTPHash = ""
		party.OTPExpiresAt = nil
		if role == model.PartyEmployee {
			party.MagicLinkHash = ""
			party.MagicLinkExpiresAt = nil
		}
		if err := s.sessions.UpdateParty(txCtx, party); err != nil {
			return err
		}

		if err := s.recordEvent(txCtx, session.ID, &party.ID, model.EventConsentGiven, meta, map[string]interface{}{"consent": true}); err != nil {
			return err
		}
		if err := s.recordEvent(txCtx, session.ID, &party.ID, model.EventSigned, meta, map[string]interface{}{"name": party.Name, "cpf": party.CPF}); err != nil {
			return err
		}

		if session.AllSigned() && !session.IsCompleted {
			if err := s.finalizeSession(txCtx, session, meta); err != nil {
				return err
			}
			finalizedProcessID = session.ProcessID
		}

		result = SignResult{AllSigned: session.IsCompleted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if finalizedProcessID != uuid.Nil && s.publisher != nil {
		s.publisher.PublishProcessStatus(finalizedProcessID, model.StatusFinalizado)
	}
	return &result, nil
}

// finalizeSession seals the completed ceremony and advances the owning
// process to its terminal finalizado state. This is the only system-driven
// process transition.
func (s *signingService) finalizeSession(txCtx context.Context, session *model.SigningSession, meta RequestMeta) error {
	signedParties := make([]map[string]interface{}, 0, len(session.Parties))
	for i := range session.Parties {
		p := &session.Parties[i]
		signedParties = append(signedParties, map[string]interface{}{
			"role": p.Role,
			"cpf":  p.CPF,
			"at":   p.SignedAt.Format(time.RFC3339),
		})
	}

	seal := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session":        session.ID.String(),
		"hash_original":  session.HashOriginal,
		"signed_parties": signedParties,
		"issued_at":      time.Now().Unix(),
	})
	sealString, err := seal.SignedString(signingSecret())
	if err != nil {
		return err
	}

	now := time.Now()
	session.SealJWS = sealString
	session.IsCompleted = true
	session.CompletedAt = &now
	if err := s.sessions.UpdateSession(txCtx, session); err != nil {
		return err
	}

	if err := s.recordEvent(txCtx, session.ID, nil, model.EventFinalSeal, meta, map[string]interface{}{"jws": sealString}); err != nil {
		return err
	}
	if err := s.recordEvent(txCtx, session.ID, nil, model.EventFinalized, meta, nil); err != nil {
		return err
	}

	process, err := s.processes.FindByIDForUpdate(txCtx, session.ProcessID)
	if err != nil {
		return err
	}
	process.Status = model.StatusFinalizado
	process.AssinadoEmpresa = true
	process.AssinadoSindicato = true
	process.AssinadoTrabalhador = true
	process.DataTermino = &now
	if err := s.processes.Update(txCtx, process); err != nil {
		return err
	}

	return s.audit.Create(txCtx, &model.AuditLog{
		Action:     model.ActionFinalizeProcess,
		EntityID:   process.ID.String(),
		EntityName: process.NomeFuncionario,
		Details:    `{"trigger":"signing_session_completed"}`,
	})
}

func (s *signingService) Status(ctx context.Context, sessionID string) (*SessionStatusResponse, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperr.Validationf("invalid_session_id", "invalid session id")
	}
	session, err := s.sessions.FindSessionByID(ctx, sid)
	if err != nil {
		return nil, apperr.NotFoundf("session_not_found", "signing session not found")
	}

	resp := &SessionStatusResponse{
		SessionID:   session.ID.String(),
		ProcessID:   session.ProcessID.String(),
		IsCompleted: session.IsCompleted,
		CreatedAt:   session.CreatedAt.Format(time.RFC3339),
	}
	if session.CompletedAt != nil {
		completedAt := session.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completedAt
	}
	for _, role := range model.PartyRoles {
		party := session.PartyByRole(role)
		if party == nil {
			continue
		}
		status := PartyStatus{Role: party.Role, Name: party.Name, Signed: party.Signed()}
		if party.SignedAt != nil {
			signedAt := party.SignedAt.Format(time.RFC3339)
			status.SignedAt = &signedAt
		}
		resp.Parties = append(resp.Parties, status)
	}
	return resp, nil
}

func (s *signingService) Evidence(ctx context.Context, sessionID string) (*EvidenceResponse, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperr.Validationf("invalid_session_id", "invalid session id")
	}
	session, err := s.sessions.FindSessionByID(ctx, sid)
	if err != nil {
		return nil, apperr.NotFoundf("session_not_found", "signing session not found")
	}
	events, err := s.sessions.ListEvents(ctx, sid)
	if err != nil {
		return nil, err
	}
	return &EvidenceResponse{
		SessionID:    session.ID.String(),
		HashOriginal: session.HashOriginal,
		IsCompleted:  session.IsCompleted,
		Events:       events,
	}, nil
}

// authorizeParty gates access per role: the employee presents the magic
// token bound to its session and role, everyone else must be authenticated.
func (s *signingService) authorizeParty(party *model.Party, role, token string, authenticated bool) error {
	if role != model.PartyEmployee {
		if !authenticated {
			return apperr.Authf("authentication_required", "authentication required for role %s", role)
		}
		return nil
	}
	if authenticated {
		// A logged-in union or company user may also drive the employee
		// flow during an assisted in-person signature.
		return nil
	}
	if token == "" || !verifySecret(token, party.MagicLinkHash) {
		return apperr.Authf("invalid_link", "invalid signing link")
	}
	if party.MagicLinkExpiresAt == nil || time.Now().After(*party.MagicLinkExpiresAt) {
		return apperr.Authf("link_expired", "the signing link has expired")
	}
	return nil
}

func (s *signingService) recordEvent(ctx context.Context, sessionID uuid.UUID, partyID *uuid.UUID, eventType string, meta RequestMeta, payload map[string]interface{}) error {
	event := &model.EvidenceEvent{
		SessionID: sessionID,
		PartyID:   partyID,
		Type:      eventType,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if payload != nil {
		raw, _ := json.Marshal(payload)
		event.Payload = string(raw)
	}
	return s.sessions.RecordEvent(ctx, event)
}

// dispatch runs a notification send and logs the failure; delivery problems
// never fail the workflow request.
func (s *signingService) dispatch(send func() error) {
	if s.dispatcher == nil {
		return
	}
	if err := send(); err != nil {
		log.Printf("notification dispatch failed: %v", err)
	}
}

// --- Helpers ---

// homologationTermRef picks the document the parties are signing: the
// homologation term when present, the severance term otherwise.
func homologationTermRef(docs []model.Document) string {
	var fallback string
	for _, doc := range docs {
		switch doc.Type {
		case "TERMO_HOMOLOGACAO", "HOMOLOGACAO":
			return doc.FileRef
		case "RESCISAO":
			fallback = doc.FileRef
		}
	}
	return fallback
}

func companyPartyName(p *model.DemissaoProcess) string {
	if p.Company != nil {
		return p.Company.Name
	}
	return "Empresa"
}

func companyPartyEmail(p *model.DemissaoProcess) string {
	if p.Company != nil {
		return p.Company.Email
	}
	return ""
}

func companyPartyPhone(p *model.DemissaoProcess) string {
	if p.Company != nil {
		return p.Company.Phone
	}
	return ""
}

func unionPartyName(p *model.DemissaoProcess) string {
	if p.Union != nil {
		return p.Union.Name
	}
	return "Sindicato"
}

func unionPartyEmail(p *model.DemissaoProcess) string {
	if p.Union != nil {
		return p.Union.Email
	}
	return ""
}

func unionPartyPhone(p *model.DemissaoProcess) string {
	if p.Union != nil {
		return p.Union.Phone
	}
	return ""
}
