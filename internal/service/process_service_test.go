package service

import (
	"context"
	"testing"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"
)

func TestCreateProcessStartsAwaitingReview(t *testing.T) {
	env := newTestEnv(t)
	company, union := env.createOrgs(t)

	process, err := env.processes.Create(context.Background(), CreateProcessRequest{
		NomeFuncionario:  "Maria Souza",
		EmailFuncionario: "maria@example.com",
		Motivo:           "sem_justa_causa",
		CompanyID:        company.ID.String(),
		UnionID:          union.ID.String(),
	}, nil)
	if err != nil {
		t.Fatalf("create process: %v", err)
	}
	if process.Status != model.StatusAguardandoAprovacao {
		t.Errorf("status = %s, want %s", process.Status, model.StatusAguardandoAprovacao)
	}
}

func TestAprovarDocumentacaoRequiresCleanDocumentSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	// No documents at all.
	if _, err := env.processes.AprovarDocumentacao(ctx, process.ID.String(), nil); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("expected state error with no documents, got %v", err)
	}

	docs := env.uploadDocs(t, process.ID, "RESCISAO", "CTPS")

	// Pending documents block the aggregate approval.
	if _, err := env.processes.AprovarDocumentacao(ctx, process.ID.String(), nil); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("expected state error with pending documents, got %v", err)
	}

	if _, err := env.documents.Approve(ctx, process.ID.String(), docs[0].ID.String(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.documents.Reject(ctx, process.ID.String(), docs[1].ID.String(), "rasurado", nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// A refused document blocks it too.
	if _, err := env.processes.AprovarDocumentacao(ctx, process.ID.String(), nil); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("expected state error with refused documents, got %v", err)
	}
}

func TestAprovarDocumentacaoIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO")
	if _, err := env.documents.Approve(ctx, process.ID.String(), docs[0].ID.String(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Auto-advance already moved the process; the explicit call is a no-op.
	result, err := env.processes.AprovarDocumentacao(ctx, process.ID.String(), nil)
	if err != nil {
		t.Fatalf("aprovar documentacao after auto-advance: %v", err)
	}
	if result.Status != model.StatusDocumentosAprovados {
		t.Errorf("status = %s, want %s", result.Status, model.StatusDocumentosAprovados)
	}
}

func TestRejeitarProcessoIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	if _, err := env.processes.RejeitarProcesso(ctx, process.ID.String(), "", nil); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("empty reason must be refused, got %v", err)
	}

	rejected, err := env.processes.RejeitarProcesso(ctx, process.ID.String(), "documentação incompleta", nil)
	if err != nil {
		t.Fatalf("rejeitar processo: %v", err)
	}
	if rejected.Status != model.StatusRejeitadoFaltaDocs {
		t.Errorf("status = %s, want %s", rejected.Status, model.StatusRejeitadoFaltaDocs)
	}
	if rejected.MotivoRejeicao == "" || rejected.DataRejeicao == nil {
		t.Error("rejection metadata missing")
	}

	// Repeating is a no-op, not an error.
	if _, err := env.processes.RejeitarProcesso(ctx, process.ID.String(), "de novo", nil); err != nil {
		t.Fatalf("repeated rejection should be a no-op, got %v", err)
	}
	if got := env.reloadProcess(t, process.ID).MotivoRejeicao; got != "documentação incompleta" {
		t.Errorf("repeat must not overwrite the reason, got %q", got)
	}
}

func TestRejeitarProcessoOnlyBeforeApproval(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAgendado)

	_, err := env.processes.RejeitarProcesso(context.Background(), process.ID.String(), "tarde demais", nil)
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("rejection after approval must be a state error, got %v", err)
	}
}

func TestAgendarRequiresApprovedDocumentation(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	req := ScheduleMeetingRequest{
		Start: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		End:   time.Now().Add(25 * time.Hour).Format(time.RFC3339),
	}
	_, err := env.processes.Agendar(context.Background(), process.ID.String(), req, nil)
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("scheduling before approval must be a state error, got %v", err)
	}
}

func TestAgendarStoresSlotAndLink(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusDocumentosAprovados)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)
	scheduled, err := env.processes.Agendar(context.Background(), process.ID.String(), ScheduleMeetingRequest{
		Start:     start.Format(time.RFC3339),
		End:       end.Format(time.RFC3339),
		VideoLink: "https://meet.google.com/abc-defg-hij",
	}, nil)
	if err != nil {
		t.Fatalf("agendar: %v", err)
	}
	if scheduled.Status != model.StatusAgendado {
		t.Errorf("status = %s, want %s", scheduled.Status, model.StatusAgendado)
	}
	if scheduled.ScheduledStart == nil || !scheduled.ScheduledStart.Equal(start) {
		t.Error("scheduled start not stored")
	}
	if scheduled.VideoLink != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("video link = %s", scheduled.VideoLink)
	}
}

func TestAgendarRefusesBadLinks(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusDocumentosAprovados)

	base := ScheduleMeetingRequest{
		Start: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		End:   time.Now().Add(25 * time.Hour).Format(time.RFC3339),
	}

	for _, link := range []string{"http://meet.example.com/x", "https://", "https://meet.google.com"} {
		req := base
		req.VideoLink = link
		if _, err := env.processes.Agendar(context.Background(), process.ID.String(), req, nil); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("link %q must be refused, got %v", link, err)
		}
	}
}

func TestAvancarEtapaNeedsRessalvas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusAgendado)

	if _, err := env.processes.AvancarEtapa(ctx, process.ID.String(), nil); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("advance without ressalvas must be a state error, got %v", err)
	}

	if err := env.processes.SalvarRessalva(ctx, process.ID.String(), "sem ressalvas do sindicato", nil); err != nil {
		t.Fatalf("salvar ressalva: %v", err)
	}
	advanced, err := env.processes.AvancarEtapa(ctx, process.ID.String(), nil)
	if err != nil {
		t.Fatalf("avancar etapa: %v", err)
	}
	if advanced.Status != model.StatusEmVideoconferencia {
		t.Errorf("status = %s, want %s", advanced.Status, model.StatusEmVideoconferencia)
	}
}

func TestFinalizarReuniaoRequiresMeetingStage(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	_, err := env.processes.FinalizarReuniao(context.Background(), process.ID.String(), nil, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("finalizing from review must be a state error, got %v", err)
	}
}

func TestSyncVideoLinkIgnoresPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusDocumentosAprovados)

	// No schedule at all.
	if _, err := env.processes.SyncVideoLink(ctx, process.ID.String()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found without a schedule, got %v", err)
	}

	if _, err := env.processes.Agendar(ctx, process.ID.String(), ScheduleMeetingRequest{
		Start: time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		End:   time.Now().Add(25 * time.Hour).Format(time.RFC3339),
	}, nil); err != nil {
		t.Fatalf("agendar: %v", err)
	}

	// Schedule exists but carries no real room yet.
	if _, err := env.processes.SyncVideoLink(ctx, process.ID.String()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing link, got %v", err)
	}

	if err := env.db.Model(&model.Schedule{}).
		Where("process_id = ?", process.ID).
		Update("video_link", "https://meet.google.com/real-room-xyz").Error; err != nil {
		t.Fatalf("set link: %v", err)
	}

	link, err := env.processes.SyncVideoLink(ctx, process.ID.String())
	if err != nil {
		t.Fatalf("sync video link: %v", err)
	}
	if link != "https://meet.google.com/real-room-xyz" {
		t.Errorf("link = %s", link)
	}
	if got := env.reloadProcess(t, process.ID).VideoLink; got != link {
		t.Errorf("process link = %s, want %s", got, link)
	}
}

func TestPaymentRequiresFinalizedProcess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	process := env.createProcess(t, model.StatusAssinaturaPendente)

	_, err := env.payments.Create(ctx, CreatePaymentRequest{ProcessID: process.ID.String(), Amount: "4321.50"}, nil)
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("payment before finalization must be a state error, got %v", err)
	}

	if err := env.db.Model(&model.DemissaoProcess{}).
		Where("id = ?", process.ID).
		Update("status", model.StatusFinalizado).Error; err != nil {
		t.Fatalf("finalize process: %v", err)
	}

	payment, err := env.payments.Create(ctx, CreatePaymentRequest{ProcessID: process.ID.String(), Amount: "4321.50"}, nil)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.Status != model.PaymentPendente {
		t.Errorf("payment status = %s, want %s", payment.Status, model.PaymentPendente)
	}
	if payment.Amount.String() != "4321.5" {
		t.Errorf("amount = %s", payment.Amount.String())
	}

	paid, err := env.payments.MarkPaid(ctx, payment.ID.String())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != model.PaymentPago || paid.PaidAt == nil {
		t.Error("payment must be marked paid with a timestamp")
	}
}
