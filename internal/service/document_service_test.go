package service

import (
	"context"
	"testing"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"
)

func TestUploadCreatesPendingDocuments(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	docs := env.uploadDocs(t, process.ID, "RESCISAO", "CTPS")

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	for _, doc := range docs {
		if doc.Status != model.DocumentPendente {
			t.Errorf("document %s status = %s, want %s", doc.Type, doc.Status, model.DocumentPendente)
		}
	}
}

func TestUploadRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	_, err := env.documents.Upload(context.Background(), process.ID.String(),
		[]UploadItem{{Type: "NOTA_FISCAL", FileRef: "files/x.pdf"}}, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadRejectsDuplicateTypeInBatch(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)

	_, err := env.documents.Upload(context.Background(), process.ID.String(), []UploadItem{
		{Type: "RESCISAO", FileRef: "files/a.pdf"},
		{Type: "RESCISAO", FileRef: "files/b.pdf"},
	}, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadConflictsWithExistingDocument(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	env.uploadDocs(t, process.ID, "RESCISAO")

	// Pending documents cannot be replaced.
	_, err := env.documents.Upload(context.Background(), process.ID.String(),
		[]UploadItem{{Type: "RESCISAO", FileRef: "files/again.pdf"}}, nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	// Approved documents cannot be replaced either.
	docs, _ := env.documents.ListByProcess(context.Background(), process.ID.String())
	if _, err := env.documents.Approve(context.Background(), process.ID.String(), docs[0].ID.String(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = env.documents.Upload(context.Background(), process.ID.String(),
		[]UploadItem{{Type: "RESCISAO", FileRef: "files/again.pdf"}}, nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error after approval, got %v", err)
	}
}

func TestUploadSupersedesRefusedDocument(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO")

	if _, err := env.documents.Reject(context.Background(), process.ID.String(), docs[0].ID.String(), "ilegível", nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	replaced, err := env.documents.Upload(context.Background(), process.ID.String(),
		[]UploadItem{{Type: "RESCISAO", FileRef: "files/v2.pdf"}}, nil)
	if err != nil {
		t.Fatalf("re-upload refused document: %v", err)
	}

	doc := docByType(replaced, "RESCISAO")
	if doc == nil {
		t.Fatal("RESCISAO document missing after re-upload")
	}
	if doc.ID != docs[0].ID {
		t.Error("refused document should be superseded in place, not duplicated")
	}
	if doc.Status != model.DocumentPendente {
		t.Errorf("status = %s, want %s", doc.Status, model.DocumentPendente)
	}
	if doc.FileRef != "files/v2.pdf" {
		t.Errorf("file reference = %s, want files/v2.pdf", doc.FileRef)
	}
	if doc.MotivoRecusa != "" || doc.RejeitadoEm != nil {
		t.Error("refusal metadata should be cleared on re-upload")
	}
}

func TestUploadReturnsRejectedProcessToReview(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	env.uploadDocs(t, process.ID, "RESCISAO")

	if _, err := env.processes.RejeitarProcesso(context.Background(), process.ID.String(), "faltam guias", nil); err != nil {
		t.Fatalf("rejeitar processo: %v", err)
	}

	docs, _ := env.documents.ListByProcess(context.Background(), process.ID.String())
	if _, err := env.documents.Reject(context.Background(), process.ID.String(), docs[0].ID.String(), "refazer", nil); err != nil {
		t.Fatalf("reject document: %v", err)
	}
	env.uploadDocs(t, process.ID, "RESCISAO")

	reloaded := env.reloadProcess(t, process.ID)
	if reloaded.Status != model.StatusAguardandoAprovacao {
		t.Errorf("status = %s, want %s after re-upload", reloaded.Status, model.StatusAguardandoAprovacao)
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO", "CTPS")

	first, err := env.documents.Approve(context.Background(), process.ID.String(), docs[0].ID.String(), nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	second, err := env.documents.Approve(context.Background(), process.ID.String(), docs[0].ID.String(), nil)
	if err != nil {
		t.Fatalf("repeated approve should succeed, got %v", err)
	}
	if second.Status != model.DocumentAprovado {
		t.Errorf("status = %s, want %s", second.Status, model.DocumentAprovado)
	}
	if first.AprovadoEm == nil || second.AprovadoEm == nil || !first.AprovadoEm.Equal(*second.AprovadoEm) {
		t.Error("repeated approve must not change the approval timestamp")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO")

	_, err := env.documents.Reject(context.Background(), process.ID.String(), docs[0].ID.String(), "  ", nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRejectApprovedDocumentFails(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO")

	if _, err := env.documents.Approve(context.Background(), process.ID.String(), docs[0].ID.String(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := env.documents.Reject(context.Background(), process.ID.String(), docs[0].ID.String(), "mudei de ideia", nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

// Company submits three documents, the union approves each one, and the
// process advances on the last approval without an explicit aggregate call.
func TestFullApprovalAdvancesProcess(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO", "CTPS", "EXAME_DEMISSAO")

	for i, doc := range docs {
		if _, err := env.documents.Approve(context.Background(), process.ID.String(), doc.ID.String(), nil); err != nil {
			t.Fatalf("approve %s: %v", doc.Type, err)
		}
		reloaded := env.reloadProcess(t, process.ID)
		if i < len(docs)-1 && reloaded.Status == model.StatusDocumentosAprovados {
			t.Fatal("process advanced before every document was approved")
		}
	}

	reloaded := env.reloadProcess(t, process.ID)
	if reloaded.Status != model.StatusDocumentosAprovados {
		t.Errorf("status = %s, want %s", reloaded.Status, model.StatusDocumentosAprovados)
	}
	if env.publisher.last() != model.StatusDocumentosAprovados {
		t.Errorf("published status = %s, want %s", env.publisher.last(), model.StatusDocumentosAprovados)
	}
}

// One refused document blocks the advance until it is re-submitted and
// approved.
func TestRefusedDocumentBlocksAdvance(t *testing.T) {
	env := newTestEnv(t)
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "RESCISAO", "CTPS")

	if _, err := env.documents.Approve(context.Background(), process.ID.String(), docs[0].ID.String(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.documents.Reject(context.Background(), process.ID.String(), docs[1].ID.String(), "documento vencido", nil); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if status := env.reloadProcess(t, process.ID).Status; status == model.StatusDocumentosAprovados {
		t.Fatal("process advanced with a refused document outstanding")
	}

	env.uploadDocs(t, process.ID, "CTPS")
	docsNow, _ := env.documents.ListByProcess(context.Background(), process.ID.String())
	ctps := docByType(docsNow, "CTPS")
	if _, err := env.documents.Approve(context.Background(), process.ID.String(), ctps.ID.String(), nil); err != nil {
		t.Fatalf("approve re-submitted document: %v", err)
	}

	if status := env.reloadProcess(t, process.ID).Status; status != model.StatusDocumentosAprovados {
		t.Errorf("status = %s, want %s after the corrected document was approved", status, model.StatusDocumentosAprovados)
	}
}
