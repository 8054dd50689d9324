package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"
)

// startSigning drives a process to the signature stage and returns the
// session id and the employee link token captured from the dispatcher.
func startSigning(t *testing.T, env *testEnv) (processID string, sessionID string, employeeToken string) {
	t.Helper()
	process := env.createProcess(t, model.StatusAguardandoAprovacao)
	docs := env.uploadDocs(t, process.ID, "TERMO_HOMOLOGACAO", "RESCISAO")
	for _, doc := range docs {
		if _, err := env.documents.Approve(context.Background(), process.ID.String(), doc.ID.String(), nil); err != nil {
			t.Fatalf("approve %s: %v", doc.Type, err)
		}
	}

	result, err := env.processes.FinalizarReuniao(context.Background(), process.ID.String(), nil, RequestMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("finalizar reuniao: %v", err)
	}

	link := env.dispatcher.lastLink()
	if link == "" {
		t.Fatal("employee link was not dispatched")
	}
	// {base}/assinaturas/convite/{token}?sid={session}
	parts := strings.Split(strings.Split(link, "?")[0], "/")
	token := parts[len(parts)-1]

	return process.ID.String(), result.SessionID, token
}

func signParty(t *testing.T, env *testEnv, sessionID, role, token string, authenticated bool) *SignResult {
	t.Helper()
	ctx := context.Background()
	meta := RequestMeta{IP: "10.0.0.2", UserAgent: "test"}

	if err := env.signing.SendOTP(ctx, sessionID, role, token, authenticated, meta); err != nil {
		t.Fatalf("send OTP for %s: %v", role, err)
	}

	status, err := env.signing.Status(ctx, sessionID)
	if err != nil {
		t.Fatalf("session status: %v", err)
	}
	var partyName string
	for _, p := range status.Parties {
		if p.Role == role {
			partyName = p.Name
		}
	}
	code := env.dispatcher.lastOTP(partyName)
	if code == "" {
		t.Fatalf("no OTP dispatched for %s", role)
	}

	result, err := env.signing.VerifyAndSign(ctx, sessionID, role, code, true, token, authenticated, meta)
	if err != nil {
		t.Fatalf("verify and sign for %s: %v", role, err)
	}
	return result
}

// All three parties sign and the process finishes without any further
// manual action.
func TestThreePartySigningFinalizesProcess(t *testing.T) {
	env := newTestEnv(t)
	processID, sessionID, employeeToken := startSigning(t, env)

	if status := env.reloadProcess(t, mustParse(t, processID)).Status; status != model.StatusAssinaturaPendente {
		t.Fatalf("process status = %s, want %s", status, model.StatusAssinaturaPendente)
	}

	if result := signParty(t, env, sessionID, model.PartyCompany, "", true); result.AllSigned {
		t.Fatal("session reported complete after one signature")
	}
	if result := signParty(t, env, sessionID, model.PartyUnion, "", true); result.AllSigned {
		t.Fatal("session reported complete after two signatures")
	}
	result := signParty(t, env, sessionID, model.PartyEmployee, employeeToken, false)
	if !result.AllSigned {
		t.Fatal("session must complete with the third signature")
	}

	process := env.reloadProcess(t, mustParse(t, processID))
	if process.Status != model.StatusFinalizado {
		t.Errorf("process status = %s, want %s", process.Status, model.StatusFinalizado)
	}
	if !process.AssinadoEmpresa || !process.AssinadoSindicato || !process.AssinadoTrabalhador {
		t.Error("signature flags must all be set on completion")
	}
	if process.DataTermino == nil {
		t.Error("completion timestamp missing")
	}

	session, err := env.signingRepo.FindSessionByID(context.Background(), mustParse(t, sessionID))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !session.IsCompleted || session.SealJWS == "" {
		t.Error("completed session must carry the seal")
	}

	evidence, err := env.signing.Evidence(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("evidence: %v", err)
	}
	var sawSeal, sawFinalized bool
	for _, ev := range evidence.Events {
		switch ev.Type {
		case model.EventFinalSeal:
			sawSeal = true
		case model.EventFinalized:
			sawFinalized = true
		}
	}
	if !sawSeal || !sawFinalized {
		t.Error("evidence trail must record the seal and the finalization")
	}
}

// Requesting a second OTP invalidates the first even inside its validity
// window.
func TestFreshOTPInvalidatesPreviousCode(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)
	ctx := context.Background()
	meta := RequestMeta{}

	if err := env.signing.SendOTP(ctx, sessionID, model.PartyCompany, "", true, meta); err != nil {
		t.Fatalf("first send: %v", err)
	}
	status, _ := env.signing.Status(ctx, sessionID)
	var companyName string
	for _, p := range status.Parties {
		if p.Role == model.PartyCompany {
			companyName = p.Name
		}
	}
	staleCode := env.dispatcher.lastOTP(companyName)

	if err := env.signing.SendOTP(ctx, sessionID, model.PartyCompany, "", true, meta); err != nil {
		t.Fatalf("second send: %v", err)
	}
	freshCode := env.dispatcher.lastOTP(companyName)
	if staleCode == freshCode {
		t.Fatal("expected a different code on re-send")
	}

	_, err := env.signing.VerifyAndSign(ctx, sessionID, model.PartyCompany, staleCode, true, "", true, meta)
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("stale code must be refused, got %v", err)
	}

	if _, err := env.signing.VerifyAndSign(ctx, sessionID, model.PartyCompany, freshCode, true, "", true, meta); err != nil {
		t.Fatalf("fresh code must work, got %v", err)
	}
}

func TestSignedPartyCannotSignAgain(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)
	ctx := context.Background()

	signParty(t, env, sessionID, model.PartyCompany, "", true)

	err := env.signing.SendOTP(ctx, sessionID, model.PartyCompany, "", true, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("OTP request after signing must conflict, got %v", err)
	}
	_, err = env.signing.VerifyAndSign(ctx, sessionID, model.PartyCompany, "000000", true, "", true, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("signature attempt without an active code must fail auth, got %v", err)
	}
}

func TestConsumedOTPCannotBeReplayed(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)
	ctx := context.Background()
	meta := RequestMeta{IP: "10.0.0.2", UserAgent: "test"}

	if err := env.signing.SendOTP(ctx, sessionID, model.PartyCompany, "", true, meta); err != nil {
		t.Fatalf("send OTP: %v", err)
	}
	status, err := env.signing.Status(ctx, sessionID)
	if err != nil {
		t.Fatalf("session status: %v", err)
	}
	var partyName string
	for _, p := range status.Parties {
		if p.Role == model.PartyCompany {
			partyName = p.Name
		}
	}
	code := env.dispatcher.lastOTP(partyName)
	if code == "" {
		t.Fatal("no OTP dispatched")
	}

	if _, err := env.signing.VerifyAndSign(ctx, sessionID, model.PartyCompany, code, true, "", true, meta); err != nil {
		t.Fatalf("first signature: %v", err)
	}

	// The exact code that just succeeded is single use.
	_, err = env.signing.VerifyAndSign(ctx, sessionID, model.PartyCompany, code, true, "", true, meta)
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("replaying the consumed code must fail auth, got %v", err)
	}
}

func TestConsentIsRequired(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)

	_, err := env.signing.VerifyAndSign(context.Background(), sessionID, model.PartyCompany, "123456", false, "", true, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("missing consent must be a validation error, got %v", err)
	}
}

func TestExpiredOTPIsRefused(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)
	ctx := context.Background()

	if err := env.signing.SendOTP(ctx, sessionID, model.PartyUnion, "", true, RequestMeta{}); err != nil {
		t.Fatalf("send OTP: %v", err)
	}
	status, _ := env.signing.Status(ctx, sessionID)
	var unionName string
	for _, p := range status.Parties {
		if p.Role == model.PartyUnion {
			unionName = p.Name
		}
	}
	code := env.dispatcher.lastOTP(unionName)

	expired := time.Now().Add(-time.Minute)
	if err := env.db.Model(&model.Party{}).
		Where("session_id = ? AND role = ?", sessionID, model.PartyUnion).
		Update("otp_expires_at", expired).Error; err != nil {
		t.Fatalf("expire OTP: %v", err)
	}

	_, err := env.signing.VerifyAndSign(ctx, sessionID, model.PartyUnion, code, true, "", true, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("expired code must be refused, got %v", err)
	}
}

func TestEmployeeNeedsValidLinkToken(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, employeeToken := startSigning(t, env)
	ctx := context.Background()

	err := env.signing.SendOTP(ctx, sessionID, model.PartyEmployee, "", false, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("missing token must be refused, got %v", err)
	}
	err = env.signing.SendOTP(ctx, sessionID, model.PartyEmployee, "not-the-token", false, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("wrong token must be refused, got %v", err)
	}
	if err := env.signing.SendOTP(ctx, sessionID, model.PartyEmployee, employeeToken, false, RequestMeta{}); err != nil {
		t.Fatalf("valid token must be accepted, got %v", err)
	}
}

func TestStaffNeedsAuthentication(t *testing.T) {
	env := newTestEnv(t)
	_, sessionID, _ := startSigning(t, env)

	err := env.signing.SendOTP(context.Background(), sessionID, model.PartyCompany, "", false, RequestMeta{})
	if !apperr.IsKind(err, apperr.KindAuth) {
		t.Fatalf("unauthenticated company request must be refused, got %v", err)
	}
}

func TestFinalizarReuniaoIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	processID, sessionID, _ := startSigning(t, env)

	again, err := env.processes.FinalizarReuniao(context.Background(), processID, nil, RequestMeta{})
	if err != nil {
		t.Fatalf("repeated finalizar reuniao: %v", err)
	}
	if again.SessionID != sessionID {
		t.Errorf("repeat returned session %s, want the original %s", again.SessionID, sessionID)
	}
	if n := env.dispatcher.linkCount(); n != 1 {
		t.Errorf("employee link dispatched %d times, want once", n)
	}
}
