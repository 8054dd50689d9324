package service

import (
	"context"
	"sync"
	"testing"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/database"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/notify"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// recordingDispatcher captures the plaintext secrets the services hand to the
// delivery channels, so tests can complete the OTP and magic-link flows.
type recordingDispatcher struct {
	mu    sync.Mutex
	otps  map[string]string // contact name -> last code
	links []string
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{otps: make(map[string]string)}
}

func (d *recordingDispatcher) SendOTP(_ context.Context, to notify.Contact, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.otps[to.Name] = code
	return nil
}

func (d *recordingDispatcher) SendEmployeeLink(_ context.Context, _ notify.Contact, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links = append(d.links, url)
	return nil
}

func (d *recordingDispatcher) SendStatusUpdate(_ context.Context, _ notify.Contact, _, _ string) error {
	return nil
}

func (d *recordingDispatcher) lastOTP(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.otps[name]
}

func (d *recordingDispatcher) linkCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.links)
}

func (d *recordingDispatcher) lastLink() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.links) == 0 {
		return ""
	}
	return d.links[len(d.links)-1]
}

// statusRecorder collects published process status changes.
type statusRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *statusRecorder) PublishProcessStatus(_ uuid.UUID, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, status)
}

func (r *statusRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

// testEnv wires the whole service stack on an in-memory database.
type testEnv struct {
	db         *gorm.DB
	dispatcher *recordingDispatcher
	publisher  *statusRecorder

	documents DocumentService
	processes ProcessService
	signing   SigningService
	payments  PaymentService

	processRepo  repository.ProcessRepository
	documentRepo repository.DocumentRepository
	signingRepo  repository.SigningRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	txManager := repository.NewTransactionManager(db)
	processRepo := repository.NewProcessRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	signingRepo := repository.NewSigningRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	dispatcher := newRecordingDispatcher()
	publisher := &statusRecorder{}

	signingService := NewSigningService(signingRepo, processRepo, auditRepo, txManager, dispatcher, publisher)

	return &testEnv{
		db:           db,
		dispatcher:   dispatcher,
		publisher:    publisher,
		documents:    NewDocumentService(processRepo, documentRepo, auditRepo, txManager, publisher),
		processes:    NewProcessService(processRepo, documentRepo, auditRepo, txManager, signingService, publisher),
		signing:      signingService,
		payments:     NewPaymentService(paymentRepo, processRepo, auditRepo, txManager),
		processRepo:  processRepo,
		documentRepo: documentRepo,
		signingRepo:  signingRepo,
	}
}

func (e *testEnv) createOrgs(t *testing.T) (*model.Company, *model.Union) {
	t.Helper()
	company := &model.Company{Name: "Padaria Sol Ltda", CNPJ: "12345678000190", Email: "rh@padariasol.com.br", Phone: "11999990000"}
	if err := e.db.Create(company).Error; err != nil {
		t.Fatalf("create company: %v", err)
	}
	union := &model.Union{Name: "Sindicato dos Padeiros", CNPJ: "98765432000110", Email: "contato@sindpadeiros.org.br", Phone: "1133330000"}
	if err := e.db.Create(union).Error; err != nil {
		t.Fatalf("create union: %v", err)
	}
	return company, union
}

func (e *testEnv) createProcess(t *testing.T, status string) *model.DemissaoProcess {
	t.Helper()
	company, union := e.createOrgs(t)
	process := &model.DemissaoProcess{
		NomeFuncionario:  "João da Silva",
		EmailFuncionario: "joao.silva@example.com",
		FoneFuncionario:  "11988887777",
		CPFFuncionario:   "123.456.789-09",
		Motivo:           "pedido_demissao",
		CompanyID:        company.ID,
		UnionID:          union.ID,
		Status:           status,
	}
	if err := e.db.Create(process).Error; err != nil {
		t.Fatalf("create process: %v", err)
	}
	return process
}

func (e *testEnv) uploadDocs(t *testing.T, processID uuid.UUID, types ...string) []model.Document {
	t.Helper()
	items := make([]UploadItem, 0, len(types))
	for _, docType := range types {
		items = append(items, UploadItem{Type: docType, FileRef: "files/" + docType + ".pdf"})
	}
	docs, err := e.documents.Upload(context.Background(), processID.String(), items, nil)
	if err != nil {
		t.Fatalf("upload documents: %v", err)
	}
	return docs
}

func (e *testEnv) reloadProcess(t *testing.T, id uuid.UUID) *model.DemissaoProcess {
	t.Helper()
	process, err := e.processRepo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload process: %v", err)
	}
	return process
}

func mustParse(t *testing.T, id string) uuid.UUID {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", id, err)
	}
	return parsed
}

func docByType(docs []model.Document, docType string) *model.Document {
	for i := range docs {
		if docs[i].Type == docType {
			return &docs[i]
		}
	}
	return nil
}
