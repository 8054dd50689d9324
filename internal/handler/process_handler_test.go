package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// memStore keeps saved refs in memory and records removals.
type memStore struct {
	saved   map[string]bool
	removed []string
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{saved: map[string]bool{}}
}

func (m *memStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.nextID++
	ref := fmt.Sprintf("mem/%d-%s", m.nextID, name)
	m.saved[ref] = true
	return ref, nil
}

func (m *memStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !m.saved[ref] {
		return nil, fmt.Errorf("no such file: %s", ref)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *memStore) Remove(ctx context.Context, ref string) error {
	if !m.saved[ref] {
		return fmt.Errorf("no such file: %s", ref)
	}
	delete(m.saved, ref)
	m.removed = append(m.removed, ref)
	return nil
}

// rejectingDocumentService refuses every upload batch.
type rejectingDocumentService struct {
	uploads [][]service.UploadItem
}

func (s *rejectingDocumentService) Upload(ctx context.Context, processID string, items []service.UploadItem, actorID *uuid.UUID) ([]model.Document, error) {
	s.uploads = append(s.uploads, items)
	return nil, apperr.Conflictf("document_exists", "a TERMO_HOMOLOGACAO document already exists")
}

func (s *rejectingDocumentService) Approve(ctx context.Context, processID, documentID string, actorID *uuid.UUID) (*model.Document, error) {
	return nil, nil
}

func (s *rejectingDocumentService) Reject(ctx context.Context, processID, documentID, motivo string, actorID *uuid.UUID) (*model.Document, error) {
	return nil, nil
}

func (s *rejectingDocumentService) ListByProcess(ctx context.Context, processID string) ([]model.Document, error) {
	return nil, nil
}

func multipartBatch(t *testing.T, names, types []string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range names {
		part, err := writer.CreateFormFile("documents", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("conteudo")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for _, docType := range types {
		if err := writer.WriteField("types", docType); err != nil {
			t.Fatalf("write type field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadDiscardsFilesWhenBatchIsRefused(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	docs := &rejectingDocumentService{}
	h := NewProcessHandler(nil, docs, store)

	router := gin.New()
	router.POST("/demissao-processes/:id/upload-documents", h.UploadDocuments)

	body, contentType := multipartBatch(t,
		[]string{"rescisao.pdf", "termo.pdf"},
		[]string{"RESCISAO", "TERMO_HOMOLOGACAO"},
	)
	req := httptest.NewRequest(http.MethodPost, "/demissao-processes/"+uuid.NewString()+"/upload-documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a refused batch, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(docs.uploads) != 1 || len(docs.uploads[0]) != 2 {
		t.Fatalf("expected one batch of two items handed to the service, got %+v", docs.uploads)
	}
	if len(store.saved) != 0 {
		t.Fatalf("refused batch must leave no stored files, found %v", store.saved)
	}
	if len(store.removed) != 2 {
		t.Fatalf("expected both saved files discarded, removed %v", store.removed)
	}
}

func TestUploadRefusesMismatchedBatchBeforeStoring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	h := NewProcessHandler(nil, &rejectingDocumentService{}, store)

	router := gin.New()
	router.POST("/demissao-processes/:id/upload-documents", h.UploadDocuments)

	body, contentType := multipartBatch(t, []string{"rescisao.pdf", "termo.pdf"}, []string{"RESCISAO"})
	req := httptest.NewRequest(http.MethodPost, "/demissao-processes/"+uuid.NewString()+"/upload-documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a mismatched batch, got %d", rec.Code)
	}
	if len(store.saved) != 0 || len(store.removed) != 0 {
		t.Fatalf("mismatched batch must never touch storage, saved=%v removed=%v", store.saved, store.removed)
	}
}
