package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/storage"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProcessHandler struct {
	processService  service.ProcessService
	documentService service.DocumentService
	fileStore       storage.FileStore
}

func NewProcessHandler(processService service.ProcessService, documentService service.DocumentService, fileStore storage.FileStore) *ProcessHandler {
	return &ProcessHandler{
		processService:  processService,
		documentService: documentService,
		fileStore:       fileStore,
	}
}

func (h *ProcessHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyStaff := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
		model.RoleUnionMaster, model.RoleUnionCommon,
	}
	companySide := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
	}
	unionSide := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleUnionMaster, model.RoleUnionCommon,
	}

	processes := router.Group("/api/demissao-processes")
	{
		processes.POST("", middleware.RequireRole(companySide...), h.Create)
		processes.GET("", middleware.RequireRole(anyStaff...), h.List)
		processes.GET("/:id", middleware.RequireRole(anyStaff...), h.Get)
		processes.GET("/:id/documents", middleware.RequireRole(anyStaff...), h.ListDocuments)
		processes.POST("/:id/upload-documents", middleware.RequireRole(companySide...), h.UploadDocuments)
		processes.POST("/:id/approve-document/:docId", middleware.RequireRole(unionSide...), h.ApproveDocument)
		processes.POST("/:id/reject-document/:docId", middleware.RequireRole(unionSide...), h.RejectDocument)
		processes.POST("/:id/aprovar-documentacao", middleware.RequireRole(unionSide...), h.AprovarDocumentacao)
		processes.POST("/:id/rejeitar-processo", middleware.RequireRole(unionSide...), h.RejeitarProcesso)
		processes.POST("/:id/agendar", middleware.RequireRole(unionSide...), h.Agendar)
		processes.POST("/:id/avancar-etapa", middleware.RequireRole(unionSide...), h.AvancarEtapa)
		processes.POST("/:id/salvar-ressalva", middleware.RequireRole(unionSide...), h.SalvarRessalva)
		processes.POST("/:id/finalizar-reuniao", middleware.RequireRole(unionSide...), h.FinalizarReuniao)
		processes.POST("/:id/sync-video-link", middleware.RequireRole(anyStaff...), h.SyncVideoLink)
	}
}

// Create godoc
// @Summary      Create a termination process
// @Description  Opens a new homologation process for an employee
// @Tags         processes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProcessRequest  true  "Process payload"
// @Success      201      {object}  response.Response{data=model.DemissaoProcess}
// @Failure      400      {object}  response.Response
// @Router       /demissao-processes [post]
func (h *ProcessHandler) Create(c *gin.Context) {
	var req service.CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	process, err := h.processService.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, process))
}

// List godoc
// @Summary      List termination processes
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        company_id  query  string  false  "Filter by company"
// @Param        union_id    query  string  false  "Filter by union"
// @Param        status      query  string  false  "Filter by status"
// @Success      200  {object}  response.Response
// @Router       /demissao-processes [get]
func (h *ProcessHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	processes, total, err := h.processService.List(c.Request.Context(), service.ProcessListFilter{
		CompanyID: c.Query("company_id"),
		UnionID:   c.Query("union_id"),
		Status:    c.Query("status"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   processes,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// Get godoc
// @Summary      Get a termination process with its documents
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Process ID"
// @Success      200  {object}  response.Response{data=model.DemissaoProcess}
// @Failure      404  {object}  response.Response
// @Router       /demissao-processes/{id} [get]
func (h *ProcessHandler) Get(c *gin.Context) {
	process, err := h.processService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, process))
}

func (h *ProcessHandler) ListDocuments(c *gin.Context) {
	documents, err := h.documentService.ListByProcess(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, documents))
}

// UploadDocuments godoc
// @Summary      Upload process documents
// @Description  Receives a multipart batch of files with their document types. The whole batch is accepted or refused together.
// @Tags         processes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true  "Process ID"
// @Param        documents  formData  file    true  "Document files"
// @Param        types      formData  string  true  "Document type per file, same order"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /demissao-processes/{id}/upload-documents [post]
func (h *ProcessHandler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid multipart form"))
		return
	}

	files := form.File["documents"]
	types := form.Value["types"]
	if len(files) == 0 {
		respondError(c, apperr.Validationf("empty_batch", "at least one document is required"))
		return
	}
	if len(files) != len(types) {
		respondError(c, apperr.Validationf("batch_mismatch", "each document needs exactly one type"))
		return
	}

	items := make([]service.UploadItem, 0, len(files))
	// Stored files only stay if the whole batch is accepted.
	discard := func() {
		for _, item := range items {
			if err := h.fileStore.Remove(context.Background(), item.FileRef); err != nil {
				log.Printf("failed to discard rejected upload %s: %v", item.FileRef, err)
			}
		}
	}
	for i, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			discard()
			respondError(c, apperr.Internalf(err, "failed to read uploaded file"))
			return
		}
		ref, err := h.fileStore.Save(c.Request.Context(), fileHeader.Filename, file)
		file.Close()
		if err != nil {
			discard()
			respondError(c, apperr.Internalf(err, "failed to store uploaded file"))
			return
		}
		items = append(items, service.UploadItem{Type: types[i], FileRef: ref})
	}

	documents, err := h.documentService.Upload(c.Request.Context(), c.Param("id"), items, actorID(c))
	if err != nil {
		discard()
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, documents))
}

// ApproveDocument godoc
// @Summary      Approve a single document
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string  true  "Process ID"
// @Param        docId  path  string  true  "Document ID"
// @Success      200  {object}  response.Response{data=model.Document}
// @Failure      404  {object}  response.Response
// @Router       /demissao-processes/{id}/approve-document/{docId} [post]
func (h *ProcessHandler) ApproveDocument(c *gin.Context) {
	document, err := h.documentService.Approve(c.Request.Context(), c.Param("id"), c.Param("docId"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, document))
}

type rejectDocumentRequest struct {
	Motivo string `json:"motivo" binding:"required"`
}

// RejectDocument godoc
// @Summary      Refuse a single document
// @Tags         processes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                 true  "Process ID"
// @Param        docId    path  string                 true  "Document ID"
// @Param        payload  body  rejectDocumentRequest  true  "Refusal reason"
// @Success      200  {object}  response.Response{data=model.Document}
// @Failure      409  {object}  response.Response
// @Router       /demissao-processes/{id}/reject-document/{docId} [post]
func (h *ProcessHandler) RejectDocument(c *gin.Context) {
	var req rejectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validationf("motivo_required", "refusal reason is required"))
		return
	}

	document, err := h.documentService.Reject(c.Request.Context(), c.Param("id"), c.Param("docId"), req.Motivo, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, document))
}

// AprovarDocumentacao godoc
// @Summary      Approve the whole documentation set
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Process ID"
// @Success      200  {object}  response.Response{data=model.DemissaoProcess}
// @Failure      422  {object}  response.Response
// @Router       /demissao-processes/{id}/aprovar-documentacao [post]
func (h *ProcessHandler) AprovarDocumentacao(c *gin.Context) {
	process, err := h.processService.AprovarDocumentacao(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, process))
}

type rejectProcessRequest struct {
	Motivo string `json:"motivo" binding:"required"`
}

// RejeitarProcesso godoc
// @Summary      Reject the process for missing documentation
// @Tags         processes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                true  "Process ID"
// @Param        payload  body  rejectProcessRequest  true  "Rejection reason"
// @Success      200  {object}  response.Response{data=model.DemissaoProcess}
// @Failure      422  {object}  response.Response
// @Router       /demissao-processes/{id}/rejeitar-processo [post]
func (h *ProcessHandler) RejeitarProcesso(c *gin.Context) {
	var req rejectProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validationf("motivo_required", "rejection reason is required"))
		return
	}

	process, err := h.processService.RejeitarProcesso(c.Request.Context(), c.Param("id"), req.Motivo, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, process))
}

// Agendar godoc
// @Summary      Schedule the homologation meeting
// @Tags         processes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                         true  "Process ID"
// @Param        payload  body  service.ScheduleMeetingRequest true  "Meeting slot"
// @Success      200  {object}  response.Response{data=model.DemissaoProcess}
// @Failure      422  {object}  response.Response
// @Router       /demissao-processes/{id}/agendar [post]
func (h *ProcessHandler) Agendar(c *gin.Context) {
	var req service.ScheduleMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	process, err := h.processService.Agendar(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, process))
}

// AvancarEtapa godoc
// @Summary      Advance the process to its next stage
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Process ID"
// @Success      200  {object}  response.Response{data=model.DemissaoProcess}
// @Failure      422  {object}  response.Response
// @Router       /demissao-processes/{id}/avancar-etapa [post]
func (h *ProcessHandler) AvancarEtapa(c *gin.Context) {
	process, err := h.processService.AvancarEtapa(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, process))
}

type saveRessalvaRequest struct {
	Ressalvas string `json:"ressalvas"`
}

// SalvarRessalva godoc
// @Summary      Save the meeting ressalvas text
// @Tags         processes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string               true  "Process ID"
// @Param        payload  body  saveRessalvaRequest  true  "Ressalvas"
// @Success      200  {object}  response.Response
// @Router       /demissao-processes/{id}/salvar-ressalva [post]
func (h *ProcessHandler) SalvarRessalva(c *gin.Context) {
	var req saveRessalvaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	if err := h.processService.SalvarRessalva(c.Request.Context(), c.Param("id"), req.Ressalvas, actorID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"saved": true}))
}

// FinalizarReuniao godoc
// @Summary      Close the meeting and open the signature stage
// @Description  Creates the signing session with its three parties and sends the employee signature link. Retrying returns the existing session.
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Process ID"
// @Success      200  {object}  response.Response{data=service.FinalizeMeetingResult}
// @Failure      422  {object}  response.Response
// @Router       /demissao-processes/{id}/finalizar-reuniao [post]
func (h *ProcessHandler) FinalizarReuniao(c *gin.Context) {
	result, err := h.processService.FinalizarReuniao(c.Request.Context(), c.Param("id"), actorID(c), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// SyncVideoLink godoc
// @Summary      Copy the meeting link from the schedule onto the process
// @Tags         processes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Process ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /demissao-processes/{id}/sync-video-link [post]
func (h *ProcessHandler) SyncVideoLink(c *gin.Context) {
	link, err := h.processService.SyncVideoLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"video_link": link}))
}
