package handler

import (
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	companySide := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
	}
	anyStaff := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
		model.RoleUnionMaster, model.RoleUnionCommon,
	}

	payments := router.Group("/api/payments")
	{
		payments.POST("", middleware.RequireRole(companySide...), h.Create)
		payments.GET("/process/:processId", middleware.RequireRole(anyStaff...), h.ListByProcess)
		payments.POST("/:id/mark-paid", middleware.RequireRole(companySide...), h.MarkPaid)
	}
}

// Create godoc
// @Summary      Register a settlement payment
// @Description  Records the settlement amount of a finalized process
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePaymentRequest  true  "Payment payload"
// @Success      201      {object}  response.Response{data=model.Payment}
// @Failure      422      {object}  response.Response
// @Router       /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListByProcess godoc
// @Summary      List payments of a process
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        processId  path      string  true  "Process ID"
// @Success      200        {object}  response.Response
// @Router       /payments/process/{processId} [get]
func (h *PaymentHandler) ListByProcess(c *gin.Context) {
	payments, err := h.paymentService.ListByProcess(c.Request.Context(), c.Param("processId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// MarkPaid godoc
// @Summary      Mark a payment as paid
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=model.Payment}
// @Failure      404  {object}  response.Response
// @Router       /payments/{id}/mark-paid [post]
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	payment, err := h.paymentService.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}
