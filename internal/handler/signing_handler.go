package handler

import (
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type SigningHandler struct {
	signingService service.SigningService
}

func NewSigningHandler(signingService service.SigningService) *SigningHandler {
	return &SigningHandler{signingService: signingService}
}

func (h *SigningHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
		model.RoleUnionMaster, model.RoleUnionCommon,
	}

	signing := router.Group("/api/signing")
	{
		// The employee signs through a tokenized link without an account,
		// so these two endpoints authenticate per request body.
		signing.POST("/:sessionId/send_otp", middleware.OptionalAuth(), h.SendOTP)
		signing.POST("/:sessionId/verify_and_sign", middleware.OptionalAuth(), h.VerifyAndSign)

		signing.GET("/sessions/:sessionId/status", h.Status)
		signing.GET("/sessions/:sessionId/evidence", middleware.RequireRole(staff...), h.Evidence)
	}
}

type sendOTPRequest struct {
	Role  string `json:"role" binding:"required"`
	Token string `json:"token"`
}

// SendOTP godoc
// @Summary      Send a signature OTP to a party
// @Description  Generates a fresh one-time code for the party and delivers it through the configured channels. A new code replaces any previous one.
// @Tags         signing
// @Accept       json
// @Produce      json
// @Param        sessionId  path  string          true  "Signing session ID"
// @Param        payload    body  sendOTPRequest  true  "Party role and, for the employee, the link token"
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /signing/{sessionId}/send_otp [post]
func (h *SigningHandler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	authenticated := c.GetBool("authenticated")
	err := h.signingService.SendOTP(c.Request.Context(), c.Param("sessionId"), req.Role, req.Token, authenticated, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"sent": true}))
}

type verifyAndSignRequest struct {
	Role    string `json:"role" binding:"required"`
	OTP     string `json:"otp" binding:"required"`
	Consent bool   `json:"consent"`
	Token   string `json:"token"`
}

// VerifyAndSign godoc
// @Summary      Verify the OTP and record the signature
// @Description  Validates consent and the one-time code, records the signature with its evidence, and seals the session once all three parties signed.
// @Tags         signing
// @Accept       json
// @Produce      json
// @Param        sessionId  path  string                true  "Signing session ID"
// @Param        payload    body  verifyAndSignRequest  true  "Role, OTP, consent and, for the employee, the link token"
// @Success      200  {object}  response.Response{data=service.SignResult}
// @Failure      401  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /signing/{sessionId}/verify_and_sign [post]
func (h *SigningHandler) VerifyAndSign(c *gin.Context) {
	var req verifyAndSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	authenticated := c.GetBool("authenticated")
	result, err := h.signingService.VerifyAndSign(c.Request.Context(), c.Param("sessionId"), req.Role, req.OTP, req.Consent, req.Token, authenticated, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Status godoc
// @Summary      Get signing session progress
// @Description  Public progress view used by the three signature screens. Exposes no secrets.
// @Tags         signing
// @Produce      json
// @Param        sessionId  path  string  true  "Signing session ID"
// @Success      200  {object}  response.Response{data=service.SessionStatusResponse}
// @Failure      404  {object}  response.Response
// @Router       /signing/sessions/{sessionId}/status [get]
func (h *SigningHandler) Status(c *gin.Context) {
	status, err := h.signingService.Status(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, status))
}

// Evidence godoc
// @Summary      Get the session evidence trail
// @Tags         signing
// @Produce      json
// @Security     BearerAuth
// @Param        sessionId  path  string  true  "Signing session ID"
// @Success      200  {object}  response.Response{data=service.EvidenceResponse}
// @Failure      404  {object}  response.Response
// @Router       /signing/sessions/{sessionId}/evidence [get]
func (h *SigningHandler) Evidence(c *gin.Context) {
	evidence, err := h.signingService.Evidence(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, evidence))
}
