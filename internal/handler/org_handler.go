package handler

import (
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/model"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrgHandler struct {
	orgService service.OrgService
}

func NewOrgHandler(orgService service.OrgService) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

func (h *OrgHandler) RegisterRoutes(router *gin.RouterGroup) {
	admins := []string{model.RoleAdmin, model.RoleSuperAdmin}
	anyStaff := []string{
		model.RoleAdmin, model.RoleSuperAdmin,
		model.RoleCompanyMaster, model.RoleCompanyCommon,
		model.RoleUnionMaster, model.RoleUnionCommon,
	}

	companies := router.Group("/api/companies")
	{
		companies.POST("", middleware.RequireRole(admins...), h.CreateCompany)
		companies.GET("", middleware.RequireRole(anyStaff...), h.ListCompanies)
		companies.GET("/:id", middleware.RequireRole(anyStaff...), h.GetCompany)
	}

	unions := router.Group("/api/unions")
	{
		unions.POST("", middleware.RequireRole(admins...), h.CreateUnion)
		unions.GET("", middleware.RequireRole(anyStaff...), h.ListUnions)
		unions.GET("/:id", middleware.RequireRole(anyStaff...), h.GetUnion)
	}
}

// CreateCompany godoc
// @Summary      Register a company
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrgRequest  true  "Company payload"
// @Success      201      {object}  response.Response{data=model.Company}
// @Failure      409      {object}  response.Response
// @Router       /companies [post]
func (h *OrgHandler) CreateCompany(c *gin.Context) {
	var req service.CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	company, err := h.orgService.CreateCompany(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, company))
}

// ListCompanies godoc
// @Summary      List companies
// @Tags         organizations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /companies [get]
func (h *OrgHandler) ListCompanies(c *gin.Context) {
	page, limit := pageParams(c)

	companies, total, err := h.orgService.ListCompanies(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   companies,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetCompany godoc
// @Summary      Get a company by ID
// @Tags         organizations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Company ID"
// @Success      200  {object}  response.Response{data=model.Company}
// @Failure      404  {object}  response.Response
// @Router       /companies/{id} [get]
func (h *OrgHandler) GetCompany(c *gin.Context) {
	company, err := h.orgService.GetCompany(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, company))
}

// CreateUnion godoc
// @Summary      Register a union
// @Tags         organizations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateOrgRequest  true  "Union payload"
// @Success      201      {object}  response.Response{data=model.Union}
// @Failure      409      {object}  response.Response
// @Router       /unions [post]
func (h *OrgHandler) CreateUnion(c *gin.Context) {
	var req service.CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	union, err := h.orgService.CreateUnion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, union))
}

// ListUnions godoc
// @Summary      List unions
// @Tags         organizations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /unions [get]
func (h *OrgHandler) ListUnions(c *gin.Context) {
	page, limit := pageParams(c)

	unions, total, err := h.orgService.ListUnions(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   unions,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetUnion godoc
// @Summary      Get a union by ID
// @Tags         organizations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Union ID"
// @Success      200  {object}  response.Response{data=model.Union}
// @Failure      404  {object}  response.Response
// @Router       /unions/{id} [get]
func (h *OrgHandler) GetUnion(c *gin.Context) {
	union, err := h.orgService.GetUnion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, union))
}
