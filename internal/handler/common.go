package handler

import (
	"log"
	"net/http"

	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/apperr"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/pagination"
	"github.com/vitorduarteebb/veramosystem-sub000/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps a service error onto the response envelope. Internal
// errors are logged and masked.
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
		c.JSON(http.StatusInternalServerError, response.ErrorWithCode(http.StatusInternalServerError, appErr.Code, "internal server error"))
		return
	}
	status := appErr.HTTPStatus()
	c.JSON(status, response.ErrorWithCode(status, appErr.Code, appErr.Message))
}

// actorID extracts the authenticated user id set by the auth middleware.
func actorID(c *gin.Context) *uuid.UUID {
	raw, ok := c.Get("userID")
	if !ok {
		return nil
	}
	str, ok := raw.(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil
	}
	return &id
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func pageParams(c *gin.Context) (int, int) {
	p := pagination.Parse(c)
	return p.Page, p.Limit
}
