package handler

import (
	"net/http"

	pkgerrors "erpadmin/pkg/errors"
	"erpadmin/pkg/pagination"
	"erpadmin/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail renders err with the status its code maps to. Internal causes are
// attached to the context for the request logger and never shown.
func fail(c *gin.Context, err error) {
	code := pkgerrors.CodeOf(err)
	meta := pkgerrors.MetadataFor(code)

	msg := meta.PublicMessage
	if typed := pkgerrors.As(err); typed != nil && code != pkgerrors.CodeInternal {
		msg = typed.Message()
	}
	if code == pkgerrors.CodeInternal {
		_ = c.Error(err)
	}
	c.JSON(meta.HTTPStatus, response.CodedError(meta.HTTPStatus, string(code), msg))
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.CodedError(http.StatusBadRequest, string(pkgerrors.CodeValidation), "Invalid request payload: "+err.Error()))
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, data))
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, data))
}

func page(c *gin.Context, items any, total int64, p pagination.Params) {
	ok(c, response.Page{Items: items, Total: total, Page: p.Page, Limit: p.Limit})
}
