package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"salesdesk/internal/apperror"
	"salesdesk/internal/middleware"
	"salesdesk/internal/model"
	"salesdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto the response envelope.
// Internal failures are logged and replaced with their client-safe message.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := kind.HTTPStatus()

	message := "Internal server error"
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if kind == apperror.KindInternal {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	response.Fail(c, status, message)
}

func badRequest(c *gin.Context, message string) {
	response.Fail(c, http.StatusBadRequest, message)
}

// actorOrAbort reads the caller set by the auth middleware.
func actorOrAbort(c *gin.Context) (model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "Authentication required")
	}
	return actor, ok
}

// serveFile streams f with a download name and closes it.
func serveFile(c *gin.Context, f *os.File, name, disposition string) {
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(c, apperror.Internal("failed to read file", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}
