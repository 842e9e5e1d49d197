package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grpweb/grpweb/internal/catalog"
	"go.uber.org/zap"
)

func (h *httpHandler) handleListMessages(c *gin.Context) {
	messages, err := h.catalog.ListMessages(c.Request.Context())
	if err != nil {
		h.writeCatalogError(c, "message", err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *httpHandler) handleCreateMessage(c *gin.Context) {
	var input catalog.MessageInput
	if !bindInput(c, &input) {
		return
	}
	message, err := h.catalog.CreateMessage(c.Request.Context(), input)
	if err != nil {
		h.writeCatalogError(c, "message", err)
		return
	}
	h.logMutation(c, "message created", message.ID)
	c.JSON(http.StatusCreated, message)
}

func (h *httpHandler) handleUpdateMessage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var input catalog.MessageInput
	if !bindInput(c, &input) {
		return
	}
	message, err := h.catalog.UpdateMessage(c.Request.Context(), id, input)
	if err != nil {
		h.writeCatalogError(c, "message", err)
		return
	}
	h.logMutation(c, "message updated", id)
	c.JSON(http.StatusOK, message)
}

func (h *httpHandler) handleDeleteMessage(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteMessage(c.Request.Context(), id); err != nil {
		h.writeCatalogError(c, "message", err)
		return
	}
	h.logMutation(c, "message deleted", id)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListPositions(c *gin.Context) {
	positions, err := h.catalog.ListPositions(c.Request.Context())
	if err != nil {
		h.writeCatalogError(c, "position", err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *httpHandler) handleCreatePosition(c *gin.Context) {
	var input catalog.PositionInput
	if !bindInput(c, &input) {
		return
	}
	position, err := h.catalog.CreatePosition(c.Request.Context(), input)
	if err != nil {
		h.writeCatalogError(c, "position", err)
		return
	}
	h.logMutation(c, "position created", position.ID)
	c.JSON(http.StatusCreated, position)
}

func (h *httpHandler) handleUpdatePosition(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var input catalog.PositionInput
	if !bindInput(c, &input) {
		return
	}
	position, err := h.catalog.UpdatePosition(c.Request.Context(), id, input)
	if err != nil {
		h.writeCatalogError(c, "position", err)
		return
	}
	h.logMutation(c, "position updated", id)
	c.JSON(http.StatusOK, position)
}

func (h *httpHandler) handleDeletePosition(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.catalog.DeletePosition(c.Request.Context(), id); err != nil {
		h.writeCatalogError(c, "position", err)
		return
	}
	h.logMutation(c, "position deleted", id)
	c.Status(http.StatusNoContent)
}

func bindInput(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return false
	}
	return true
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid_id", "identifier must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *httpHandler) writeCatalogError(c *gin.Context, resource string, err error) {
	code := "internal_error"
	var serviceErr *catalog.ServiceError
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}

	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, code, validationMessage(err))
	case errors.Is(err, catalog.ErrNotFound):
		writeError(c, http.StatusNotFound, code, resource+" not found")
	case errors.Is(err, catalog.ErrDuplicateCode):
		writeError(c, http.StatusConflict, code, resource+" code already exists")
	default:
		h.logger.Error("catalog request failed",
			zap.String("code", code),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		writeError(c, http.StatusInternalServerError, code, "")
	}
}

func (h *httpHandler) logMutation(c *gin.Context, message string, id int64) {
	h.logger.Info(message,
		zap.Int64("id", id),
		zap.Int64("account_id", c.GetInt64(accountIDContextKey)),
		zap.String("username", c.GetString(usernameContextKey)),
		zap.String("request_id", c.GetString(requestIDContextKey)))
}

func validationMessage(err error) string {
	text := err.Error()
	prefix := catalog.ErrInvalidInput.Error() + ": "
	if index := strings.LastIndex(text, prefix); index >= 0 {
		return text[index+len(prefix):]
	}
	return text
}
