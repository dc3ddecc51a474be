package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secret-echo/secret-echo/internal/common"
	"github.com/secret-echo/secret-echo/internal/message"
)

// ListMessages is the bulk fetch boundary: the caller's full history,
// ascending by creation time, senders expanded.
func (h *Handler) ListMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "not authorized to access this route")
		return
	}

	msgs, err := h.MsgSvc.ListForUser(c.Request.Context(), uid)
	if err != nil {
		log.Printf("[ListMessages] failed user=%d err=%v", uid, err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load messages")
		return
	}

	common.OK(c, gin.H{
		"count":    len(msgs),
		"messages": msgs,
	})
}

type sendMessageReq struct {
	Content string `json:"content"`
}

// SendMessage persists the inbound message synchronously, then fires the
// reply pipeline without awaiting it.
func (h *Handler) SendMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "not authorized to access this route")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	view, err := h.MsgSvc.CreateUserMessage(c.Request.Context(), uid, req.Content)
	if err != nil {
		if errors.Is(err, message.ErrEmptyContent) {
			common.Fail(c, http.StatusBadRequest, 10010, "message content cannot be empty")
			return
		}
		log.Printf("[SendMessage] create failed user=%d err=%v", uid, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to send message")
		return
	}

	h.Dispatch.Dispatch(uid, view.Content)

	common.OK(c, gin.H{"message": view})
}
