package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tickethub/helpdesk-api/internal/api/handler/v1/request"
	"github.com/tickethub/helpdesk-api/internal/api/handler/v1/response"
	"github.com/tickethub/helpdesk-api/internal/domain"
	"github.com/tickethub/helpdesk-api/internal/service"
)

type MessageService interface {
	ListByTicket(ctx context.Context, ticketID, callerID uint) ([]domain.Message, error)
	ListAfter(ctx context.Context, ticketID, lastID, callerID uint) ([]domain.Message, error)
	UnreadCount(ctx context.Context, ticketID, callerID uint) (int64, error)
	Delete(ctx context.Context, messageID, callerID uint) error
}

// MessageSubmitter persists a message and broadcasts it to the ticket
// group in one ordered step. HTTP sends go through it so they take the
// same path as duplex sends.
type MessageSubmitter interface {
	Submit(ctx context.Context, draft domain.Message, senderID uint) (domain.Message, error)
}

type MessageHandler struct {
	svc  MessageService
	hub  MessageSubmitter
	uSvc UserService
}

func NewMessageHandler(svc MessageService, hub MessageSubmitter, uSvc UserService) *MessageHandler {
	return &MessageHandler{
		svc:  svc,
		hub:  hub,
		uSvc: uSvc,
	}
}

// HandleGetTicketMessages godoc
// @Summary      Get the full message transcript of a ticket
// @Tags         messages
// @Produce      json
// @Param        ticketID path       int  true "ticket ID"
// @Success      200      {array}    domain.Message
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /user/GetTicketMessages/{ticketID} [get]
// @Security     BearerAuth
func (h *MessageHandler) HandleGetTicketMessages(ctx *gin.Context) {
	ticketID, respErr := parseTicketID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	messages, err := h.svc.ListByTicket(ctx.Request.Context(), ticketID, user.ID)
	if err != nil {
		renderMessageErr(ctx, "v1.HandleGetTicketMessages", ticketID, err)

		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// HandleSendMessage godoc
// @Summary      Send a chat message over HTTP
// @Description  Fallback for clients without a live duplex connection.
// @Description  The message is persisted and broadcast exactly as a
// @Description  duplex send would be.
// @Tags         messages
// @Produce      json
// @Param        request  body       request.SendMessageRequest true "request body"
// @Success      200      {object}   response.SendMessageResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /user/SendMessage [post]
// @Security     BearerAuth
func (h *MessageHandler) HandleSendMessage(ctx *gin.Context) {
	var req request.SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	saved, err := h.hub.Submit(ctx.Request.Context(), domain.Message{
		TicketID: req.TicketID,
		Content:  req.Content,
	}, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent),
			errors.Is(err, service.ErrInvalidTicketID),
			errors.Is(err, service.ErrTicketClosed):
			ctx.JSON(http.StatusOK, response.SendMessageResponse{
				Success: false,
				Message: err.Error(),
			})
		default:
			renderMessageErr(ctx, "v1.HandleSendMessage", req.TicketID, err)
		}

		return
	}

	ctx.JSON(http.StatusOK, response.SendMessageResponse{
		Success: true,
		Message: "Message sent successfully",
		Data:    &saved,
	})
}

// HandleGetNewMessages godoc
// @Summary      Get messages newer than a given message ID
// @Description  Polling endpoint. Results come back in the same order
// @Description  the duplex channel broadcasts them.
// @Tags         messages
// @Produce      json
// @Param        ticketId       query      int  true "ticket ID"
// @Param        lastMessageId  query      int  false "last seen message ID"
// @Success      200      {array}    domain.Message
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /user/GetNewMessages [get]
// @Security     BearerAuth
func (h *MessageHandler) HandleGetNewMessages(ctx *gin.Context) {
	ticketID, err := strconv.Atoi(ctx.Query("ticketId"))
	if err != nil || ticketID <= 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid ticketId %q", ctx.Query("ticketId"))))

		return
	}

	lastID, err := strconv.Atoi(ctx.DefaultQuery("lastMessageId", "0"))
	if err != nil || lastID < 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid lastMessageId %q", ctx.Query("lastMessageId"))))

		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	messages, err := h.svc.ListAfter(ctx.Request.Context(), uint(ticketID), uint(lastID), user.ID)
	if err != nil {
		renderMessageErr(ctx, "v1.HandleGetNewMessages", uint(ticketID), err)

		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// HandleGetUnreadMessageCount godoc
// @Summary      Count unread messages on a ticket
// @Description  Messages sent by the caller never count as unread.
// @Tags         messages
// @Produce      json
// @Param        ticketID path       int  true "ticket ID"
// @Success      200      {object}   response.UnreadCountResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /user/GetUnreadMessageCount/{ticketID} [get]
// @Security     BearerAuth
func (h *MessageHandler) HandleGetUnreadMessageCount(ctx *gin.Context) {
	ticketID, respErr := parseTicketID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	count, err := h.svc.UnreadCount(ctx.Request.Context(), ticketID, user.ID)
	if err != nil {
		renderMessageErr(ctx, "v1.HandleGetUnreadMessageCount", ticketID, err)

		return
	}

	ctx.JSON(http.StatusOK, response.UnreadCountResponse{
		TicketID: ticketID,
		Count:    count,
	})
}

// HandleDeleteMessage godoc
// @Summary      Delete a message
// @Description  Only the sender or an admin may delete a message.
// @Tags         messages
// @Produce      json
// @Param        messageID path      int  true "message ID"
// @Success      200      {object}   response.DeleteMessageResponse
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /user/DeleteMessage/{messageID} [delete]
// @Security     BearerAuth
func (h *MessageHandler) HandleDeleteMessage(ctx *gin.Context) {
	rawID := ctx.Param("messageID")
	messageID, err := strconv.Atoi(rawID)
	if err != nil || messageID <= 0 {
		response.RenderErr(ctx, response.ErrBadRequest(fmt.Errorf("invalid message ID %q", rawID)))

		return
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	if err := h.svc.Delete(ctx.Request.Context(), uint(messageID), user.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			response.RenderErr(ctx, response.ErrNotFound("message", "ID", messageID))
		case errors.Is(err, service.ErrTicketAccess):
			response.RenderErr(ctx, response.ErrForbidden())
		default:
			err = fmt.Errorf("v1.HandleDeleteMessage -> h.svc.Delete -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, response.DeleteMessageResponse{
		Success: true,
		Message: "Message deleted successfully",
	})
}

func renderMessageErr(ctx *gin.Context, op string, ticketID uint, err error) {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		response.RenderErr(ctx, response.ErrNotFound("ticket", "ID", ticketID))
	case errors.Is(err, service.ErrTicketAccess):
		response.RenderErr(ctx, response.ErrForbidden())
	default:
		err = fmt.Errorf("%v -> %w", op, err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
	}
}
