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

type TicketService interface {
	CreateTicket(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID uint, caller domain.User) (domain.Ticket, error)
	ListTickets(ctx context.Context, caller domain.User) ([]domain.Ticket, error)
	CloseTicket(ctx context.Context, ticketID uint, caller domain.User) (domain.Ticket, error)
	Respond(ctx context.Context, ticketID uint, response string, closeTicket bool) (domain.Ticket, error)
}

type TicketHandler struct {
	svc  TicketService
	uSvc UserService
}

func NewTicketHandler(svc TicketService, uSvc UserService) *TicketHandler {
	return &TicketHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// HandleCreateTicket godoc
// @Summary      Create a support ticket
// @Tags         tickets
// @Produce      json
// @Param        request  body       request.CreateTicketRequest true "request body"
// @Success      201      {object}   domain.Ticket
// @Failure      400      {object}   response.Err
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /tickets [post]
// @Security     BearerAuth
func (h *TicketHandler) HandleCreateTicket(ctx *gin.Context) {
	var req request.CreateTicketRequest
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

	ticket, err := h.svc.CreateTicket(ctx.Request.Context(), domain.Ticket{
		UserID:      user.ID,
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	})
	if err != nil {
		err = fmt.Errorf("v1.HandleCreateTicket -> h.svc.CreateTicket -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusCreated, ticket)
}

// HandleListTickets godoc
// @Summary      List tickets visible to the caller
// @Description  Admins see every ticket, users see their own.
// @Tags         tickets
// @Produce      json
// @Success      200      {array}    domain.Ticket
// @Failure      401      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /tickets [get]
// @Security     BearerAuth
func (h *TicketHandler) HandleListTickets(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	tickets, err := h.svc.ListTickets(ctx.Request.Context(), user)
	if err != nil {
		err = fmt.Errorf("v1.HandleListTickets -> h.svc.ListTickets -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))

		return
	}

	ctx.JSON(http.StatusOK, tickets)
}

// HandleGetTicket godoc
// @Summary      Get a ticket by ID
// @Tags         tickets
// @Produce      json
// @Param        ticketID path       int  true "ticket ID"
// @Success      200      {object}   domain.Ticket
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /tickets/{ticketID} [get]
// @Security     BearerAuth
func (h *TicketHandler) HandleGetTicket(ctx *gin.Context) {
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

	ticket, err := h.svc.GetTicket(ctx.Request.Context(), ticketID, user)
	if err != nil {
		renderTicketErr(ctx, "v1.HandleGetTicket", ticketID, err)

		return
	}

	ctx.JSON(http.StatusOK, ticket)
}

// HandleCloseTicket godoc
// @Summary      Close a ticket
// @Description  Closing is idempotent. Closed tickets reject new chat messages.
// @Tags         tickets
// @Produce      json
// @Param        ticketID path       int  true "ticket ID"
// @Success      200      {object}   domain.Ticket
// @Failure      400      {object}   response.Err
// @Failure      403      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /tickets/{ticketID}/close [post]
// @Security     BearerAuth
func (h *TicketHandler) HandleCloseTicket(ctx *gin.Context) {
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

	ticket, err := h.svc.CloseTicket(ctx.Request.Context(), ticketID, user)
	if err != nil {
		renderTicketErr(ctx, "v1.HandleCloseTicket", ticketID, err)

		return
	}

	ctx.JSON(http.StatusOK, ticket)
}

// HandleRespondTicket godoc
// @Summary      Record an admin response on a ticket
// @Tags         tickets
// @Produce      json
// @Param        ticketID path       int  true "ticket ID"
// @Param        request  body       request.RespondTicketRequest true "request body"
// @Success      200      {object}   domain.Ticket
// @Failure      400      {object}   response.Err
// @Failure      404      {object}   response.Err
// @Failure      500      {object}   response.Err
// @Router       /admin/tickets/{ticketID}/respond [post]
// @Security     BearerAuth
func (h *TicketHandler) HandleRespondTicket(ctx *gin.Context) {
	ticketID, respErr := parseTicketID(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)

		return
	}

	var req request.RespondTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))

		return
	}

	ticket, err := h.svc.Respond(ctx.Request.Context(), ticketID, req.Response, req.Close)
	if err != nil {
		if errors.Is(err, service.ErrTicketClosed) {
			response.RenderErr(ctx, response.ErrBadRequest(service.ErrTicketClosed))

			return
		}

		renderTicketErr(ctx, "v1.HandleRespondTicket", ticketID, err)

		return
	}

	ctx.JSON(http.StatusOK, ticket)
}

func parseTicketID(ctx *gin.Context) (uint, *response.Err) {
	rawID := ctx.Param("ticketID")
	id, err := strconv.Atoi(rawID)
	if err != nil || id <= 0 {
		return 0, response.ErrBadRequest(fmt.Errorf("invalid ticket ID %q", rawID))
	}

	return uint(id), nil
}

func renderTicketErr(ctx *gin.Context, op string, ticketID uint, err error) {
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
