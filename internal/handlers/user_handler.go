package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
)

type UserHandler struct {
	auth    AuthService
	tickets TicketService
}

func NewUserHandler(auth AuthService, tickets TicketService) *UserHandler {
	return &UserHandler{auth: auth, tickets: tickets}
}

// Me - Profile of the signed in user
func (h *UserHandler) Me(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	profile, err := h.auth.Profile(e.Request.Context(), session.UserID)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, profile)
}

// ListedTickets - Tickets the signed in user has listed
func (h *UserHandler) ListedTickets(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.ListedBy(e.Request.Context(), session.UserID)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, tickets)
}

// EnquiredTickets - Tickets the signed in user has enquired about
func (h *UserHandler) EnquiredTickets(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	tickets, err := h.tickets.EnquiredBy(e.Request.Context(), session.UserID)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, tickets)
}
