package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/internal/services"
	"ticket-resale/models"
	"ticket-resale/monitoring"
)

type TicketService interface {
	Create(ctx context.Context, session *services.Session, in services.CreateListingInput) (*models.OwnedTicket, error)
	Search(ctx context.Context, params services.SearchParams) ([]models.Listing, error)
	Get(ctx context.Context, ticketID string) (*models.PublicTicket, error)
	ByDateBucket(ctx context.Context, bucket string) ([]models.PublicTicket, error)
	Enquire(ctx context.Context, ticketID, userID string) (*services.EnquiryResult, error)
	Contact(ctx context.Context, ticketID, userID string) (*models.Contact, error)
	MarkSold(ctx context.Context, ticketID, userID string) (*models.OwnedTicket, error)
	AttachImage(ctx context.Context, ticketID, userID string, upload services.ImageUpload) (*models.OwnedTicket, error)
	ListedBy(ctx context.Context, userID string) ([]models.OwnedTicket, error)
	EnquiredBy(ctx context.Context, userID string) ([]models.Listing, error)
}

const imageFormField = "image"

type TicketHandler struct {
	tickets TicketService
	tokens  TokenVerifier
}

func NewTicketHandler(tickets TicketService, tokens TokenVerifier) *TicketHandler {
	return &TicketHandler{tickets: tickets, tokens: tokens}
}

// Create - List a ticket for resale
func (h *TicketHandler) Create(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	var in services.CreateListingInput
	if err := e.BindBody(&in); err != nil {
		return apis.NewBadRequestError("Invalid request body", nil)
	}

	ticket, err := h.tickets.Create(e.Request.Context(), session, in)
	monitoring.TrackOperation("listing", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusCreated, ticket)
}

// Search - Available tickets filtered by city, date and event name
func (h *TicketHandler) Search(e *core.RequestEvent) error {
	query := e.Request.URL.Query()

	listings, err := h.tickets.Search(e.Request.Context(), services.SearchParams{
		City:      query.Get("city"),
		EventDate: query.Get("eventDate"),
		EventName: query.Get("eventName"),
	})
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, listings)
}

// Get - Ticket detail
func (h *TicketHandler) Get(e *core.RequestEvent) error {
	ticket, err := h.tickets.Get(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, ticket)
}

// Subresource - GET /tickets/{id}/{part}
//
// /tickets/date/{bucket} and /tickets/{id}/contact overlap in the router, so
// both are served from this one pattern. Only contact needs a token.
func (h *TicketHandler) Subresource(e *core.RequestEvent) error {
	id, part := e.Request.PathValue("id"), e.Request.PathValue("part")

	switch {
	case id == "date":
		return h.byDate(e, part)
	case part == "contact":
		if err := authenticate(e, h.tokens); err != nil {
			return err
		}
		return h.contact(e, id)
	default:
		return apis.NewNotFoundError("The requested resource wasn't found.", nil)
	}
}

// byDate - Available tickets for today, tomorrow or the weekend
func (h *TicketHandler) byDate(e *core.RequestEvent, bucket string) error {
	tickets, err := h.tickets.ByDateBucket(e.Request.Context(), bucket)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, tickets)
}

// Enquire - Unlock the seller's contact details
func (h *TicketHandler) Enquire(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	result, err := h.tickets.Enquire(e.Request.Context(), e.Request.PathValue("id"), session.UserID)
	monitoring.TrackOperation("enquiry", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, result)
}

// contact - Seller contact details for the owner or an enquirer
func (h *TicketHandler) contact(e *core.RequestEvent, ticketID string) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	contact, err := h.tickets.Contact(e.Request.Context(), ticketID, session.UserID)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{"owner": contact})
}

// MarkSold - Owner closes the listing
func (h *TicketHandler) MarkSold(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.MarkSold(e.Request.Context(), e.Request.PathValue("id"), session.UserID)
	monitoring.TrackOperation("sold", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Ticket marked as sold",
		"ticket":  ticket,
	})
}

// UploadImage - Owner attaches an image from the multipart field "image"
func (h *TicketHandler) UploadImage(e *core.RequestEvent) error {
	session, err := sessionFrom(e)
	if err != nil {
		return err
	}

	upload := services.ImageUpload{}

	var tooLarge *http.MaxBytesError

	file, header, err := e.Request.FormFile(imageFormField)
	switch {
	case err == nil:
		defer file.Close()
		upload.Filename = header.Filename
		upload.Size = header.Size
		upload.Content = file
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// no content; the service reports the missing file
	case errors.As(err, &tooLarge):
		return apis.NewBadRequestError("Image is too large", nil)
	default:
		return apis.NewBadRequestError("Invalid multipart form", nil)
	}

	ticket, err := h.tickets.AttachImage(e.Request.Context(), e.Request.PathValue("id"), session.UserID, upload)
	monitoring.TrackOperation("image", err)
	if err != nil {
		return apiError(e, err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message":  "Image uploaded successfully",
		"imageUrl": ticket.ImageURL,
		"ticket":   ticket,
	})
}

// Cities - Cities offered by the search form
func (h *TicketHandler) Cities(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{"cities": models.Cities()})
}
