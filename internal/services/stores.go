package services

import (
	"context"
	"io"

	"ticket-resale/models"
)

// UserStore persists accounts. Lookups of absent users return a
// status.ErrNotFound error.
type UserStore interface {
	// Create fails with status.ErrConflict when username, email or phone
	// is already registered.
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByIDs skips unknown ids.
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// TicketStore persists listings. Lookups of absent tickets return a
// status.ErrNotFound error.
type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) error
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	Find(ctx context.Context, f TicketFilter) ([]*models.Ticket, error)

	// AddEnquiry atomically adds userID to the enquired set and reports
	// whether it was absent before.
	AddEnquiry(ctx context.Context, ticketID, userID string) (bool, error)

	// UpdateStatus moves the ticket from one status to another and reports
	// false, without writing, if the current status is not from.
	UpdateStatus(ctx context.Context, ticketID, from, to string) (bool, error)

	SetImage(ctx context.Context, ticketID, imageURL string) error
}

// ImageStore keeps uploaded listing images.
type ImageStore interface {
	// Save writes r under name and returns the public reference path.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ref string) error
}
