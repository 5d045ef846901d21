package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TicketStatusAvailable = "available"
	TicketStatusSold      = "sold"

	DefaultSeatNumber = "General"
	DefaultTicketType = "Standard"
)

// Ticket is a resale listing as stored.
type Ticket struct {
	ID             string          `json:"id"`
	EventName      string          `json:"eventName"`
	EventDate      time.Time       `json:"eventDate"`
	Venue          string          `json:"venue"`
	City           string          `json:"city"`
	SeatNumber     string          `json:"seatNumber"`
	TicketType     string          `json:"ticketType"`
	OriginalPrice  decimal.Decimal `json:"originalPrice"`
	ResalePrice    decimal.Decimal `json:"resalePrice"`
	Status         string          `json:"status"`
	OwnerID        string          `json:"owner"`
	ListingFeePaid bool            `json:"listingFeePaid"`
	EnquiredBy     []string        `json:"enquiredUsers"`
	ImageURL       string          `json:"imageUrl"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (t *Ticket) IsOwnedBy(userID string) bool {
	return userID != "" && t.OwnerID == userID
}

func (t *Ticket) HasEnquiry(userID string) bool {
	return slices.Contains(t.EnquiredBy, userID)
}

func (t *Ticket) IsSold() bool {
	return t.Status == TicketStatusSold
}

// PublicTicket is the listing without owner identity or bookkeeping fields.
type PublicTicket struct {
	ID            string          `json:"id"`
	EventName     string          `json:"eventName"`
	EventDate     time.Time       `json:"eventDate"`
	Venue         string          `json:"venue"`
	City          string          `json:"city"`
	SeatNumber    string          `json:"seatNumber"`
	TicketType    string          `json:"ticketType"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	ResalePrice   decimal.Decimal `json:"resalePrice"`
	Status        string          `json:"status"`
	ImageURL      string          `json:"imageUrl"`
}

// Listing is a search result with the seller's display name attached.
type Listing struct {
	PublicTicket
	Owner ListingOwner `json:"owner"`
}

type ListingOwner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// OwnedTicket is what the owner sees of their own listing.
type OwnedTicket struct {
	PublicTicket
	ListingFeePaid bool      `json:"listingFeePaid"`
	EnquiryCount   int       `json:"enquiryCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (t *Ticket) Public() PublicTicket {
	return PublicTicket{
		ID:            t.ID,
		EventName:     t.EventName,
		EventDate:     t.EventDate,
		Venue:         t.Venue,
		City:          t.City,
		SeatNumber:    t.SeatNumber,
		TicketType:    t.TicketType,
		OriginalPrice: t.OriginalPrice,
		ResalePrice:   t.ResalePrice,
		Status:        t.Status,
		ImageURL:      t.ImageURL,
	}
}

// Listing attaches the owner's username; an unknown owner leaves it empty.
func (t *Ticket) Listing(owner *User) Listing {
	l := Listing{
		PublicTicket: t.Public(),
		Owner:        ListingOwner{ID: t.OwnerID},
	}
	if owner != nil {
		l.Owner.Username = owner.Username
	}
	return l
}

func (t *Ticket) Owned() OwnedTicket {
	return OwnedTicket{
		PublicTicket:   t.Public(),
		ListingFeePaid: t.ListingFeePaid,
		EnquiryCount:   len(t.EnquiredBy),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
