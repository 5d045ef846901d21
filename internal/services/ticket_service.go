package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"

	"ticket-resale/config"
	"ticket-resale/internal/status"
	"ticket-resale/models"
	"ticket-resale/utils"
)

const (
	msgEnquirySuccess  = "Enquiry successful. You can now access seller contact info."
	msgAlreadyEnquired = "You already enquired. Contact access is available."
)

var placeholderImages = []string{
	"/assets/default3.png",
	"/assets/theater.png",
	"/assets/sports.png",
	"/assets/comedy.png",
}

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var allowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Accepted eventDate layouts. Layouts without a zone are read in the
// configured location.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type CreateListingInput struct {
	EventName     string           `json:"eventName"`
	EventDate     string           `json:"eventDate"`
	Venue         string           `json:"venue"`
	City          string           `json:"city"`
	SeatNumber    string           `json:"seatNumber"`
	TicketType    string           `json:"ticketType"`
	OriginalPrice *decimal.Decimal `json:"originalPrice"`
	ResalePrice   *decimal.Decimal `json:"resalePrice"`
	ImageURL      string           `json:"imageUrl"`
}

func (in *CreateListingInput) normalize() {
	in.EventName = strings.TrimSpace(in.EventName)
	in.EventDate = strings.TrimSpace(in.EventDate)
	in.Venue = strings.TrimSpace(in.Venue)
	in.City = strings.TrimSpace(in.City)
	in.SeatNumber = strings.TrimSpace(in.SeatNumber)
	in.TicketType = strings.TrimSpace(in.TicketType)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

func (in CreateListingInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.EventName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.EventDate, validation.Required, validation.By(eventDateRule)),
		validation.Field(&in.Venue, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.City, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.SeatNumber, validation.Length(0, 50)),
		validation.Field(&in.TicketType, validation.Length(0, 50)),
		validation.Field(&in.OriginalPrice, validation.Required, validation.By(nonNegativePrice)),
		validation.Field(&in.ResalePrice, validation.Required, validation.By(nonNegativePrice)),
		validation.Field(&in.ImageURL,
			validation.Length(0, 500),
			validation.When(in.ImageURL != "" && !strings.HasPrefix(in.ImageURL, "/"), is.RequestURL),
		),
	)
}

func eventDateRule(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if _, err := parseEventDate(raw, time.UTC); err != nil {
		return validation.NewError("validation_event_date", "must be a date such as 2026-06-01 or 2026-06-01T19:30")
	}
	return nil
}

func nonNegativePrice(value any) error {
	price, _ := value.(*decimal.Decimal)
	if price != nil && price.IsNegative() {
		return validation.NewError("validation_price_negative", "must not be negative")
	}
	return nil
}

func parseEventDate(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

type EnquiryResult struct {
	Message         string `json:"message"`
	AlreadyEnquired bool   `json:"alreadyEnquired"`
}

// ImageUpload is an uploaded file. Size is the declared size and is
// checked again while reading.
type ImageUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type TicketService struct {
	tickets TicketStore
	users   UserStore
	images  ImageStore

	loc           *time.Location
	maxImageBytes int64

	now         func() time.Time
	placeholder func() string
}

func NewTicketService(tickets TicketStore, users UserStore, images ImageStore, cfg *config.Config) *TicketService {
	return &TicketService{
		tickets:       tickets,
		users:         users,
		images:        images,
		loc:           cfg.Location(),
		maxImageBytes: cfg.MaxImageBytes,
		now:           time.Now,
		placeholder: func() string {
			return placeholderImages[rand.IntN(len(placeholderImages))]
		},
	}
}

func (s *TicketService) Create(ctx context.Context, session *Session, in CreateListingInput) (*models.OwnedTicket, error) {
	if session == nil || session.UserID == "" {
		return nil, status.Unauthorized("Access denied. No token provided.")
	}

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, status.Invalid("Invalid ticket details", err)
	}

	eventDate, err := parseEventDate(in.EventDate, s.loc)
	if err != nil {
		return nil, status.Invalid("Invalid ticket details", err)
	}

	ticket := &models.Ticket{
		EventName:      in.EventName,
		EventDate:      eventDate,
		Venue:          in.Venue,
		City:           in.City,
		SeatNumber:     in.SeatNumber,
		TicketType:     in.TicketType,
		OriginalPrice:  *in.OriginalPrice,
		ResalePrice:    *in.ResalePrice,
		Status:         models.TicketStatusAvailable,
		OwnerID:        session.UserID,
		ListingFeePaid: true,
		EnquiredBy:     []string{},
		ImageURL:       in.ImageURL,
	}
	if ticket.SeatNumber == "" {
		ticket.SeatNumber = models.DefaultSeatNumber
	}
	if ticket.TicketType == "" {
		ticket.TicketType = models.DefaultTicketType
	}
	if ticket.ImageURL == "" {
		ticket.ImageURL = s.placeholder()
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	slog.Info("Ticket listed", "ticket_id", ticket.ID, "owner", ticket.OwnerID, "city", ticket.City)

	owned := ticket.Owned()
	return &owned, nil
}

func (s *TicketService) Search(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	filter, err := NewSearchFilter(params, s.loc)
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}
	sortByEventDate(tickets)

	return s.withOwners(ctx, tickets)
}

func (s *TicketService) Get(ctx context.Context, ticketID string) (*models.PublicTicket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	public := ticket.Public()
	return &public, nil
}

func (s *TicketService) ByDateBucket(ctx context.Context, bucket string) ([]models.PublicTicket, error) {
	from, to, err := ResolveDateBucket(bucket, s.now().In(s.loc))
	if err != nil {
		return nil, err
	}

	tickets, err := s.tickets.Find(ctx, TicketFilter{
		Status: models.TicketStatusAvailable,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("find tickets for %s: %w", bucket, err)
	}
	sortByEventDate(tickets)

	out := make([]models.PublicTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Public())
	}
	return out, nil
}

// Enquire records that userID has "paid" to see the seller's contact.
// Repeating it is acknowledged without writing.
func (s *TicketService) Enquire(ctx context.Context, ticketID, userID string) (*EnquiryResult, error) {
	added, err := s.tickets.AddEnquiry(ctx, ticketID, userID)
	if err != nil {
		return nil, err
	}

	if !added {
		return &EnquiryResult{Message: msgAlreadyEnquired, AlreadyEnquired: true}, nil
	}

	slog.Info("Ticket enquiry recorded", "ticket_id", ticketID, "user_id", userID)
	return &EnquiryResult{Message: msgEnquirySuccess}, nil
}

// Contact discloses the owner's contact details to the owner or to a user
// who has enquired.
func (s *TicketService) Contact(ctx context.Context, ticketID, userID string) (*models.Contact, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !ticket.IsOwnedBy(userID) && !ticket.HasEnquiry(userID) {
		return nil, status.Forbidden("You have not enquired about this ticket.")
	}

	owner, err := s.users.FindByID(ctx, ticket.OwnerID)
	if err != nil {
		return nil, err
	}

	contact := owner.Contact()
	return &contact, nil
}

func (s *TicketService) MarkSold(ctx context.Context, ticketID, userID string) (*models.OwnedTicket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !ticket.IsOwnedBy(userID) {
		return nil, status.Forbidden("Unauthorized: You are not the owner of this ticket")
	}
	if ticket.IsSold() {
		return nil, status.Conflict("Ticket is already marked as sold")
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, models.TicketStatusAvailable, models.TicketStatusSold)
	if err != nil {
		return nil, fmt.Errorf("mark ticket sold: %w", err)
	}
	if !updated {
		// lost a race with another request from the owner
		return nil, status.Conflict("Ticket is already marked as sold")
	}

	ticket.Status = models.TicketStatusSold
	ticket.UpdatedAt = s.now()

	slog.Info("Ticket marked sold", "ticket_id", ticketID, "owner", userID)

	owned := ticket.Owned()
	return &owned, nil
}

func (s *TicketService) AttachImage(ctx context.Context, ticketID, userID string, upload ImageUpload) (*models.OwnedTicket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if upload.Content == nil {
		return nil, status.Invalid("No file uploaded", nil)
	}
	if !ticket.IsOwnedBy(userID) {
		return nil, status.Forbidden("Unauthorized: You are not the owner of this ticket")
	}
	if upload.Size > s.maxImageBytes {
		return nil, status.Invalid(fmt.Sprintf("Image must be at most %d bytes", s.maxImageBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, s.maxImageBytes+1))
	if err != nil {
		return nil, status.Invalid("Error reading uploaded file", nil)
	}
	if len(data) == 0 {
		return nil, status.Invalid("No file uploaded", nil)
	}
	if int64(len(data)) > s.maxImageBytes {
		return nil, status.Invalid(fmt.Sprintf("Image must be at most %d bytes", s.maxImageBytes), nil)
	}

	detected := mimetype.Detect(data)
	if !isAllowedImage(detected) {
		return nil, status.Invalid(fmt.Sprintf("Unsupported image format (%s). Allowed: jpeg, png, gif, webp", detected.String()), nil)
	}

	name, err := s.imageName(upload.Filename, detected)
	if err != nil {
		return nil, err
	}

	ref, err := s.images.Save(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	if err := s.tickets.SetImage(ctx, ticketID, ref); err != nil {
		if rmErr := s.images.Remove(ref); rmErr != nil {
			slog.Error("Failed to remove orphaned image", "ref", ref, "error", rmErr)
		}
		return nil, fmt.Errorf("set ticket image: %w", err)
	}

	ticket.ImageURL = ref
	ticket.UpdatedAt = s.now()

	owned := ticket.Owned()
	return &owned, nil
}

func (s *TicketService) ListedBy(ctx context.Context, userID string) ([]models.OwnedTicket, error) {
	tickets, err := s.tickets.Find(ctx, TicketFilter{OwnerID: userID})
	if err != nil {
		return nil, fmt.Errorf("find listed tickets: %w", err)
	}

	slices.SortStableFunc(tickets, func(a, b *models.Ticket) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	out := make([]models.OwnedTicket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Owned())
	}
	return out, nil
}

func (s *TicketService) EnquiredBy(ctx context.Context, userID string) ([]models.Listing, error) {
	tickets, err := s.tickets.Find(ctx, TicketFilter{EnquiredBy: userID})
	if err != nil {
		return nil, fmt.Errorf("find enquired tickets: %w", err)
	}
	sortByEventDate(tickets)

	return s.withOwners(ctx, tickets)
}

func (s *TicketService) withOwners(ctx context.Context, tickets []*models.Ticket) ([]models.Listing, error) {
	ownerIDs := make([]string, 0, len(tickets))
	for _, t := range tickets {
		if !slices.Contains(ownerIDs, t.OwnerID) {
			ownerIDs = append(ownerIDs, t.OwnerID)
		}
	}

	owners := map[string]*models.User{}
	if len(ownerIDs) > 0 {
		found, err := s.users.FindByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, fmt.Errorf("find ticket owners: %w", err)
		}
		owners = found
	}

	out := make([]models.Listing, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.Listing(owners[t.OwnerID]))
	}
	return out, nil
}

// imageName is "<unix nanos>-<random hex><ext>". The original extension is
// kept when it is an image extension, otherwise the sniffed one is used.
func (s *TicketService) imageName(original string, detected *mimetype.MIME) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	if !slices.Contains(allowedImageExtensions, ext) {
		ext = detected.Extension()
	}

	code, err := utils.GenerateCode(4)
	if err != nil {
		return "", fmt.Errorf("generate image name: %w", err)
	}

	return fmt.Sprintf("%d-%s%s", s.now().UnixNano(), strings.ToLower(code), ext), nil
}

func isAllowedImage(detected *mimetype.MIME) bool {
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

func sortByEventDate(tickets []*models.Ticket) {
	slices.SortStableFunc(tickets, func(a, b *models.Ticket) int {
		return a.EventDate.Compare(b.EventDate)
	})
}
