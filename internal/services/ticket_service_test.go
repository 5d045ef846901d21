package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-resale/internal/status"
	"ticket-resale/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type ticketFixture struct {
	svc     *TicketService
	auth    *AuthService
	users   *memUsers
	tickets *memTickets
	images  *memImages
}

func setupTestTicketService(t *testing.T) *ticketFixture {
	t.Helper()

	users := newMemUsers()
	tickets := newMemTickets()
	images := newMemImages()

	auth, err := NewAuthService(users, newTestTokenService(t), testConfig())
	require.NoError(t, err)

	svc := NewTicketService(tickets, users, images, testConfig())
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 21, 15, 0, 0, kolkata) }
	svc.placeholder = func() string { return "/assets/default3.png" }

	return &ticketFixture{svc: svc, auth: auth, users: users, tickets: tickets, images: images}
}

func (f *ticketFixture) register(t *testing.T, name, phone string) *Session {
	t.Helper()
	result, err := f.auth.Register(context.Background(), RegisterInput{
		Username: name,
		Email:    name + "@example.com",
		Phone:    phone,
		Password: "password-" + name,
	})
	require.NoError(t, err)
	return &Session{UserID: result.User.ID, Username: result.User.Username, Role: result.User.Role}
}

func (f *ticketFixture) list(t *testing.T, owner *Session, in CreateListingInput) *models.OwnedTicket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), owner, in)
	require.NoError(t, err)
	return ticket
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func jazzNight() CreateListingInput {
	return CreateListingInput{
		EventName:     "Jazz Night",
		EventDate:     "2026-10-17T19:30",
		Venue:         "Blue Frog",
		City:          "Pune",
		OriginalPrice: price(1000),
		ResalePrice:   price(1200),
	}
}

func TestTicketService_Create_Defaults(t *testing.T) {
	f := setupTestTicketService(t)
	alice := f.register(t, "alice", "9000000001")

	ticket := f.list(t, alice, jazzNight())

	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, models.TicketStatusAvailable, ticket.Status)
	assert.Equal(t, models.DefaultSeatNumber, ticket.SeatNumber)
	assert.Equal(t, models.DefaultTicketType, ticket.TicketType)
	assert.Equal(t, "/assets/default3.png", ticket.ImageURL)
	assert.True(t, ticket.ListingFeePaid)
	assert.Zero(t, ticket.EnquiryCount)
	assert.Equal(t, time.Date(2026, 10, 17, 19, 30, 0, 0, kolkata), ticket.EventDate)
	assert.True(t, decimal.NewFromInt(1200).Equal(ticket.ResalePrice))

	stored := f.tickets.get(ticket.ID)
	assert.Equal(t, alice.UserID, stored.OwnerID)
	assert.Empty(t, stored.EnquiredBy)
}

func TestTicketService_Create_KeepsProvidedFields(t *testing.T) {
	f := setupTestTicketService(t)
	alice := f.register(t, "alice", "9000000001")

	in := jazzNight()
	in.SeatNumber = "B-12"
	in.TicketType = "VIP"
	in.ImageURL = "https://cdn.example.com/jazz.png"
	in.EventDate = "2026-10-17T19:30:00+05:30"

	ticket := f.list(t, alice, in)

	assert.Equal(t, "B-12", ticket.SeatNumber)
	assert.Equal(t, "VIP", ticket.TicketType)
	assert.Equal(t, "https://cdn.example.com/jazz.png", ticket.ImageURL)
	assert.True(t, time.Date(2026, 10, 17, 19, 30, 0, 0, kolkata).Equal(ticket.EventDate))
}

func TestTicketService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateListingInput)
	}{
		{"missing event name", func(in *CreateListingInput) { in.EventName = "  " }},
		{"missing venue", func(in *CreateListingInput) { in.Venue = "" }},
		{"missing city", func(in *CreateListingInput) { in.City = "" }},
		{"missing date", func(in *CreateListingInput) { in.EventDate = "" }},
		{"bad date", func(in *CreateListingInput) { in.EventDate = "next friday" }},
		{"missing original price", func(in *CreateListingInput) { in.OriginalPrice = nil }},
		{"negative resale price", func(in *CreateListingInput) { in.ResalePrice = price(-1) }},
		{"bad image url", func(in *CreateListingInput) { in.ImageURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestTicketService(t)
			alice := f.register(t, "alice", "9000000001")

			in := jazzNight()
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), alice, in)
			assert.ErrorIs(t, err, status.ErrValidation)
		})
	}
}

func TestTicketService_Create_RequiresSession(t *testing.T) {
	f := setupTestTicketService(t)

	_, err := f.svc.Create(context.Background(), nil, jazzNight())
	assert.ErrorIs(t, err, status.ErrAuth)
}

func TestTicketService_Search(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")

	late := jazzNight()
	late.EventDate = "2026-10-20T21:00"
	lateJazz := f.list(t, alice, late)
	earlyJazz := f.list(t, alice, jazzNight())

	rock := jazzNight()
	rock.EventName = "Rock Fest"
	f.list(t, alice, rock)

	mumbai := jazzNight()
	mumbai.City = "Mumbai"
	f.list(t, alice, mumbai)

	results, err := f.svc.Search(ctx, SearchParams{City: "Pune", EventName: "jazz"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, earlyJazz.ID, results[0].ID)
	assert.Equal(t, lateJazz.ID, results[1].ID)
	assert.Equal(t, alice.UserID, results[0].Owner.ID)
	assert.Equal(t, "alice", results[0].Owner.Username)

	all, err := f.svc.Search(ctx, SearchParams{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	onDay, err := f.svc.Search(ctx, SearchParams{EventDate: "2026-10-20"})
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, lateJazz.ID, onDay[0].ID)

	_, err = f.svc.Search(ctx, SearchParams{EventDate: "20-10-2026"})
	assert.ErrorIs(t, err, status.ErrValidation)
}

func TestTicketService_Search_StoreFailure(t *testing.T) {
	f := setupTestTicketService(t)
	f.tickets.findErr = errors.New("database is locked")

	_, err := f.svc.Search(context.Background(), SearchParams{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, status.ErrValidation)
}

func TestTicketService_Get(t *testing.T) {
	f := setupTestTicketService(t)
	alice := f.register(t, "alice", "9000000001")
	listed := f.list(t, alice, jazzNight())

	ticket, err := f.svc.Get(context.Background(), listed.ID)
	require.NoError(t, err)
	assert.Equal(t, listed.PublicTicket, *ticket)

	_, err = f.svc.Get(context.Background(), "ticket-404")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestTicketService_ByDateBucket(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")

	at := func(date string) CreateListingInput {
		in := jazzNight()
		in.EventDate = date
		return in
	}

	today := f.list(t, alice, at("2026-10-14T23:00"))
	tomorrow := f.list(t, alice, at("2026-10-15T10:00"))
	saturday := f.list(t, alice, at("2026-10-17T19:30"))
	sunday := f.list(t, alice, at("2026-10-18T20:00"))
	soldSunday := f.list(t, alice, at("2026-10-18T21:00"))
	f.list(t, alice, at("2026-10-19T00:00"))

	_, err := f.svc.MarkSold(ctx, soldSunday.ID, alice.UserID)
	require.NoError(t, err)

	ids := func(tickets []models.PublicTicket) []string {
		out := []string{}
		for _, t := range tickets {
			out = append(out, t.ID)
		}
		return out
	}

	got, err := f.svc.ByDateBucket(ctx, BucketToday)
	require.NoError(t, err)
	assert.Equal(t, []string{today.ID}, ids(got))

	got, err = f.svc.ByDateBucket(ctx, BucketTomorrow)
	require.NoError(t, err)
	assert.Equal(t, []string{tomorrow.ID}, ids(got))

	got, err = f.svc.ByDateBucket(ctx, BucketWeekend)
	require.NoError(t, err)
	assert.Equal(t, []string{saturday.ID, sunday.ID}, ids(got))

	_, err = f.svc.ByDateBucket(ctx, "someday")
	assert.ErrorIs(t, err, status.ErrValidation)
}

func TestTicketService_Enquire_Idempotent(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")
	bob := f.register(t, "bob", "9000000002")
	listed := f.list(t, alice, jazzNight())

	first, err := f.svc.Enquire(ctx, listed.ID, bob.UserID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyEnquired)
	assert.Equal(t, "Enquiry successful. You can now access seller contact info.", first.Message)

	second, err := f.svc.Enquire(ctx, listed.ID, bob.UserID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEnquired)
	assert.Equal(t, "You already enquired. Contact access is available.", second.Message)

	assert.Equal(t, []string{bob.UserID}, f.tickets.get(listed.ID).EnquiredBy)

	_, err = f.svc.Enquire(ctx, "ticket-404", bob.UserID)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestTicketService_Contact(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")
	bob := f.register(t, "bob", "9000000002")
	listed := f.list(t, alice, jazzNight())

	_, err := f.svc.Contact(ctx, listed.ID, bob.UserID)
	require.ErrorIs(t, err, status.ErrForbidden)
	assert.Equal(t, "You have not enquired about this ticket.", err.Error())

	_, err = f.svc.Enquire(ctx, listed.ID, bob.UserID)
	require.NoError(t, err)

	contact, err := f.svc.Contact(ctx, listed.ID, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, &models.Contact{Username: "alice", Email: "alice@example.com", Phone: "9000000001"}, contact)

	own, err := f.svc.Contact(ctx, listed.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, contact, own)

	_, err = f.svc.Contact(ctx, "ticket-404", bob.UserID)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestTicketService_MarkSold(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")
	bob := f.register(t, "bob", "9000000002")
	listed := f.list(t, alice, jazzNight())

	_, err := f.svc.MarkSold(ctx, listed.ID, bob.UserID)
	require.ErrorIs(t, err, status.ErrForbidden)
	assert.Equal(t, models.TicketStatusAvailable, f.tickets.get(listed.ID).Status)

	sold, err := f.svc.MarkSold(ctx, listed.ID, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSold, sold.Status)
	assert.Equal(t, models.TicketStatusSold, f.tickets.get(listed.ID).Status)

	_, err = f.svc.MarkSold(ctx, listed.ID, alice.UserID)
	require.ErrorIs(t, err, status.ErrConflict)
	assert.Equal(t, "Ticket is already marked as sold", err.Error())

	_, err = f.svc.MarkSold(ctx, "ticket-404", alice.UserID)
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestTicketService_AttachImage(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")
	listed := f.list(t, alice, jazzNight())

	updated, err := f.svc.AttachImage(ctx, listed.ID, alice.UserID, ImageUpload{
		Filename: "Poster.PNG",
		Size:     int64(len(pngHeader)),
		Content:  bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(updated.ImageURL, "/uploads/tickets/"))
	assert.True(t, strings.HasSuffix(updated.ImageURL, ".png"))
	assert.Equal(t, updated.ImageURL, f.tickets.get(listed.ID).ImageURL)
	assert.Equal(t, pngHeader, f.images.files[updated.ImageURL])
}

func TestTicketService_AttachImage_Rejections(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)

	tests := []struct {
		name    string
		asOwner bool
		upload  ImageUpload
		want    error
	}{
		{"no file", true, ImageUpload{}, status.ErrValidation},
		{"empty file", true, ImageUpload{Filename: "a.png", Content: bytes.NewReader(nil)}, status.ErrValidation},
		{"not an image", true, ImageUpload{Filename: "a.png", Size: 11, Content: strings.NewReader("hello world")}, status.ErrValidation},
		{"declared too large", true, ImageUpload{Filename: "a.png", Size: 4096, Content: bytes.NewReader(pngHeader)}, status.ErrValidation},
		{"actually too large", true, ImageUpload{Filename: "a.png", Size: 10, Content: bytes.NewReader(big)}, status.ErrValidation},
		{"not the owner", false, ImageUpload{Filename: "a.png", Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}, status.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestTicketService(t)
			alice := f.register(t, "alice", "9000000001")
			bob := f.register(t, "bob", "9000000002")
			listed := f.list(t, alice, jazzNight())

			user := bob.UserID
			if tt.asOwner {
				user = alice.UserID
			}

			_, err := f.svc.AttachImage(context.Background(), listed.ID, user, tt.upload)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.images.files)
			assert.Equal(t, "/assets/default3.png", f.tickets.get(listed.ID).ImageURL)
		})
	}
}

func TestTicketService_AttachImage_RemovesFileWhenUpdateFails(t *testing.T) {
	f := setupTestTicketService(t)
	alice := f.register(t, "alice", "9000000001")
	listed := f.list(t, alice, jazzNight())
	f.tickets.setErr = errors.New("disk full")

	_, err := f.svc.AttachImage(context.Background(), listed.ID, alice.UserID, ImageUpload{
		Filename: "poster.png",
		Size:     int64(len(pngHeader)),
		Content:  bytes.NewReader(pngHeader),
	})
	require.Error(t, err)

	assert.Empty(t, f.images.files)
	require.Len(t, f.images.removed, 1)
	assert.True(t, strings.HasPrefix(f.images.removed[0], "/uploads/tickets/"))
}

func TestTicketService_AttachImage_UsesSniffedExtension(t *testing.T) {
	f := setupTestTicketService(t)
	alice := f.register(t, "alice", "9000000001")
	listed := f.list(t, alice, jazzNight())

	updated, err := f.svc.AttachImage(context.Background(), listed.ID, alice.UserID, ImageUpload{
		Filename: "poster.exe",
		Size:     int64(len(pngHeader)),
		Content:  bytes.NewReader(pngHeader),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(updated.ImageURL, ".png"))
}

func TestTicketService_ListedAndEnquired(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "9000000001")
	bob := f.register(t, "bob", "9000000002")

	first := f.list(t, alice, jazzNight())
	second := f.list(t, alice, jazzNight())
	bobs := f.list(t, bob, jazzNight())

	_, err := f.svc.Enquire(ctx, first.ID, bob.UserID)
	require.NoError(t, err)
	_, err = f.svc.MarkSold(ctx, first.ID, alice.UserID)
	require.NoError(t, err)

	listed, err := f.svc.ListedBy(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID, "newest first")
	assert.Equal(t, first.ID, listed[1].ID)
	assert.Equal(t, 1, listed[1].EnquiryCount)
	assert.Equal(t, models.TicketStatusSold, listed[1].Status)

	enquired, err := f.svc.EnquiredBy(ctx, bob.UserID)
	require.NoError(t, err)
	require.Len(t, enquired, 1)
	assert.Equal(t, first.ID, enquired[0].ID)
	assert.Equal(t, "alice", enquired[0].Owner.Username)

	none, err := f.svc.EnquiredBy(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	bobListed, err := f.svc.ListedBy(ctx, bob.UserID)
	require.NoError(t, err)
	require.Len(t, bobListed, 1)
	assert.Equal(t, bobs.ID, bobListed[0].ID)
}

func TestTicketService_ResaleFlow(t *testing.T) {
	f := setupTestTicketService(t)
	ctx := context.Background()

	seller := f.register(t, "seller", "9000000001")
	listed := f.list(t, seller, jazzNight())

	buyer := f.register(t, "buyer", "9000000002")

	_, err := f.svc.Contact(ctx, listed.ID, buyer.UserID)
	require.ErrorIs(t, err, status.ErrForbidden)

	_, err = f.svc.Enquire(ctx, listed.ID, buyer.UserID)
	require.NoError(t, err)

	contact, err := f.svc.Contact(ctx, listed.ID, buyer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", contact.Email)
	assert.Equal(t, "9000000001", contact.Phone)

	before, err := f.svc.Search(ctx, SearchParams{City: "Pune"})
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = f.svc.MarkSold(ctx, listed.ID, seller.UserID)
	require.NoError(t, err)

	after, err := f.svc.Search(ctx, SearchParams{City: "Pune"})
	require.NoError(t, err)
	assert.Empty(t, after)

	// sold tickets stay readable by id
	ticket, err := f.svc.Get(ctx, listed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusSold, ticket.Status)
}
