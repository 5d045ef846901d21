package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"ticket-resale/internal/services"
	"ticket-resale/models"
)

const msgTicketNotFound = "Ticket not found"

// Tickets stores listings in the "tickets" collection.
type Tickets struct {
	app core.App
}

func NewTickets(app core.App) *Tickets {
	return &Tickets{app: app}
}

func (s *Tickets) Create(ctx context.Context, t *models.Ticket) error {
	collection, err := s.app.FindCachedCollectionByNameOrId(TicketsCollection)
	if err != nil {
		return fmt.Errorf("tickets collection: %w", err)
	}

	record := core.NewRecord(collection)
	applyTicket(record, t)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}

	*t = *ticketFromRecord(record)
	return nil
}

func (s *Tickets) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(TicketsCollection, id, withContext(ctx))
	if err != nil {
		return nil, notFound(err, msgTicketNotFound)
	}
	return ticketFromRecord(record), nil
}

func (s *Tickets) Find(ctx context.Context, f services.TicketFilter) ([]*models.Ticket, error) {
	query := s.app.RecordQuery(TicketsCollection).WithContext(ctx)
	for _, exp := range filterExpressions(f) {
		query.AndWhere(exp)
	}

	records := []*core.Record{}
	if err := query.OrderBy("event_date ASC").All(&records); err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}

	out := make([]*models.Ticket, 0, len(records))
	for _, r := range records {
		t := ticketFromRecord(r)
		// event name is matched here, SQLite LIKE only folds ASCII case
		if !f.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Tickets) AddEnquiry(ctx context.Context, ticketID, userID string) (bool, error) {
	added := false

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById(TicketsCollection, ticketID, withContext(ctx))
		if err != nil {
			return notFound(err, msgTicketNotFound)
		}

		for _, id := range record.GetStringSlice("enquired_by") {
			if id == userID {
				return nil
			}
		}

		record.Set("enquired_by+", userID)
		if err := txApp.SaveWithContext(ctx, record); err != nil {
			return fmt.Errorf("save enquiry: %w", err)
		}
		added = true
		return nil
	})

	return added, err
}

func (s *Tickets) UpdateStatus(ctx context.Context, ticketID, from, to string) (bool, error) {
	updated := false

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById(TicketsCollection, ticketID, withContext(ctx))
		if err != nil {
			return notFound(err, msgTicketNotFound)
		}

		if record.GetString("status") != from {
			return nil
		}

		record.Set("status", to)
		if err := txApp.SaveWithContext(ctx, record); err != nil {
			return fmt.Errorf("save ticket status: %w", err)
		}
		updated = true
		return nil
	})

	return updated, err
}

func (s *Tickets) SetImage(ctx context.Context, ticketID, imageURL string) error {
	record, err := s.app.FindRecordById(TicketsCollection, ticketID, withContext(ctx))
	if err != nil {
		return notFound(err, msgTicketNotFound)
	}

	record.Set("image_url", imageURL)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save ticket image: %w", err)
	}
	return nil
}

func (s *Tickets) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows := []struct {
		Status string `db:"status"`
		Total  int64  `db:"total"`
	}{}

	err := s.app.RecordQuery(TicketsCollection).
		WithContext(ctx).
		Select("status", "COUNT(*) AS total").
		GroupBy("status").
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	counts := map[string]int64{
		models.TicketStatusAvailable: 0,
		models.TicketStatusSold:      0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// filterExpressions translates a filter into WHERE clauses that are ANDed
// together. Dates are stored as UTC text so the range compares as strings.
// EventName is left to TicketFilter.Matches.
func filterExpressions(f services.TicketFilter) []dbx.Expression {
	exps := []dbx.Expression{}

	if f.Status != "" {
		exps = append(exps, dbx.HashExp{"status": f.Status})
	}
	if f.City != "" {
		exps = append(exps, dbx.HashExp{"city": f.City})
	}
	if !f.From.IsZero() {
		exps = append(exps, dbx.NewExp("[[event_date]] >= {:from}", dbx.Params{"from": storedDate(f.From)}))
	}
	if !f.To.IsZero() {
		exps = append(exps, dbx.NewExp("[[event_date]] < {:to}", dbx.Params{"to": storedDate(f.To)}))
	}
	if f.OwnerID != "" {
		exps = append(exps, dbx.HashExp{"owner": f.OwnerID})
	}
	if f.EnquiredBy != "" {
		exps = append(exps, dbx.NewExp(
			"EXISTS (SELECT 1 FROM json_each(CASE WHEN json_valid([[tickets.enquired_by]]) THEN [[tickets.enquired_by]] ELSE '[]' END) WHERE [[json_each.value]] = {:enquirer})",
			dbx.Params{"enquirer": f.EnquiredBy},
		))
	}

	return exps
}

func storedDate(t time.Time) string {
	return t.UTC().Format(types.DefaultDateLayout)
}

func applyTicket(r *core.Record, t *models.Ticket) {
	r.Set("event_name", t.EventName)
	r.Set("event_date", t.EventDate)
	r.Set("venue", t.Venue)
	r.Set("city", t.City)
	r.Set("seat_number", t.SeatNumber)
	r.Set("ticket_type", t.TicketType)
	r.Set("original_price", t.OriginalPrice.String())
	r.Set("resale_price", t.ResalePrice.String())
	r.Set("status", t.Status)
	r.Set("owner", t.OwnerID)
	r.Set("listing_fee_paid", t.ListingFeePaid)
	r.Set("enquired_by", t.EnquiredBy)
	r.Set("image_url", t.ImageURL)
}

func ticketFromRecord(r *core.Record) *models.Ticket {
	enquired := r.GetStringSlice("enquired_by")
	if enquired == nil {
		enquired = []string{}
	}

	return &models.Ticket{
		ID:             r.Id,
		EventName:      r.GetString("event_name"),
		EventDate:      r.GetDateTime("event_date").Time(),
		Venue:          r.GetString("venue"),
		City:           r.GetString("city"),
		SeatNumber:     r.GetString("seat_number"),
		TicketType:     r.GetString("ticket_type"),
		OriginalPrice:  storedPrice(r, "original_price"),
		ResalePrice:    storedPrice(r, "resale_price"),
		Status:         r.GetString("status"),
		OwnerID:        r.GetString("owner"),
		ListingFeePaid: r.GetBool("listing_fee_paid"),
		EnquiredBy:     enquired,
		ImageURL:       r.GetString("image_url"),
		CreatedAt:      r.GetDateTime("created").Time(),
		UpdatedAt:      r.GetDateTime("updated").Time(),
	}
}

// storedPrice reads a price kept as decimal text. Unparseable values read
// as zero.
func storedPrice(r *core.Record, field string) decimal.Decimal {
	price, err := decimal.NewFromString(r.GetString(field))
	if err != nil {
		return decimal.Zero
	}
	return price
}
