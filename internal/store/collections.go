package store

import (
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/models"
)

const (
	AccountsCollection = "accounts"
	TicketsCollection  = "tickets"
)

// Prices are stored as decimal text so they round-trip exactly.
const pricePattern = `^\d+(\.\d+)?$`

// NewAccountsCollection describes marketplace accounts. API rules are left
// nil so only superusers reach the records through the built-in endpoints.
func NewAccountsCollection() *core.Collection {
	c := core.NewBaseCollection(AccountsCollection)

	c.Fields.Add(
		&core.TextField{Name: "username", Required: true, Min: 3, Max: 50},
		&core.TextField{Name: "email", Required: true, Max: 255},
		&core.TextField{Name: "phone", Required: true, Min: 10, Max: 10, Pattern: `^\d{10}$`},
		&core.TextField{Name: "password_hash", Required: true, Hidden: true},
		&core.SelectField{Name: "role", Required: true, MaxSelect: 1, Values: []string{models.RoleUser}},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)

	c.AddIndex("idx_accounts_username", true, "`username`", "")
	c.AddIndex("idx_accounts_email", true, "`email`", "")
	c.AddIndex("idx_accounts_phone", true, "`phone`", "")

	return c
}

// NewTicketsCollection describes resale listings owned by accounts.
func NewTicketsCollection(accounts *core.Collection) *core.Collection {
	c := core.NewBaseCollection(TicketsCollection)

	c.Fields.Add(
		&core.TextField{Name: "event_name", Required: true, Max: 200},
		&core.DateField{Name: "event_date", Required: true},
		&core.TextField{Name: "venue", Required: true, Max: 200},
		&core.TextField{Name: "city", Required: true, Max: 100},
		&core.TextField{Name: "seat_number", Max: 50},
		&core.TextField{Name: "ticket_type", Max: 50},
		&core.TextField{Name: "original_price", Required: true, Max: 32, Pattern: pricePattern},
		&core.TextField{Name: "resale_price", Required: true, Max: 32, Pattern: pricePattern},
		&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{models.TicketStatusAvailable, models.TicketStatusSold},
		},
		&core.RelationField{Name: "owner", Required: true, CollectionId: accounts.Id, MaxSelect: 1},
		&core.BoolField{Name: "listing_fee_paid"},
		&core.RelationField{Name: "enquired_by", CollectionId: accounts.Id, MaxSelect: 999},
		&core.TextField{Name: "image_url", Max: 500},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)

	c.AddIndex("idx_tickets_city_status", false, "`city`, `status`", "")
	c.AddIndex("idx_tickets_event_date", false, "`event_date`", "")
	c.AddIndex("idx_tickets_owner", false, "`owner`", "")

	return c
}
