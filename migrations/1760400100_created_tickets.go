package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"

	"ticket-resale/internal/store"
)

func init() {
	m.Register(func(app core.App) error {
		accounts, err := app.FindCollectionByNameOrId(store.AccountsCollection)
		if err != nil {
			return err
		}

		return app.Save(store.NewTicketsCollection(accounts))
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId(store.TicketsCollection)
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
