package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/internal/status"
	"ticket-resale/models"
)

const msgUserExists = "User already exists"

// Accounts stores users in the "accounts" collection.
type Accounts struct {
	app core.App
}

func NewAccounts(app core.App) *Accounts {
	return &Accounts{app: app}
}

func (s *Accounts) Create(ctx context.Context, u *models.User) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		collection, err := txApp.FindCachedCollectionByNameOrId(AccountsCollection)
		if err != nil {
			return fmt.Errorf("accounts collection: %w", err)
		}

		taken, err := txApp.CountRecords(collection, dbx.Or(
			dbx.HashExp{"username": u.Username},
			dbx.HashExp{"email": u.Email},
			dbx.HashExp{"phone": u.Phone},
		))
		if err != nil {
			return fmt.Errorf("check existing account: %w", err)
		}
		if taken > 0 {
			return status.Conflict(msgUserExists)
		}

		record := core.NewRecord(collection)
		applyUser(record, u)

		if err := txApp.SaveWithContext(ctx, record); err != nil {
			// the unique indexes catch anything the count missed
			var verrs validation.Errors
			if errors.As(err, &verrs) {
				return status.Conflict(msgUserExists)
			}
			return fmt.Errorf("save account: %w", err)
		}

		*u = *userFromRecord(record)
		return nil
	})
}

func (s *Accounts) FindByID(ctx context.Context, id string) (*models.User, error) {
	record, err := s.app.FindRecordById(AccountsCollection, id, withContext(ctx))
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return userFromRecord(record), nil
}

func (s *Accounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	record := &core.Record{}
	err := s.app.RecordQuery(AccountsCollection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"email": email}).
		Limit(1).
		One(record)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return userFromRecord(record), nil
}

func (s *Accounts) FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	records, err := s.app.FindRecordsByIds(AccountsCollection, ids, withContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	for _, r := range records {
		out[r.Id] = userFromRecord(r)
	}
	return out, nil
}

func applyUser(r *core.Record, u *models.User) {
	r.Set("username", u.Username)
	r.Set("email", u.Email)
	r.Set("phone", u.Phone)
	r.Set("password_hash", u.PasswordHash)
	r.Set("role", u.Role)
}

func userFromRecord(r *core.Record) *models.User {
	return &models.User{
		ID:           r.Id,
		Username:     r.GetString("username"),
		Email:        r.GetString("email"),
		Phone:        r.GetString("phone"),
		PasswordHash: r.GetString("password_hash"),
		Role:         r.GetString("role"),
		CreatedAt:    r.GetDateTime("created").Time(),
		UpdatedAt:    r.GetDateTime("updated").Time(),
	}
}

func withContext(ctx context.Context) func(q *dbx.SelectQuery) error {
	return func(q *dbx.SelectQuery) error {
		q.WithContext(ctx)
		return nil
	}
}

// notFound maps a missing row to a status.ErrNotFound error.
func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return status.NotFound(msg)
	}
	return err
}
