package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"ticket-resale/internal/status"
	"ticket-resale/models"
)

// memUsers and memTickets are in-memory stores with the same contract as the
// PocketBase-backed ones.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email || existing.Phone == u.Phone {
			return status.Conflict("User already exists")
		}
	}

	m.seq++
	u.ID = fmt.Sprintf("user-%d", m.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, status.NotFound("User not found")
	}
	out := *u
	return &out, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, status.NotFound("User not found")
}

func (m *memUsers) FindByIDs(_ context.Context, ids []string) (map[string]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]*models.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			copied := *u
			out[id] = &copied
		}
	}
	return out, nil
}

type memTickets struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*models.Ticket
	findErr error
	setErr  error
}

func newMemTickets() *memTickets {
	return &memTickets{tickets: map[string]*models.Ticket{}}
}

func (m *memTickets) Create(_ context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t.ID = fmt.Sprintf("ticket-%d", m.seq)
	// distinct creation times keep ordering deterministic
	t.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt

	m.tickets[t.ID] = cloneTicket(t)
	return nil
}

func (m *memTickets) FindByID(_ context.Context, id string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, status.NotFound("Ticket not found")
	}
	return cloneTicket(t), nil
}

func (m *memTickets) Find(_ context.Context, f TicketFilter) ([]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findErr != nil {
		return nil, m.findErr
	}

	out := []*models.Ticket{}
	for _, t := range m.tickets {
		if f.Matches(t) {
			out = append(out, cloneTicket(t))
		}
	}
	return out, nil
}

func (m *memTickets) AddEnquiry(_ context.Context, ticketID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return false, status.NotFound("Ticket not found")
	}
	if t.HasEnquiry(userID) {
		return false, nil
	}
	t.EnquiredBy = append(t.EnquiredBy, userID)
	return true, nil
}

func (m *memTickets) UpdateStatus(_ context.Context, ticketID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[ticketID]
	if !ok {
		return false, status.NotFound("Ticket not found")
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (m *memTickets) SetImage(_ context.Context, ticketID, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}
	t, ok := m.tickets[ticketID]
	if !ok {
		return status.NotFound("Ticket not found")
	}
	t.ImageURL = imageURL
	return nil
}

func (m *memTickets) get(id string) *models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneTicket(m.tickets[id])
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.EnquiredBy = slices.Clone(t.EnquiredBy)
	return &out
}

type memImages struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
}

func newMemImages() *memImages {
	return &memImages{files: map[string][]byte{}}
}

func (m *memImages) Save(_ context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ref := "/uploads/tickets/" + name
	m.files[ref] = buf.Bytes()
	return ref, nil
}

func (m *memImages) Remove(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.files, ref)
	m.removed = append(m.removed, ref)
	return nil
}
