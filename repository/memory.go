package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/charity-campaigns-go/models"
)

// ErrDuplicateEmail is returned when an email is already registered.
var ErrDuplicateEmail = models.Invalid("email already registered")

// ---------------- CAMPAIGNS ----------------

// MemoryCampaigns keeps campaigns in insertion order behind a mutex.
// Records are copied in and out so callers never share state with the store.
type MemoryCampaigns struct {
	mu    sync.Mutex
	items []models.Campaign
}

func NewMemoryCampaigns() *MemoryCampaigns {
	return &MemoryCampaigns{}
}

func (m *MemoryCampaigns) Insert(ctx context.Context, c *models.Campaign) error {
	if err := ctx.Err(); err != nil {
		return models.Persistence("campaigns.insert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Donations == nil {
		c.Donations = []models.Donation{}
	}
	m.items = append(m.items, cloneCampaign(*c))
	return nil
}

func (m *MemoryCampaigns) FindAll(ctx context.Context) ([]models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("campaigns.find", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Campaign, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, cloneCampaign(c))
	}
	return out, nil
}

func (m *MemoryCampaigns) FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("campaigns.find", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Campaign{}
	for _, c := range m.items {
		if c.CreatedBy == ownerID {
			out = append(out, cloneCampaign(c))
		}
	}
	return out, nil
}

func (m *MemoryCampaigns) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("campaigns.find_one", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return nil, models.NotFound("campaign")
	}
	c := cloneCampaign(m.items[i])
	return &c, nil
}

func (m *MemoryCampaigns) ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.CampaignPatch) (*models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("campaigns.update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return nil, models.NotFound("campaign")
	}
	patch.Apply(&m.items[i])
	m.items[i].UpdatedAt = time.Now()
	c := cloneCampaign(m.items[i])
	return &c, nil
}

func (m *MemoryCampaigns) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return models.Persistence("campaigns.delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return models.NotFound("campaign")
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return nil
}

func (m *MemoryCampaigns) AppendDonation(ctx context.Context, id primitive.ObjectID, d models.Donation) (*models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("campaigns.donate", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(id)
	if i < 0 {
		return nil, models.NotFound("campaign")
	}
	m.items[i].Donations = append(m.items[i].Donations, d)
	m.items[i].Raised += d.Amount
	m.items[i].UpdatedAt = time.Now()
	c := cloneCampaign(m.items[i])
	return &c, nil
}

// Ping always succeeds.
func (m *MemoryCampaigns) Ping(ctx context.Context) error { return nil }

func (m *MemoryCampaigns) index(id primitive.ObjectID) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneCampaign(c models.Campaign) models.Campaign {
	c.Donations = append([]models.Donation{}, c.Donations...)
	if c.EndDate != nil {
		t := *c.EndDate
		c.EndDate = &t
	}
	c.Owner = nil
	return c
}

// ---------------- USERS ----------------

// MemoryUsers keeps identities in insertion order behind a mutex.
type MemoryUsers struct {
	mu    sync.Mutex
	items []models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{}
}

func (m *MemoryUsers) Insert(ctx context.Context, u *models.User) error {
	if err := ctx.Err(); err != nil {
		return models.Persistence("users.insert", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(u.Email, primitive.NilObjectID) {
		return ErrDuplicateEmail
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.items = append(m.items, *u)
	return nil
}

func (m *MemoryUsers) FindAll(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("users.find", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.User{}, m.items...), nil
}

func (m *MemoryUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("users.find_one", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.items {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, models.NotFound("user")
}

func (m *MemoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("users.find_one", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.items {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, models.NotFound("user")
}

func (m *MemoryUsers) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("users.find", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []models.User{}
	for _, u := range m.items {
		if want[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *MemoryUsers) ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("users.update", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID != id {
			continue
		}
		if patch.Email != nil && m.emailTaken(*patch.Email, id) {
			return nil, ErrDuplicateEmail
		}
		patch.Apply(&m.items[i])
		m.items[i].UpdatedAt = time.Now()
		u := m.items[i]
		return &u, nil
	}
	return nil, models.NotFound("user")
}

func (m *MemoryUsers) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return models.Persistence("users.delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return models.NotFound("user")
}

func (m *MemoryUsers) emailTaken(email string, except primitive.ObjectID) bool {
	for _, u := range m.items {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
