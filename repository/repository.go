// Package repository is the storage collaborator for campaigns and users.
// Two backends satisfy the same interfaces: MongoDB for deployments and an
// in-process memory store for local runs without a database and for tests.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/charity-campaigns-go/models"
)

// CampaignRepository persists campaigns with their embedded donations.
// Lookups of unknown ids return models.ErrNotFound; storage faults return
// models.ErrPersistence.
type CampaignRepository interface {
	Insert(ctx context.Context, c *models.Campaign) error
	FindAll(ctx context.Context) ([]models.Campaign, error)
	FindByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Campaign, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error)
	ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.CampaignPatch) (*models.Campaign, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AppendDonation pushes d onto the donation list and increments the
	// raised total by d.Amount as one atomic update, returning the new state.
	AppendDonation(ctx context.Context, id primitive.ObjectID, d models.Donation) (*models.Campaign, error)
}

// UserRepository persists identities. Emails are unique; inserting or
// updating to a taken email returns ErrDuplicateEmail.
type UserRepository interface {
	Insert(ctx context.Context, u *models.User) error
	FindAll(ctx context.Context) ([]models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	ApplyPatch(ctx context.Context, id primitive.ObjectID, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
