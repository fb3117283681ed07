package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Campaign struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"` // Owner, immutable
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Goal        float64            `bson:"goal" json:"goal"`
	Raised      float64            `bson:"raised" json:"raised"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Donations   []Donation         `bson:"donations" json:"donations"`
	EndDate     *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`

	// Enriched fields
	Owner *OwnerSummary `bson:"-" json:"owner,omitempty"`
}

// Donation is one append-only contribution embedded in a campaign.
type Donation struct {
	Name      string    `bson:"name" json:"name"`
	Amount    float64   `bson:"amount" json:"amount"`
	DonatedAt time.Time `bson:"donated_at" json:"donated_at"`
}

// CampaignPatch holds the fields of a partial campaign update. A nil field
// is left untouched; a pointer to a zero value is an explicit change.
// ClearEndDate removes the end date and wins over EndDate.
type CampaignPatch struct {
	Title        *string
	Description  *string
	Goal         *float64
	Image        *string
	EndDate      *time.Time
	ClearEndDate bool
}

func (p CampaignPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Goal == nil &&
		p.Image == nil && p.EndDate == nil && !p.ClearEndDate
}

// Apply writes the patch onto c in place.
func (p CampaignPatch) Apply(c *Campaign) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Goal != nil {
		c.Goal = *p.Goal
	}
	if p.Image != nil {
		c.Image = *p.Image
	}
	if p.ClearEndDate {
		c.EndDate = nil
	} else if p.EndDate != nil {
		t := *p.EndDate
		c.EndDate = &t
	}
}

// TotalDonated sums the embedded donation entries.
func (c *Campaign) TotalDonated() float64 {
	var sum float64
	for _, d := range c.Donations {
		sum += d.Amount
	}
	return sum
}
