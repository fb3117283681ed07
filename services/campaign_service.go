package services

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/charity-campaigns-go/models"
	"github.com/phillip/charity-campaigns-go/repository"
)

const anonymousDonor = "Anonymous"

// ImageStore hosts campaign images.
type ImageStore interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
	// Delete removes an image previously returned by Upload. URLs the store
	// does not host are ignored.
	Delete(ctx context.Context, url string) error
}

// DonationNotifier tells a campaign owner about a new donation.
type DonationNotifier interface {
	NotifyDonation(ctx context.Context, owner models.User, c models.Campaign, d models.Donation) error
}

// CampaignInput is the payload of Create.
type CampaignInput struct {
	Title       string
	Description string
	Goal        float64
	Image       string
	EndDate     *time.Time
}

type CampaignService struct {
	campaigns repository.CampaignRepository
	users     repository.UserRepository
	images    ImageStore
	notifier  DonationNotifier
	log       *slog.Logger
	now       func() time.Time
}

type CampaignOption func(*CampaignService)

func WithImageStore(s ImageStore) CampaignOption {
	return func(cs *CampaignService) { cs.images = s }
}

func WithDonationNotifier(n DonationNotifier) CampaignOption {
	return func(cs *CampaignService) { cs.notifier = n }
}

func WithCampaignLogger(l *slog.Logger) CampaignOption {
	return func(cs *CampaignService) { cs.log = l }
}

func NewCampaignService(campaigns repository.CampaignRepository, users repository.UserRepository, opts ...CampaignOption) *CampaignService {
	s := &CampaignService{
		campaigns: campaigns,
		users:     users,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------- CREATE ----------------

func (s *CampaignService) Create(ctx context.Context, owner *models.Actor, in CampaignInput) (*models.Campaign, error) {
	if owner == nil {
		return nil, models.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.Invalid("title is required")
	}
	if !validAmount(in.Goal) {
		return nil, models.Invalid("goal must be greater than 0")
	}

	now := s.now()
	c := &models.Campaign{
		ID:          primitive.NewObjectID(),
		CreatedBy:   owner.ID,
		Title:       title,
		Description: in.Description,
		Goal:        in.Goal,
		Raised:      0,
		Image:       in.Image,
		Donations:   []models.Donation{},
		EndDate:     in.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.campaigns.Insert(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("campaign created", "campaign_id", c.ID.Hex(), "owner_id", owner.ID.Hex())
	return c, nil
}

// ---------------- LIST ----------------

// ListAll returns every campaign with its owner's contact details.
func (s *CampaignService) ListAll(ctx context.Context) ([]models.Campaign, error) {
	campaigns, err := s.campaigns.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, campaigns)
}

// ListByOwner returns the owner's campaigns; an empty slice when there are none.
func (s *CampaignService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Campaign, error) {
	campaigns, err := s.campaigns.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, campaigns)
}

// ---------------- GET ----------------

func (s *CampaignService) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	oid, err := parseID("campaign", id)
	if err != nil {
		return nil, err
	}
	c, err := s.campaigns.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return s.populateOne(ctx, c)
}

// ---------------- UPDATE ----------------

// Update applies patch when actor owns the campaign or is an admin.
func (s *CampaignService) Update(ctx context.Context, id string, patch models.CampaignPatch, actor *models.Actor) (*models.Campaign, error) {
	existing, err := s.Authorize(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	patch, err = normalizePatch(patch)
	if err != nil {
		return nil, err
	}
	updated, err := s.campaigns.ApplyPatch(ctx, existing.ID, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("campaign updated", "campaign_id", existing.ID.Hex(), "actor_id", actor.ID.Hex())
	return s.populateOne(ctx, updated)
}

func normalizePatch(p models.CampaignPatch) (models.CampaignPatch, error) {
	if p.Empty() {
		return p, models.Invalid("no fields to update")
	}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return p, models.Invalid("title cannot be empty")
		}
		p.Title = &t
	}
	if p.Goal != nil && !validAmount(*p.Goal) {
		return p, models.Invalid("goal must be greater than 0")
	}
	return p, nil
}

// ---------------- DELETE ----------------

// Delete removes the campaign and its donations when actor owns it or is an
// admin. A hosted image is removed best-effort.
func (s *CampaignService) Delete(ctx context.Context, id string, actor *models.Actor) error {
	existing, err := s.Authorize(ctx, id, actor)
	if err != nil {
		return err
	}
	if err := s.campaigns.Delete(ctx, existing.ID); err != nil {
		return err
	}
	s.log.Info("campaign deleted", "campaign_id", existing.ID.Hex(), "actor_id", actor.ID.Hex())

	if s.images != nil && existing.Image != "" {
		if err := s.images.Delete(ctx, existing.Image); err != nil {
			s.log.Warn("campaign image not removed", "campaign_id", existing.ID.Hex(), "error", err)
		}
	}
	return nil
}

// Authorize loads the campaign and applies CanModify.
func (s *CampaignService) Authorize(ctx context.Context, id string, actor *models.Actor) (*models.Campaign, error) {
	oid, err := parseID("campaign", id)
	if err != nil {
		return nil, err
	}
	existing, err := s.campaigns.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, existing) {
		return nil, models.ErrForbidden
	}
	return existing, nil
}

// ---------------- DONATE ----------------

// Donate records a donation of amount by name. Donations are accepted past
// the goal and past the end date.
func (s *CampaignService) Donate(ctx context.Context, id, name string, amount float64) (*models.Campaign, error) {
	if !validAmount(amount) {
		return nil, models.Invalid("amount must be greater than 0")
	}
	oid, err := parseID("campaign", id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = anonymousDonor
	}

	d := models.Donation{Name: name, Amount: amount, DonatedAt: s.now()}
	c, err := s.campaigns.AppendDonation(ctx, oid, d)
	if err != nil {
		return nil, err
	}
	s.log.Info("donation recorded", "campaign_id", c.ID.Hex(), "amount", amount, "raised", c.Raised)

	if s.notifier != nil {
		go s.notify(*c, d)
	}
	return s.populateOne(ctx, c)
}

func (s *CampaignService) notify(c models.Campaign, d models.Donation) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	owner, err := s.users.FindByID(ctx, c.CreatedBy)
	if err != nil {
		s.log.Warn("donation notice skipped", "campaign_id", c.ID.Hex(), "error", err)
		return
	}
	if err := s.notifier.NotifyDonation(ctx, *owner, c, d); err != nil {
		s.log.Warn("donation notice failed", "campaign_id", c.ID.Hex(), "error", err)
	}
}

// populate fills Owner on each campaign with one lookup for all owners.
func (s *CampaignService) populate(ctx context.Context, campaigns []models.Campaign) ([]models.Campaign, error) {
	if len(campaigns) == 0 {
		return campaigns, nil
	}
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, c := range campaigns {
		if !seen[c.CreatedBy] {
			seen[c.CreatedBy] = true
			ids = append(ids, c.CreatedBy)
		}
	}
	owners, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.OwnerSummary, len(owners))
	for _, u := range owners {
		byID[u.ID] = u.Summary()
	}
	for i := range campaigns {
		if o, ok := byID[campaigns[i].CreatedBy]; ok {
			o := o
			campaigns[i].Owner = &o
		}
	}
	return campaigns, nil
}

func (s *CampaignService) populateOne(ctx context.Context, c *models.Campaign) (*models.Campaign, error) {
	out, err := s.populate(ctx, []models.Campaign{*c})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func parseID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.NotFound(kind)
	}
	return oid, nil
}
