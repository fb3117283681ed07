package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/phillip/charity-campaigns-go/models"
	"github.com/phillip/charity-campaigns-go/repository"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input.
	maxPasswordLength = 72
)

var validate = validator.New()

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	ContactNumber string
}

type UserService struct {
	users repository.UserRepository
	auth  *AuthService
	log   *slog.Logger
}

func NewUserService(users repository.UserRepository, auth *AuthService, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, auth: auth, log: log}
}

// ---------------- AUTH ----------------

// Register creates a donor identity and returns it with an access token.
// The role is never taken from the caller.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, "", models.Invalid("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, "", err
	}
	if err := validPassword(in.Password); err != nil {
		return nil, "", err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	u := &models.User{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          models.RoleDonor,
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, "", err
	}
	token, err := s.auth.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("user registered", "user_id", u.ID.Hex())
	return u, token, nil
}

// Login checks credentials. Unknown email and wrong password are reported
// the same way.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, "", err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, "", fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)
	}
	token, err := s.auth.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate resolves a bearer token to a freshly read identity, so role
// changes and deletions take effect on the next request.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.auth.ParseToken(token)
	if err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", models.ErrUnauthorized)
	}
	u, err := s.users.FindByID(ctx, oid)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", models.ErrUnauthorized)
	}
	return u, err
}

// RefreshToken issues a new token for an already authenticated caller,
// carrying the role currently stored.
func (s *UserService) RefreshToken(ctx context.Context, actor *models.Actor) (*models.User, string, error) {
	if actor == nil {
		return nil, "", models.ErrUnauthorized
	}
	u, err := s.users.FindByID(ctx, actor.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: account no longer exists", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, "", err
	}
	token, err := s.auth.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// EnsureAdmin makes sure an admin identity with email exists, creating it
// with password or promoting an existing account.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return existing, nil
		}
		admin := models.RoleAdmin
		s.log.Info("promoting bootstrap admin", "user_id", existing.ID.Hex())
		return s.users.ApplyPatch(ctx, existing.ID, models.UserPatch{Role: &admin})
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if err := validPassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("bootstrap admin created", "user_id", u.ID.Hex())
	return u, nil
}

// ---------------- ADMIN ----------------

func (s *UserService) ListAll(ctx context.Context, actor *models.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.users.FindAll(ctx)
}

func (s *UserService) GetByID(ctx context.Context, actor *models.Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	oid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, oid)
}

// Update applies any field, role included.
func (s *UserService) Update(ctx context.Context, actor *models.Actor, id string, patch models.UserPatch) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	oid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	patch, err = normalizeUserPatch(patch)
	if err != nil {
		return nil, err
	}
	u, err := s.users.ApplyPatch(ctx, oid, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("user updated by admin", "user_id", oid.Hex(), "actor_id", actor.ID.Hex())
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if !actor.IsAdmin() {
		return models.ErrForbidden
	}
	oid, err := parseID("user", id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, oid); err != nil {
		return err
	}
	s.log.Info("user deleted by admin", "user_id", oid.Hex(), "actor_id", actor.ID.Hex())
	return nil
}

// ---------------- PROFILE ----------------

func (s *UserService) GetOwnProfile(ctx context.Context, actor *models.Actor) (*models.User, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}
	return s.users.FindByID(ctx, actor.ID)
}

// UpdateOwnProfile changes name and/or email of the caller. The role can
// only be changed by an admin through Update.
func (s *UserService) UpdateOwnProfile(ctx context.Context, actor *models.Actor, name, email *string) (*models.User, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}
	patch, err := normalizeUserPatch(models.UserPatch{Name: name, Email: email})
	if err != nil {
		return nil, err
	}
	return s.users.ApplyPatch(ctx, actor.ID, patch)
}

func normalizeUserPatch(p models.UserPatch) (models.UserPatch, error) {
	if p.Empty() {
		return p, models.Invalid("no fields to update")
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return p, models.Invalid("name cannot be empty")
		}
		p.Name = &n
	}
	if p.Email != nil {
		e, err := normalizeEmail(*p.Email)
		if err != nil {
			return p, err
		}
		p.Email = &e
	}
	if p.Role != nil && !p.Role.Valid() {
		return p, models.Invalid("role must be %q or %q", models.RoleDonor, models.RoleAdmin)
	}
	if p.ContactNumber != nil {
		c := strings.TrimSpace(*p.ContactNumber)
		p.ContactNumber = &c
	}
	return p, nil
}

func validPassword(password string) error {
	switch {
	case len(password) < minPasswordLength:
		return models.Invalid("password must be at least %d characters", minPasswordLength)
	case len(password) > maxPasswordLength:
		return models.Invalid("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", models.Invalid("a valid email is required")
	}
	return email, nil
}
