// Package users is the account directory and session manager. The directory
// is one JSON document keyed by email; sessions are per-token user records
// in the same key-value layer.
package users

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/mechflow/mechflow-backend/pkg/security"
)

const shareKeyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Service exposes directory and session operations.
type Service interface {
	List(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, user models.User) error
	Register(ctx context.Context, params RegisterParams) (models.User, string, error)
	Login(ctx context.Context, email, password string) (models.User, string, error)
	LoginByKey(ctx context.Context, shareKey string) (models.User, string, error)
	LoginByPhoneEmail(ctx context.Context, email, phone string) (models.User, string, error)
	CurrentUser(ctx context.Context, token string) (models.User, error)
	Logout(ctx context.Context, token string) error
	AssignAvatar(ctx context.Context, token, gender string) (models.User, error)
}

// RegisterParams carries a customer registration.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Gender   string
}

type service struct {
	mu          sync.Mutex
	store       kv.Store
	bus         *events.Bus
	mets        *metrics.StoreMetrics
	passwordCfg config.PasswordConfig
}

// NewService wires the directory dependencies.
func NewService(store kv.Store, bus *events.Bus, mets *metrics.StoreMetrics, passwordCfg config.PasswordConfig) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	return &service{store: store, bus: bus, mets: mets, passwordCfg: passwordCfg}, nil
}

// seedDefaults are the accounts present on first run. Passwords are hashed
// lazily because hashing depends on runtime Argon parameters.
func (s *service) seedDefaults() ([]models.User, error) {
	hash, err := security.HashPassword("password", s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash seed password")
	}
	return []models.User{
		{
			Email:        "mechanic@example.com",
			PasswordHash: hash,
			Role:         enums.RoleMechanic,
			Name:         "Mike The Mechanic",
		},
		{
			Email:        "customer@example.com",
			PasswordHash: hash,
			Role:         enums.RoleCustomer,
			Name:         "John Doe",
			Phone:        "555-0101",
			ShareKey:     "C-DEMO",
		},
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	loaded, err := kv.LoadJSON(ctx, s.store, kv.KeyUsers, &users)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read users")
	}
	if !loaded || len(users) == 0 {
		seeded, seedErr := s.seedDefaults()
		if seedErr != nil {
			return nil, seedErr
		}
		if err := kv.SaveJSON(ctx, s.store, kv.KeyUsers, seeded); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed users")
		}
		return seeded, nil
	}
	return users, nil
}

func (s *service) SaveUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUserLocked(ctx, user)
}

// saveUserLocked upserts by email: replace in place when present, append
// otherwise.
func (s *service) saveUserLocked(ctx context.Context, user models.User) error {
	users, err := s.List(ctx)
	if err != nil {
		return err
	}

	// Customers always carry a share key; assign one on first save.
	if user.Role == enums.RoleCustomer && user.ShareKey == "" {
		user.ShareKey = freshShareKey(users)
	}

	replaced := false
	for i := range users {
		if strings.EqualFold(users[i].Email, user.Email) {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}

	if err := kv.SaveJSON(ctx, s.store, kv.KeyUsers, users); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write users")
	}
	s.mets.IncMutation("users")
	s.bus.Publish(ctx, events.Event{Name: events.UserUpdated, Payload: user})
	return nil
}

func (s *service) Register(ctx context.Context, params RegisterParams) (models.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.List(ctx)
	if err != nil {
		return models.User{}, "", err
	}
	for _, existing := range users {
		if strings.EqualFold(existing.Email, params.Email) {
			return models.User{}, "", pkgerrors.New(pkgerrors.CodeConflict, "email already exists")
		}
	}

	hash, err := security.HashPassword(params.Password, s.passwordCfg)
	if err != nil {
		return models.User{}, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := models.User{
		Email:        params.Email,
		PasswordHash: hash,
		Role:         enums.RoleCustomer,
		Name:         params.Name,
		Phone:        params.Phone,
		ShareKey:     freshShareKey(users),
		Gender:       params.Gender,
		Avatar:       randomAvatar(params.Gender),
	}

	if err := s.saveUserLocked(ctx, user); err != nil {
		return models.User{}, "", err
	}

	token, err := s.establishSession(ctx, user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	users, err := s.List(ctx)
	if err != nil {
		return models.User{}, "", err
	}
	for _, user := range users {
		if !strings.EqualFold(user.Email, email) {
			continue
		}
		ok, verifyErr := security.VerifyPassword(password, user.PasswordHash)
		if verifyErr != nil || !ok {
			break
		}
		return s.loginUser(ctx, user)
	}
	return models.User{}, "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *service) LoginByKey(ctx context.Context, shareKey string) (models.User, string, error) {
	users, err := s.List(ctx)
	if err != nil {
		return models.User{}, "", err
	}
	for _, user := range users {
		if user.ShareKey != "" && user.ShareKey == shareKey {
			return s.loginUser(ctx, user)
		}
	}
	return models.User{}, "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *service) LoginByPhoneEmail(ctx context.Context, email, phone string) (models.User, string, error) {
	users, err := s.List(ctx)
	if err != nil {
		return models.User{}, "", err
	}
	for _, user := range users {
		if strings.EqualFold(user.Email, email) && models.NormalizePhone(user.Phone) == models.NormalizePhone(phone) {
			return s.loginUser(ctx, user)
		}
	}
	return models.User{}, "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
}

func (s *service) CurrentUser(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token required")
	}
	var user models.User
	loaded, err := kv.LoadJSON(ctx, s.store, kv.SessionKey(token), &user)
	if err != nil {
		return models.User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session")
	}
	if !loaded || user.Email == "" {
		return models.User{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session not found")
	}
	return user, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Remove(ctx, kv.SessionKey(token)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
	}
	return nil
}

func (s *service) AssignAvatar(ctx context.Context, token, gender string) (models.User, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return models.User{}, err
	}

	user.Gender = gender
	user.Avatar = randomAvatar(gender)

	s.mu.Lock()
	err = s.saveUserLocked(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return models.User{}, err
	}

	if err := kv.SaveJSON(ctx, s.store, kv.SessionKey(token), user); err != nil {
		return models.User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh session")
	}
	return user, nil
}

func (s *service) loginUser(ctx context.Context, user models.User) (models.User, string, error) {
	token, err := s.establishSession(ctx, user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func (s *service) establishSession(ctx context.Context, user models.User) (string, error) {
	token := uuid.NewString()
	if err := kv.SaveJSON(ctx, s.store, kv.SessionKey(token), user); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write session")
	}
	return token, nil
}

// freshShareKey generates "C-" plus five random base-36 characters,
// re-rolling on the rare collision with an existing customer key.
func freshShareKey(users []models.User) string {
	taken := map[string]bool{}
	for _, user := range users {
		if user.ShareKey != "" {
			taken[user.ShareKey] = true
		}
	}
	for {
		key := "C-" + randomBase36(5)
		if !taken[key] {
			return key
		}
	}
}

func randomBase36(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(shareKeyAlphabet[rand.Intn(len(shareKeyAlphabet))])
	}
	return b.String()
}

func randomAvatar(gender string) string {
	catalog := avatarCatalog(gender)
	return catalog[rand.Intn(len(catalog))]
}
