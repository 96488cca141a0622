package users

import (
	"context"
	"strings"
	"testing"

	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/stretchr/testify/require"
)

// Cheap Argon parameters keep hashing out of the test hot path.
var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     8,
	ArgonKeyLen:      16,
}

func newTestService(t *testing.T) (Service, *events.Bus, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	bus := events.NewBus(nil)
	svc, err := NewService(store, bus, metrics.NewStoreMetrics(nil), testPasswordCfg)
	require.NoError(t, err)
	return svc, bus, store
}

func TestListSeedsDefaultsWhenAbsent(t *testing.T) {
	svc, _, _ := newTestService(t)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, enums.RoleMechanic, users[0].Role)
	require.Equal(t, "C-DEMO", users[1].ShareKey)
}

func TestListSeedsDefaultsWhenCorrupt(t *testing.T) {
	svc, _, store := newTestService(t)
	require.NoError(t, store.Set(context.Background(), kv.KeyUsers, `]]broken`))

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, token, err := svc.Register(ctx, RegisterParams{
		Name:     "Ada Motors",
		Email:    "ada@example.com",
		Password: "wrench123",
		Phone:    "555-0199",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, enums.RoleCustomer, registered.Role)
	require.True(t, strings.HasPrefix(registered.ShareKey, "C-"))
	require.Len(t, registered.ShareKey, 7)
	require.Equal(t, strings.ToUpper(registered.ShareKey), registered.ShareKey)
	require.NotEmpty(t, registered.Avatar)
	require.NotEqual(t, "wrench123", registered.PasswordHash, "passwords are never stored in the clear")

	loggedIn, _, err := svc.Login(ctx, "ada@example.com", "wrench123")
	require.NoError(t, err)
	require.Equal(t, registered.Email, loggedIn.Email)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestRegisterDuplicateEmailDoesNotMutateDirectory(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterParams{Name: "Ada", Email: "ada@example.com", Password: "pw1", Phone: "1"})
	require.NoError(t, err)

	before, err := svc.List(ctx)
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, RegisterParams{Name: "Imposter", Email: "ADA@example.com", Password: "pw2", Phone: "2"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	after, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSaveUserUpsertsByEmail(t *testing.T) {
	svc, bus, _ := newTestService(t)
	ctx := context.Background()

	var published int
	bus.Subscribe(func(_ context.Context, e events.Event) {
		if e.Name == events.UserUpdated {
			published++
		}
	})

	users, err := svc.List(ctx)
	require.NoError(t, err)
	mechanic := users[0]
	mechanic.Name = "Mike, Head Mechanic"
	require.NoError(t, svc.SaveUser(ctx, mechanic))

	updated, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, updated, 2, "upsert must not append a second record")
	require.Equal(t, "Mike, Head Mechanic", updated[0].Name)
	require.Equal(t, 1, published)
}

func TestSaveUserAssignsShareKeyToNewCustomers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveUser(ctx, models.User{
		Email: "walkin@example.com",
		Role:  enums.RoleCustomer,
		Name:  "Walk In",
	}))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	for _, user := range users {
		if user.Email == "walkin@example.com" {
			require.True(t, strings.HasPrefix(user.ShareKey, "C-"))
			require.Len(t, user.ShareKey, 7)
		}
	}
}

func TestAlternateLoginPaths(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	byKey, _, err := svc.LoginByKey(ctx, "C-DEMO")
	require.NoError(t, err)
	require.Equal(t, "customer@example.com", byKey.Email)

	_, _, err = svc.LoginByKey(ctx, "C-NOPE")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	byPhone, _, err := svc.LoginByPhoneEmail(ctx, "CUSTOMER@example.com", "(555) 0101")
	require.NoError(t, err)
	require.Equal(t, "customer@example.com", byPhone.Email)
}

func TestSessionLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "mechanic@example.com", "password")
	require.NoError(t, err)

	current, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "mechanic@example.com", current.Email)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.CurrentUser(ctx, token)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestAssignAvatarPersistsToDirectoryAndSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "customer@example.com", "password")
	require.NoError(t, err)

	assigned, err := svc.AssignAvatar(ctx, token, "female")
	require.NoError(t, err)
	require.Contains(t, femaleAvatars, assigned.Avatar)

	current, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, assigned.Avatar, current.Avatar)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	for _, user := range users {
		if user.Email == "customer@example.com" {
			require.Equal(t, assigned.Avatar, user.Avatar)
		}
	}
}
