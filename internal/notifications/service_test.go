package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, title, _ string) error {
	f.calls = append(f.calls, title)
	return f.err
}

func newTestService(t *testing.T) (*service, *events.Bus, *fakeNotifier) {
	t.Helper()
	store := kv.NewMemory()
	bus := events.NewBus(nil)
	notifier := &fakeNotifier{}
	svc, err := NewService(store, bus, notifier, metrics.NewStoreMetrics(nil), nil)
	require.NoError(t, err)

	impl := svc.(*service)
	// Deterministic, strictly increasing clock so ids never collide.
	base := time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	tick := 0
	impl.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	return impl, bus, notifier
}

func TestAddPrependsAndAlerts(t *testing.T) {
	svc, bus, notifier := newTestService(t)
	ctx := context.Background()

	var published []string
	bus.Subscribe(func(_ context.Context, e events.Event) { published = append(published, e.Name) })

	first, err := svc.Add(ctx, AddParams{Role: enums.RoleMechanic, Type: enums.NotificationTypeNewEstimate, Title: "first"})
	require.NoError(t, err)
	second, err := svc.Add(ctx, AddParams{Role: enums.RoleMechanic, Type: enums.NotificationTypeNewEstimate, Title: "second"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	log, err := svc.List(ctx, enums.RoleMechanic, "")
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, "second", log[0].Title, "newest entry sits at index 0")

	require.Equal(t, []string{events.NotificationAdded, events.NotificationAdded}, published)
	require.Equal(t, []string{"first", "second"}, notifier.calls)
}

func TestAddNeverExceedsCap(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < maxEntries+10; i++ {
		_, err := svc.Add(ctx, AddParams{
			Role:  enums.RoleMechanic,
			Type:  enums.NotificationTypeSystem,
			Title: fmt.Sprintf("entry %d", i),
		})
		require.NoError(t, err)
	}

	log, err := svc.List(ctx, enums.RoleMechanic, "")
	require.NoError(t, err)
	require.Len(t, log, maxEntries)
	require.Equal(t, fmt.Sprintf("entry %d", maxEntries+9), log[0].Title)
}

func TestAlertFailureIsSwallowed(t *testing.T) {
	svc, _, notifier := newTestService(t)
	notifier.err = errors.New("permission denied")

	_, err := svc.Add(context.Background(), AddParams{
		Role:  enums.RoleMechanic,
		Type:  enums.NotificationTypeSystem,
		Title: "still stored",
	})
	require.NoError(t, err, "alert failure must not fail the mutation")

	log, err := svc.List(context.Background(), enums.RoleMechanic, "")
	require.NoError(t, err)
	require.Len(t, log, 1)
}

func TestListFiltersByRoleAndEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddParams{Role: enums.RoleMechanic, Type: enums.NotificationTypeNewEstimate, Title: "shop"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, AddParams{Role: enums.RoleCustomer, Email: "a@example.com", Type: enums.NotificationTypeStatusChange, Title: "for a"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, AddParams{Role: enums.RoleCustomer, Email: "b@example.com", Type: enums.NotificationTypeStatusChange, Title: "for b"})
	require.NoError(t, err)

	mechanic, err := svc.List(ctx, enums.RoleMechanic, "")
	require.NoError(t, err)
	require.Len(t, mechanic, 1)
	require.Equal(t, "shop", mechanic[0].Title)

	customerA, err := svc.List(ctx, enums.RoleCustomer, "a@example.com")
	require.NoError(t, err)
	require.Len(t, customerA, 1)
	require.Equal(t, "for a", customerA[0].Title)
}

func TestMarkRead(t *testing.T) {
	svc, bus, _ := newTestService(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, AddParams{Role: enums.RoleMechanic, Type: enums.NotificationTypeSystem, Title: "unread"})
	require.NoError(t, err)
	require.False(t, added.Read)

	var updates int
	bus.Subscribe(func(_ context.Context, e events.Event) {
		if e.Name == events.NotificationUpdated {
			updates++
		}
	})

	require.NoError(t, svc.MarkRead(ctx, added.ID))
	require.Equal(t, 1, updates)

	log, err := svc.List(ctx, enums.RoleMechanic, "")
	require.NoError(t, err)
	require.True(t, log[0].Read)

	err = svc.MarkRead(ctx, "NOTIF-0")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
