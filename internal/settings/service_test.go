package settings

import (
	"context"
	"testing"

	"github.com/mechflow/mechflow-backend/pkg/enums"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *events.Bus, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	bus := events.NewBus(nil)
	svc, err := NewService(store, bus, metrics.NewStoreMetrics(nil))
	require.NoError(t, err)
	return svc, bus, store
}

func TestGetReturnsDefaultsOnFirstRun(t *testing.T) {
	svc, _, _ := newTestService(t)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "MechFlow Auto Repair", settings.BusinessName)
	require.Equal(t, "$", settings.CurrencySymbol)
	require.Equal(t, "0.0825", settings.TaxRate.String())
}

func TestGetReturnsDefaultsOnCorruptRecord(t *testing.T) {
	svc, _, store := newTestService(t)
	require.NoError(t, store.Set(context.Background(), kv.KeySettings, `{broken`))

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, Defaults(), settings)
}

func TestSaveIsShallowMerge(t *testing.T) {
	svc, bus, _ := newTestService(t)

	var published []string
	bus.Subscribe(func(_ context.Context, e events.Event) { published = append(published, e.Name) })

	name := "Mike's Garage"
	saved, err := svc.Save(context.Background(), Update{BusinessName: &name})
	require.NoError(t, err)
	require.Equal(t, "Mike's Garage", saved.BusinessName)
	require.Equal(t, "$", saved.CurrencySymbol, "unspecified fields keep stored values")

	rate := decimal.RequireFromString("0.07")
	saved, err = svc.Save(context.Background(), Update{TaxRate: &rate})
	require.NoError(t, err)
	require.Equal(t, "Mike's Garage", saved.BusinessName, "earlier partial save survives")
	require.Equal(t, "0.07", saved.TaxRate.String())

	require.Equal(t, []string{events.SettingsUpdated, events.SettingsUpdated}, published)
}

func TestShopStatusDefaultsToOpen(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	status, err := svc.ShopStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, enums.ShopStatusOpen, status)

	// Garbage in storage also falls back to open.
	require.NoError(t, store.Set(ctx, kv.KeyShopStatus, "sideways"))
	status, err = svc.ShopStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, enums.ShopStatusOpen, status)
}

func TestSetShopStatusStoresRawScalar(t *testing.T) {
	svc, bus, store := newTestService(t)
	ctx := context.Background()

	var published []string
	bus.Subscribe(func(_ context.Context, e events.Event) { published = append(published, e.Name) })

	require.NoError(t, svc.SetShopStatus(ctx, enums.ShopStatusClosed))

	raw, err := store.Get(ctx, kv.KeyShopStatus)
	require.NoError(t, err)
	require.Equal(t, "closed", raw)
	require.Equal(t, []string{events.ShopStatusUpdated}, published)

	require.Error(t, svc.SetShopStatus(ctx, enums.ShopStatus("halfway")))
}
