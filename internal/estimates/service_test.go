package estimates

import (
	"context"
	"testing"
	"time"

	"github.com/mechflow/mechflow-backend/internal/notifications"
	"github.com/mechflow/mechflow-backend/internal/settings"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	settings models.Settings
	status   enums.ShopStatus
}

func (f *fakeSettings) Get(context.Context) (models.Settings, error) {
	return f.settings, nil
}

func (f *fakeSettings) ShopStatus(context.Context) (enums.ShopStatus, error) {
	return f.status, nil
}

type fakeDirectory struct {
	users []models.User
}

func (f *fakeDirectory) List(context.Context) ([]models.User, error) {
	return f.users, nil
}

type fakeSink struct {
	added []notifications.AddParams
}

func (f *fakeSink) Add(_ context.Context, params notifications.AddParams) (models.Notification, error) {
	f.added = append(f.added, params)
	return models.Notification{ID: "NOTIF-1"}, nil
}

func newTestService(t *testing.T) (*service, *fakeSettings, *fakeDirectory, *fakeSink) {
	t.Helper()
	cfg := &fakeSettings{settings: settings.Defaults(), status: enums.ShopStatusOpen}
	directory := &fakeDirectory{}
	sink := &fakeSink{}

	svc, err := NewService(kv.NewMemory(), events.NewBus(nil), cfg, directory, sink, metrics.NewStoreMetrics(nil), nil)
	require.NoError(t, err)

	impl := svc.(*service)
	impl.now = func() time.Time {
		return time.Date(2026, time.August, 30, 10, 0, 0, 0, time.UTC)
	}
	return impl, cfg, directory, sink
}

func TestCreatePricesOilChange(t *testing.T) {
	svc, _, _, sink := newTestService(t)

	estimate, err := svc.Create(context.Background(), CreateParams{
		Customer: "Ada Motors",
		Email:    "ada@example.com",
		Vehicle:  "2019 Honda Civic",
		Service:  "Oil Change",
	})
	require.NoError(t, err)

	require.True(t, estimate.LaborCost.Equal(decimal.NewFromInt(50)))
	require.True(t, estimate.PartsCost.Equal(decimal.NewFromInt(45)))
	require.Equal(t, "7.84", estimate.Tax.StringFixed(2))
	require.Equal(t, "102.84", estimate.Amount.StringFixed(2))
	require.Equal(t, enums.EstimateStatusPending, estimate.Status)
	require.Equal(t, "Aug 30, 2026", estimate.Date)
	require.False(t, estimate.OfflineSubmission)
	require.NotEmpty(t, estimate.Img)

	require.Len(t, sink.added, 1)
	require.Equal(t, enums.RoleMechanic, sink.added[0].Role)
	require.Equal(t, "New Estimate Request", sink.added[0].Title)
}

func TestCreateUnknownServicePricesAtZero(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	estimate, err := svc.Create(context.Background(), CreateParams{
		Customer: "Ada Motors",
		Service:  "Flux Capacitor Swap",
	})
	require.NoError(t, err)
	require.True(t, estimate.LaborCost.IsZero())
	require.True(t, estimate.PartsCost.IsZero())
	require.True(t, estimate.Tax.IsZero())
	require.True(t, estimate.Amount.IsZero())
}

func TestCreateWhileClosedFlagsOfflineSubmission(t *testing.T) {
	svc, cfg, _, sink := newTestService(t)
	cfg.status = enums.ShopStatusClosed

	estimate, err := svc.Create(context.Background(), CreateParams{
		Customer: "Ada Motors",
		Service:  "Brake Repair",
	})
	require.NoError(t, err)
	require.True(t, estimate.OfflineSubmission)
	require.Len(t, sink.added, 1)
	require.Equal(t, "After-Hours Request", sink.added[0].Title)
}

func TestCreateOverridesWinOverComputedValues(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	labor := decimal.NewFromInt(500)
	estimate, err := svc.Create(context.Background(), CreateParams{
		Customer:  "Ada Motors",
		Service:   "Oil Change",
		LaborCost: &labor,
		Status:    enums.EstimateStatusApproved,
	})
	require.NoError(t, err)
	require.True(t, estimate.LaborCost.Equal(labor))
	require.Equal(t, enums.EstimateStatusApproved, estimate.Status)
	// Untouched fields keep the computed values.
	require.Equal(t, "102.84", estimate.Amount.StringFixed(2))
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		estimate, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", Service: "Oil Change"})
		require.NoError(t, err)
		require.Regexp(t, `^EST-\d{4,}$`, estimate.ID)
		require.False(t, seen[estimate.ID], "id %s issued twice", estimate.ID)
		seen[estimate.ID] = true
	}
}

func TestSaveUpsertsInPlace(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", Service: "Oil Change"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateParams{Customer: "Bob", Service: "Brake Repair"})
	require.NoError(t, err)

	first.MechanicNotes = "replace filter too"
	_, err = svc.Save(ctx, first)
	require.NoError(t, err)

	ledger, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	require.Equal(t, second.ID, ledger[0].ID, "in-place update keeps ordering")
	require.Equal(t, "replace filter too", ledger[1].MechanicNotes)
}

func TestSaveStatusChangeNotifiesCustomerOnce(t *testing.T) {
	svc, _, _, sink := newTestService(t)
	ctx := context.Background()

	estimate, err := svc.Create(ctx, CreateParams{
		Customer: "Ada Motors",
		Email:    "ada@example.com",
		Service:  "Oil Change",
	})
	require.NoError(t, err)
	sink.added = nil

	estimate.Status = enums.EstimateStatusApproved
	_, err = svc.Save(ctx, estimate)
	require.NoError(t, err)

	require.Len(t, sink.added, 1)
	require.Equal(t, enums.RoleCustomer, sink.added[0].Role)
	require.Equal(t, enums.NotificationTypeStatusChange, sink.added[0].Type)
	require.Equal(t, "ada@example.com", sink.added[0].Email)

	// Saving again with the same status is silent.
	estimate.MechanicNotes = "done"
	_, err = svc.Save(ctx, estimate)
	require.NoError(t, err)
	require.Len(t, sink.added, 1)
}

func TestSaveResolvesCustomerThroughDirectory(t *testing.T) {
	svc, _, directory, sink := newTestService(t)
	ctx := context.Background()

	directory.users = []models.User{
		{Email: "key@example.com", ShareKey: "C-ABCDE"},
		{Email: "phone@example.com", Phone: "555-0142"},
	}

	byKey, err := svc.Create(ctx, CreateParams{Customer: "Key Customer", CustomerKey: "C-ABCDE", Service: "Oil Change"})
	require.NoError(t, err)
	byPhone, err := svc.Create(ctx, CreateParams{Customer: "Phone Customer", Phone: "(555) 0142", Service: "Oil Change"})
	require.NoError(t, err)
	sink.added = nil

	byKey.Status = enums.EstimateStatusApproved
	_, err = svc.Save(ctx, byKey)
	require.NoError(t, err)

	byPhone.Status = enums.EstimateStatusSent
	_, err = svc.Save(ctx, byPhone)
	require.NoError(t, err)

	require.Len(t, sink.added, 2)
	require.Equal(t, "key@example.com", sink.added[0].Email)
	require.Equal(t, "phone@example.com", sink.added[1].Email)
}

func TestSaveUnresolvableCustomerStaysSilent(t *testing.T) {
	svc, _, _, sink := newTestService(t)
	ctx := context.Background()

	estimate, err := svc.Create(ctx, CreateParams{Customer: "Walk-In", Service: "Oil Change"})
	require.NoError(t, err)
	sink.added = nil

	estimate.Status = enums.EstimateStatusApproved
	_, err = svc.Save(ctx, estimate)
	require.NoError(t, err)
	require.Empty(t, sink.added)
}

func TestListForCustomerCredentialPriority(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", CustomerKey: "C-ABCDE", Service: "Oil Change"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{Customer: "Ada Motors", Phone: "555-0142", Service: "Brake Repair"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{Customer: "Ada Motors", Email: "ada@example.com", Service: "Engine Diagnostic"})
	require.NoError(t, err)

	byKey, err := svc.ListForCustomer(ctx, "", "", "C-ABCDE")
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	require.Equal(t, "Oil Change", byKey[0].Service)

	byPhone, err := svc.ListForCustomer(ctx, "(555) 0142", "", "")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	require.Equal(t, "Brake Repair", byPhone[0].Service)

	byEmail, err := svc.ListForCustomer(ctx, "", "ADA@example.com", "")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	require.Equal(t, "Engine Diagnostic", byEmail[0].Service)
}

func TestListForCustomerFallsBackToCustomerName(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Customer: "legacy@example.com", Service: "Oil Change"})
	require.NoError(t, err)

	matches, err := svc.ListForCustomer(ctx, "", "legacy@example.com", "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestMarkPaidKeepsStatusAndStaysSilent(t *testing.T) {
	svc, _, _, sink := newTestService(t)
	ctx := context.Background()

	estimate, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", Email: "ada@example.com", Service: "Oil Change"})
	require.NoError(t, err)
	sink.added = nil

	paid, err := svc.MarkPaid(ctx, estimate.ID)
	require.NoError(t, err)
	require.True(t, paid.Paid)
	require.Equal(t, estimate.Status, paid.Status)
	require.Empty(t, sink.added)

	_, err = svc.MarkPaid(ctx, "EST-0")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestArchiveSoftDeletes(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	estimate, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", Email: "ada@example.com", Service: "Oil Change"})
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, estimate.ID))

	archived, err := svc.Get(ctx, estimate.ID)
	require.NoError(t, err, "archiving preserves the record")
	require.Equal(t, enums.EstimateStatusArchived, archived.Status)
}

func TestArchiveCustomerSweepsAllActiveRecords(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Customer: "Ada Motors", Service: "Oil Change"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{Customer: "Ada Motors", Service: "Brake Repair"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{Customer: "Bob", Service: "Oil Change"})
	require.NoError(t, err)

	count, err := svc.ArchiveCustomer(ctx, "Ada Motors")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Idempotent: a second sweep finds nothing active.
	count, err = svc.ArchiveCustomer(ctx, "Ada Motors")
	require.NoError(t, err)
	require.Zero(t, count)

	ledger, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, ledger, 3)
}
