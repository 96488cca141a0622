// Package estimates is the repair-estimate ledger: pricing on intake,
// mechanic updates, customer lookups, and the notification side effects of
// status transitions.
package estimates

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mechflow/mechflow-backend/internal/notifications"
	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/mechflow/mechflow-backend/pkg/money"
	"github.com/shopspring/decimal"
)

const dateLayout = "Jan 2, 2006"

// Service exposes ledger operations.
type Service interface {
	List(ctx context.Context) ([]models.Estimate, error)
	Get(ctx context.Context, id string) (models.Estimate, error)
	Create(ctx context.Context, params CreateParams) (models.Estimate, error)
	Save(ctx context.Context, estimate models.Estimate) (models.Estimate, error)
	ListForCustomer(ctx context.Context, phone, email, shareKey string) ([]models.Estimate, error)
	MarkPaid(ctx context.Context, id string) (models.Estimate, error)
	Archive(ctx context.Context, id string) error
	ArchiveCustomer(ctx context.Context, customerName string) (int, error)
}

// CreateParams carries a customer submission. Cost and status fields are
// optional overrides: when set they win over the computed values,
// mirroring the intake flow where caller fields are merged last.
type CreateParams struct {
	Customer    string
	Email       string
	CustomerKey string
	Phone       string
	Vehicle     string
	Service     string
	Notes       string

	Status    enums.EstimateStatus
	LaborCost *decimal.Decimal
	PartsCost *decimal.Decimal
	Discount  *decimal.Decimal
	Tax       *decimal.Decimal
	Amount    *decimal.Decimal
	Img       string
	Date      string
}

// SettingsSource provides the tax rate and shop flag the intake flow needs.
type SettingsSource interface {
	Get(ctx context.Context) (models.Settings, error)
	ShopStatus(ctx context.Context) (enums.ShopStatus, error)
}

// Directory resolves customers for status-change notifications.
type Directory interface {
	List(ctx context.Context) ([]models.User, error)
}

// NotificationSink receives the notification side effects of ledger
// mutations.
type NotificationSink interface {
	Add(ctx context.Context, params notifications.AddParams) (models.Notification, error)
}

type service struct {
	mu        sync.Mutex
	store     kv.Store
	bus       *events.Bus
	settings  SettingsSource
	directory Directory
	sink      NotificationSink
	mets      *metrics.StoreMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the ledger dependencies.
func NewService(store kv.Store, bus *events.Bus, settings SettingsSource, directory Directory, sink NotificationSink, mets *metrics.StoreMetrics, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	if settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings source required")
	}
	if directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification sink required")
	}
	return &service{
		store:     store,
		bus:       bus,
		settings:  settings,
		directory: directory,
		sink:      sink,
		mets:      mets,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Estimate, error) {
	var ledger []models.Estimate
	if _, err := kv.LoadJSON(ctx, s.store, kv.KeyEstimates, &ledger); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read estimates")
	}
	return ledger, nil
}

func (s *service) Get(ctx context.Context, id string) (models.Estimate, error) {
	ledger, err := s.List(ctx)
	if err != nil {
		return models.Estimate{}, err
	}
	for _, estimate := range ledger {
		if estimate.ID == id {
			return estimate, nil
		}
	}
	return models.Estimate{}, pkgerrors.New(pkgerrors.CodeNotFound, "estimate not found")
}

func (s *service) Create(ctx context.Context, params CreateParams) (models.Estimate, error) {
	if params.Customer == "" {
		return models.Estimate{}, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.Estimate{}, err
	}
	shopStatus, err := s.settings.ShopStatus(ctx)
	if err != nil {
		return models.Estimate{}, err
	}

	price := priceFor(params.Service)
	subtotal := price.Labor.Add(price.Parts)
	rate := settings.TaxRate
	if rate.IsZero() {
		rate = money.DefaultTaxRate
	}
	tax := money.Tax(subtotal, rate)

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.List(ctx)
	if err != nil {
		return models.Estimate{}, err
	}

	estimate := models.Estimate{
		ID:                freshID(ledger),
		Customer:          params.Customer,
		Email:             params.Email,
		CustomerKey:       params.CustomerKey,
		Phone:             params.Phone,
		Vehicle:           params.Vehicle,
		Service:           params.Service,
		Status:            enums.EstimateStatusPending,
		LaborCost:         price.Labor,
		PartsCost:         price.Parts,
		Discount:          decimal.Zero,
		Tax:               tax,
		Amount:            subtotal.Add(tax),
		Date:              s.now().Format(dateLayout),
		Img:               imageFor(params.Service),
		MechanicNotes:     params.Notes,
		OfflineSubmission: shopStatus == enums.ShopStatusClosed,
	}
	applyOverrides(&estimate, params)

	ledger = upsert(ledger, estimate)
	if err := s.persist(ctx, ledger, estimate); err != nil {
		return models.Estimate{}, err
	}

	s.notifyMechanic(ctx, estimate, shopStatus)
	return estimate, nil
}

// applyOverrides merges caller-supplied fields over the computed record,
// last write wins.
func applyOverrides(estimate *models.Estimate, params CreateParams) {
	if params.Status != "" {
		estimate.Status = params.Status
	}
	if params.LaborCost != nil {
		estimate.LaborCost = *params.LaborCost
	}
	if params.PartsCost != nil {
		estimate.PartsCost = *params.PartsCost
	}
	if params.Discount != nil {
		estimate.Discount = *params.Discount
	}
	if params.Tax != nil {
		estimate.Tax = *params.Tax
	}
	if params.Amount != nil {
		estimate.Amount = *params.Amount
	}
	if params.Img != "" {
		estimate.Img = params.Img
	}
	if params.Date != "" {
		estimate.Date = params.Date
	}
}

func (s *service) Save(ctx context.Context, estimate models.Estimate) (models.Estimate, error) {
	if estimate.ID == "" {
		return models.Estimate{}, pkgerrors.New(pkgerrors.CodeValidation, "estimate id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.List(ctx)
	if err != nil {
		return models.Estimate{}, err
	}

	var previous *models.Estimate
	for i := range ledger {
		if ledger[i].ID == estimate.ID {
			prev := ledger[i]
			previous = &prev
			break
		}
	}

	ledger = upsert(ledger, estimate)
	if err := s.persist(ctx, ledger, estimate); err != nil {
		return models.Estimate{}, err
	}

	if previous != nil && previous.Status != estimate.Status {
		s.notifyCustomer(ctx, estimate)
	}
	return estimate, nil
}

func (s *service) ListForCustomer(ctx context.Context, phone, email, shareKey string) ([]models.Estimate, error) {
	ledger, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	normalizedPhone := models.NormalizePhone(phone)
	matches := make([]models.Estimate, 0, len(ledger))
	for _, estimate := range ledger {
		if matchesCustomer(estimate, normalizedPhone, email, shareKey) {
			matches = append(matches, estimate)
		}
	}
	return matches, nil
}

// matchesCustomer checks supplied credentials in priority order: share key,
// then normalized phone, then email. The email check falls back to the
// customer name field when the record has no explicit email; name-like
// emails were accepted historically and records relying on that still
// resolve.
func matchesCustomer(estimate models.Estimate, normalizedPhone, email, shareKey string) bool {
	if shareKey != "" && estimate.CustomerKey == shareKey {
		return true
	}
	if normalizedPhone != "" && estimate.Phone != "" && models.NormalizePhone(estimate.Phone) == normalizedPhone {
		return true
	}
	if email != "" {
		candidate := estimate.Email
		if candidate == "" {
			candidate = estimate.Customer
		}
		if strings.EqualFold(candidate, email) {
			return true
		}
	}
	return false
}

func (s *service) MarkPaid(ctx context.Context, id string) (models.Estimate, error) {
	estimate, err := s.Get(ctx, id)
	if err != nil {
		return models.Estimate{}, err
	}
	// Paid flips without a status transition, so Save emits no customer
	// notification here.
	estimate.Paid = true
	return s.Save(ctx, estimate)
}

func (s *service) Archive(ctx context.Context, id string) error {
	estimate, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	estimate.Status = enums.EstimateStatusArchived
	_, err = s.Save(ctx, estimate)
	return err
}

func (s *service) ArchiveCustomer(ctx context.Context, customerName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	archived := 0
	for i := range ledger {
		if ledger[i].Customer == customerName && ledger[i].Status != enums.EstimateStatusArchived {
			ledger[i].Status = enums.EstimateStatusArchived
			archived++
		}
	}
	if archived == 0 {
		return 0, nil
	}

	if err := kv.SaveJSON(ctx, s.store, kv.KeyEstimates, ledger); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write estimates")
	}
	s.mets.IncMutation("estimates")
	s.bus.Publish(ctx, events.Event{Name: events.EstimateUpdated, Payload: customerName})
	return archived, nil
}

func (s *service) persist(ctx context.Context, ledger []models.Estimate, estimate models.Estimate) error {
	if err := kv.SaveJSON(ctx, s.store, kv.KeyEstimates, ledger); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write estimates")
	}
	s.mets.IncMutation("estimates")
	s.bus.Publish(ctx, events.Event{Name: events.EstimateUpdated, Payload: estimate})
	return nil
}

func (s *service) notifyMechanic(ctx context.Context, estimate models.Estimate, shopStatus enums.ShopStatus) {
	title := "New Estimate Request"
	message := fmt.Sprintf("%s requested %s for %s", estimate.Customer, estimate.Service, estimate.Vehicle)
	if shopStatus == enums.ShopStatusClosed {
		title = "After-Hours Request"
		message = fmt.Sprintf("%s submitted a %s request while the shop was closed", estimate.Customer, estimate.Service)
	}

	_, err := s.sink.Add(ctx, notifications.AddParams{
		Role:    enums.RoleMechanic,
		Type:    enums.NotificationTypeNewEstimate,
		Title:   title,
		Message: message,
		Data:    map[string]any{"estimateId": estimate.ID},
	})
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithEstimateID(ctx, estimate.ID), "estimates.mechanic_notification_failed")
	}
}

func (s *service) notifyCustomer(ctx context.Context, estimate models.Estimate) {
	email := s.resolveCustomerEmail(ctx, estimate)
	if email == "" {
		return
	}

	_, err := s.sink.Add(ctx, notifications.AddParams{
		Role:    enums.RoleCustomer,
		Type:    enums.NotificationTypeStatusChange,
		Title:   "Estimate Updated",
		Message: fmt.Sprintf("Estimate %s is now %s", estimate.ID, estimate.Status),
		Data:    map[string]any{"estimateId": estimate.ID, "status": string(estimate.Status)},
		Email:   email,
	})
	if err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithEstimateID(ctx, estimate.ID), "estimates.customer_notification_failed")
	}
}

// resolveCustomerEmail finds the address a status change should go to:
// direct email field first, then a share-key match, then a normalized
// phone match against the directory.
func (s *service) resolveCustomerEmail(ctx context.Context, estimate models.Estimate) string {
	if estimate.Email != "" {
		return estimate.Email
	}

	users, err := s.directory.List(ctx)
	if err != nil {
		return ""
	}

	if estimate.CustomerKey != "" {
		for _, user := range users {
			if user.ShareKey != "" && user.ShareKey == estimate.CustomerKey {
				return user.Email
			}
		}
	}

	phone := models.NormalizePhone(estimate.Phone)
	if phone == "" {
		return ""
	}
	for _, user := range users {
		if user.Phone != "" && models.NormalizePhone(user.Phone) == phone {
			return user.Email
		}
	}
	return ""
}

// upsert replaces the first record with a matching id or prepends the new
// one, keeping newest-first ordering for fresh entries.
func upsert(ledger []models.Estimate, estimate models.Estimate) []models.Estimate {
	for i := range ledger {
		if ledger[i].ID == estimate.ID {
			ledger[i] = estimate
			return ledger
		}
	}
	return append([]models.Estimate{estimate}, ledger...)
}

// freshID draws "EST-" + 4-digit suffixes until one is free, widening the
// suffix when the ledger gets dense enough for repeated collisions.
func freshID(ledger []models.Estimate) string {
	taken := map[string]bool{}
	for _, estimate := range ledger {
		taken[estimate.ID] = true
	}

	bound := 9000
	offset := 1000
	for attempt := 0; ; attempt++ {
		if attempt > 0 && attempt%8 == 0 {
			bound *= 10
			offset *= 10
		}
		id := fmt.Sprintf("EST-%d", offset+rand.Intn(bound))
		if !taken[id] {
			return id
		}
	}
}
