// Package settings manages the business-configuration singleton and the
// shop open/closed flag.
package settings

import (
	"context"
	"strings"
	"sync"

	"github.com/mechflow/mechflow-backend/pkg/enums"
	pkgerrors "github.com/mechflow/mechflow-backend/pkg/errors"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/mechflow/mechflow-backend/pkg/money"
	"github.com/shopspring/decimal"
)

// Service exposes the settings and shop-status singletons.
type Service interface {
	Get(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, update Update) (models.Settings, error)
	ShopStatus(ctx context.Context) (enums.ShopStatus, error)
	SetShopStatus(ctx context.Context, status enums.ShopStatus) error
}

// Update carries a partial settings save. Nil fields keep the stored value
// (shallow merge).
type Update struct {
	BusinessName    *string          `json:"businessName,omitempty"`
	BusinessLogo    *string          `json:"businessLogo,omitempty"`
	BusinessAddress *string          `json:"businessAddress,omitempty"`
	BusinessPhone   *string          `json:"businessPhone,omitempty"`
	CurrencySymbol  *string          `json:"currencySymbol,omitempty"`
	CurrencyCode    *string          `json:"currencyCode,omitempty"`
	TaxRate         *decimal.Decimal `json:"taxRate,omitempty"`
	FooterText      *string          `json:"footerText,omitempty"`
}

type service struct {
	mu    sync.Mutex
	store kv.Store
	bus   *events.Bus
	mets  *metrics.StoreMetrics
}

// NewService wires the settings dependencies.
func NewService(store kv.Store, bus *events.Bus, mets *metrics.StoreMetrics) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	return &service{store: store, bus: bus, mets: mets}, nil
}

// Defaults is the first-run settings record.
func Defaults() models.Settings {
	return models.Settings{
		BusinessName:   "MechFlow Auto Repair",
		CurrencySymbol: "$",
		CurrencyCode:   "USD",
		TaxRate:        money.DefaultTaxRate,
		FooterText:     "Thank you for your business!",
	}
}

func (s *service) Get(ctx context.Context) (models.Settings, error) {
	settings := Defaults()
	loaded, err := kv.LoadJSON(ctx, s.store, kv.KeySettings, &settings)
	if err != nil {
		return models.Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read settings")
	}
	if loaded && settings.TaxRate.IsZero() && Defaults().TaxRate.IsPositive() {
		// Stored records predating the tax field get the default rate.
		settings.TaxRate = money.DefaultTaxRate
	}
	return settings, nil
}

func (s *service) Save(ctx context.Context, update Update) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx)
	if err != nil {
		return models.Settings{}, err
	}

	merged := merge(current, update)
	if err := kv.SaveJSON(ctx, s.store, kv.KeySettings, merged); err != nil {
		return models.Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write settings")
	}
	s.mets.IncMutation("settings")
	s.bus.Publish(ctx, events.Event{Name: events.SettingsUpdated, Payload: merged})
	return merged, nil
}

func (s *service) ShopStatus(ctx context.Context) (enums.ShopStatus, error) {
	raw, err := s.store.Get(ctx, kv.KeyShopStatus)
	if err != nil {
		if err == kv.ErrNotFound {
			return enums.ShopStatusOpen, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read shop status")
	}
	status, parseErr := enums.ParseShopStatus(strings.TrimSpace(raw))
	if parseErr != nil {
		return enums.ShopStatusOpen, nil
	}
	return status, nil
}

func (s *service) SetShopStatus(ctx context.Context, status enums.ShopStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop status must be open or closed")
	}
	// The scalar is stored raw, not JSON-wrapped.
	if err := s.store.Set(ctx, kv.KeyShopStatus, string(status)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write shop status")
	}
	s.mets.IncMutation("shop_status")
	s.bus.Publish(ctx, events.Event{Name: events.ShopStatusUpdated, Payload: status})
	return nil
}

func merge(current models.Settings, update Update) models.Settings {
	if update.BusinessName != nil {
		current.BusinessName = *update.BusinessName
	}
	if update.BusinessLogo != nil {
		current.BusinessLogo = *update.BusinessLogo
	}
	if update.BusinessAddress != nil {
		current.BusinessAddress = *update.BusinessAddress
	}
	if update.BusinessPhone != nil {
		current.BusinessPhone = *update.BusinessPhone
	}
	if update.CurrencySymbol != nil {
		current.CurrencySymbol = *update.CurrencySymbol
	}
	if update.CurrencyCode != nil {
		current.CurrencyCode = *update.CurrencyCode
	}
	if update.TaxRate != nil && !update.TaxRate.IsNegative() {
		current.TaxRate = *update.TaxRate
	}
	if update.FooterText != nil {
		current.FooterText = *update.FooterText
	}
	return current
}
