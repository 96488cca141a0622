package models

import (
	"github.com/mechflow/mechflow-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Settings is the single business-configuration record. Saves are shallow
// merges; zero-valued incoming fields keep the stored value.
type Settings struct {
	BusinessName    string          `json:"businessName"`
	BusinessLogo    string          `json:"businessLogo,omitempty"`
	BusinessAddress string          `json:"businessAddress,omitempty"`
	BusinessPhone   string          `json:"businessPhone,omitempty"`
	CurrencySymbol  string          `json:"currencySymbol"`
	CurrencyCode    string          `json:"currencyCode"`
	TaxRate         decimal.Decimal `json:"taxRate"`
	FooterText      string          `json:"footerText,omitempty"`
}

// ShopStatusValue wraps the raw open/closed scalar for callers that want a
// typed view of the stored string.
type ShopStatusValue struct {
	Status enums.ShopStatus `json:"status"`
}
