package models

import (
	"github.com/mechflow/mechflow-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Estimate is a ledger record spanning request -> pricing -> delivery ->
// archive. Records are never hard-deleted; archiving flips Status.
type Estimate struct {
	ID            string               `json:"id"`
	Customer      string               `json:"customer"`
	Email         string               `json:"email,omitempty"`
	CustomerKey   string               `json:"customerKey,omitempty"`
	Phone         string               `json:"phone,omitempty"`
	Vehicle       string               `json:"vehicle,omitempty"`
	Service       string               `json:"service,omitempty"`
	Status        enums.EstimateStatus `json:"status"`
	LaborCost     decimal.Decimal      `json:"laborCost"`
	PartsCost     decimal.Decimal      `json:"partsCost"`
	Discount      decimal.Decimal      `json:"discount"`
	Tax           decimal.Decimal      `json:"tax"`
	Amount        decimal.Decimal      `json:"amount"`
	Date          string               `json:"date,omitempty"`
	Img           string               `json:"img,omitempty"`
	Paid          bool                 `json:"paid,omitempty"`
	MechanicNotes string               `json:"mechanicNotes,omitempty"`
	// OfflineSubmission records whether the shop was marked closed when the
	// request came in.
	OfflineSubmission bool `json:"offline_submission,omitempty"`
}

// Subtotal is labor plus parts minus discount, floored at zero.
func (e Estimate) Subtotal() decimal.Decimal {
	subtotal := e.LaborCost.Add(e.PartsCost).Sub(e.Discount)
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal
}
