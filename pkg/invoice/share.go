package invoice

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mechflow/mechflow-backend/pkg/models"
	"github.com/mechflow/mechflow-backend/pkg/money"
)

// ShareMessage builds the prefilled text sent alongside a priced estimate.
func ShareMessage(estimate models.Estimate, settings models.Settings) string {
	return fmt.Sprintf(
		"Hello %s, here is your estimate for the %s on your %s. Total: %s. Reference: %s",
		estimate.Customer,
		estimate.Service,
		estimate.Vehicle,
		money.Format(settings.CurrencySymbol, estimate.Amount),
		estimate.ID,
	)
}

// ShareLink builds a messaging URL that opens a chat with the customer's
// phone number and the given text prefilled.
func ShareLink(phone, text string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", digitsOnly(phone), url.QueryEscape(text))
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
