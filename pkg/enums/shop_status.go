package enums

import "fmt"

// ShopStatus is the business-hours flag. It changes notification wording,
// not submission eligibility.
type ShopStatus string

const (
	ShopStatusOpen   ShopStatus = "open"
	ShopStatusClosed ShopStatus = "closed"
)

var validShopStatuses = []ShopStatus{ShopStatusOpen, ShopStatusClosed}

// IsValid checks whether the given status matches the canonical enum.
func (s ShopStatus) IsValid() bool {
	for _, candidate := range validShopStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShopStatus converts raw strings into ShopStatus.
func ParseShopStatus(value string) (ShopStatus, error) {
	for _, candidate := range validShopStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shop status %q", value)
}
