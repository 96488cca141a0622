package enums

// EstimateStatus tracks an estimate through the request -> pricing ->
// delivery -> archive lifecycle. The set is open: callers may persist
// statuses beyond the canonical ones, so there is no IsValid gate here.
type EstimateStatus string

const (
	EstimateStatusPending  EstimateStatus = "pending"
	EstimateStatusApproved EstimateStatus = "approved"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusArchived EstimateStatus = "archived"
)
