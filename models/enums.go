package models

// ServiceOrderStatus is the lifecycle state of a service order.
// The legal transition table lives in serviceOrderStatus.go.
type ServiceOrderStatus string

const (
	ServiceOrderStatusScheduled     ServiceOrderStatus = "Scheduled"
	ServiceOrderStatusInProgress    ServiceOrderStatus = "InProgress"
	ServiceOrderStatusAwaitingParts ServiceOrderStatus = "AwaitingParts"
	ServiceOrderStatusCompleted     ServiceOrderStatus = "Completed"
	ServiceOrderStatusDelivered     ServiceOrderStatus = "Delivered"
	ServiceOrderStatusCancelled     ServiceOrderStatus = "Cancelled"
)

// StockMovementType classifies a ledger row. OUT rows carry negative
// quantities, IN and RETURN rows carry positive ones.
type StockMovementType string

const (
	StockMovementTypeIn     StockMovementType = "IN"
	StockMovementTypeOut    StockMovementType = "OUT"
	StockMovementTypeReturn StockMovementType = "RETURN"
)
