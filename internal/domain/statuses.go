package domain

// Order Statuses
const (
	OrderStatusPendingVerification = "pending_verification"
	OrderStatusPending             = "pending"
	OrderStatusProcessing          = "processing"
	OrderStatusPicked              = "picked"
	OrderStatusOnTheWay            = "on_the_way"
	OrderStatusShipped             = "shipped"
	OrderStatusDelivered           = "delivered"
	OrderStatusCompleted           = "completed"
	OrderStatusCancelled           = "cancelled"
)

// Payment Verification Statuses
const (
	PaymentVerificationPending  = "pending"
	PaymentVerificationVerified = "verified"
	PaymentVerificationRejected = "rejected"
)

// Notification Statuses. Processing is outbox-only: a dispatcher has claimed
// the event and will resolve it to sent or failed.
const (
	NotificationStatusPending    = "pending"
	NotificationStatusScheduled  = "scheduled"
	NotificationStatusProcessing = "processing"
	NotificationStatusSent       = "sent"
	NotificationStatusFailed     = "failed"
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleDelivery = "delivery"
	RoleCustomer = "customer"
)

// Payment Methods
const (
	PaymentMethodCOD          = "cod"
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
)

// OrderStatuses lists every valid order state. No write may place an order
// outside this set.
var OrderStatuses = []string{
	OrderStatusPendingVerification,
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPicked,
	OrderStatusOnTheWay,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// StatusTransitions is the single authoritative adjacency map. The admin flow
// (processing -> shipped -> delivered) and the delivery-app flow
// (pending -> picked -> on_the_way -> delivered) are sub-paths of this one
// table; every endpoint that mutates status validates against it.
var StatusTransitions = map[string][]string{
	OrderStatusPendingVerification: {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusPending:             {OrderStatusProcessing, OrderStatusPicked, OrderStatusCancelled},
	OrderStatusProcessing:          {OrderStatusPicked, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusPicked:              {OrderStatusOnTheWay, OrderStatusDelivered},
	OrderStatusOnTheWay:            {OrderStatusDelivered},
	OrderStatusShipped:             {OrderStatusDelivered},
	OrderStatusDelivered:           {OrderStatusCompleted},
	OrderStatusCompleted:           {},
	OrderStatusCancelled:           {},
}

// DeliveryScanNext is the fixed advance map for QR hand-off scans. Each scan
// moves the order exactly one hop; delivered is terminal.
var DeliveryScanNext = map[string]string{
	OrderStatusPending:  OrderStatusPicked,
	OrderStatusPicked:   OrderStatusOnTheWay,
	OrderStatusOnTheWay: OrderStatusDelivered,
}

// IsValidStatus reports whether s is a member of the fixed state set.
func IsValidStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether current -> target is an allowed edge.
func CanTransition(current, target string) bool {
	for _, t := range StatusTransitions[current] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the state has no outgoing edges.
func IsTerminalStatus(s string) bool {
	return len(StatusTransitions[s]) == 0
}
