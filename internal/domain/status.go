package domain

// Status is the normalized order state the vendor console renders and
// acts on. The backend keeps a much larger set of codes; see
// MapBackendStatus.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further vendor-initiated transition is
// accepted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitions is the legal edge set for vendor-initiated changes:
// pending → preparing → ready → completed, with cancellation possible
// while the order has not left the kitchen.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// backendToStatus translates authoritative backend status codes into the
// console's status set. Many-to-one; kept in one place so the bulk
// loader and the realtime channel always agree.
var backendToStatus = map[string]Status{
	"PENDING_CONFIRMATION": StatusPending,
	"NEW":                  StatusPending,
	"CONFIRMED":            StatusPending,
	"PREPARING":            StatusPreparing,
	"COOKING":              StatusPreparing,
	"IN_KITCHEN":           StatusPreparing,
	"READY_FOR_PICKUP":     StatusReady,
	"READY":                StatusReady,
	"AWAITING_COURIER":     StatusReady,
	"COMPLETED":            StatusCompleted,
	"DELIVERED":            StatusCompleted,
	"PICKED_UP":            StatusCompleted,
	"RATING_PENDING":       StatusCompleted,
	"REJECTED":             StatusCancelled,
	"CANCELLED":            StatusCancelled,
	"REFUNDED":             StatusCancelled,
}

// MapBackendStatus returns the console status for a backend code.
// Total: unknown codes fall back to pending, a wrong-but-safe default
// that keeps the queue rendering instead of failing the pipeline.
func MapBackendStatus(code string) Status {
	if s, ok := backendToStatus[code]; ok {
		return s
	}
	return StatusPending
}

// canonicalBackendCode is the representative code written back by the
// simulator when a vendor changes an order's status.
var canonicalBackendCode = map[Status]string{
	StatusPending:   "PENDING_CONFIRMATION",
	StatusPreparing: "PREPARING",
	StatusReady:     "READY_FOR_PICKUP",
	StatusCompleted: "COMPLETED",
	StatusCancelled: "CANCELLED",
}

// CanonicalBackendCode returns the backend code the platform persists
// for a given console status.
func CanonicalBackendCode(s Status) string {
	return canonicalBackendCode[s]
}

// BackendCodesFor returns every backend code that maps onto s, for use
// in status-filtered queries.
func BackendCodesFor(s Status) []string {
	var codes []string
	for code, st := range backendToStatus {
		if st == s {
			codes = append(codes, code)
		}
	}
	return codes
}
