package pass

import (
	"errors"
	"time"
)

// Kind distinguishes the two leave types by granularity: a home visit spans
// days, a local outing spans hours.
type Kind string

const (
	KindHomeVisit  Kind = "HOME_VISIT"
	KindShortLocal Kind = "SHORT_LOCAL"
)

// Label is the human name used in notifications and exports.
func (k Kind) Label() string {
	switch k {
	case KindHomeVisit:
		return "Gate Pass"
	case KindShortLocal:
		return "Out Pass"
	default:
		return string(k)
	}
}

func (k Kind) Valid() bool {
	return k == KindHomeVisit || k == KindShortLocal
}

// Status of a pass. USED and CLOSED are reserved for a gate-checkout
// extension; no current transition reaches them.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusUsed     Status = "USED"
	StatusClosed   Status = "CLOSED"
)

// ApprovalStages is the notional three-signature flow. The current system
// flips all three together on approval and never writes them on rejection,
// so flags set by an earlier approval would survive a later rejection.
type ApprovalStages struct {
	Mentor      bool `json:"mentor"`
	Warden      bool `json:"warden"`
	ChiefWarden bool `json:"chief_warden"`
}

// Pass is one leave request. Requester fields are a snapshot taken at
// creation time; later profile edits do not rewrite history.
type Pass struct {
	ID             string         `json:"id"`
	RequesterID    string         `json:"requester_id"`
	RequesterName  string         `json:"requester_name"`
	RoomNumber     string         `json:"room_number"`
	Kind           Kind           `json:"kind"`
	Reason         string         `json:"reason"`
	Destination    string         `json:"destination"`
	DepartureAt    time.Time      `json:"departure_at"`
	ReturnAt       time.Time      `json:"return_at"`
	Status         Status         `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	Stages         ApprovalStages `json:"approval_stages"`
	RiskAnnotation string         `json:"risk_annotation,omitempty"`
}

var (
	ErrNotFound      = errors.New("pass not found")
	ErrInvalidKind   = errors.New("invalid pass kind")
	ErrInvalidStatus = errors.New("invalid target status")
)
