package ledger

// Status is the lifecycle state shared by payments and cashouts
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsPaid reports whether the record currently counts toward the balance
func (s Status) IsPaid() bool {
	return s == StatusPaid
}
