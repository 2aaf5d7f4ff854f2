package inquiry

import "time"

type Status string

const (
	StatusNew      Status = "NEW"
	StatusRead     Status = "READ"
	StatusReplied  Status = "REPLIED"
	StatusArchived Status = "ARCHIVED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusRead, StatusReplied, StatusArchived:
		return true
	default:
		return false
	}
}

// Inquiry is a visitor message, optionally about a specific artwork.
type Inquiry struct {
	ID        int64
	ArtworkID *int64
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}
