package model

// Patient is the single record type held by the directory.
type Patient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Avatar      string `json:"avatar"`
	CreatedAt   string `json:"createdAt"`
}

// PatientRequest is the body accepted by the add and edit endpoints.
// Multipart requests carry the same fields plus an optional avatarFile part.
type PatientRequest struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	Website     string `json:"website" form:"website"`
	Avatar      string `json:"avatar" form:"avatar"`
}

// SortKey selects the ordering of the derived list.
type SortKey string

const (
	SortByName SortKey = "name"
	SortByDate SortKey = "date"
	SortByID   SortKey = "id"
)

// Valid reports whether k is one of the declared sort keys.
func (k SortKey) Valid() bool {
	switch k {
	case SortByName, SortByDate, SortByID:
		return true
	}
	return false
}

// ChangeType names a mutation applied to the collection.
type ChangeType string

const (
	PatientCreated ChangeType = "patient.created"
	PatientUpdated ChangeType = "patient.updated"
	PatientDeleted ChangeType = "patient.deleted"
)

// PatientEvent is published after a successful mutation.
type PatientEvent struct {
	Type    ChangeType  `json:"type"`
	Payload interface{} `json:"payload"`
}
