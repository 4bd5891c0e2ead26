package model

type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
)

// Toast is the transient notification raised after a mutation or a failed load.
type Toast struct {
	Visible bool      `json:"visible"`
	Message string    `json:"message"`
	Kind    ToastKind `json:"kind"`
}

// Title is the heading shown above the toast message.
func (t Toast) Title() string {
	switch t.Kind {
	case ToastSuccess:
		return "Success!"
	case ToastError:
		return "Error!"
	default:
		return "Info!"
	}
}
