package model

// Session is a point-in-time copy of the directory's UI state.
type Session struct {
	Loading           bool            `json:"loading"`
	Loaded            bool            `json:"loaded"`
	Filter            string          `json:"filter"`
	SortBy            SortKey         `json:"sortBy"`
	AddOpen           bool            `json:"addOpen"`
	EditOpen          bool            `json:"editOpen"`
	Selected          *Patient        `json:"selected,omitempty"`
	DeleteConfirmOpen bool            `json:"deleteConfirmOpen"`
	PendingDelete     *Patient        `json:"pendingDelete,omitempty"`
	ExpandedID        string          `json:"expandedId,omitempty"`
	FailedAvatars     map[string]bool `json:"-"`
	Toast             Toast           `json:"toast"`
}

// Card is one entry of the rendered patient list.
type Card struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
	AvatarSrc   string `json:"avatarSrc"`
	Created     string `json:"created"`
	CreatedAt   string `json:"createdAt"`
	Expanded    bool   `json:"expanded"`
}

type ModalState struct {
	Open          bool     `json:"open"`
	Patient       *Patient `json:"patient,omitempty"`
	AvatarPreview string   `json:"avatarPreview,omitempty"`
}

type Modals struct {
	Add    ModalState `json:"add"`
	Edit   ModalState `json:"edit"`
	Delete ModalState `json:"delete"`
}

type ToastView struct {
	Visible bool      `json:"visible"`
	Kind    ToastKind `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// DirectoryView is the whole page as a client renders it.
type DirectoryView struct {
	Loading bool      `json:"loading"`
	Empty   bool      `json:"empty"`
	Filter  string    `json:"filter"`
	SortBy  SortKey   `json:"sortBy"`
	Cards   []Card    `json:"cards"`
	Modals  Modals    `json:"modals"`
	Toast   ToastView `json:"toast"`
}
