package patient

import (
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/pkg/dateutil"
)

// NoDescription is shown on expanded cards without a description.
const NoDescription = "No patient information added"

// AvatarResolver picks the image a view shows for a stored avatar value.
type AvatarResolver interface {
	Resolve(value string, failed bool) string
}

// Derive filters patients by a case-insensitive substring of name or
// description and orders them by sortBy. Only SortByDate reorders, newest
// first; every other key keeps the collection order.
func Derive(patients []model.Patient, filter string, sortBy model.SortKey) []model.Patient {
	needle := strings.ToLower(filter)
	out := make([]model.Patient, 0, len(patients))
	for _, p := range patients {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) {
			out = append(out, p)
		}
	}

	if sortBy == model.SortByDate {
		sortByCreatedDesc(out)
	}
	return out
}

// sortByCreatedDesc orders by createdAt, newest first. Timestamps that do
// not parse go last, in their original order.
func sortByCreatedDesc(patients []model.Patient) {
	type keyed struct {
		p  model.Patient
		at time.Time
		ok bool
	}
	keys := make([]keyed, len(patients))
	for i, p := range patients {
		at, ok := dateutil.Parse(p.CreatedAt)
		keys[i] = keyed{p: p, at: at, ok: ok}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.at.After(b.at)
	})

	for i := range keys {
		patients[i] = keys[i].p
	}
}

// View renders the page state for a client.
func (d *Directory) View(avatars AvatarResolver) model.DirectoryView {
	d.mu.Lock()
	s := d.snapshot()
	visible := Derive(d.patients, d.filter, d.sortBy)
	d.mu.Unlock()

	cards := make([]model.Card, 0, len(visible))
	for _, p := range visible {
		description := p.Description
		if description == "" {
			description = NoDescription
		}
		cards = append(cards, model.Card{
			ID:          p.ID,
			Name:        p.Name,
			Description: description,
			Website:     p.Website,
			AvatarSrc:   avatars.Resolve(p.Avatar, s.FailedAvatars[p.ID]),
			Created:     dateutil.FormatDate(p.CreatedAt),
			CreatedAt:   p.CreatedAt,
			Expanded:    s.ExpandedID == p.ID,
		})
	}

	v := model.DirectoryView{
		Loading: s.Loading,
		Empty:   !s.Loading && len(cards) == 0,
		Filter:  s.Filter,
		SortBy:  s.SortBy,
		Cards:   cards,
		Modals: model.Modals{
			Add:    model.ModalState{Open: s.AddOpen, AvatarPreview: avatars.Resolve("", false)},
			Edit:   model.ModalState{Open: s.EditOpen, Patient: s.Selected},
			Delete: model.ModalState{Open: s.DeleteConfirmOpen, Patient: s.PendingDelete},
		},
		Toast: model.ToastView{
			Visible: s.Toast.Visible,
			Kind:    s.Toast.Kind,
			Title:   s.Toast.Title(),
			Message: s.Toast.Message,
		},
	}
	if s.Selected != nil {
		v.Modals.Edit.AvatarPreview = avatars.Resolve(s.Selected.Avatar, false)
	}
	return v
}
