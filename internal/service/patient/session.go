package patient

import (
	"github.com/jwalitptl/patient-directory/internal/model"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

// OpenAdd shows the add dialog.
func (d *Directory) OpenAdd() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addOpen = true
}

// CancelAdd closes the add dialog without saving.
func (d *Directory) CancelAdd() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addOpen = false
}

// SubmitAdd adds p and closes the add dialog.
func (d *Directory) SubmitAdd(p model.Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(p)
	d.addOpen = false
}

// OpenEdit selects the patient with id and opens the edit dialog.
func (d *Directory) OpenEdit(id string) (model.Patient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.find(id)
	if !ok {
		return model.Patient{}, apperrors.NotFound("patient", nil)
	}
	d.selected = clonePatient(*p)
	d.editOpen = true
	return *p, nil
}

// Selected returns the patient being edited, if any.
func (d *Directory) Selected() (model.Patient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selected == nil {
		return model.Patient{}, false
	}
	return *d.selected, true
}

// CancelEdit closes the edit dialog and drops the selection.
func (d *Directory) CancelEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.editOpen = false
	d.selected = nil
}

// SubmitEdit replaces the edited patient and closes the edit dialog.
func (d *Directory) SubmitEdit(p model.Patient) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := d.update(p)
	d.editOpen = false
	d.selected = nil
	return matched
}

// RequestDelete asks for confirmation before deleting. Only patients in the
// visible list can be requested.
func (d *Directory) RequestDelete(id string) (model.Patient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range Derive(d.patients, d.filter, d.sortBy) {
		if p.ID == id {
			d.pendingDelete = clonePatient(p)
			d.deleteOpen = true
			return p, nil
		}
	}
	return model.Patient{}, apperrors.NotFound("patient", nil)
}

// ConfirmDelete removes the pending patient. It reports false when nothing was pending.
func (d *Directory) ConfirmDelete() (model.Patient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pendingDelete == nil {
		return model.Patient{}, false
	}
	p := *d.pendingDelete
	d.remove(p.ID)
	d.deleteOpen = false
	d.pendingDelete = nil
	return p, true
}

// CancelDelete closes the confirmation and forgets the pending patient.
func (d *Directory) CancelDelete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleteOpen = false
	d.pendingDelete = nil
}

// ToggleExpand expands the card for id, or collapses it if it is already
// expanded. It returns the id now expanded, empty when none.
func (d *Directory) ToggleExpand(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.expandedID == id {
		d.expandedID = ""
	} else {
		d.expandedID = id
	}
	return d.expandedID
}

// MarkAvatarFailed records that the client could not load the patient's avatar.
func (d *Directory) MarkAvatarFailed(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.find(id); !ok {
		return apperrors.NotFound("patient", nil)
	}
	d.failedAvatars[id] = true
	return nil
}
