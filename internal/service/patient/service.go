package patient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/internal/remote"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

const (
	MsgLoadFailed = "Failed to load patients"
	MsgAdded      = "Patient added successfully"
	MsgUpdated    = "Patient updated successfully"
	MsgDeleted    = "Patient deleted successfully"
)

// Observer is notified after the collection changes.
type Observer interface {
	PatientChanged(change model.ChangeType, p model.Patient, total int)
	PatientsLoaded(total int, took time.Duration, err error)
}

type Option func(*Directory)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

func WithObserver(o Observer) Option {
	return func(d *Directory) { d.observer = o }
}

// Directory is the single source of truth for the patient collection and
// the UI state around it. Every method runs to completion under one lock.
type Directory struct {
	mu       sync.Mutex
	loadOnce sync.Once
	source   remote.PatientSource
	logger   zerolog.Logger
	observer Observer

	patients []model.Patient
	loading  bool
	loaded   bool
	filter   string
	sortBy   model.SortKey

	addOpen       bool
	editOpen      bool
	selected      *model.Patient
	deleteOpen    bool
	pendingDelete *model.Patient
	expandedID    string
	failedAvatars map[string]bool

	toast model.Toast
}

func NewDirectory(source remote.PatientSource, opts ...Option) *Directory {
	d := &Directory{
		source:        source,
		logger:        zerolog.Nop(),
		sortBy:        model.SortByDate,
		failedAvatars: make(map[string]bool),
		toast:         model.Toast{Kind: model.ToastSuccess},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load fetches the collection from the remote source. Only the first call
// does anything; later calls return nil. A failed fetch leaves the
// collection as it was and raises an error toast.
func (d *Directory) Load(ctx context.Context) error {
	var err error
	d.loadOnce.Do(func() {
		err = d.load(ctx)
	})
	return err
}

func (d *Directory) load(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	d.logger.Info().Msg("loading patients")
	start := time.Now()
	patients, err := d.source.FetchPatients(ctx)
	took := time.Since(start)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.loading = false
	d.loaded = true

	if err != nil {
		d.logger.Error().Err(err).Dur("took", took).Msg("failed to load patients")
		d.raise(model.ToastError, MsgLoadFailed)
		if d.observer != nil {
			d.observer.PatientsLoaded(len(d.patients), took, err)
		}
		return apperrors.LoadFailure(err)
	}

	d.patients = append([]model.Patient(nil), patients...)
	d.logger.Info().Int("count", len(d.patients)).Dur("took", took).Msg("patients loaded")
	if d.observer != nil {
		d.observer.PatientsLoaded(len(d.patients), took, nil)
	}
	return nil
}

// Loading reports whether the initial fetch is in flight.
func (d *Directory) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Loaded reports whether the initial fetch has finished, successfully or not.
func (d *Directory) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Add appends p. Producing a fresh id is the caller's job.
func (d *Directory) Add(p model.Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(p)
}

// Update replaces the patient with p.ID. It reports whether one matched.
func (d *Directory) Update(p model.Patient) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.update(p)
}

// Remove deletes the patient with id. It reports whether one was removed.
func (d *Directory) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remove(id)
}

func (d *Directory) add(p model.Patient) {
	d.patients = append(d.patients, p)
	d.raise(model.ToastSuccess, MsgAdded)
	d.notify(model.PatientCreated, p)
}

func (d *Directory) update(p model.Patient) bool {
	matched := false
	for i := range d.patients {
		if d.patients[i].ID == p.ID {
			d.patients[i] = p
			matched = true
		}
	}
	d.raise(model.ToastSuccess, MsgUpdated)
	if !matched {
		return false
	}

	if d.selected != nil && d.selected.ID == p.ID {
		d.selected = clonePatient(p)
	}
	if d.pendingDelete != nil && d.pendingDelete.ID == p.ID {
		d.pendingDelete = clonePatient(p)
	}
	d.notify(model.PatientUpdated, p)
	return true
}

func (d *Directory) remove(id string) bool {
	var removed *model.Patient
	kept := d.patients[:0]
	for _, p := range d.patients {
		if p.ID == id && removed == nil {
			removed = clonePatient(p)
			continue
		}
		kept = append(kept, p)
	}
	d.patients = kept
	d.raise(model.ToastSuccess, MsgDeleted)
	if removed == nil {
		return false
	}

	if d.selected != nil && d.selected.ID == id {
		d.editOpen = false
		d.selected = nil
	}
	if d.pendingDelete != nil && d.pendingDelete.ID == id {
		d.deleteOpen = false
		d.pendingDelete = nil
	}
	if d.expandedID == id {
		d.expandedID = ""
	}
	delete(d.failedAvatars, id)
	d.notify(model.PatientDeleted, *removed)
	return true
}

func (d *Directory) raise(kind model.ToastKind, message string) {
	d.toast = model.Toast{Visible: true, Message: message, Kind: kind}
}

func (d *Directory) notify(change model.ChangeType, p model.Patient) {
	d.logger.Debug().Str("change", string(change)).Str("patient_id", p.ID).Msg("patient changed")
	if d.observer != nil {
		d.observer.PatientChanged(change, p, len(d.patients))
	}
}

// Get returns the patient with id.
func (d *Directory) Get(id string) (model.Patient, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.find(id)
	if !ok {
		return model.Patient{}, false
	}
	return *p, true
}

func (d *Directory) find(id string) (*model.Patient, bool) {
	for i := range d.patients {
		if d.patients[i].ID == id {
			return &d.patients[i], true
		}
	}
	return nil, false
}

// Patients returns a copy of the collection in insertion order.
func (d *Directory) Patients() []model.Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Patient(nil), d.patients...)
}

// SetFilter stores the case-insensitive search text applied to the list.
func (d *Directory) SetFilter(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filter = text
}

// ClearFilter resets the search text.
func (d *Directory) ClearFilter() {
	d.SetFilter("")
}

// SetSortBy changes the list order. Unknown keys are rejected.
func (d *Directory) SetSortBy(key model.SortKey) error {
	if !key.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("invalid sort key %q", key), nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sortBy = key
	return nil
}

// Filtered derives the visible list from the collection, filter and sort key.
func (d *Directory) Filtered() []model.Patient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Derive(d.patients, d.filter, d.sortBy)
}

// Query derives a list with an explicit filter and sort key, leaving the session untouched.
func (d *Directory) Query(filter string, sortBy model.SortKey) ([]model.Patient, error) {
	if !sortBy.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid sort key %q", sortBy), nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return Derive(d.patients, filter, sortBy), nil
}

// Toast returns the current notification.
func (d *Directory) Toast() model.Toast {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.toast
}

// DismissToast hides the notification.
func (d *Directory) DismissToast() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.toast.Visible = false
}

// Snapshot copies the UI state.
func (d *Directory) Snapshot() model.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (d *Directory) snapshot() model.Session {
	failed := make(map[string]bool, len(d.failedAvatars))
	for id := range d.failedAvatars {
		failed[id] = true
	}
	return model.Session{
		Loading:           d.loading,
		Loaded:            d.loaded,
		Filter:            d.filter,
		SortBy:            d.sortBy,
		AddOpen:           d.addOpen,
		EditOpen:          d.editOpen,
		Selected:          clonePtr(d.selected),
		DeleteConfirmOpen: d.deleteOpen,
		PendingDelete:     clonePtr(d.pendingDelete),
		ExpandedID:        d.expandedID,
		FailedAvatars:     failed,
		Toast:             d.toast,
	}
}

func clonePatient(p model.Patient) *model.Patient {
	return &p
}

func clonePtr(p *model.Patient) *model.Patient {
	if p == nil {
		return nil
	}
	return clonePatient(*p)
}
