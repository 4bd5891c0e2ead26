package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/patient-directory/internal/model"
)

func TestPatientsLoaded(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.PatientsLoaded(3, 20*time.Millisecond, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Patients))
	assert.Zero(t, testutil.ToFloat64(m.LoadFailures))

	m.PatientsLoaded(0, time.Second, errors.New("timeout"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Patients), "failure keeps the last count")
}

func TestPatientChanged(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.PatientChanged(model.PatientCreated, model.Patient{ID: "1"}, 4)
	m.PatientChanged(model.PatientDeleted, model.Patient{ID: "1"}, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(string(model.PatientCreated))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues(string(model.PatientDeleted))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Patients))
}

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("test", reg)
	assert.Panics(t, func() { NewMetrics("test", reg) })
}
