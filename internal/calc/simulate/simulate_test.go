package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Helios/internal/calc/conductor"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	in := conductor.Input{
		NominalCurrentA:      10,
		LengthM:              100,
		CommercialSectionMM2: 6,
		ReferenceVoltageV:    600,
		MaxVoltageDropV:      18,
	}
	f := conductor.Factors{
		IscSafetyFactor:   1.25,
		TemperatureFactor: 1.0,
		GroupingFactor:    1.0,
		Resistivity:       0.018595,
	}
	sess, err := NewSession(in, f)
	require.NoError(t, err)
	return sess
}

func TestRecomputeWithoutEditsIsZeroDelta(t *testing.T) {
	sess := newTestSession(t)
	sim, delta, err := sess.Recompute()
	require.NoError(t, err)
	assert.Equal(t, sess.Baseline(), sim)
	assert.Zero(t, delta.CurrentDiff)
	assert.Zero(t, delta.SectionDiff)
	assert.Zero(t, delta.VoltageDropPctDiff)
	assert.False(t, delta.StatusChanged)
}

func TestSetParameterDoesNotRecompute(t *testing.T) {
	sess := newTestSession(t)
	require.False(t, sess.Dirty())
	require.NoError(t, sess.SetParameter("temperature_factor", 0.5))
	assert.True(t, sess.Dirty())
	// Baseline stays frozen no matter what was edited.
	assert.InDelta(t, 10.0, sess.Baseline().IAdjustedA, 1e-9)
}

func TestRecomputeReflectsEdits(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.SetParameter("temperature_factor", 0.5))
	sim, delta, err := sess.Recompute()
	require.NoError(t, err)
	assert.False(t, sess.Dirty())
	// Halving the derating factor doubles the adjusted current.
	assert.InDelta(t, 20.0, sim.IAdjustedA, 1e-9)
	assert.InDelta(t, -10.0, delta.CurrentDiff, 1e-9)
	assert.Negative(t, delta.VoltageDropPctDiff, "more current means a worse drop")
}

func TestDeltaStatusChanged(t *testing.T) {
	sess := newTestSession(t)
	// A severe derating pushes the drop far past the limit.
	require.NoError(t, sess.SetParameter("temperature_factor", 0.1))
	sim, delta, err := sess.Recompute()
	require.NoError(t, err)
	assert.Equal(t, conductor.StatusError, sim.Status)
	assert.True(t, delta.StatusChanged)
}

func TestReset(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.SetParameter("grouping_factor", 0.7))
	sess.Reset()
	assert.False(t, sess.Dirty())
	sim, delta, err := sess.Recompute()
	require.NoError(t, err)
	assert.Equal(t, sess.Baseline(), sim)
	assert.False(t, delta.StatusChanged)
}

func TestUnknownParameter(t *testing.T) {
	sess := newTestSession(t)
	err := sess.SetParameter("frequency_hz", 50)
	require.Error(t, err)
	assert.False(t, sess.Dirty())
}

func TestRecomputeErrorKeepsDirty(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.SetParameter("resistivity", 0))
	_, _, err := sess.Recompute()
	require.Error(t, err)
	assert.True(t, sess.Dirty())
	// Fixing the parameter lets the session recover.
	require.NoError(t, sess.SetParameter("resistivity", 0.018595))
	_, _, err = sess.Recompute()
	require.NoError(t, err)
}
