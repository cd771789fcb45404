// Package propagation provides the baseline channel-loss computation the
// scenario driver evaluates on every channel tick. It is a log-distance model
// with optional IRS gain and Rician fading, configured through named
// attributes before the run starts.
package propagation

import (
	"fmt"
	"math"
	"math/rand"

	"mmwave-irs-sim/internal/geom"
)

// Attribute names accepted by Model.SetAttribute.
const (
	AttrIrsGain = "IrsGain"
	AttrKFactor = "KFactor"
)

// Params holds the log-distance constants: loss = FixedLossDb + ExponentDb*log10(d).
type Params struct {
	FixedLossDb  float64
	ExponentDb   float64
	MinDistanceM float64
}

// UMaParams returns the 3GPP TR 38.901 UMa LOS constants (PL1) for carrier
// frequency fcGHz.
func UMaParams(fcGHz float64) Params {
	return Params{
		FixedLossDb:  28.0 + 20*math.Log10(fcGHz),
		ExponentDb:   22.0,
		MinDistanceM: 1.0,
	}
}

// Model computes the loss between two positions.
type Model struct {
	params    Params
	irsGainDb float64
	kFactor   float64
	fading    bool
	rnd       *rand.Rand
}

// NewModel creates a model; seed drives the fading draws.
func NewModel(p Params, seed int64) *Model {
	return &Model{params: p, rnd: rand.New(rand.NewSource(seed))}
}

// SetAttribute sets a named attribute. Setting KFactor enables Rician fading.
func (m *Model) SetAttribute(name string, value float64) error {
	switch name {
	case AttrIrsGain:
		m.irsGainDb = value
	case AttrKFactor:
		if value < 0 {
			return fmt.Errorf("attribute %s: negative k-factor %g", name, value)
		}
		m.kFactor = value
		m.fading = true
	default:
		return fmt.Errorf("unknown propagation attribute %q", name)
	}
	return nil
}

// IrsGainDb returns the configured surface gain.
func (m *Model) IrsGainDb() float64 { return m.irsGainDb }

// BaselineLossDb returns the deterministic log-distance loss.
func (m *Model) BaselineLossDb(tx, rx geom.Vec3) float64 {
	d := math.Max(tx.Distance(rx), m.params.MinDistanceM)
	return m.params.FixedLossDb + m.params.ExponentDb*math.Log10(d)
}

// LossDb returns the total loss between tx and rx in dB.
func (m *Model) LossDb(tx, rx geom.Vec3) float64 {
	loss := m.BaselineLossDb(tx, rx) - m.irsGainDb
	if m.fading {
		loss -= m.ricianGainDb()
	}
	return loss
}

// ricianGainDb draws the power gain of a unit-mean Rician channel with the
// configured K-factor.
func (m *Model) ricianGainDb() float64 {
	k := m.kFactor
	los := math.Sqrt(k / (k + 1))
	sigma := math.Sqrt(1 / (2 * (k + 1)))
	re := los + sigma*m.rnd.NormFloat64()
	im := sigma * m.rnd.NormFloat64()
	g := re*re + im*im
	if g < 1e-12 {
		g = 1e-12
	}
	return 10 * math.Log10(g)
}
