// Package irs models the aggregate gain of an intelligent reflecting surface.
//
// The model is the closed-form coherent array gain: N reflecting elements
// add 20*log10(N) dB on top of a configured base gain. It does not depend on
// geometry; KFactor and Position are carried for the propagation model, which
// uses them for its own fading computation.
package irs

import (
	"log/slog"
	"math"

	"mmwave-irs-sim/internal/geom"
)

// GainParameters configures the surface for one run.
type GainParameters struct {
	Enabled       bool
	BaseGainDb    float64
	ElementsPerUE uint32
	KFactor       float64
	Position      geom.Vec3
}

// ArrayGainDb returns the coherent combination gain 20*log10(ElementsPerUE).
// ElementsPerUE must be at least 1; zero yields -Inf.
func (p GainParameters) ArrayGainDb() float64 {
	return 20 * math.Log10(float64(p.ElementsPerUE))
}

// EffectiveGainDb returns the additive gain contributed by the surface, or 0
// when the surface is disabled.
func EffectiveGainDb(p GainParameters) float64 {
	if !p.Enabled {
		return 0
	}
	return p.BaseGainDb + p.ArrayGainDb()
}

// LogValue implements slog.LogValuer.
func (p GainParameters) LogValue() slog.Value {
	if !p.Enabled {
		return slog.GroupValue(slog.Bool("enabled", false))
	}
	return slog.GroupValue(
		slog.Bool("enabled", true),
		slog.String("position", p.Position.String()),
		slog.Float64("base_gain_db", p.BaseGainDb),
		slog.Any("elements_per_ue", p.ElementsPerUE),
		slog.Float64("k_factor", p.KFactor),
		slog.Float64("effective_gain_db", EffectiveGainDb(p)),
	)
}
