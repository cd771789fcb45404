package propagation

import (
	"math"
	"testing"

	"mmwave-irs-sim/internal/geom"
)

var (
	uav = geom.Vec3{X: 30, Y: 10, Z: 25}
	ue0 = geom.Vec3{X: 0, Y: 0, Z: 1.5}
	ue4 = geom.Vec3{X: 40, Y: 0, Z: 1.5}
)

func TestBaselineGrowsWithDistance(t *testing.T) {
	m := NewModel(UMaParams(28), 1)
	near := m.LossDb(uav, geom.Vec3{X: 30, Y: 10, Z: 15})
	far := m.LossDb(uav, ue0)
	if !(far > near) {
		t.Fatalf("expected far loss %v > near loss %v", far, near)
	}
	want := 28 + 20*math.Log10(28) + 22*math.Log10(uav.Distance(ue0))
	if math.Abs(far-want) > 1e-9 {
		t.Fatalf("LossDb = %v, want %v", far, want)
	}
}

func TestMinimumDistance(t *testing.T) {
	m := NewModel(UMaParams(28), 1)
	if got, want := m.LossDb(uav, uav), 28+20*math.Log10(28); math.Abs(got-want) > 1e-9 {
		t.Fatalf("co-located loss = %v, want %v", got, want)
	}
}

func TestIrsGainAttributeLowersLoss(t *testing.T) {
	m := NewModel(UMaParams(28), 1)
	base := m.LossDb(uav, ue4)
	if err := m.SetAttribute(AttrIrsGain, 36.1); err != nil {
		t.Fatalf("SetAttribute: %v", err)
	}
	if got := m.LossDb(uav, ue4); math.Abs(base-got-36.1) > 1e-9 {
		t.Fatalf("loss with gain = %v, base %v", got, base)
	}
	if m.IrsGainDb() != 36.1 {
		t.Fatalf("IrsGainDb = %v", m.IrsGainDb())
	}
}

func TestAttributeErrors(t *testing.T) {
	m := NewModel(UMaParams(28), 1)
	if err := m.SetAttribute("TxPower", 1); err == nil {
		t.Fatalf("expected error for unknown attribute")
	}
	if err := m.SetAttribute(AttrKFactor, -1); err == nil {
		t.Fatalf("expected error for negative k-factor")
	}
}

func TestFadingDeterministicPerSeed(t *testing.T) {
	a := NewModel(UMaParams(28), 7)
	b := NewModel(UMaParams(28), 7)
	for _, m := range []*Model{a, b} {
		if err := m.SetAttribute(AttrKFactor, 3); err != nil {
			t.Fatalf("SetAttribute: %v", err)
		}
	}
	base := a.BaselineLossDb(uav, ue0)
	varied := false
	for i := 0; i < 20; i++ {
		la, lb := a.LossDb(uav, ue0), b.LossDb(uav, ue0)
		if la != lb {
			t.Fatalf("draw %d differs between equal seeds: %v vs %v", i, la, lb)
		}
		if math.IsNaN(la) || math.IsInf(la, 0) {
			t.Fatalf("non-finite loss %v", la)
		}
		if la != base {
			varied = true
		}
	}
	if !varied {
		t.Fatalf("fading never changed the loss")
	}
}
