package util

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	if d := HaversineMeters(40.0, -74.0, 40.0, -74.0); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}

	// 赤道上 1 经度差约 111.19 公里
	d := HaversineMeters(0, 0, 0, 1)
	if math.Abs(d-111195) > 200 {
		t.Fatalf("1 degree at equator = %f, want about 111195", d)
	}

	// 对称性
	a := HaversineMeters(40.7128, -74.0060, 51.5074, -0.1278)
	b := HaversineMeters(51.5074, -0.1278, 40.7128, -74.0060)
	if math.Abs(a-b) > 1e-6 {
		t.Fatalf("not symmetric: %f vs %f", a, b)
	}

	// 纽约到伦敦约 5570 公里
	if a < 5500000 || a > 5650000 {
		t.Fatalf("NYC-London = %f, want about 5570km", a)
	}
}
