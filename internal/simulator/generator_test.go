package simulator

import "testing"

func TestTimestampsStrictlyIncrease(t *testing.T) {
	g := New(1, 0.5)
	prev := -1.0
	for i := 0; i < 100; i++ {
		f := g.Next()
		if f.Timestamp <= prev {
			t.Fatalf("timestamp regressed at frame %d: %v after %v", i, f.Timestamp, prev)
		}
		if f.FrameID != int64(i) {
			t.Fatalf("expected frame id %d, got %d", i, f.FrameID)
		}
		prev = f.Timestamp
	}
}

func TestSeededRunsReproduce(t *testing.T) {
	a, b := New(42, 1.0), New(42, 1.0)
	for i := 0; i < 50; i++ {
		fa, fb := a.Next(), b.Next()
		for k, v := range fa.Values {
			if fb.Values[k] != v {
				t.Fatalf("frame %d field %s diverged: %v vs %v", i, k, v, fb.Values[k])
			}
		}
	}
}

func TestValuesStayPhysical(t *testing.T) {
	g := New(7, 1.0)
	for i := 0; i < 1000; i++ {
		f := g.Next()
		soc := f.Values["battery_soc"].(float64)
		if soc < -1 || soc > 101 {
			t.Fatalf("battery_soc out of range at frame %d: %v", i, soc)
		}
		for _, k := range []string{"velocity", "solar_voltage", "solar_current"} {
			if v := f.Values[k].(float64); v < 0 {
				t.Fatalf("%s negative at frame %d: %v", k, i, v)
			}
		}
	}
}
