package util

import (
	"testing"
)

func TestFileNameFromGeneration(t *testing.T) {
	if s := FileNameFromGeneration("_a", "del", 37); s != "_a_11.del" {
		t.Errorf("Expected '_a_11.del' but was '%v'", s)
	}
	if s := FileNameFromGeneration("_a", "del", 0); s != "_a_0.del" {
		t.Errorf("Expected '_a_0.del' but was '%v'", s)
	}
	if s := FileNameFromGeneration("_a", "del", -1); s != "" {
		t.Errorf("Expected no name but was '%v'", s)
	}
	if s := FileNameForGenField("_3", "s", 2, 5); s != "_3_2.s5" {
		t.Errorf("Expected '_3_2.s5' but was '%v'", s)
	}
}

func TestSegmentsFileName(t *testing.T) {
	for _, gen := range []int64{0, 1, 35, 36, 1295, 1 << 40} {
		name := SegmentsFileName(gen)
		if got := GenerationFromSegmentsFileName(name); got != gen {
			t.Errorf("%v: expected generation %v, got %v", name, gen, got)
		}
	}
	if s := SegmentsFileName(36); s != "segments_10" {
		t.Errorf("Expected 'segments_10' but was '%v'", s)
	}
	if g := GenerationFromSegmentsFileName("segments"); g != -1 {
		t.Errorf("pointer file must not parse as a generation, got %v", g)
	}
}

func TestParseSegmentName(t *testing.T) {
	assertEquals(t, "_a", ParseSegmentName("_a.frq"))
	assertEquals(t, "_a", ParseSegmentName("_a_3.del"))
	assertEquals(t, "_zz", ParseSegmentName("_zz_1.f12"))
	assertEquals(t, "segments_2", ParseSegmentName("segments_2"))
	assertEquals(t, int64(3), ParseGeneration("_a_3.del"))
	assertEquals(t, int64(0), ParseGeneration("_a.frq"))
	assertEquals(t, "f12", FileExtension("_zz_1.f12"))
}

func assertEquals(t *testing.T, a, b interface{}) {
	t.Helper()
	if a != b {
		t.Errorf("Expected '%v', but '%v'", a, b)
	}
}
