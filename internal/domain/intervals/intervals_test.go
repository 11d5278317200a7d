package intervals

import (
	"testing"
	"time"
)

func TestGenerate_CountAndSpacing(t *testing.T) {
	for _, d := range []int{0, 1, 7, 60} {
		var got []time.Duration
		for ts := range Generate(d, DefaultStep) {
			got = append(got, ts)
		}
		if len(got) != 10*(d+1) {
			t.Fatalf("D=%d: expected %d timestamps, got %d", d, 10*(d+1), len(got))
		}
		if Count(d, DefaultStep) != len(got) {
			t.Fatalf("D=%d: Count=%d disagrees with %d", d, Count(d, DefaultStep), len(got))
		}
		if got[0] != 0 {
			t.Fatalf("D=%d: first timestamp %s", d, got[0])
		}
		last := time.Duration(d)*time.Second + 900*time.Millisecond
		if got[len(got)-1] != last {
			t.Fatalf("D=%d: last timestamp %s, want %s", d, got[len(got)-1], last)
		}
		for i := 1; i < len(got); i++ {
			if got[i]-got[i-1] != 100*time.Millisecond {
				t.Fatalf("D=%d: gap at %d is %s", d, i, got[i]-got[i-1])
			}
		}
	}
}

func TestGenerate_ZeroDuration(t *testing.T) {
	var got []int64
	for ts := range Generate(0, DefaultStep) {
		got = append(got, ts.Milliseconds())
	}
	want := []int64{0, 100, 200, 300, 400, 500, 600, 700, 800, 900}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGenerate_Restartable(t *testing.T) {
	seq := Generate(2, DefaultStep)
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != second || first != 30 {
		t.Fatalf("expected two full passes of 30, got %d and %d", first, second)
	}
}

func TestGenerate_EarlyStop(t *testing.T) {
	n := 0
	for ts := range Generate(5, DefaultStep) {
		n++
		if ts >= 300*time.Millisecond {
			break
		}
	}
	if n != 4 {
		t.Fatalf("expected 4 timestamps before break, got %d", n)
	}
}

func TestGenerate_CustomStep(t *testing.T) {
	if got := Count(1, 250*time.Millisecond); got != 8 {
		t.Fatalf("expected 8 timestamps for 250ms step, got %d", got)
	}
	if ValidStep(300 * time.Millisecond) {
		t.Fatalf("300ms should not be a valid step")
	}
}

func TestGenerate_InvalidStepFallsBackToDefault(t *testing.T) {
	for _, step := range []time.Duration{-time.Second, 0, 300 * time.Millisecond, 3 * time.Second} {
		var got []time.Duration
		for ts := range Generate(1, step) {
			got = append(got, ts)
		}
		if len(got) != 20 || Count(1, step) != len(got) {
			t.Fatalf("step %s: expected 20 timestamps matching Count=%d, got %d", step, Count(1, step), len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i]-got[i-1] != DefaultStep {
				t.Fatalf("step %s: gap at %d is %s", step, i, got[i]-got[i-1])
			}
		}
		if Normalize(step) != DefaultStep {
			t.Fatalf("Normalize(%s) = %s", step, Normalize(step))
		}
	}
	if Normalize(250*time.Millisecond) != 250*time.Millisecond {
		t.Fatalf("valid step should be kept")
	}
}
