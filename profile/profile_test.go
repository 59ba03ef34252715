package profile

import "testing"

func TestMake(t *testing.T) {
	t.Parallel()

	p := Make(WithMode("cpu"), WithPath("/tmp/x"), WithQuiet(true))

	if p != (Profiler{Mode: "cpu", Path: "/tmp/x", Quiet: true}) {
		t.Errorf("Make = %+v", p)
	}
}

func TestStartDisabled(t *testing.T) {
	t.Parallel()

	s := Profiler{}.Start()
	if s == nil {
		t.Fatal("Start returned nil")
	}

	s.Stop()

	if _, ok := Make(WithMode("no-such-mode")).Start().(ignore); !ok {
		t.Error("unsupported mode started a profiler")
	}
}
