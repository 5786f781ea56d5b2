package animator

import (
	"errors"
	"math"
	"testing"

	"github.com/park285/cheese-hopboard/internal/scene"
)

type fakeTarget struct {
	pos      scene.Vec3
	attached bool
}

func (f *fakeTarget) Position() scene.Vec3     { return f.pos }
func (f *fakeTarget) SetPosition(p scene.Vec3) { f.pos = p }
func (f *fakeTarget) Attached() bool           { return f.attached }

func near(a, b scene.Vec3) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

func TestHopPhasesAreLinear(t *testing.T) {
	tg := &fakeTarget{attached: true}
	a := New()
	from := scene.V(0, 0.1, 0)
	to := scene.V(2, 0.1, 4)
	if err := a.Start(tg, Hop{From: from, To: to, LiftHeight: 2, Step: 0.25}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []struct {
		phase Phase
		pos   scene.Vec3
	}{
		{Lift, scene.V(0, 1.1, 0)},
		{Lift, scene.V(0, 2.1, 0)},
		{Drop, scene.V(1, 1.1, 2)},
	}
	for i, w := range want {
		if out := a.Step(); out != Running {
			t.Fatalf("frame %d outcome = %v", i, out)
		}
		if a.Phase() != w.phase || !near(tg.pos, w.pos) {
			t.Fatalf("frame %d: phase=%v pos=%+v, want %v %+v", i, a.Phase(), tg.pos, w.phase, w.pos)
		}
	}
	if out := a.Step(); out != Completed {
		t.Fatalf("final outcome = %v", out)
	}
	if !near(tg.pos, to) || a.Phase() != Idle {
		t.Fatalf("landed at %+v phase %v", tg.pos, a.Phase())
	}
	if out := a.Step(); out != Running {
		t.Fatalf("idle step reported %v; completion must fire once", out)
	}
}

func TestDefaultStepLandsOnFiftiethFrame(t *testing.T) {
	tg := &fakeTarget{attached: true}
	a := New()
	_ = a.Start(tg, Hop{From: scene.V(0, 0, 0), To: scene.V(1, 0, 0), LiftHeight: DefaultLiftHeight, Step: DefaultStep})
	for i := 1; i < 50; i++ {
		if out := a.Step(); out != Running {
			t.Fatalf("completed early at frame %d", i)
		}
	}
	if out := a.Step(); out != Completed {
		t.Fatalf("frame 50 outcome = %v", out)
	}
}

func TestAbandonWhenDetached(t *testing.T) {
	tg := &fakeTarget{attached: true}
	a := New()
	_ = a.Start(tg, Hop{From: scene.V(0, 0, 0), To: scene.V(1, 0, 0), LiftHeight: 1, Step: 0.1})
	a.Step()
	tg.attached = false
	if out := a.Step(); out != Abandoned {
		t.Fatalf("outcome = %v, want Abandoned", out)
	}
	if a.Active() {
		t.Fatalf("animator should be idle after abandon")
	}
}

func TestStartGuards(t *testing.T) {
	a := New()
	tg := &fakeTarget{attached: true}
	if err := a.Start(nil, Hop{Step: 0.1}); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("nil target err = %v", err)
	}
	if err := a.Start(tg, Hop{Step: 0}); !errors.Is(err, ErrBadStep) {
		t.Fatalf("zero step err = %v", err)
	}
	if err := a.Start(tg, Hop{Step: 0.5}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Start(tg, Hop{Step: 0.5}); !errors.Is(err, ErrBusy) {
		t.Fatalf("overlap err = %v", err)
	}
	a.Cancel()
	if a.Active() || a.Progress() != 0 {
		t.Fatalf("Cancel left state behind")
	}
}
