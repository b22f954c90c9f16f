package spacetime

import (
	"math"
	"testing"

	"github.com/echoflaresat/blackhole/vectors"
)

func mustNew(t *testing.T, k Kind, rs float64) Space {
	t.Helper()
	s, err := New(k, rs)
	if err != nil {
		t.Fatalf("New(%v): %v", k, err)
	}
	return s
}

func closeVec(a, b vectors.Vec4, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol*math.Max(1, math.Abs(b[i])) {
			return false
		}
	}
	return true
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindSchwarzschild, KindLemaitre, KindKruskal} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("minkowski"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
	if _, err := New(KindKruskal, 0); err == nil {
		t.Fatal("expected error for zero horizon")
	}
}

func TestRoundTrip(t *testing.T) {
	pos := vectors.Vec4{1.5, 5, math.Pi / 2, 0.7}
	dir := vectors.Vec4{-1.3, -0.4, 0, 0.05}

	for _, k := range []Kind{KindSchwarzschild, KindLemaitre, KindKruskal} {
		t.Run(k.String(), func(t *testing.T) {
			s := mustNew(t, k, 1)
			to := s.TransformTo(pos, &dir)
			if !to.PosValid || !to.DirValid {
				t.Fatalf("TransformTo invalid: %+v", to)
			}
			back := s.TransformFrom(to.Pos, &to.Dir)
			if !back.PosValid || !back.DirValid {
				t.Fatalf("TransformFrom invalid: %+v", back)
			}
			if !closeVec(back.Pos, pos, 1e-6) {
				t.Errorf("position %v, want %v", back.Pos, pos)
			}
			if !closeVec(back.Dir, dir, 1e-6) {
				t.Errorf("direction %v, want %v", back.Dir, dir)
			}
		})
	}
}

func TestSchwarzschildIsIdentity(t *testing.T) {
	s := mustNew(t, KindSchwarzschild, 2)
	pos := vectors.Vec4{0, 10, 1, 2}
	dir := vectors.Vec4{-1, 0.5, 0, 0.1}
	p := s.TransformTo(pos, &dir)
	if p.Pos != pos || p.Dir != dir {
		t.Fatalf("TransformTo changed state: %+v", p)
	}
	p = s.TransformFrom(pos, nil)
	if p.DirValid || p.Area != AreaNone {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestEmitRayIsNull(t *testing.T) {
	for _, k := range []Kind{KindSchwarzschild, KindLemaitre, KindKruskal} {
		s := mustNew(t, k, 1)
		for _, alpha := range []float64{0, 0.4, math.Pi / 2, 2.5} {
			ok, pos, dir := s.EmitRay(0, 15, alpha)
			if !ok {
				t.Fatalf("%v: EmitRay(15, %v) failed", k, alpha)
			}
			g := s.Metric(pos)
			var norm, scale float64
			for i := 0; i < 4; i++ {
				norm += g.At(i, i) * dir[i] * dir[i]
				scale += math.Abs(g.At(i, i) * dir[i] * dir[i])
			}
			if math.Abs(norm) > 1e-9*scale {
				t.Errorf("%v alpha=%v: g(d,d) = %v", k, alpha, norm)
			}
			if dir[0] >= 0 {
				t.Errorf("%v alpha=%v: time component %v should be negative", k, alpha, dir[0])
			}
		}
	}
}

func TestEmitRayOutsideDomain(t *testing.T) {
	for _, k := range []Kind{KindSchwarzschild, KindLemaitre} {
		s := mustNew(t, k, 1)
		if ok, _, _ := s.EmitRay(0, 0.5, 0.1); ok {
			t.Errorf("%v: emission below the horizon should fail", k)
		}
	}
	s := mustNew(t, KindKruskal, 1)
	if ok, _, _ := s.EmitRay(0, 0.5, 0.1); !ok {
		t.Error("kruskal: emission below the horizon should succeed")
	}
	if ok, _, _ := s.EmitRay(0, -1, 0.1); ok {
		t.Error("kruskal: negative radius should fail")
	}
}

func TestKruskalAreas(t *testing.T) {
	s := mustNew(t, KindKruskal, 1)

	outside := s.TransformTo(vectors.Vec4{0.3, 4, math.Pi / 2, 0}, nil)
	if got := s.TransformFrom(outside.Pos, nil).Area; got != AreaExterior {
		t.Errorf("outside point area = %d", got)
	}

	inside := s.TransformTo(vectors.Vec4{0.3, 0.5, math.Pi / 2, 0}, nil)
	p := s.TransformFrom(inside.Pos, nil)
	if p.Area != AreaBlack {
		t.Errorf("inside point area = %d", p.Area)
	}
	if math.Abs(p.Pos[vectors.R]-0.5) > 1e-9 {
		t.Errorf("inside radius = %v", p.Pos[vectors.R])
	}

	cases := []struct {
		T, X float64
		want int
	}{
		{0, 2, AreaExterior},
		{2, 0, AreaBlack},
		{0, -2, AreaMirror},
		{-2, 0, AreaWhite},
	}
	for _, c := range cases {
		if got := s.TransformFrom(vectors.Vec4{c.T, c.X, 1, 0}, nil).Area; got != c.want {
			t.Errorf("area(T=%v, X=%v) = %d, want %d", c.T, c.X, got, c.want)
		}
	}
}

func TestCheckCollision(t *testing.T) {
	sw := mustNew(t, KindSchwarzschild, 1)
	if !sw.CheckCollision(vectors.Vec4{0, 1.04, 1, 0}) || sw.CheckCollision(vectors.Vec4{0, 1.06, 1, 0}) {
		t.Error("schwarzschild capture threshold")
	}

	lm := mustNew(t, KindLemaitre, 1)
	far := lm.TransformTo(vectors.Vec4{0, 3, 1, 0}, nil)
	if lm.CheckCollision(far.Pos) {
		t.Error("lemaitre: r=3 should not collide")
	}
	// rho - tau for r just below the horizon
	in := vectors.Vec4{0, 2.0 / 3.0 * math.Pow(0.9, 1.5), 1, 0}
	if !lm.CheckCollision(in) {
		t.Error("lemaitre: r<rs should collide")
	}

	kr := mustNew(t, KindKruskal, 1)
	if !kr.CheckCollision(vectors.Vec4{1, 0, 1, 0}) {
		t.Error("kruskal: singularity should collide")
	}
	if kr.CheckCollision(vectors.Vec4{1, 1, 1, 0}) {
		t.Error("kruskal: horizon crossing at r=rs is not a collision")
	}
}
