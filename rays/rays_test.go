package rays

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/spacetime"
	"github.com/echoflaresat/blackhole/vectors"
)

const eps = 1e-12

func mustSpace(t *testing.T, kind spacetime.Kind) spacetime.Space {
	t.Helper()
	s, err := spacetime.New(kind, 1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFanEqual(t *testing.T) {
	space := mustSpace(t, spacetime.KindSchwarzschild)
	fan := Fan(space, 15, math.Pi, 5, SpacingEqual)
	if len(fan) != 5 {
		t.Fatalf("len = %d, want 5", len(fan))
	}
	for i, ray := range fan {
		want := math.Pi / 2 * float64(i) / 4
		if math.Abs(ray.Incidence-want) > eps {
			t.Errorf("ray %d incidence = %v, want %v", i, ray.Incidence, want)
		}
		if ray.Pos != (vectors.Vec4{0, 15, math.Pi / 2, 0}) {
			t.Errorf("ray %d pos = %v", i, ray.Pos)
		}
	}
	// straight in
	if fan[0].Dir[vectors.R] >= 0 || math.Abs(fan[0].Dir[vectors.Phi]) > eps {
		t.Errorf("first ray dir = %v, want radial inward", fan[0].Dir)
	}
}

func TestFanPerspective(t *testing.T) {
	space := mustSpace(t, spacetime.KindSchwarzschild)
	fan := Fan(space, 15, math.Pi/2, 5, SpacingPerspective)
	want := []float64{-math.Pi / 4, math.Atan(-0.5), 0, math.Atan(0.5), math.Pi / 4}
	for i, ray := range fan {
		if math.Abs(ray.Incidence-want[i]) > eps {
			t.Errorf("ray %d incidence = %v, want %v", i, ray.Incidence, want[i])
		}
	}
}

func TestPerspectiveFanTable(t *testing.T) {
	space := mustSpace(t, spacetime.KindSchwarzschild)
	fan := Fan(space, 15, 2*math.Pi/3, 101, SpacingPerspective)
	samples := make([]angles.Sample, len(fan))
	for i, ray := range fan {
		samples[i] = angles.Sample{Incidence: ray.Incidence, Escape: 2 * ray.Incidence, World: 1}
	}

	table, err := angles.Build(angles.Uniform(samples))
	if err != nil {
		t.Fatal(err)
	}
	for _, inc := range []float64{0.2, 0.5, 0.9} {
		if got := table.Lookup(inc); got.Collided || math.Abs(got.Escape-2*inc) > 1e-9 {
			t.Errorf("Lookup(%v) = %+v, want escape %v", inc, got, 2*inc)
		}
	}
}

func TestFanSkipsInvalid(t *testing.T) {
	space := mustSpace(t, spacetime.KindLemaitre)
	if fan := Fan(space, 0.5, math.Pi, 10, SpacingEqual); len(fan) != 0 {
		t.Errorf("fan inside horizon has %d rays", len(fan))
	}
	if fan := Fan(space, 15, math.Pi, 1, SpacingEqual); len(fan) != 1 || fan[0].Incidence != 0 {
		t.Errorf("single ray fan = %+v", fan)
	}
}

func TestParseSpacing(t *testing.T) {
	for _, s := range []Spacing{SpacingEqual, SpacingPerspective} {
		got, err := ParseSpacing(s.String())
		if err != nil || got != s {
			t.Errorf("ParseSpacing(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseSpacing("fisheye"); err == nil {
		t.Error("expected error for unknown spacing")
	}
}

func TestEscapeAngle(t *testing.T) {
	cases := []struct {
		name     string
		pos, dir vectors.Vec4
		want     float64
	}{
		{"outward", vectors.Vec4{0, 40, math.Pi / 2, 0.3}, vectors.Vec4{-1, 1, 0, 0}, math.Pi - 0.3},
		{"time scale", vectors.Vec4{0, 40, math.Pi / 2, 0.3}, vectors.Vec4{-2, 2, 0, 0}, math.Pi - 0.3},
		{"wraps", vectors.Vec4{0, 40, math.Pi / 2, 4}, vectors.Vec4{-1, -1, 0, 0}, 2*math.Pi - 4},
		{"tangent", vectors.Vec4{0, 10, math.Pi / 2, 0}, vectors.Vec4{-1, 0, 0, 0.1}, math.Pi / 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := EscapeAngle(c.pos, c.dir)
			if math.Abs(got-c.want) > 1e-9 {
				t.Errorf("EscapeAngle = %v, want %v", got, c.want)
			}
			if got < -math.Pi || got > math.Pi {
				t.Errorf("EscapeAngle = %v outside [-π, π]", got)
			}
		})
	}
}

func TestWorld(t *testing.T) {
	if got := World(spacetime.AreaNone); got != 1 {
		t.Errorf("World(none) = %d, want 1", got)
	}
	if got := World(spacetime.AreaMirror); got != spacetime.AreaMirror {
		t.Errorf("World(mirror) = %d", got)
	}
}

func TestAngles(t *testing.T) {
	space := mustSpace(t, spacetime.KindSchwarzschild)
	fan := Fan(space, 15, math.Pi, 3, SpacingEqual)
	finals := []Final{
		{Collided: true, Pos: vectors.Vec4{-20, 1.01, math.Pi / 2, 0}},
		{Pos: vectors.Vec4{-300, 200, math.Pi / 2, 0.5}, Dir: vectors.Vec4{-1, 1, 0, 0}},
		{Pos: vectors.Vec4{-300, 200, math.Pi / 2, 2}, Dir: vectors.Vec4{-1, 1, 0, math.NaN()}},
	}

	samples, err := Angles(space, fan, finals)
	if err != nil {
		t.Fatal(err)
	}
	if !samples[0].Collided || samples[0].World != 1 {
		t.Errorf("sample 0 = %+v, want collided in world 1", samples[0])
	}
	if samples[1].Collided || math.Abs(samples[1].Escape-(math.Pi-0.5)) > 1e-9 {
		t.Errorf("sample 1 = %+v", samples[1])
	}
	if samples[1].Incidence != fan[1].Incidence {
		t.Errorf("sample 1 incidence = %v, want %v", samples[1].Incidence, fan[1].Incidence)
	}

	// a NaN escape is a sentinel for the table builder
	table, err := angles.Build(samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 0 {
		t.Errorf("table = %+v, want no usable blocks", table)
	}

	if _, err := Angles(space, fan, finals[:2]); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestAnglesKruskalWorlds(t *testing.T) {
	space := mustSpace(t, spacetime.KindKruskal)
	fan := Fan(space, 15, math.Pi, 2, SpacingEqual)
	finals := []Final{
		// other universe: X < -|T|
		{Pos: vectors.Vec4{0.5, -40, math.Pi / 2, 0}, Dir: vectors.Vec4{-1, -1.2, 0, 0}},
		// black hole interior, captured
		{Collided: true, Pos: vectors.Vec4{1.2, 0.1, math.Pi / 2, 0}},
	}
	samples, err := Angles(space, fan, finals)
	if err != nil {
		t.Fatal(err)
	}
	if samples[0].World != spacetime.AreaMirror || samples[0].Collided {
		t.Errorf("sample 0 = %+v, want world 3", samples[0])
	}
	if samples[1].World != spacetime.AreaBlack || !samples[1].Collided {
		t.Errorf("sample 1 = %+v, want collided in world 2", samples[1])
	}
}

func TestReadFinals(t *testing.T) {
	in := "finished,pos0,pos1,pos2,pos3,dir0,dir1,dir2,dir3\n" +
		"true, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0\n" +
		"false,0,30,1.57,0.2,-1,0.5,0,0.01\n"
	finals, err := ReadFinals(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(finals) != 2 {
		t.Fatalf("len = %d", len(finals))
	}
	if !finals[0].Collided || finals[0].Pos != (vectors.Vec4{1, 2, 3, 4}) || finals[0].Dir != (vectors.Vec4{5, 6, 7, 8}) {
		t.Errorf("finals[0] = %+v", finals[0])
	}
	if finals[1].Collided || finals[1].Pos[vectors.R] != 30 {
		t.Errorf("finals[1] = %+v", finals[1])
	}

	// pandas spelling, columns reordered
	in = "dir0,dir1,dir2,dir3,collided,pos0,pos1,pos2,pos3\n" +
		"-1,0,0,0,True,0,1,2,3\n"
	finals, err = ReadFinals(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if !finals[0].Collided || finals[0].Pos != (vectors.Vec4{0, 1, 2, 3}) {
		t.Errorf("reordered = %+v", finals[0])
	}
}

func TestReadFinalsErrors(t *testing.T) {
	cases := map[string]string{
		"no flag":    "pos0,pos1,pos2,pos3,dir0,dir1,dir2,dir3\n0,0,0,0,0,0,0,0\n",
		"no dir3":    "finished,pos0,pos1,pos2,pos3,dir0,dir1,dir2\nfalse,0,0,0,0,0,0,0\n",
		"bad number": "finished,pos0,pos1,pos2,pos3,dir0,dir1,dir2,dir3\nfalse,0,x,0,0,0,0,0,0\n",
		"empty":      "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFinals(strings.NewReader(in))
			if err == nil {
				t.Fatal("expected error")
			}
			missing := strings.HasPrefix(name, "no ")
			if errors.Is(err, ErrMissingColumn) != missing {
				t.Errorf("errors.Is(ErrMissingColumn) = %v for %v", !missing, err)
			}
		})
	}
}

func TestWriteFinalsIsReadable(t *testing.T) {
	want := []Final{
		{Collided: true, Pos: vectors.Vec4{1, 2, 3, 4}},
		{Pos: vectors.Vec4{0, 1e-7, math.Pi, -2}, Dir: vectors.Vec4{-1, 0.25, 0, 1.5}},
	}
	var buf bytes.Buffer
	if err := WriteFinals(&buf, want); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "finished,pos0,") {
		t.Errorf("header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
	got, err := ReadFinals(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWriteRaysAndArgs(t *testing.T) {
	var buf bytes.Buffer
	rays := []Ray{{Pos: vectors.Vec4{0, 15, 1.5, 0}, Dir: vectors.Vec4{-1, -0.5, 0, 0.25}}}
	if err := WriteRays(&buf, rays); err != nil {
		t.Fatal(err)
	}
	want := "pos0,pos1,pos2,pos3,dir0,dir1,dir2,dir3\n0,15,1.5,0,-1,-0.5,0,0.25\n"
	if buf.String() != want {
		t.Errorf("rays csv = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := WriteArgs(&buf, []float64{1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "arg\n1\n" {
		t.Errorf("args csv = %q", buf.String())
	}
}

func TestSamplesTable(t *testing.T) {
	samples := []angles.Sample{
		{Incidence: 0, Escape: 0.1, World: 1},
		{Incidence: 0.5, Escape: 0.7, World: 1},
		{Incidence: 1, Collided: true, World: 3},
	}
	var buf bytes.Buffer
	if err := WriteSamples(&buf, samples); err != nil {
		t.Fatal(err)
	}
	got, err := ReadSamples(&buf)
	if err != nil {
		t.Fatal(err)
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %+v, want %+v", i, got[i], samples[i])
		}
	}

	// single-universe tables carry no world column
	in := "init_angle,final_angle,collided\n0,0.1,False\n0.1,0.3,False\n"
	got, err = ReadSamples(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if got[1].World != 1 || got[1].Escape != 0.3 {
		t.Errorf("sample = %+v", got[1])
	}

	_, err = ReadSamples(strings.NewReader("init_angle,collided\n0,false\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}
