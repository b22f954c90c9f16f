package rays

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/echoflaresat/blackhole/angles"
	"github.com/echoflaresat/blackhole/vectors"
)

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

var (
	posColumns = []string{"pos0", "pos1", "pos2", "pos3"}
	dirColumns = []string{"dir0", "dir1", "dir2", "dir3"}
)

// table is a CSV file indexed by column name.
type table struct {
	index map[string]int
	rows  [][]string
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	t := &table{index: make(map[string]int), rows: records[1:]}
	for i, name := range records[0] {
		t.index[name] = i
	}
	return t, nil
}

// column returns the index of the first of names present in the header.
func (t *table) column(names ...string) (int, error) {
	for _, name := range names {
		if i, ok := t.index[name]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingColumn, names[0])
}

func (t *table) columns(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		c, err := t.column(name)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (t *table) float(row, col int) (float64, error) {
	v, err := strconv.ParseFloat(t.rows[row][col], 64)
	if err != nil {
		return 0, fmt.Errorf("row %d: %w", row+1, err)
	}
	return v, nil
}

// flag accepts true/false spellings as well as numbers, non-zero being true.
func (t *table) flag(row, col int) (bool, error) {
	s := t.rows[row][col]
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("row %d: invalid flag %q", row+1, s)
	}
	return v != 0, nil
}

func (t *table) vec4(row int, cols []int) (vectors.Vec4, error) {
	var v vectors.Vec4
	for i, c := range cols {
		f, err := t.float(row, c)
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func appendVec4(rec []string, v vectors.Vec4) []string {
	for _, c := range v {
		rec = append(rec, formatFloat(c))
	}
	return rec
}

func writeAll(w io.Writer, header []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRays writes initial ray states as pos0..pos3, dir0..dir3.
func WriteRays(w io.Writer, rays []Ray) error {
	header := append(append([]string{}, posColumns...), dirColumns...)
	return writeAll(w, header, len(rays), func(i int) []string {
		rec := appendVec4(make([]string, 0, 8), rays[i].Pos)
		return appendVec4(rec, rays[i].Dir)
	})
}

// WriteArgs writes metric arguments as a single "arg" column.
func WriteArgs(w io.Writer, args []float64) error {
	return writeAll(w, []string{"arg"}, len(args), func(i int) []string {
		return []string{formatFloat(args[i])}
	})
}

// WriteFinals writes integrator results in the layout ReadFinals accepts.
func WriteFinals(w io.Writer, finals []Final) error {
	header := append(append([]string{"finished"}, posColumns...), dirColumns...)
	return writeAll(w, header, len(finals), func(i int) []string {
		rec := []string{strconv.FormatBool(finals[i].Collided)}
		rec = appendVec4(rec, finals[i].Pos)
		return appendVec4(rec, finals[i].Dir)
	})
}

// ReadFinals reads integrator results. The capture flag may be named
// "finished" or "collided".
func ReadFinals(r io.Reader) ([]Final, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	flagCol, err := t.column("finished", "collided")
	if err != nil {
		return nil, err
	}
	posCols, err := t.columns(posColumns)
	if err != nil {
		return nil, err
	}
	dirCols, err := t.columns(dirColumns)
	if err != nil {
		return nil, err
	}

	out := make([]Final, len(t.rows))
	for i := range t.rows {
		f := &out[i]
		if f.Collided, err = t.flag(i, flagCol); err != nil {
			return nil, err
		}
		if f.Pos, err = t.vec4(i, posCols); err != nil {
			return nil, err
		}
		if f.Dir, err = t.vec4(i, dirCols); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteSamples writes an angle table source as init_angle, final_angle,
// collided, world.
func WriteSamples(w io.Writer, samples []angles.Sample) error {
	header := []string{"init_angle", "final_angle", "collided", "world"}
	return writeAll(w, header, len(samples), func(i int) []string {
		s := samples[i]
		return []string{
			formatFloat(s.Incidence),
			formatFloat(s.Escape),
			strconv.FormatBool(s.Collided),
			strconv.Itoa(s.World),
		}
	})
}

// ReadSamples reads angle samples. Tables without a world column describe
// a single universe and get world 1.
func ReadSamples(r io.Reader) ([]angles.Sample, error) {
	t, err := readTable(r)
	if err != nil {
		return nil, err
	}
	initCol, err := t.column("init_angle")
	if err != nil {
		return nil, err
	}
	finalCol, err := t.column("final_angle")
	if err != nil {
		return nil, err
	}
	collidedCol, err := t.column("collided")
	if err != nil {
		return nil, err
	}
	worldCol, hasWorld := t.index["world"]

	out := make([]angles.Sample, len(t.rows))
	for i := range t.rows {
		s := &out[i]
		if s.Incidence, err = t.float(i, initCol); err != nil {
			return nil, err
		}
		if s.Escape, err = t.float(i, finalCol); err != nil {
			return nil, err
		}
		if s.Collided, err = t.flag(i, collidedCol); err != nil {
			return nil, err
		}
		s.World = World(0)
		if hasWorld {
			w, err := t.float(i, worldCol)
			if err != nil {
				return nil, err
			}
			s.World = World(int(w))
		}
	}
	return out, nil
}
