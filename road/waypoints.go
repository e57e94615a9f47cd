package road

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadWaypoints reads a map with one waypoint per line as whitespace separated "x y s dx dy".
// Blank lines and lines starting with '#' are skipped.
func LoadWaypoints(r io.Reader) ([]Waypoint, error) {
	var waypoints []Waypoint
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, errors.Errorf("line %d: expected 5 fields, got %d", lineNum, len(fields))
		}
		var vals [5]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d field %d", lineNum, i+1)
			}
			vals[i] = v
		}
		waypoints = append(waypoints, Waypoint{X: vals[0], Y: vals[1], S: vals[2], Dx: vals[3], Dy: vals[4]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading waypoints")
	}
	return waypoints, nil
}

// FromFile loads the map at path and builds the road.
func FromFile(path string, cfg Config) (*Road, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	waypoints, err := LoadWaypoints(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading map %q", path)
	}
	return New(waypoints, cfg)
}
