// Package orbit converts TLE orbital elements into earth-centered positions
// via SGP4 propagation.
package orbit

import (
	"fmt"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Position is a fixed earth-centered (ECEF) position in meters.
type Position struct {
	X, Y, Z float64
}

// tleLineLength is the standard length of a TLE line.
const tleLineLength = 69

// ECEFAt propagates the orbit described by the two TLE lines to t and returns
// the ECEF position. go-satellite works in kilometres; we return metres.
func ECEFAt(line1, line2 string, t time.Time) (Position, error) {
	line1 = strings.TrimRight(line1, "\r\n")
	line2 = strings.TrimRight(line2, "\r\n")
	if err := checkTLELine(line1, '1'); err != nil {
		return Position{}, err
	}
	if err := checkTLELine(line2, '2'); err != nil {
		return Position{}, err
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)

	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	return Position{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}, nil
}

func checkTLELine(line string, number byte) error {
	if len(line) != tleLineLength {
		return fmt.Errorf("tle line %c: want %d characters, got %d", number, tleLineLength, len(line))
	}
	if line[0] != number {
		return fmt.Errorf("tle line %c: unexpected line number %q", number, line[0])
	}
	return nil
}
