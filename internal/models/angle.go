// internal/models/angle.go
package models

import "fmt"

type Angle string

const (
	AngleFront Angle = "front"
	AngleBack  Angle = "back"
	AngleLeft  Angle = "left"
	AngleRight Angle = "right"
)

// CanonicalAngles is the full set in request order.
var CanonicalAngles = []Angle{AngleFront, AngleBack, AngleLeft, AngleRight}

func (a Angle) Valid() bool {
	switch a {
	case AngleFront, AngleBack, AngleLeft, AngleRight:
		return true
	}
	return false
}

// ParseAngles converts raw values, defaulting to CanonicalAngles when empty.
func ParseAngles(raw []string) ([]Angle, error) {
	if len(raw) == 0 {
		out := make([]Angle, len(CanonicalAngles))
		copy(out, CanonicalAngles)
		return out, nil
	}
	out := make([]Angle, 0, len(raw))
	for _, r := range raw {
		a := Angle(r)
		if !a.Valid() {
			return nil, fmt.Errorf("unknown angle %q", r)
		}
		out = append(out, a)
	}
	return out, nil
}
