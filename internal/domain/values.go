package domain

import (
	"math"
	"strings"
)

// Axis names one of the value considerations a response can emphasize.
type Axis string

// The eight value axes, in canonical order. The ordering doubles as the
// tie-break rule when two axes share the highest score.
const (
	AxisAutonomy      Axis = "AUT"
	AxisHarm          Axis = "HARM"
	AxisCost          Axis = "COST"
	AxisIntervention  Axis = "INTV"
	AxisEquity        Axis = "EQTY"
	AxisInstitutional Axis = "INST"
	AxisGuidelines    Axis = "GL"
	AxisUncertainty   Axis = "UNC"
)

// Axes is the canonical axis ordering used for iteration and tie-breaking.
var Axes = []Axis{
	AxisAutonomy,
	AxisHarm,
	AxisCost,
	AxisIntervention,
	AxisEquity,
	AxisInstitutional,
	AxisGuidelines,
	AxisUncertainty,
}

// ValueVector maps each axis to a score in [0, 1]. Vectors are derived
// per analysis run from response text and are never persisted.
type ValueVector map[Axis]float64

// ZeroVector returns a vector with every axis scored zero.
func ZeroVector() ValueVector {
	v := make(ValueVector, len(Axes))
	for _, axis := range Axes {
		v[axis] = 0
	}
	return v
}

// MeanVector averages the given vectors axis by axis.
// An empty input yields the zero vector.
func MeanVector(vectors []ValueVector) ValueVector {
	out := ZeroVector()
	if len(vectors) == 0 {
		return out
	}
	for _, v := range vectors {
		for _, axis := range Axes {
			out[axis] += v[axis]
		}
	}
	n := float64(len(vectors))
	for _, axis := range Axes {
		out[axis] /= n
	}
	return out
}

// L1Distance returns the sum of absolute per-axis differences between
// two vectors. The theoretical maximum equals len(Axes) since every
// axis is bounded to [0, 1].
func (v ValueVector) L1Distance(other ValueVector) float64 {
	var sum float64
	for _, axis := range Axes {
		sum += math.Abs(v[axis] - other[axis])
	}
	return sum
}

// DominantAxis returns the axis with the highest score.
// Ties resolve to the earlier axis in canonical order.
func (v ValueVector) DominantAxis() Axis {
	best := Axes[0]
	bestScore := v[best]
	for _, axis := range Axes[1:] {
		if v[axis] > bestScore {
			best = axis
			bestScore = v[axis]
		}
	}
	return best
}

// Frame tags recognized as alternative phrasings of the same case.
const (
	FrameNeutral  = "NEUTRAL"
	FrameProvider = "PROVIDER"
	FramePatient  = "PATIENT"
)

var frameTags = map[string]struct{}{
	FrameNeutral:  {},
	FrameProvider: {},
	FramePatient:  {},
}

// SplitCaseFrame decomposes a prompt id into its case id and frame tag.
// The frame is the last underscore-delimited segment if and only if it
// matches a known tag; ids without a recognized frame report ok=false and
// are excluded from framing-sensitivity analysis.
func SplitCaseFrame(id string) (caseID, frame string, ok bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 {
		return id, "", false
	}
	tag := strings.ToUpper(id[idx+1:])
	if _, known := frameTags[tag]; !known {
		return id, "", false
	}
	return id[:idx], tag, true
}
