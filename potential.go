package mcp47x6

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// ErrPotentialRange is returned when a requested output voltage cannot be
// produced with the current reference and gain.
var ErrPotentialRange = errors.New("mcp47x6: output potential out of range")

// fullScale returns the output voltage corresponding to a level of 4096 for
// reference voltage ref. The gain setting only applies with the VREF pin;
// with Vdd as reference the device always uses a gain of 1.
func (dac *MCP47X6) fullScale(ref physic.ElectricPotential) physic.ElectricPotential {
	if GainX2 == dac.gain && VRefVddUnbuffered != dac.vref {
		return 2 * ref
	}
	return ref
}

// SetOutputPotential changes the output level to the 12-bit step nearest v,
// rounded down to the resolution of the variant, given that the selected
// reference source measures ref. No bus traffic occurs.
//
// Returns ErrPotentialRange if v is negative, exceeds the full-scale output,
// or if ref is not positive.
func (dac *MCP47X6) SetOutputPotential(v, ref physic.ElectricPotential) error {

	if ref <= 0 || v < 0 {
		return ErrPotentialRange
	}

	fs := dac.fullScale(ref)
	if fs <= 0 || v > fs {
		return ErrPotentialRange
	}

	// v <= fs bounds the rounded count by 4096, which is clamped to the top
	// step.
	count := int64(float64(v)*float64(MaxLevel+1)/float64(fs) + 0.5)
	if count > int64(MaxLevel) {
		count = int64(MaxLevel)
	}

	dac.level = dac.variant.Level(uint16(count))
	return nil
}

// OutputPotential returns the output voltage the current level produces given
// that the selected reference source measures ref.
func (dac *MCP47X6) OutputPotential(ref physic.ElectricPotential) physic.ElectricPotential {
	level := dac.variant.Level(dac.level)
	return physic.ElectricPotential(float64(dac.fullScale(ref)) * float64(level) / float64(MaxLevel+1))
}
