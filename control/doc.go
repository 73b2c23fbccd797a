// Package control exposes the engine's parameters and patch slots over
// OSC, so a sequencer or another node on the segment can drive a
// synthesizer without touching its panel.
//
// Addresses:
//
//	/param/<slot>   f   set a bus parameter, clamped to [0, 1]
//	/patch/recall   i   recall a patch slot
//	/patch/save     i   save the current values to a patch slot
package control
