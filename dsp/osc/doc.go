// Package osc implements the oscillator bank: a fixed set of synthesis
// voices (sine, saw, pulse) mixed down to one mono sample per tick, with
// a unison-cloud parameterization that spreads voice tuning and pulse
// width symmetrically around a shared base frequency.
package osc
