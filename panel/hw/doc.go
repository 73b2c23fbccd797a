// Package hw defines the narrow pin and converter interfaces the panel
// packages drive, together with in-memory simulated parts.
//
// The simulated types model the shift-register chips on the control
// board closely enough that the scan and display logic can be exercised
// without hardware: SimShiftIn behaves like a 74HC165 chain (parallel
// load, serial shift out), SimShiftOut like a 74HC595 chain (serial
// shift in, latch to outputs).
package hw
