// Package shiftreg bit-bangs chains of parallel-in (74HC165 style) and
// serial-out latched (74HC595 style) shift registers over plain digital
// pins.
package shiftreg
