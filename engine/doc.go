// Package engine runs the synthesizer's three periodic loops and wires
// the oscillator bank, panel and stream output together.
//
// The audio loop renders one block per network packet period, the
// control loop scans knobs and buttons, and the UI loop animates the
// LEDs. Parameters flow from the control loop to the audio loop through
// lock-free bus slots; everything else crosses goroutines through
// drained closure queues, so each loop's state keeps a single writer.
package engine
