// Package parambus carries parameter values between the control loop
// and the audio loop without locks.
//
// Each Slot is a single float64 behind an atomic word: one writer, any
// number of readers, no tearing. Flags carry one-shot notifications the
// consumer drains with Consume.
package parambus
