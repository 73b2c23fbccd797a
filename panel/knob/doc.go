// Package knob reads the panel potentiometers through an analog
// converter and publishes normalized parameter values.
//
// Raw counts pass a hysteresis gate so converter noise never retriggers
// a parameter. After a patch recall the physical knob position no
// longer matches the active value; recalled knobs chase: the published
// value holds at the recalled one until the physical knob sweeps close
// to it, then the two merge and the knob goes live. A knob can also
// drive a second, virtual parameter while a trigger button is held,
// doubling the panel surface.
package knob
