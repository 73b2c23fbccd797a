// Package led animates the panel LEDs through the output shift
// register chain. The animator composes one output word per UI tick and
// commits it only when it differs from the last written word, so a
// static panel costs no register traffic.
package led
