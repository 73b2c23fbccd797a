// Package button turns raw scan words from the panel's input shift
// registers into debounced press events with short/long classification.
package button
