// Package monitor plays the rendered stream on the local sound device,
// for bench work without a receiver on the network. Built with the
// headless tag it keeps the same API but discards the audio.
package monitor
