// Package tone estimates the dominant frequency and level of a rendered
// signal block. It backs the tuning check in the command line tool and
// the end-to-end tests: render, analyze, compare against the pitch the
// panel dialed in.
package tone
