//go:build !linux

package main

import (
	"errors"
	"time"
)

// startTicks falls back to the goroutine ticker; interval-timer ticks are a
// linux feature.
func startTicks(sigalrm bool, period time.Duration, tick func()) (func(), error) {
	if sigalrm {
		return nil, errors.New("-sigalrm requires linux")
	}
	return startTicker(period, tick)
}
