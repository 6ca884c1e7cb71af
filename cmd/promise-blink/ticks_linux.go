//go:build linux

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// startTicks selects the tick source. With sigalrm set, ticks come from a
// POSIX interval timer: the kernel delivers SIGALRM on its own schedule and
// the handler goroutine plays the part of the timer ISR — it advances the
// service and wakes the main loop, nothing more.
func startTicks(sigalrm bool, period time.Duration, tick func()) (func(), error) {
	if !sigalrm {
		return startTicker(period, tick)
	}

	alarms := make(chan os.Signal, 16)
	signal.Notify(alarms, syscall.SIGALRM)

	tv := unix.NsecToTimeval(period.Nanoseconds())
	it := unix.Itimerval{Interval: tv, Value: tv}
	if _, err := unix.Setitimer(unix.ITIMER_REAL, it); err != nil {
		signal.Stop(alarms)
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-alarms:
				tick()
			case <-done:
				return
			}
		}
	}()

	return func() {
		disarm := unix.Itimerval{}
		_, _ = unix.Setitimer(unix.ITIMER_REAL, disarm)
		signal.Stop(alarms)
		close(done)
	}, nil
}
