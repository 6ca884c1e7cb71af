// promise-blink is the hosted port of the library's original demo: two
// "LEDs" driven by promise chains over a tick-driven timer. LED A blinks
// five times, the flow pauses for three seconds, then both LEDs blink fast
// until the program exits. LEDs are rendered as log lines.
//
// The structure mirrors a firmware main loop: a tick source (goroutine
// ticker, or a SIGALRM interval timer with -sigalrm) advances the timer
// service from outside the main loop, and the main loop does nothing but
// drain the deferred-resolve queue whenever it is woken.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	promise "github.com/behrlich/go-promise"
	"github.com/behrlich/go-promise/internal/logging"
	"github.com/behrlich/go-promise/timer"
)

func main() {
	var (
		tickPeriod = flag.Duration("tick", time.Millisecond, "Tick period of the timer service")
		duration   = flag.Duration("duration", 10*time.Second, "How long to run before exiting")
		arenaSize  = flag.Int("arena", 8192, "Arena capacity in bytes")
		sigalrm    = flag.Bool("sigalrm", false, "Drive ticks from a SIGALRM interval timer (linux)")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	eng := promise.NewEngine(&promise.Config{
		ArenaSize: *arenaSize,
		Logger:    logger,
	})
	svc := timer.NewService(eng)

	// wake is the WFE analogue: the main loop sleeps on it and drains the
	// deferred queue once per wake-up.
	wake := make(chan struct{}, 1)
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	stopTicks, err := startTicks(*sigalrm, *tickPeriod, func() {
		svc.Tick(1)
		notify()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "promise-blink: %v\n", err)
		os.Exit(1)
	}
	defer stopTicks()

	ms := func(d time.Duration) timer.Ticks {
		t := timer.Ticks(d / *tickPeriod)
		if t == 0 {
			t = 1
		}
		return t
	}

	led := func(name string, on bool) {
		state := "off"
		if on {
			state = "on"
		}
		logger.Info("led", "led", name, "state", state)
	}

	// LED A blinks count times, half a second per phase.
	var blinkA func(count int) promise.Handle
	blinkA = func(count int) promise.Handle {
		if count <= 0 {
			return svc.After(ms(0))
		}
		return svc.After(ms(500 * time.Millisecond)).Then(func() promise.Handle {
			led("A", true)
			return svc.After(ms(500 * time.Millisecond))
		}).Then(func() promise.Handle {
			led("A", false)
			return blinkA(count - 1)
		})
	}

	// Fast blink forever: each cycle re-arms itself.
	var blinkFast func(name string)
	blinkFast = func(name string) {
		svc.After(ms(200 * time.Millisecond)).Then(func() promise.Handle {
			led(name, true)
			return svc.After(ms(200 * time.Millisecond))
		}).Then(func() {
			led(name, false)
			blinkFast(name)
		})
	}

	// Blink LED A five times, wait three seconds, then blink both fast.
	blinkA(5).Then(func() promise.Handle {
		return svc.After(ms(3 * time.Second))
	}).Then(func() {
		blinkFast("A")
		blinkFast("B")
	})

	logger.Info("running", "tick", tickPeriod.String(), "duration", duration.String(), "sigalrm", *sigalrm)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	deadline := time.After(*duration)

	for {
		select {
		case <-wake:
			eng.DeferRun()
		case <-interrupt:
			logger.Info("interrupted")
			return
		case <-deadline:
			snap := eng.MetricsSnapshot()
			logger.Info("done",
				"resolves", snap.Resolves,
				"nodes", snap.NodesCreated,
				"arena_high_water", snap.ArenaHighWater,
				"live_bytes", snap.LiveBytes)
			return
		}
	}
}

// startTicker drives ticks from a plain time.Ticker goroutine. Used on
// every platform; the SIGALRM source replaces it on request.
func startTicker(period time.Duration, tick func()) (func(), error) {
	t := time.NewTicker(period)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				tick()
			case <-done:
				return
			}
		}
	}()
	return func() {
		t.Stop()
		close(done)
	}, nil
}
