// Command schedstats runs an emulator instance headless and serves a live
// statsview dashboard alongside it, the teacher's "live runtime stats
// during long debugging sessions" role for go-echarts/statsview, pointed
// at a long-running core instead of a debugging Gopher2600 session.
// cmd/psx itself starts no dashboard; this standalone tool serves
// statsview's default runtime dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-echarts/statsview"

	"github.com/jetsetilly/psx/errors"
	"github.com/jetsetilly/psx/internal/config"
	"github.com/jetsetilly/psx/internal/emulator"
	"github.com/jetsetilly/psx/internal/instance"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	biosPath := flag.String("bios", "", "path to a PS1 BIOS image")
	addr := flag.String("addr", "localhost:18066", "address the statsview dashboard listens on")
	flag.Parse()

	if *biosPath == "" {
		return fmt.Errorf("schedstats: -bios is required")
	}
	bios, err := os.ReadFile(*biosPath)
	if err != nil {
		return errors.Errorf(errors.BIOSLoadError, err)
	}

	emu := emulator.NewEmulator(instance.NewInstance(config.Default()), bios)

	mgr := statsview.New(statsview.WithAddr(*addr))
	go mgr.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-sigCh:
				return
			default:
				emu.Tick()
			}
		}
	}()

	<-done
	return nil
}
