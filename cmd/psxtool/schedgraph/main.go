// Command schedgraph renders the Scheduler's pending-event heap as a
// Graphviz dot file, the same "dump an in-memory struct graph for a human"
// role the teacher's debugger/terminal/commandline tests use memviz.Map
// for, now pointed at internal/scheduler.Scheduler instead of a parsed
// command-line template tree.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bradleyjkemp/memviz"

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
	out := flag.String("out", "scheduler.dot", "output dot file path")
	steps := flag.Int("steps", 100000, "number of CPU instructions to run before snapshotting the scheduler")
	flag.Parse()

	if *biosPath == "" {
		return fmt.Errorf("schedgraph: -bios is required")
	}
	bios, err := os.ReadFile(*biosPath)
	if err != nil {
		return errors.Errorf(errors.BIOSLoadError, err)
	}

	emu := emulator.NewEmulator(instance.NewInstance(config.Default()), bios)
	for i := 0; i < *steps; i++ {
		emu.Tick()
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("schedgraph: creating %s: %w", *out, err)
	}
	defer f.Close()

	memviz.Map(f, emu.Scheduler)
	return nil
}
