// Package instance defines those parts of the emulation that might change
// from instance to instance of the PSXEmulator type, but are not part of
// the emulated machine's own state. Particularly useful when running more
// than one instance of the emulation in parallel (e.g. a headless
// regression runner alongside an interactive session).
//
// Grounded on the teacher's hardware/instance package, generalized from a
// VCS instance to a PSX instance.
package instance

import "github.com/jetsetilly/psx/internal/config"

// Instance threads configuration through every peripheral constructor, the
// way the teacher threads *instance.Instance through NewCPU/NewTIA/etc.
type Instance struct {
	Config config.Config
}

// NewInstance is the preferred method of initialisation for the Instance type.
func NewInstance(cfg config.Config) *Instance {
	return &Instance{Config: cfg}
}
