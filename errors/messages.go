// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

package errors

// error messages. these are host-side failures only (§7's second and third
// error kinds); guest-observable exceptions are plain cpu.Exception values,
// never routed through this package.
const (
	// construction / host I/O
	BIOSLoadError = "bios load error: %v"
	DiscLoadError = "disc load error: %v"
	EXELoadError  = "exe load error: %v"
	TrackTooShort = "disc load error: track %d is not a whole number of sectors"
	BadEXEHeader  = "exe load error: header too short (%v bytes)"

	// unimplemented-hardware cases
	UnimplementedOpcode   = "cpu error: unimplemented opcode (%#08x) at pc %#08x"
	UnimplementedGTEOp    = "gte error: unimplemented operation (opcode %#08x)"
	UnimplementedCdromCmd = "cdrom error: unimplemented command (%#02x)"
	UnreachedRegister     = "bus error: unreached register [%#08x]"

	// config
	ConfigError   = "config error: %v"
	ConfigNoFile  = "config error: no file (%s)"
	ConfigInvalid = "config error: not a valid config file (%s)"
)
