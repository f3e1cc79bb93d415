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

package test

import "fmt"

// CappedWriter accepts writes up to a fixed capacity and silently discards
// anything beyond it. Used by callers that want a TTY-style sink that
// cannot grow without bound (the CPU's TTY buffer, §4.3).
type CappedWriter struct {
	buf []byte
	cap int
}

// NewCappedWriter returns a CappedWriter with the given capacity.
func NewCappedWriter(capacity int) (*CappedWriter, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capped writer: capacity must be positive")
	}
	return &CappedWriter{cap: capacity}, nil
}

func (c *CappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	room := c.cap - len(c.buf)
	if room <= 0 {
		return n, nil
	}
	if room < len(p) {
		p = p[:room]
	}
	c.buf = append(c.buf, p...)
	return n, nil
}

// String returns everything written so far, up to capacity.
func (c *CappedWriter) String() string {
	return string(c.buf)
}

// Reset empties the writer.
func (c *CappedWriter) Reset() {
	c.buf = c.buf[:0]
}
