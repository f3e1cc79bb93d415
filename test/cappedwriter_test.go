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

package test_test

import (
	"testing"

	"github.com/jetsetilly/psx/test"
)

func TestCappedWriter(t *testing.T) {
	c, err := test.NewCappedWriter(10)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, c.String(), "")

	c.Write([]byte("a"))
	test.ExpectEquality(t, c.String(), "a")

	c.Write([]byte("bcd"))
	test.ExpectEquality(t, c.String(), "abcd")

	c.Write([]byte("efghij"))
	test.ExpectEquality(t, c.String(), "abcdefghij")

	// beyond capacity is silently discarded
	c.Write([]byte("klm"))
	test.ExpectEquality(t, c.String(), "abcdefghij")

	c.Reset()
	test.ExpectEquality(t, c.String(), "")

	c.Write([]byte("abcdefghijklm"))
	test.ExpectEquality(t, c.String(), "abcdefghij")
}
