// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	i := Version()
	if i.Go == "" || i.OS == "" || i.Arch == "" {
		t.Fatalf("incomplete build info: %+v", i)
	}
	if !strings.Contains(i.String(), CmdName()) {
		t.Fatalf("String() does not contain the command name: %q", i.String())
	}
}
