// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Iheaders processes C source files with inlined header annotations,
generating a corresponding '.h' file for every '.c' input by default.

# Usage

	$ iheaders [flags...] [files...]

There are three ways to organize header generation: directory mode ('-d',
'-r', and '-R' flags), which places a header for each source into a header
directory, optionally mirroring the source tree; single-header mode ('-s'
flag), which combines all sources into one header; and pipe mode ('-O'
flag), which writes the combined result to standard output.

Strip mode ('-S' flag) reproduces each source with the annotation syntax
removed instead, ready for compilation. Stripped output goes to standard
output, or to the '-s' path.
*/
package main

import (
	_ "embed"

	"github.com/jarcode-foss/iheaders/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
