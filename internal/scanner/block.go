// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scanner

import "bytes"

// blockStep buffers one byte of a '{ ... }' block, tracking nested brace
// depth. The whitespace run between the opening brace and the end of its
// line never reaches the buffer, so a block written as "{\n ... }" starts
// cleanly at its first real line.
func (s *Scanner) blockStep(b byte) {
	switch b {
	case '{':
		s.blockDepth++
		s.blockCopy = true
		s.blockWrite(b)
	case '}':
		if s.blockDepth == 0 {
			s.closeBlock()
			return
		}
		s.blockDepth--
		s.blockCopy = true
		s.blockWrite(b)
	case ' ', '\t', '\n':
		if s.blockCopy {
			s.blockWrite(b)
		}
		if b == '\n' {
			s.blockNL++
			s.blockCopy = true
		}
	default:
		s.blockCopy = true
		s.blockWrite(b)
	}
}

func (s *Scanner) blockWrite(b byte) {
	if s.cfg.Strip {
		// Strip mode never replays block contents; only the newline count
		// matters there.
		return
	}
	if s.blockLine == 0 {
		s.blockLine = s.line
	}
	s.block.WriteByte(b)
}

// closeBlock flushes the finished block. Extraction mode emits the
// buffered contents with the common indentation stripped; strip mode
// replaces the whole block with the newlines it contained, preserving the
// line numbering of everything after it.
func (s *Scanner) closeBlock() {
	if s.cfg.Strip {
		for i := 0; i < s.blockNL; i++ {
			s.dst.WriteByte('\n')
		}
		s.leaveToken()
		return
	}

	content := s.block.Bytes()
	anchor := s.blockLine
	if anchor == 0 {
		anchor = s.line
	}
	s.directive(anchor)

	if s.cfg.TabIndent == 0 {
		s.dst.Write(content)
		s.leaveToken()
		return
	}

	min := s.minIndent(content)
	rest := content
	for len(rest) > 0 {
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i < 0 {
			line, rest = rest, nil
		} else {
			line, rest = rest[:i], rest[i+1:]
		}
		s.dst.Write(deindent(line, min, s.cfg.TabIndent))
		s.dst.WriteByte('\n')
	}
	s.dst.WriteByte('\n')
	s.cfg.Logger.Debugf("%s:%d: block, %d bytes, indent %d", s.name, anchor, len(content), min)
	s.leaveToken()
}

// minIndent computes the common indentation of the block: the minimum
// leading width over all lines that contain something other than
// whitespace, counting a space as 1 and a tab as the configured tab size.
func (s *Scanner) minIndent(content []byte) int {
	min := -1
	width, blank := 0, true
	measure := func() {
		if !blank && (min < 0 || width < min) {
			min = width
		}
		width, blank = 0, true
	}
	for _, b := range content {
		switch b {
		case '\n':
			measure()
		case ' ':
			if blank {
				width++
			}
		case '\t':
			if blank {
				width += s.cfg.TabIndent
			}
		default:
			blank = false
		}
	}
	measure()
	if min < 0 {
		return 0
	}
	return min
}

// deindent strips width units of indentation from the start of a line. A
// tab that straddles the boundary is consumed whole.
func deindent(line []byte, width, tab int) []byte {
	stripped := 0
	for len(line) > 0 && stripped < width {
		switch line[0] {
		case ' ':
			stripped++
		case '\t':
			stripped += tab
		default:
			return line
		}
		line = line[1:]
	}
	return line
}
