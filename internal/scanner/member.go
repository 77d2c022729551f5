// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scanner

import (
	"fmt"
	"io"
)

// memberStep accumulates a declaration up to its terminator. A ';' ends
// the declaration as written; a '{' or '=' means a definition follows, so
// the captured head is closed with a ';' of its own. Only extraction mode
// enters this state: strip mode echoes the declaration text untouched.
func (s *Scanner) memberStep(b byte) error {
	if len(s.member) == maxMember {
		return s.syntaxErrorf("member declaration too large [max: %d bytes]", maxMember)
	}
	s.member = append(s.member, b)

	switch b {
	case ';':
		s.emitMember(s.member)
		s.leaveToken()
	case '{', '=':
		// Drop the terminator and the spacing before it, then close the
		// declaration head. The definition body stays in the source.
		decl := s.member[:len(s.member)-1]
		for len(decl) > 0 {
			switch decl[len(decl)-1] {
			case ' ', '\t', '\n':
				decl = decl[:len(decl)-1]
				continue
			}
			break
		}
		s.emitMember(append(decl, ';'))
		s.leaveToken()
	}
	return nil
}

// emitMember writes one declaration line: a position directive anchored at
// the line the member began on, the header prefix if non-empty, the
// declaration itself, and one annotation per attribute name.
func (s *Scanner) emitMember(decl []byte) {
	s.directive(s.memberLine)
	p := s.headerPrefix()
	if p.text != "" {
		io.WriteString(s.dst, p.text)
		s.dst.WriteByte(' ')
	}
	s.dst.Write(decl)
	for _, a := range p.attrs {
		fmt.Fprintf(s.dst, " __attribute__((__%s__))", a)
	}
	s.dst.WriteByte('\n')
	s.cfg.Logger.Debugf("%s:%d: member %q", s.name, s.memberLine, decl)
}
