// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scanner

import "strings"

// prefixStep captures one byte of a prefix group. The first group after a
// token is the header prefix, the second the source prefix. Bracket groups
// do not nest; parenthesized groups track nesting depth, and brackets
// inside them are copied verbatim.
func (s *Scanner) prefixStep(b byte) error {
	switch {
	case b == '\n':
		return s.syntaxErrorf("unexpected newline while parsing prefixes")
	case s.paren && b == '(':
		s.depth++
	case s.paren && b == ')':
		if s.depth == 0 {
			s.closeGroup()
			return nil
		}
		s.depth--
	case !s.paren && b == '[':
		return s.syntaxErrorf("unexpected '[' while parsing prefixes")
	case !s.paren && b == ']':
		s.closeGroup()
		return nil
	}
	if len(s.group) == maxPrefix {
		return s.syntaxErrorf("prefix content too large [max: %d bytes]", maxPrefix)
	}
	s.group = append(s.group, b)
	return nil
}

// closeGroup records the captured group as a member-scoped prefix. The
// unknown state decides later whether it stays member-scoped or is
// committed to the session globals.
func (s *Scanner) closeGroup() {
	content := string(s.group)
	if s.state == stateHeaderPrefix {
		p := prefix{set: true}
		p.text, p.attrs = s.splitAttrs(content)
		s.pending.header = p
	} else {
		s.pending.source = prefix{set: true, text: content}
	}
	s.state = stateUnknown
}

// splitAttrs separates an attribute list from header prefix content of the
// form "name:attr1,attr2:". A list that is opened but never closed is a
// diagnostic, not an error: the attribute names are discarded and the text
// before the first colon is used as the prefix.
func (s *Scanner) splitAttrs(content string) (text string, attrs []string) {
	i := strings.IndexByte(content, ':')
	if i < 0 {
		return content, nil
	}
	text = content[:i]
	if !strings.HasSuffix(content[i+1:], ":") {
		s.cfg.Logger.Warnf("%s:%d: unterminated attribute list in prefix %q, attributes ignored", s.name, s.line, content)
		return text, nil
	}
	for _, a := range strings.Split(content[i+1:len(content)-1], ",") {
		if a != "" {
			attrs = append(attrs, a)
		}
	}
	return text, attrs
}
