// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scanner

import "fmt"

// SyntaxError reports malformed annotation syntax. It carries the
// diagnostic name of the source and the 1-based position of the offending
// byte. A SyntaxError aborts processing of the current file only; sibling
// files in a batch are unaffected.
type SyntaxError struct {
	Name string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: %s", e.Name, e.Line, e.Col, e.Msg)
}

func (s *Scanner) syntaxErrorf(format string, args ...any) error {
	err := &SyntaxError{
		Name: s.name,
		Line: s.line,
		Col:  s.col,
		Msg:  fmt.Sprintf(format, args...),
	}
	s.cfg.Logger.Debugf("aborting in state %v: %v", s.state, err)
	return err
}
