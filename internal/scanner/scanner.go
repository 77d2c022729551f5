// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package scanner implements the inline header annotation transducer.
//
// A Scanner reads a C source stream once, character by character, looking
// for the configured annotation token at line starts. What follows a token
// (prefix groups, a member declaration, or a braced block) is parsed by a
// small state machine and emitted to the destination stream in one of two
// modes: extraction, which produces only the header-facing declarations,
// or strip, which reproduces the source with the annotation syntax removed.
package scanner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// chunkSize is the size of one read from the source stream. Token matching
// is incremental, so a token may span any number of chunk boundaries.
const chunkSize = 4096

// Size caps for the fixed parse buffers. Exceeding either is a syntax
// error that aborts the current file.
const (
	maxPrefix = 126
	maxMember = 512
)

// Config holds the immutable settings for one transducer run.
type Config struct {
	// Token is the annotation marker looked for at line starts.
	// Defaults to "@".
	Token string

	// TabIndent is the width a tab counts for when measuring and trimming
	// block indentation. 0 copies block contents verbatim.
	TabIndent int

	// Strip selects strip mode: echo the source with annotation syntax
	// removed instead of extracting header declarations.
	Strip bool

	// Logger receives trace and diagnostic output.
	Logger logrus.FieldLogger
}

// Validate populates missing Config entries with defaults.
func (c *Config) Validate() {
	if c.Token == "" {
		c.Token = "@"
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
}

// state identifies which part of an annotation the scanner is inside.
type state int

const (
	stateScan         state = iota // searching for a token
	stateUnknown                   // after a token, awaiting '{', a prefix group, or a member
	stateHeaderPrefix              // inside the first prefix group
	stateSourcePrefix              // inside the second prefix group
	stateBlock                     // inside a '{ ... }' block
	stateMember                    // accumulating a member declaration
)

func (s state) String() string {
	switch s {
	case stateScan:
		return "scan"
	case stateUnknown:
		return "unknown"
	case stateHeaderPrefix:
		return "header-prefix"
	case stateSourcePrefix:
		return "source-prefix"
	case stateBlock:
		return "block"
	case stateMember:
		return "member"
	}
	return "invalid"
}

// prefix is a header or source prefix value. A set prefix with empty text
// is distinct from an unset one, which falls back to the session global.
type prefix struct {
	set   bool
	text  string
	attrs []string // header prefixes only
}

// prefixPair holds the header and source prefixes of one scope.
type prefixPair struct {
	header, source prefix
}

// Scanner transduces one input stream into one output stream. All of its
// state is owned by a single Run invocation; nothing survives across files
// except the Config.
type Scanner struct {
	cfg  Config
	name string // diagnostic name of the source, used in errors and #line directives
	src  io.Reader
	dst  *bufio.Writer

	line, col int  // position of the byte being processed, 1-based
	lineStart bool // the current byte is the first of a line
	tokMatch  int  // bytes of cfg.Token matched so far

	state     state
	prefixSet bool // a header prefix group was parsed for the current token

	global  prefixPair // session-global prefixes, persist until reassigned
	pending prefixPair // member-scoped prefixes, apply once

	group []byte // prefix group contents being captured
	paren bool   // the open group is parenthesized
	depth int    // paren nesting depth inside the open group

	member     []byte // pending member declaration
	memberLine int    // line the member began on

	block      bytes.Buffer // pending block contents
	blockDepth int          // nested brace depth inside the block
	blockCopy  bool         // leading whitespace run after '{' has ended
	blockLine  int          // line the first buffered block byte was on
	blockNL    int          // newlines seen inside the block
}

// New returns a Scanner that transduces src, identified by name in
// diagnostics and line directives, into dst.
func New(cfg Config, name string, src io.Reader, dst io.Writer) *Scanner {
	cfg.Validate()
	return &Scanner{
		cfg:       cfg,
		name:      name,
		src:       src,
		dst:       bufio.NewWriter(dst),
		line:      1,
		col:       1,
		lineStart: true,
		state:     stateScan,
	}
}

// Run drains the source stream through the state machine and flushes the
// destination. It returns a *SyntaxError for malformed annotation syntax
// and the underlying error for I/O failures.
func (s *Scanner) Run(ctx context.Context) error {
	if s.cfg.Strip {
		// Stripped output preserves original line positions exactly, so a
		// single directive at the top is sufficient.
		fmt.Fprintf(s.dst, "#line 1 %q\n", s.name)
	}

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := s.src.Read(buf)
		for _, b := range buf[:n] {
			if err := s.step(b); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("reading %s: %w", s.name, rerr)
		}
	}

	if err := s.finish(); err != nil {
		return err
	}
	return s.dst.Flush()
}

// step consumes one byte: dispatch on the active state, then advance the
// line/column counters.
func (s *Scanner) step(b byte) error {
	var err error
	switch s.state {
	case stateScan:
		s.scan(b)
	case stateUnknown:
		err = s.unknown(b)
	case stateHeaderPrefix, stateSourcePrefix:
		err = s.prefixStep(b)
	case stateBlock:
		s.blockStep(b)
	case stateMember:
		err = s.memberStep(b)
	}
	if b == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return err
}

// finish handles end of stream. A token whose annotation is still open is
// a syntax error, except for a bare token at the very end of the file.
func (s *Scanner) finish() error {
	if s.tokMatch > 0 {
		// A partial token match was in flight; it can no longer complete.
		s.echoString(s.cfg.Token[:s.tokMatch])
		s.tokMatch = 0
	}
	switch s.state {
	case stateScan, stateUnknown:
		return nil
	case stateHeaderPrefix, stateSourcePrefix:
		return s.syntaxErrorf("unterminated prefix at end of file")
	case stateBlock:
		return s.syntaxErrorf("unterminated block at end of file")
	default:
		return s.syntaxErrorf("unterminated member declaration at end of file")
	}
}

// scan looks for the annotation token. A match may only begin at the start
// of a line, but once begun it continues byte by byte regardless of chunk
// boundaries. Tentatively withheld bytes are echoed on a mismatch.
func (s *Scanner) scan(b byte) {
	tok := s.cfg.Token
	if (s.tokMatch > 0 || s.lineStart) && b == tok[s.tokMatch] {
		s.tokMatch++
		if s.tokMatch == len(tok) {
			s.tokMatch = 0
			s.state = stateUnknown
			s.prefixSet = false
			s.pending = prefixPair{}
			s.cfg.Logger.Debugf("%s:%d: token %q", s.name, s.line, tok)
		}
		s.lineStart = false
		return
	}
	if s.tokMatch > 0 {
		// Abandoned partial match: release the withheld bytes and resume
		// ordinary scanning with the current byte.
		s.echoString(tok[:s.tokMatch])
		s.tokMatch = 0
	}
	s.echo(b)
	s.lineStart = b == '\n'
}

// unknown handles the byte(s) immediately after a token.
func (s *Scanner) unknown(b byte) error {
	switch b {
	case ' ', '\t':
		// Spacing between the token and whatever follows it is part of the
		// annotation and never reaches the output.
		return nil
	case '{':
		s.state = stateBlock
		s.blockDepth = 0
		s.block.Reset()
		s.blockCopy = false
		s.blockLine = 0
		s.blockNL = 0
		return nil
	case '[', '(':
		s.paren = b == '('
		s.depth = 0
		s.group = s.group[:0]
		if s.prefixSet {
			s.state = stateSourcePrefix
		} else {
			s.state = stateHeaderPrefix
			s.prefixSet = true
		}
		return nil
	case ';', '=':
		return s.syntaxErrorf("expected '{', '[', '(', or start of member after %q token", s.cfg.Token)
	case '\n':
		// The newline itself is source structure, not annotation syntax:
		// echoing it keeps stripped line numbering intact.
		s.echo('\n')
		if !s.prefixSet {
			// A newline right after a bare token is treated as if it did
			// not exist; the annotation continues on the next line.
			return nil
		}
		// Pure prefix-setting line: commit the groups that were present.
		if s.pending.header.set {
			s.global.header = s.pending.header
			s.cfg.Logger.Debugf("%s:%d: header prefix set to %q", s.name, s.line, s.global.header.text)
		}
		if s.pending.source.set {
			s.global.source = s.pending.source
			s.cfg.Logger.Debugf("%s:%d: source prefix set to %q", s.name, s.line, s.global.source.text)
		}
		s.leaveToken()
		s.lineStart = true
		return nil
	default:
		if s.cfg.Strip {
			// The declaration's own text is about to be echoed as-is; all
			// strip mode adds is the source prefix, applied once.
			if p := s.sourcePrefix(); p.text != "" {
				io.WriteString(s.dst, p.text)
				s.dst.WriteByte(' ')
			}
			s.dst.WriteByte(b)
			s.leaveToken()
			return nil
		}
		s.member = s.member[:0]
		s.member = append(s.member, b)
		s.memberLine = s.line
		s.state = stateMember
		return nil
	}
}

// leaveToken returns to scanning and discards member-scoped prefixes.
func (s *Scanner) leaveToken() {
	s.state = stateScan
	s.prefixSet = false
	s.pending = prefixPair{}
	s.lineStart = false
}

// headerPrefix returns the prefix in effect for the current member: the
// member-scoped one if a group was parsed, the session global otherwise.
func (s *Scanner) headerPrefix() prefix {
	if s.pending.header.set {
		return s.pending.header
	}
	return s.global.header
}

func (s *Scanner) sourcePrefix() prefix {
	if s.pending.source.set {
		return s.pending.source
	}
	return s.global.source
}

// echo writes b to the destination in strip mode. Extraction mode discards
// everything that is not explicitly emitted.
func (s *Scanner) echo(b byte) {
	if s.cfg.Strip {
		s.dst.WriteByte(b)
	}
}

func (s *Scanner) echoString(str string) {
	if s.cfg.Strip {
		io.WriteString(s.dst, str)
	}
}

// directive emits a #line directive mapping the next output line back to
// the given source line. Extraction mode only.
func (s *Scanner) directive(line int) {
	fmt.Fprintf(s.dst, "#line %d %q\n", line, s.name)
}
