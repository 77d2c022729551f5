// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jarcode-foss/iheaders/internal/testutil"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func transduce(t *testing.T, cfg Config, input string) (string, error) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quiet()
	}
	var out bytes.Buffer
	s := New(cfg, "test.c", strings.NewReader(input), &out)
	err := s.Run(context.Background())
	return out.String(), err
}

func extract(t *testing.T, input string) string {
	t.Helper()
	got, err := transduce(t, Config{TabIndent: 4}, input)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func strip(t *testing.T, input string) string {
	t.Helper()
	got, err := transduce(t, Config{TabIndent: 4, Strip: true}, input)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestNoTokens(t *testing.T) {
	const src = "int main(void) {\n\treturn 0;\n}\n"
	testutil.AssertEqual(t, extract(t, src), "")
	testutil.AssertEqual(t, strip(t, src), "#line 1 \"test.c\"\n"+src)
}

func TestEmptyInput(t *testing.T) {
	testutil.AssertEqual(t, extract(t, ""), "")
	testutil.AssertEqual(t, strip(t, ""), "#line 1 \"test.c\"\n")
}

func TestMemberSemicolon(t *testing.T) {
	got := extract(t, "@ void f(void);\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\nvoid f(void);\n")
}

func TestMemberDefinition(t *testing.T) {
	got := extract(t, "@ void f(void) { return; }\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\nvoid f(void);\n")
}

func TestMemberAssignment(t *testing.T) {
	got := extract(t, "static int u;\n@ int x = 5;\n")
	testutil.AssertEqual(t, got, "#line 2 \"test.c\"\nint x;\n")
}

func TestMemberDefinitionBraceOnNextLine(t *testing.T) {
	got := extract(t, "@ void f(void)\n{\n\treturn;\n}\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\nvoid f(void);\n")
}

func TestMemberAfterBareTokenNewline(t *testing.T) {
	// A newline right after a bare token is treated as if it did not
	// exist; the member begins on the following line.
	got := extract(t, "@\nint y(void);\n")
	testutil.AssertEqual(t, got, "#line 2 \"test.c\"\nint y(void);\n")
}

func TestGlobalPrefixes(t *testing.T) {
	got := extract(t, "@(extern)(noinline)\n\n@ void f(void){return;}\n")
	testutil.AssertEqual(t, got, "#line 3 \"test.c\"\nextern void f(void);\n")
}

func TestMemberPrefixAppliesOnce(t *testing.T) {
	const src = "@(extern)\n\n@(static) int a(void);\n@ int b(void);\n"
	want := "#line 3 \"test.c\"\nstatic int a(void);\n" +
		"#line 4 \"test.c\"\nextern int b(void);\n"
	testutil.AssertEqual(t, extract(t, src), want)
}

func TestEmptyPrefixOverridesGlobal(t *testing.T) {
	const src = "@(extern)\n\n@[] int h(void);\n"
	testutil.AssertEqual(t, extract(t, src), "#line 3 \"test.c\"\nint h(void);\n")
}

func TestCustomToken(t *testing.T) {
	got, err := transduce(t, Config{Token: "//>", TabIndent: 4}, "//> int f(int);\n")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\nint f(int);\n")
}

func TestTokenOnlyAtLineStart(t *testing.T) {
	testutil.AssertEqual(t, extract(t, "int a; @ int b(void);\n"), "")
}

func TestTokenAcrossChunkBoundary(t *testing.T) {
	pad := strings.Repeat("x", chunkSize-3) + "\n"
	got, err := transduce(t, Config{Token: "@@@", TabIndent: 4}, pad+"@@@ int q(void);\n")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "#line 2 \"test.c\"\nint q(void);\n")
}

func TestAbandonedPartialMatch(t *testing.T) {
	cfg := Config{Token: "@@", TabIndent: 4, Strip: true}
	got, err := transduce(t, cfg, "@; hello\n")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\n@; hello\n")
}

func TestStructuralCharAfterToken(t *testing.T) {
	_, err := transduce(t, Config{TabIndent: 4}, "@;\n")
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("want *SyntaxError, got %v", err)
	}
	if serr.Line != 1 || serr.Col != 2 {
		t.Fatalf("want position 1:2, got %d:%d", serr.Line, serr.Col)
	}
}

func TestMemberOverflow(t *testing.T) {
	src := "@ int " + strings.Repeat("x", maxMember+10) + ";\n"
	got, err := transduce(t, Config{TabIndent: 4}, src)
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("want *SyntaxError, got %v", err)
	}
	if !strings.Contains(serr.Msg, "member declaration too large") {
		t.Fatalf("unexpected message: %q", serr.Msg)
	}
	// No partial output for the failed member.
	testutil.AssertEqual(t, got, "")
}

func TestUnterminatedMemberAtEOF(t *testing.T) {
	_, err := transduce(t, Config{TabIndent: 4}, "@ int x")
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("want *SyntaxError, got %v", err)
	}
}

func TestBareTokenAtEOF(t *testing.T) {
	got, err := transduce(t, Config{TabIndent: 4}, "int a;\n@")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, got, "")
}

func TestStripMemberPrefix(t *testing.T) {
	got := strip(t, "@[h][s] void f(void) { return; }\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\ns void f(void) { return; }\n")
}

func TestStripMemberEmptySourcePrefix(t *testing.T) {
	got := strip(t, "@ void f(void) { return; }\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\nvoid f(void) { return; }\n")
}

func TestStripGlobalPrefixLine(t *testing.T) {
	// The annotation is removed but its newline stays, so following lines
	// keep their original numbers.
	got := strip(t, "@[h][s]\nint x;\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\n\nint x;\n")
}

func TestStripGlobalSourcePrefix(t *testing.T) {
	got := strip(t, "@[h][static]\n@ int x(void) { return 0; }\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\n\nstatic int x(void) { return 0; }\n")
}

func TestStripBlock(t *testing.T) {
	got := strip(t, "@ {\n  int a;\n}\nrest();\n")
	testutil.AssertEqual(t, got, "#line 1 \"test.c\"\n\n\n\nrest();\n")
}

func TestStripPreservesLineCount(t *testing.T) {
	const src = "@[h][s]\n@ {\nint a;\nint b;\n}\nint c;\n@ int d(void);\n"
	got := strip(t, src)
	if gotNL, wantNL := strings.Count(got, "\n"), strings.Count(src, "\n")+1; gotNL != wantNL {
		t.Fatalf("got %d newlines, want %d:\n%s", gotNL, wantNL, got)
	}
}
