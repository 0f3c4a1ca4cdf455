package scanner

import (
	"strings"
	"testing"
)

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lines []string
	}{
		{
			name:  "CRLF Lines",
			input: "alpha\r\nbeta\r\n",
			lines: []string{"alpha", "beta"},
		},
		{
			name:  "Empty Line",
			input: "alpha\r\n\r\nbeta\r\n",
			lines: []string{"alpha", "", "beta"},
		},
		{
			name:  "Bare LF",
			input: "alpha\nbeta\n",
			lines: []string{"alpha", "beta"},
		},
		{
			name:  "Unterminated Final Line",
			input: "alpha\r\nbeta",
			lines: []string{"alpha", "beta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(strings.NewReader(tt.input))
			for i, want := range tt.lines {
				tok, ok := s.Scan()
				if !ok {
					t.Fatalf("line %d: scan failed, want %q", i, want)
				}
				if string(tok) != want {
					t.Errorf("line %d: got %q, want %q", i, string(tok), want)
				}
			}
			if tok, ok := s.Scan(); ok {
				t.Errorf("expected exhausted stream, got %q", string(tok))
			}
		})
	}
}

func TestScanExact(t *testing.T) {
	s := New(strings.NewReader("hello world"))
	s.SetSplit(SplitExact(5))

	tok, ok := s.Scan()
	if !ok || string(tok) != "hello" {
		t.Fatalf("got %q/%v, want \"hello\"/true", string(tok), ok)
	}

	s.SetSplit(SplitExact(6))
	tok, ok = s.Scan()
	if !ok || string(tok) != " world" {
		t.Fatalf("got %q/%v, want \" world\"/true", string(tok), ok)
	}

	// Stream exhausted: an exact read must fail, not return a short token.
	s.SetSplit(SplitExact(1))
	if tok, ok := s.Scan(); ok {
		t.Errorf("expected failed scan at end of stream, got %q", string(tok))
	}
}

func TestScanExactShortStream(t *testing.T) {
	s := New(strings.NewReader("hel"))
	s.SetSplit(SplitExact(5))
	if tok, ok := s.Scan(); ok {
		t.Errorf("expected failed scan on short stream, got %q", string(tok))
	}
}

func TestScanExactZero(t *testing.T) {
	// A zero-byte token must be produced without touching the stream. The
	// reader below would block forever if Scan tried to fill first.
	s := New(blockingReader{})
	s.SetSplit(SplitExact(0))
	tok, ok := s.Scan()
	if !ok || len(tok) != 0 {
		t.Fatalf("got %q/%v, want empty token", string(tok), ok)
	}
}

// blockingReader panics if read; used to prove zero-byte scans never read.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	panic("scanner read the stream for a zero-byte token")
}

func TestModeSwitchMidStream(t *testing.T) {
	// The exact access pattern of the chunked decoder: size line, raw data,
	// terminating line.
	s := New(strings.NewReader("5\r\nhello\r\n0\r\n"))

	tok, ok := s.Scan()
	if !ok || string(tok) != "5" {
		t.Fatalf("size line: got %q/%v", string(tok), ok)
	}

	s.SetSplit(SplitExact(5))
	tok, ok = s.Scan()
	if !ok || string(tok) != "hello" {
		t.Fatalf("chunk data: got %q/%v", string(tok), ok)
	}

	s.SetSplit(SplitLines)
	tok, ok = s.Scan()
	if !ok || len(tok) != 0 {
		t.Fatalf("chunk CRLF: got %q/%v, want empty line", string(tok), ok)
	}

	tok, ok = s.Scan()
	if !ok || string(tok) != "0" {
		t.Fatalf("final size line: got %q/%v", string(tok), ok)
	}
}

func TestBufferGrowth(t *testing.T) {
	// A token larger than the initial buffer must still come out whole.
	big := strings.Repeat("x", 3*defaultBufferSize)
	s := New(strings.NewReader(big + "\r\ntail\r\n"))

	tok, ok := s.Scan()
	if !ok || string(tok) != big {
		t.Fatalf("big line: ok=%v len=%d, want len=%d", ok, len(tok), len(big))
	}
	tok, ok = s.Scan()
	if !ok || string(tok) != "tail" {
		t.Fatalf("tail line: got %q/%v", string(tok), ok)
	}
}

func TestReset(t *testing.T) {
	s := New(strings.NewReader("first\r\n"))
	s.SetSplit(SplitExact(5))
	if tok, ok := s.Scan(); !ok || string(tok) != "first" {
		t.Fatalf("got %q/%v", string(tok), ok)
	}

	s.Reset(strings.NewReader("second\r\n"))
	tok, ok := s.Scan()
	if !ok || string(tok) != "second" {
		t.Fatalf("after reset: got %q/%v, want line mode \"second\"", string(tok), ok)
	}
}
