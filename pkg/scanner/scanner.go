// Package scanner provides the byte-stream cursor used to frame HTTP/1.1
// requests. Unlike bufio.Scanner, the tokenization strategy can be swapped
// mid-stream, which the chunked body decoder relies on to alternate between
// line-delimited and exact-byte-count reads.
// scanner 패키지는 HTTP/1.1 요청 프레이밍에 사용되는 바이트 스트림 커서를 제공합니다.
// bufio.Scanner와 달리 스트림 중간에 토큰화 전략을 교체할 수 있으며,
// 청크 바디 디코더가 라인 모드와 고정 바이트 모드를 번갈아 사용할 때 이를 활용합니다.
package scanner

import "io"

// defaultBufferSize is the initial size of the internal read buffer.
// defaultBufferSize는 내부 읽기 버퍼의 초기 크기입니다.
const defaultBufferSize = 4096

// Scanner reads tokens from an underlying stream according to the current
// split strategy. It is not safe for concurrent use; each connection owns
// exactly one Scanner.
// Scanner는 현재 분할 전략에 따라 기반 스트림에서 토큰을 읽습니다.
// 동시 사용에 안전하지 않으며, 각 연결은 정확히 하나의 Scanner를 소유합니다.
type Scanner struct {
	r     io.Reader // The underlying stream. // 기반 스트림입니다.
	split SplitFunc // Current tokenization strategy. // 현재 토큰화 전략입니다.
	buf   []byte    // Internal buffer. // 내부 버퍼입니다.
	start int       // First unconsumed byte in buf. // buf에서 아직 소비되지 않은 첫 바이트입니다.
	end   int       // End of buffered data in buf. // buf에 버퍼링된 데이터의 끝입니다.
	eof   bool      // The stream reported exhaustion or an error. // 스트림이 고갈되었거나 오류를 보고했습니다.
}

// New creates a Scanner reading from r in line mode.
// New는 r에서 라인 모드로 읽는 Scanner를 생성합니다.
func New(r io.Reader) *Scanner {
	return &Scanner{
		r:     r,
		split: SplitLines,
		buf:   make([]byte, defaultBufferSize),
	}
}

// Reset re-arms the Scanner for a new stream so it can be pooled.
// Reset은 Scanner를 새 스트림용으로 재설정하여 풀링할 수 있도록 합니다.
func (s *Scanner) Reset(r io.Reader) {
	s.r = r
	s.split = SplitLines
	s.start = 0
	s.end = 0
	s.eof = false
}

// SetSplit replaces the tokenization strategy. Buffered-but-unconsumed bytes
// are retokenized by the new strategy on the next Scan.
// SetSplit은 토큰화 전략을 교체합니다. 버퍼링되었지만 소비되지 않은 바이트는
// 다음 Scan에서 새 전략으로 다시 토큰화됩니다.
func (s *Scanner) SetSplit(f SplitFunc) {
	s.split = f
}

// Buffered returns the number of bytes read from the stream but not yet
// consumed by a token.
// Buffered는 스트림에서 읽었지만 아직 토큰으로 소비되지 않은 바이트 수를 반환합니다.
func (s *Scanner) Buffered() int {
	return s.end - s.start
}

// Scan returns the next token under the current split strategy. It blocks
// reading the stream until a token is complete. ok is false when the stream
// is exhausted before a token could be produced. The token aliases the
// internal buffer and is valid only until the next call to Scan.
// Scan은 현재 분할 전략에 따라 다음 토큰을 반환합니다. 토큰이 완성될 때까지
// 스트림 읽기를 블로킹합니다. 토큰이 만들어지기 전에 스트림이 고갈되면 ok는
// false입니다. 토큰은 내부 버퍼를 참조하므로 다음 Scan 호출 전까지만 유효합니다.
func (s *Scanner) Scan() (token []byte, ok bool) {
	for {
		advance, tok, done := s.split(s.buf[s.start:s.end], s.eof)
		if done {
			s.start += advance
			return tok, true
		}
		if s.eof {
			return nil, false
		}
		s.fill()
	}
}

// fill reads more data from the stream, compacting and growing the buffer
// as needed. A read error of any kind marks the stream exhausted; the
// decoder surfaces that as a scan failure, per the error model.
// fill은 스트림에서 데이터를 추가로 읽으며, 필요에 따라 버퍼를 압축하고
// 확장합니다. 어떤 종류든 읽기 오류가 발생하면 스트림을 고갈 상태로 표시합니다.
func (s *Scanner) fill() {
	if s.start > 0 {
		copy(s.buf, s.buf[s.start:s.end])
		s.end -= s.start
		s.start = 0
	}
	if s.end == len(s.buf) {
		grown := make([]byte, 2*len(s.buf))
		copy(grown, s.buf[:s.end])
		s.buf = grown
	}
	n, err := s.r.Read(s.buf[s.end:])
	s.end += n
	if err != nil {
		s.eof = true
	}
}
