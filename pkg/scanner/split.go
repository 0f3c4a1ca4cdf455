package scanner

import "bytes"

// SplitFunc is a tokenization strategy. It inspects the currently buffered
// but unconsumed bytes and, when a complete token is available, reports how
// many bytes to consume along with the token itself. Returning ok=false
// signals "need more data"; when atEOF is also true the Scan fails instead,
// because no further data can arrive.
// SplitFunc는 토큰화 전략입니다. 현재 버퍼링되었지만 소비되지 않은 바이트를
// 검사하여, 완전한 토큰이 있으면 소비할 바이트 수와 토큰을 반환합니다.
// ok=false는 "더 많은 데이터 필요"를 의미하며, atEOF가 true이면 더 이상
// 데이터가 도착할 수 없으므로 Scan이 실패합니다.
type SplitFunc func(data []byte, atEOF bool) (advance int, token []byte, ok bool)

// SplitLines tokenizes CRLF-terminated lines, tolerating a bare LF. The
// terminator is consumed but not included in the token. At end of stream a
// final unterminated line is returned as-is.
// SplitLines는 CRLF로 끝나는 라인을 토큰화하며, 단독 LF도 허용합니다.
// 종결자는 소비되지만 토큰에는 포함되지 않습니다. 스트림 끝에서는 종결되지
// 않은 마지막 라인을 그대로 반환합니다.
func SplitLines(data []byte, atEOF bool) (int, []byte, bool) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, dropCR(data[:i]), true
	}
	if atEOF && len(data) > 0 {
		return len(data), dropCR(data), true
	}
	return 0, nil, false
}

// SplitExact returns a strategy that yields exactly n bytes as one token
// once n bytes are buffered. The byte count is captured here, as an explicit
// parameter of the strategy instance; it is never ambient state.
// SplitExact는 n바이트가 버퍼링되면 정확히 n바이트를 하나의 토큰으로 반환하는
// 전략을 만듭니다. 바이트 수는 전략 인스턴스의 명시적 매개변수로 캡처되며,
// 절대 암묵적 상태가 아닙니다.
func SplitExact(n int) SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, bool) {
		if len(data) < n {
			return 0, nil, false
		}
		return n, data[:n], true
	}
}

// dropCR strips a trailing \r left by CRLF line endings.
func dropCR(data []byte) []byte {
	if len(data) > 0 && data[len(data)-1] == '\r' {
		return data[:len(data)-1]
	}
	return data
}
