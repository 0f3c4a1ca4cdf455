// Package probe decides, without allocating, whether one complete HTTP/1.1
// request (header section plus framed body) is present in a raw buffer. The
// engine runs it against the poller's buffered bytes so a worker goroutine
// never blocks waiting for the rest of a partial request.
// probe 패키지는 할당 없이 원시 버퍼에 완전한 HTTP/1.1 요청 하나(헤더 구역과
// 프레이밍된 바디)가 있는지 판단합니다. 엔진은 이를 폴러의 버퍼링된 바이트에
// 적용하여 워커 고루틴이 부분 요청을 기다리며 블로킹되지 않도록 합니다.
package probe

import (
	"bytes"
	"errors"

	"github.com/DevNewbie1826/maru/pkg/body"
)

// MaxHeaderBytes bounds the header section. A buffer that grows past this
// without a blank line is treated as an attack, not a slow client.
// MaxHeaderBytes는 헤더 구역의 크기를 제한합니다. 빈 라인 없이 이 크기를
// 넘어서는 버퍼는 느린 클라이언트가 아니라 공격으로 간주됩니다.
const MaxHeaderBytes = 8 * 1024

var (
	// ErrHeaderTooLarge: no end of headers within MaxHeaderBytes.
	ErrHeaderTooLarge = errors.New("probe: header section exceeds limit")
	// ErrMalformedChunk: a chunk-size line that can never parse.
	ErrMalformedChunk = errors.New("probe: malformed chunk size")
)

var (
	crlf      = []byte("\r\n")
	headerEnd = []byte("\r\n\r\n")
	prefixCL  = []byte("Content-Length:")
	prefixTE  = []byte("Transfer-Encoding:")
	tokChunk  = []byte("chunked")
)

// Result reports whether a full request is buffered and how long it is.
// Result는 완전한 요청이 버퍼링되었는지와 그 길이를 보고합니다.
type Result struct {
	Complete bool  // One full request is buffered. // 완전한 요청 하나가 버퍼링되었습니다.
	Len      int   // Total request length, header and body. // 헤더와 바디를 포함한 요청 전체 길이입니다.
	Err      error // The buffer can never become a valid request. // 버퍼가 결코 유효한 요청이 될 수 없습니다.
}

// Probe inspects data for one complete request. Incomplete-but-plausible
// data yields {Complete: false}; data that can never complete yields Err.
// Probe는 data에서 완전한 요청 하나를 검사합니다. 불완전하지만 그럴듯한
// 데이터는 {Complete: false}를, 결코 완성될 수 없는 데이터는 Err를 반환합니다.
func Probe(data []byte) Result {
	// 1. 헤더 경계 검색
	headerEndIdx := bytes.Index(data, headerEnd)
	if headerEndIdx == -1 {
		if len(data) > MaxHeaderBytes {
			return Result{Err: ErrHeaderTooLarge}
		}
		return Result{}
	}
	if headerEndIdx > MaxHeaderBytes {
		return Result{Err: ErrHeaderTooLarge}
	}
	bodyStart := headerEndIdx + len(headerEnd)

	contentLength, chunked := scanFraming(data[:headerEndIdx])

	// 2. 바디 완성 여부 판단
	if chunked {
		return probeChunked(data, bodyStart)
	}
	if contentLength >= 0 {
		total := bodyStart + contentLength
		if len(data) >= total {
			return Result{Complete: true, Len: total}
		}
		return Result{}
	}

	// 바디가 없는 요청 (GET, HEAD 등)
	return Result{Complete: true, Len: bodyStart}
}

// scanFraming walks the header lines looking only for the two framing
// headers. Transfer-Encoding wins over Content-Length here exactly as it
// does in validation, so the probe and the decoder agree on body length.
// scanFraming은 헤더 라인에서 두 프레이밍 헤더만 찾습니다. 여기서도 검증과
// 동일하게 Transfer-Encoding이 Content-Length보다 우선하므로, 프로브와
// 디코더가 바디 길이에 대해 일치합니다.
func scanFraming(headers []byte) (contentLength int, chunked bool) {
	contentLength = -1

	// Skip the request line.
	cur := headers
	if i := bytes.Index(cur, crlf); i >= 0 {
		cur = cur[i+len(crlf):]
	} else {
		return -1, false
	}

	for len(cur) > 0 {
		var line []byte
		if i := bytes.Index(cur, crlf); i >= 0 {
			line, cur = cur[:i], cur[i+len(crlf):]
		} else {
			line, cur = cur, nil
		}

		if n, ok := framingValue(line, prefixCL); ok {
			if v := parseDecimal(n); v >= 0 {
				contentLength = v
			}
			continue
		}
		if v, ok := framingValue(line, prefixTE); ok {
			if bytes.EqualFold(lastToken(v), tokChunk) {
				chunked = true
			}
		}
	}
	return contentLength, chunked
}

// framingValue returns the trimmed value of line when its name matches the
// given "Name:" prefix case-insensitively.
func framingValue(line, prefix []byte) ([]byte, bool) {
	if len(line) <= len(prefix) || !bytes.EqualFold(line[:len(prefix)], prefix) {
		return nil, false
	}
	return bytes.TrimSpace(line[len(prefix):]), true
}

// lastToken returns the final comma-separated token of v, trimmed.
func lastToken(v []byte) []byte {
	if i := bytes.LastIndexByte(v, ','); i >= 0 {
		v = v[i+1:]
	}
	return bytes.TrimSpace(v)
}

// maxDecimalDigits caps Content-Length values at 18 decimal digits, the
// widest count that can never overflow an int64 during accumulation.
// maxDecimalDigits는 Content-Length 값을 누적 중 int64를 절대 넘칠 수 없는
// 최대 자릿수인 10진수 18자리로 제한합니다.
const maxDecimalDigits = 18

// parseDecimal parses a non-negative base-10 integer, -1 on failure
// (Zero-Alloc). Oversized values fail rather than wrap around.
// parseDecimal은 음이 아닌 10진 정수를 파싱하며 실패 시 -1을 반환합니다.
// 초과 값은 오버플로 대신 실패합니다.
func parseDecimal(b []byte) int {
	if len(b) == 0 || len(b) > maxDecimalDigits {
		return -1
	}
	n := 0
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return -1
		}
		n = n*10 + int(ch-'0')
	}
	return n
}

// probeChunked walks chunk frames until the zero-size chunk, then hands the
// trailer section to probeTrailers. Chunk sizes go through
// body.ParseChunkSize so the probe can never disagree with the decoder about
// hex semantics.
// probeChunked는 크기 0 청크까지 청크 프레임을 순회한 뒤 트레일러 구역을
// probeTrailers에 넘깁니다. 청크 크기는 body.ParseChunkSize를 거치므로
// 프로브와 디코더의 16진수 해석이 결코 어긋나지 않습니다.
func probeChunked(data []byte, offset int) Result {
	for {
		i := bytes.Index(data[offset:], crlf)
		if i == -1 {
			return Result{}
		}

		line := data[offset : offset+i]
		if semi := bytes.IndexByte(line, ';'); semi >= 0 {
			line = line[:semi]
		}
		size, derr := body.ParseChunkSize(bytes.TrimSpace(line))
		if derr != body.None {
			return Result{Err: ErrMalformedChunk}
		}
		offset += i + len(crlf)

		if size == 0 {
			return probeTrailers(data, offset)
		}

		// Chunk data plus its terminating CRLF.
		// 청크 데이터와 그 종결 CRLF입니다.
		need := int(size) + len(crlf)
		if len(data[offset:]) < need {
			return Result{}
		}
		offset += need
	}
}

// probeTrailers frames the trailer section the same way the decoder reads
// it: one mandatory empty line terminates the chunk sequence, then trailer
// lines run until the next empty line. A request may legitimately end right
// after the terminator, so the trailer lines are consumed speculatively:
// only a fully buffered section ending in an empty line extends the frame,
// and a line that cannot be a header field marks the start of the next
// pipelined request instead.
// probeTrailers는 디코더가 읽는 방식 그대로 트레일러 구역을 프레이밍합니다:
// 필수 빈 라인 하나가 청크 시퀀스를 종결하고, 트레일러 라인은 다음 빈
// 라인까지 이어집니다. 요청은 종결자 직후에 정당하게 끝날 수 있으므로
// 트레일러 라인은 추측적으로만 소비합니다: 빈 라인으로 끝나는 완전히
// 버퍼링된 구역만 프레임을 확장하며, 헤더 필드가 될 수 없는 라인은 다음
// 파이프라인 요청의 시작으로 간주합니다.
func probeTrailers(data []byte, offset int) Result {
	j := bytes.Index(data[offset:], crlf)
	if j == -1 {
		return Result{}
	}
	if j != 0 {
		return Result{Err: ErrMalformedChunk}
	}
	offset += len(crlf)

	end := offset
	for {
		k := bytes.Index(data[end:], crlf)
		if k == -1 {
			// Trailer section not fully buffered; the request is already
			// complete at the terminator.
			// 트레일러 구역이 완전히 버퍼링되지 않았습니다. 요청은 이미
			// 종결자에서 완성되어 있습니다.
			return Result{Complete: true, Len: offset}
		}
		if k == 0 {
			return Result{Complete: true, Len: end + len(crlf)}
		}
		if !plausibleTrailerLine(data[end : end+k]) {
			return Result{Complete: true, Len: offset}
		}
		end += k + len(crlf)
	}
}

// plausibleTrailerLine reports whether line could be a header field: a colon
// with a non-empty, space-free name before it. Request lines always carry a
// space before any colon, so they never qualify.
func plausibleTrailerLine(line []byte) bool {
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return false
	}
	for _, ch := range line[:i] {
		if ch == ' ' || ch == '\t' || ch < 0x21 || ch > 0x7e {
			return false
		}
	}
	return true
}
