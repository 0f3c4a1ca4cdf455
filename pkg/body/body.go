// Package body decodes HTTP/1.1 request bodies under RFC 7230 framing
// rules: fixed Content-Length reads and the chunked transfer coding, with
// exact-length tokenization, bounded hex parsing, trailer filtering and
// framing-header rewriting. The rules exist to close request-smuggling and
// resource-exhaustion vectors, so deviations here are security bugs.
// body 패키지는 RFC 7230 프레이밍 규칙에 따라 HTTP/1.1 요청 바디를 디코딩합니다.
// 이 규칙들은 요청 스머글링과 리소스 고갈 공격을 차단하기 위한 것이므로,
// 여기서의 일탈은 곧 보안 버그입니다.
package body

import (
	"bytes"
	"strconv"

	"github.com/DevNewbie1826/maru/pkg/header"
	"github.com/DevNewbie1826/maru/pkg/scanner"
)

// Decode reads the request body from sc according to the framing declared
// in h. maxLength bounds the decoded size; a negative value means
// unbounded. The scanner must be positioned at the first body byte.
// Chunked decoding mutates h (see readChunked); fixed-length decoding does
// not. The returned slice is owned by the caller.
// Decode는 h에 선언된 프레이밍에 따라 sc에서 요청 바디를 읽습니다.
// maxLength는 디코딩 크기를 제한하며 음수는 무제한을 의미합니다.
// 반환된 슬라이스는 호출자가 소유합니다.
func Decode(h header.Headers, sc *scanner.Scanner, maxLength int64) ([]byte, Error) {
	if h.Chunked() {
		return readChunked(h, sc, maxLength)
	}
	return readContentLength(h, sc, maxLength)
}

// readContentLength reads exactly Content-Length bytes. The size bound is
// enforced before any read, so an oversized declaration consumes nothing.
// readContentLength는 정확히 Content-Length 바이트를 읽습니다. 크기 제한은
// 읽기 전에 적용되므로 초과 선언은 아무것도 소비하지 않습니다.
func readContentLength(h header.Headers, sc *scanner.Scanner, maxLength int64) ([]byte, Error) {
	v, ok := h[header.ContentLength]
	if !ok {
		return nil, NoLength
	}

	n, err := strconv.ParseUint(v, 10, 63)
	if err != nil {
		return nil, InvalidLength
	}
	if maxLength >= 0 && n > uint64(maxLength) {
		return nil, TooLong
	}

	sc.SetSplit(scanner.SplitExact(int(n)))
	tok, ok := sc.Scan()
	sc.SetSplit(scanner.SplitLines)
	if !ok {
		return nil, ScanFailed
	}
	return bytes.Clone(tok), None
}

// readChunked decodes a chunked transfer-coded body, alternating the
// scanner between line mode and exact-byte mode:
//
//	size line → chunk data → chunk-terminating CRLF → ... → zero size →
//	trailer-section terminator → trailer lines → finalize
//
// The CRLF after each chunk's data is consumed explicitly as one line that
// must be empty; skipping it would make the next size-line read observe an
// empty line and end the loop after the first chunk.
//
// Finalization rewrites the header set so downstream consumers see the
// request as if it had arrived with a fixed length: Content-Length is set
// to the decoded length, Trailer is removed, and the trailing "chunked"
// token is stripped from Transfer-Encoding. Trailer fields not allowed in a
// trailer position are silently dropped, never merged.
// readChunked는 청크 전송 코딩된 바디를 디코딩하며, 스캐너를 라인 모드와
// 고정 바이트 모드 사이에서 번갈아 전환합니다. 각 청크 데이터 뒤의 CRLF는
// 반드시 빈 라인으로 명시적으로 소비됩니다. 마무리 단계에서 헤더 집합을
// 고정 길이 요청처럼 보이도록 다시 작성합니다.
func readChunked(h header.Headers, sc *scanner.Scanner, maxLength int64) ([]byte, Error) {
	var buf bytes.Buffer // Accumulation buffer owned solely by this decode. // 이 디코딩이 단독 소유하는 누적 버퍼입니다.

	sc.SetSplit(scanner.SplitLines)
	for {
		// 1. 청크 크기 라인
		line, ok := sc.Scan()
		if !ok {
			return nil, ScanFailed
		}
		if i := bytes.IndexByte(line, ';'); i >= 0 {
			line = line[:i] // Chunk extensions are discarded uninterpreted. // 청크 확장은 해석 없이 버려집니다.
		}
		size, derr := ParseChunkSize(line)
		if derr != None {
			return nil, derr
		}
		if size == 0 {
			break
		}

		// 2. 청크 데이터
		sc.SetSplit(scanner.SplitExact(int(size)))
		data, ok := sc.Scan()
		if !ok {
			return nil, ScanFailed
		}
		buf.Write(data)
		if maxLength >= 0 && int64(buf.Len()) > maxLength {
			return nil, TooLong
		}

		// 3. 청크를 종결하는 CRLF
		sc.SetSplit(scanner.SplitLines)
		crlf, ok := sc.Scan()
		if !ok || len(crlf) != 0 {
			return nil, ScanFailed
		}
	}

	// Trailer-section terminator: the empty line after the zero-size chunk.
	// 트레일러 구역 종결자: 크기 0 청크 뒤의 빈 라인입니다.
	term, ok := sc.Scan()
	if !ok || len(term) != 0 {
		return nil, ScanFailed
	}

	// Trailer headers until an empty line; a stream that ends here simply
	// carried no trailers.
	// 빈 라인까지의 트레일러 헤더입니다. 여기서 끝나는 스트림은 단지
	// 트레일러가 없었던 것입니다.
	for {
		line, ok := sc.Scan()
		if !ok || len(line) == 0 {
			break
		}
		key, value, valid := header.ParseLine(string(line))
		if !valid {
			return nil, InvalidTrailerHeader
		}
		if !header.AllowedInTrailer(key) {
			continue
		}
		h[key] = value
	}

	h[header.ContentLength] = strconv.Itoa(buf.Len())
	delete(h, header.Trailer)
	if te, ok := h[header.TransferEncoding]; ok {
		if rest := header.TrimChunked(te); rest == "" {
			delete(h, header.TransferEncoding)
		} else {
			h[header.TransferEncoding] = rest
		}
	}

	return buf.Bytes(), None
}
