// Package header implements the request header set and the header-line
// grammar shared by the request parser and the chunked-trailer path.
// header 패키지는 요청 헤더 집합과, 요청 파서 및 청크 트레일러 경로가 공유하는
// 헤더 라인 문법을 구현합니다.
package header

import (
	"net/textproto"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Canonical keys the framing layer cares about.
// 프레이밍 계층에서 사용하는 정규화된 키입니다.
const (
	Host             = "Host"
	ContentLength    = "Content-Length"
	TransferEncoding = "Transfer-Encoding"
	Trailer          = "Trailer"
	Connection       = "Connection"
)

const chunked = "chunked"

// Headers maps a canonicalized header name to its value. Later writes
// replace earlier values for the same key. A Headers value is owned by
// exactly one request and is mutated in place by validation (which may
// delete a conflicting Content-Length) and by chunked decoding (which
// rewrites the framing headers after the body is assembled).
// Headers는 정규화된 헤더 이름을 값에 매핑합니다. 같은 키에 대한 나중 쓰기가
// 이전 값을 대체합니다. Headers 값은 정확히 하나의 요청이 소유하며, 검증과
// 청크 디코딩에 의해 제자리에서 변경됩니다.
type Headers map[string]string

// Validate reports whether the request is acceptable to decode further.
// False means the caller must reject the request with 400 Bad Request.
// Rules, in order:
//  1. Host is mandatory (RFC 7230 §5.4).
//  2. If Transfer-Encoding is present, its final coding must be "chunked".
//  3. If both Transfer-Encoding and Content-Length are present, the
//     Content-Length entry is removed — Transfer-Encoding wins, closing the
//     request-smuggling vector of conflicting length claims. The removal is
//     not a failure.
//
// Validate는 요청을 계속 디코딩해도 되는지 보고합니다. false이면 호출자는
// 400 Bad Request로 요청을 거부해야 합니다.
func (h Headers) Validate() bool {
	if _, ok := h[Host]; !ok {
		return false
	}
	te, ok := h[TransferEncoding]
	if !ok {
		return true
	}
	if !endsWithChunked(te) {
		return false
	}
	delete(h, ContentLength)
	return true
}

// Chunked reports whether the body uses the chunked transfer coding, i.e.
// Transfer-Encoding is present and its final coding is "chunked".
// Chunked는 바디가 청크 전송 코딩을 사용하는지 보고합니다.
func (h Headers) Chunked() bool {
	te, ok := h[TransferEncoding]
	return ok && endsWithChunked(te)
}

// endsWithChunked reports whether the final comma-separated coding token of
// v is "chunked", case-insensitively.
func endsWithChunked(v string) bool {
	if i := strings.LastIndexByte(v, ','); i >= 0 {
		v = v[i+1:]
	}
	return strings.EqualFold(strings.TrimSpace(v), chunked)
}

// TrimChunked returns v with its final "chunked" coding token removed,
// preserving any preceding codings. It returns "" when chunked was the only
// coding. The caller is responsible for deleting the header when the result
// is empty.
// TrimChunked는 v에서 마지막 "chunked" 코딩 토큰을 제거하고 앞선 코딩은
// 보존합니다. chunked가 유일한 코딩이었다면 ""를 반환합니다.
func TrimChunked(v string) string {
	i := strings.LastIndexByte(v, ',')
	if i < 0 {
		return ""
	}
	return strings.TrimRight(v[:i], " \t")
}

// ParseLine parses one raw header line into a key/value pair. The key is
// canonicalized so that lookups by the framing layer are deterministic
// regardless of the case the client sent. ok is false when the line is not
// a valid header field.
// ParseLine은 원시 헤더 라인 하나를 키/값 쌍으로 파싱합니다. 키는 정규화되어
// 클라이언트가 보낸 대소문자와 무관하게 조회가 결정적입니다.
func ParseLine(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	key = line[:i]
	if !httpguts.ValidHeaderFieldName(key) {
		return "", "", false
	}
	value = strings.Trim(line[i+1:], " \t")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", false
	}
	return textproto.CanonicalMIMEHeaderKey(key), value, true
}

// forbiddenTrailers are fields that must never arrive in a trailer
// position: framing, routing, authentication and hop-by-hop fields, plus
// anything a front-end may have already acted on. Mirrors the rules the
// standard library applies to trailers.
// forbiddenTrailers는 트레일러 위치에 절대 올 수 없는 필드입니다:
// 프레이밍, 라우팅, 인증 및 홉 단위 필드입니다.
var forbiddenTrailers = map[string]struct{}{
	"Authorization":       {},
	"Cache-Control":       {},
	"Connection":          {},
	"Content-Encoding":    {},
	"Content-Length":      {},
	"Content-Range":       {},
	"Content-Type":        {},
	"Expect":              {},
	"Host":                {},
	"Keep-Alive":          {},
	"Max-Forwards":        {},
	"Pragma":              {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Range":               {},
	"Realm":               {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Www-Authenticate":    {},
}

// AllowedInTrailer reports whether key may legally appear as a trailer
// field. Disallowed fields are dropped by the decoder rather than merged,
// so trailers can never inject or override framing-relevant headers.
// AllowedInTrailer는 key가 트레일러 필드로 합법적으로 올 수 있는지 보고합니다.
func AllowedInTrailer(key string) bool {
	k := textproto.CanonicalMIMEHeaderKey(key)
	if strings.HasPrefix(k, "If-") {
		return false
	}
	_, forbidden := forbiddenTrailers[k]
	return !forbidden
}
