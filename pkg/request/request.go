// Package request models one HTTP/1.1 request: the request line, the header
// set and the stream cursor positioned at the body. It owns the at-most-once
// body decode contract.
// request 패키지는 하나의 HTTP/1.1 요청을 모델링합니다: 요청 라인, 헤더 집합,
// 그리고 바디 위치의 스트림 커서입니다. 바디 디코딩 1회 제한 계약을 소유합니다.
package request

import (
	"errors"
	"strings"
	"sync"

	"github.com/DevNewbie1826/maru/pkg/body"
	"github.com/DevNewbie1826/maru/pkg/header"
	"github.com/DevNewbie1826/maru/pkg/scanner"
)

var (
	// ErrMalformedRequestLine is returned when the request line does not
	// have the method/target/version shape.
	// ErrMalformedRequestLine은 요청 라인이 메서드/대상/버전 형태가 아닐 때
	// 반환됩니다.
	ErrMalformedRequestLine = errors.New("request: malformed request line")
	// ErrMalformedHeader is returned when a header line is not a valid field.
	// ErrMalformedHeader는 헤더 라인이 유효한 필드가 아닐 때 반환됩니다.
	ErrMalformedHeader = errors.New("request: malformed header line")
	// ErrStreamClosed is returned when the stream ends before the header
	// section is complete.
	// ErrStreamClosed는 헤더 구역이 완성되기 전에 스트림이 끝나면 반환됩니다.
	ErrStreamClosed = errors.New("request: stream closed before request was complete")
)

// Request holds one parsed request head and the cursor for its body.
// The request line is opaque to body decoding; it exists for the handler.
// Request는 파싱된 요청 헤드 하나와 해당 바디의 커서를 보유합니다.
// 요청 라인은 바디 디코딩과 무관하며 핸들러를 위해 존재합니다.
type Request struct {
	Method  string         // Request method, e.g. GET. // 요청 메서드입니다 (예: GET).
	Target  string         // Request target, e.g. /api/users. // 요청 대상입니다 (예: /api/users).
	Proto   string         // Protocol version, e.g. HTTP/1.1. // 프로토콜 버전입니다 (예: HTTP/1.1).
	Headers header.Headers // Header set, owned exclusively by this request. // 이 요청이 단독 소유하는 헤더 집합입니다.

	sc      *scanner.Scanner // Cursor positioned at the first body byte. // 바디 첫 바이트 위치의 커서입니다.
	decoded bool             // Body has been decoded. // 바디가 디코딩되었습니다.
	bodyErr body.Error       // Recorded decode outcome. // 기록된 디코딩 결과입니다.
}

// pool recycles Request objects to reduce GC pressure.
// pool은 가비지 컬렉션(GC) 부하를 줄이기 위해 Request 객체를 재활용합니다.
var pool = sync.Pool{
	New: func() any {
		return new(Request)
	},
}

// New builds a Request around an already-populated header set and a cursor
// positioned at the body. Used directly by tests and by callers that parse
// the request head themselves.
// New는 이미 채워진 헤더 집합과 바디 위치의 커서로 Request를 구성합니다.
func New(headers header.Headers, sc *scanner.Scanner) *Request {
	r := pool.Get().(*Request)
	r.Headers = headers
	r.sc = sc
	return r
}

// Release returns the Request to the pool for reuse.
// Release는 Request를 풀에 반환하여 재사용할 수 있도록 합니다.
func (r *Request) Release() {
	r.Method = ""
	r.Target = ""
	r.Proto = ""
	r.Headers = nil
	r.sc = nil
	r.decoded = false
	r.bodyErr = body.None
	pool.Put(r)
}

// ReadRequest parses the request line and header section from sc, leaving
// the cursor at the first body byte. It does not read or validate the body.
// ReadRequest는 sc에서 요청 라인과 헤더 구역을 파싱하고 커서를 바디 첫
// 바이트에 둡니다. 바디를 읽거나 검증하지 않습니다.
func ReadRequest(sc *scanner.Scanner) (*Request, error) {
	sc.SetSplit(scanner.SplitLines)

	line, ok := sc.Scan()
	if !ok {
		return nil, ErrStreamClosed
	}
	parts := strings.SplitN(string(line), " ", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, ErrMalformedRequestLine
	}

	r := New(make(header.Headers), sc)
	r.Method, r.Target, r.Proto = parts[0], parts[1], parts[2]

	for {
		line, ok := sc.Scan()
		if !ok {
			r.Release()
			return nil, ErrStreamClosed
		}
		if len(line) == 0 {
			return r, nil
		}
		key, value, valid := header.ParseLine(string(line))
		if !valid {
			r.Release()
			return nil, ErrMalformedHeader
		}
		r.Headers[key] = value
	}
}

// Validate runs the header-set framing rules (Host mandatory,
// Transfer-Encoding/Content-Length conflict resolution). False means the
// caller must answer 400 Bad Request.
// Validate는 헤더 집합의 프레이밍 규칙을 수행합니다. false이면 호출자는
// 400 Bad Request로 응답해야 합니다.
func (r *Request) Validate() bool {
	return r.Headers.Validate()
}

// Body decodes the request body, bounded to maxLength bytes (negative means
// unbounded), and records the outcome. Decoding a body twice is a
// programming contract violation, not a recoverable condition: the second
// call panics.
// Body는 요청 바디를 maxLength 바이트 제한으로 디코딩하고 결과를 기록합니다.
// 바디를 두 번 디코딩하는 것은 복구 가능한 상황이 아니라 프로그래밍 계약
// 위반이므로, 두 번째 호출은 패닉을 일으킵니다.
func (r *Request) Body(maxLength int64) ([]byte, body.Error) {
	if r.decoded {
		panic("request: body decoded twice")
	}
	r.decoded = true
	b, err := body.Decode(r.Headers, r.sc, maxLength)
	r.bodyErr = err
	return b, err
}

// BodyError returns the recorded outcome of the decode attempt, or
// body.None if the body has not been decoded.
// BodyError는 기록된 디코딩 결과를 반환하며, 디코딩 전이면 body.None입니다.
func (r *Request) BodyError() body.Error {
	return r.bodyErr
}

// Decoded reports whether the body has been decoded.
// Decoded는 바디가 디코딩되었는지 보고합니다.
func (r *Request) Decoded() bool {
	return r.decoded
}
