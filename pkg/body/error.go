package body

import "net/http"

// Error is the closed set of body decode failures. Every decode attempt
// produces exactly one Error value; it is recorded on the request and maps
// deterministically to an HTTP status code.
// Error는 바디 디코딩 실패의 닫힌 집합입니다. 각 디코딩 시도는 정확히 하나의
// Error 값을 생성하며, 요청에 기록되고 HTTP 상태 코드에 결정적으로 매핑됩니다.
type Error uint8

const (
	// None means the body decoded successfully.
	// None은 바디가 성공적으로 디코딩되었음을 의미합니다.
	None Error = iota
	// NoLength: a fixed-length body was expected but Content-Length is absent.
	// NoLength: 고정 길이 바디가 예상되었지만 Content-Length가 없습니다.
	NoLength
	// InvalidLength: Content-Length is not a base-10 non-negative integer.
	// InvalidLength: Content-Length가 10진 음이 아닌 정수가 아닙니다.
	InvalidLength
	// TooLong: the body exceeds the caller-supplied size bound.
	// TooLong: 바디가 호출자가 지정한 크기 제한을 초과합니다.
	TooLong
	// ScanFailed: the stream ended or broke framing before the body was complete.
	// ScanFailed: 바디가 완성되기 전에 스트림이 끝났거나 프레이밍이 깨졌습니다.
	ScanFailed
	// InvalidChunkSize: a chunk-size line is not a valid hexadecimal number.
	// InvalidChunkSize: 청크 크기 라인이 유효한 16진수가 아닙니다.
	InvalidChunkSize
	// InvalidTrailerHeader: a trailer line is not a valid header field.
	// InvalidTrailerHeader: 트레일러 라인이 유효한 헤더 필드가 아닙니다.
	InvalidTrailerHeader
)

var errorNames = [...]string{
	None:                 "None",
	NoLength:             "NoLength",
	InvalidLength:        "InvalidLength",
	TooLong:              "TooLong",
	ScanFailed:           "ScanFailed",
	InvalidChunkSize:     "InvalidChunkSize",
	InvalidTrailerHeader: "InvalidTrailerHeader",
}

func (e Error) String() string {
	if int(e) < len(errorNames) {
		return errorNames[e]
	}
	return "Unknown"
}

// Status maps a decode error to the HTTP status code the response path must
// send. Values outside the enumeration fall through to 200 OK rather than
// failing open with an arbitrary error status.
// Status는 디코딩 오류를 응답 경로가 전송해야 하는 HTTP 상태 코드에 매핑합니다.
// 열거형 밖의 값은 임의의 오류 상태가 아니라 200 OK로 귀결됩니다.
func (e Error) Status() int {
	switch e {
	case NoLength:
		return http.StatusLengthRequired
	case InvalidLength:
		return http.StatusUnprocessableEntity
	case TooLong:
		return http.StatusRequestEntityTooLarge
	case ScanFailed:
		return http.StatusBadRequest
	case InvalidChunkSize:
		return http.StatusUnprocessableEntity
	case InvalidTrailerHeader:
		return http.StatusBadRequest
	}
	return http.StatusOK
}
