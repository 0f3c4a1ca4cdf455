package body

// maxChunkSizeDigits caps the chunk-size line at 8 hex digits, bounding the
// representable chunk to the 32-bit range (~4 GiB). Longer inputs fail with
// TooLong instead of risking integer overflow during accumulation.
// maxChunkSizeDigits는 청크 크기 라인을 16진수 8자리로 제한하여 표현 가능한
// 청크를 32비트 범위로 한정합니다. 더 긴 입력은 오버플로 위험 대신 TooLong으로
// 실패합니다.
const maxChunkSizeDigits = 8

// ParseChunkSize parses a chunk-size line into an unsigned length
// (Zero-Alloc). The input must already have any ";"-delimited extension
// stripped. An optional "0x"/"0X" prefix is accepted and ignored. An empty
// input parses as zero with no error; the chunk loop relies on that.
// ParseChunkSize는 청크 크기 라인을 부호 없는 길이로 파싱합니다.
// 입력에서 ";" 확장은 이미 제거되어 있어야 합니다. 선택적 "0x"/"0X" 접두사는
// 허용되며 무시됩니다. 빈 입력은 오류 없이 0으로 파싱됩니다.
func ParseChunkSize(b []byte) (uint64, Error) {
	if len(b) >= 2 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X') {
		b = b[2:]
	}
	if len(b) > maxChunkSizeDigits {
		return 0, TooLong
	}

	var n uint64
	for _, ch := range b {
		var digit uint64
		switch {
		case ch >= '0' && ch <= '9':
			digit = uint64(ch - '0')
		case ch >= 'a' && ch <= 'f':
			digit = uint64(ch - 'a' + 10)
		case ch >= 'A' && ch <= 'F':
			digit = uint64(ch - 'A' + 10)
		default:
			return 0, InvalidChunkSize
		}
		n = n*16 + digit
	}
	return n, None
}
