// Package response writes HTTP/1.1 responses. Writer wraps the connection's
// buffered writer and owns status-line, Date and framing-header emission;
// handlers only set headers and write body bytes.
// response 패키지는 HTTP/1.1 응답을 작성합니다. Writer는 연결의 버퍼링된
// 라이터를 감싸며 상태 라인, Date 및 프레이밍 헤더 출력을 담당합니다.
package response

import (
	"bufio"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DevNewbie1826/maru/pkg/header"
)

// currentDate holds the cached Date header value.
// currentDate는 캐시된 Date 헤더 값을 저장합니다.
var currentDate atomic.Value

var (
	crlf     = []byte("\r\n")               // CRLF (Carriage Return Line Feed) bytes. // CRLF (캐리지 리턴 라인 피드) 바이트입니다.
	chunkEnd = []byte("0\r\n\r\n")          // The terminating chunk for chunked transfer encoding. // 청크 전송 인코딩의 종료 청크입니다.
	dateKey  = []byte("Date: ")             // HTTP Date header key and colon. // HTTP Date 헤더 키와 콜론입니다.
	colonSP  = []byte(": ")                 // Header key/value separator. // 헤더 키/값 구분자입니다.
	teChunk  = []byte("Transfer-Encoding: chunked\r\n") // Pre-computed chunked framing header. // 미리 계산된 청크 프레이밍 헤더입니다.
)

func init() {
	// Truncate to the second to ensure consistent update on second boundary
	currentDate.Store(time.Now().UTC().Truncate(time.Second).Format(http.TimeFormat))
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		for range ticker.C {
			currentDate.Store(time.Now().UTC().Truncate(time.Second).Format(http.TimeFormat))
		}
	}()
}

// Writer assembles one HTTP/1.1 response over a buffered writer.
// Writer는 버퍼링된 라이터 위에서 HTTP/1.1 응답 하나를 조립합니다.
type Writer struct {
	bufWriter  *bufio.Writer  // Buffering for efficient writes. // 효율적인 쓰기를 위한 버퍼입니다.
	header     header.Headers // The response headers. // 응답 헤더입니다.
	statusCode int            // The HTTP status code to be written. // 작성될 HTTP 상태 코드입니다.
	headerSent bool           // Headers have already been sent. // 헤더가 이미 전송되었습니다.
	chunked    bool           // Chunked transfer encoding is used. // 청크 전송 인코딩이 사용됩니다.
	closing    bool           // Connection: close was requested. // Connection: close가 요청되었습니다.
}

// pool recycles Writer objects to reduce GC pressure.
// pool은 가비지 컬렉션(GC) 부하를 줄이기 위해 Writer 객체를 재활용합니다.
var pool = sync.Pool{
	New: func() any {
		return &Writer{
			header: make(header.Headers),
		}
	},
}

// NewWriter retrieves a Writer from the pool and binds it to bw.
// NewWriter는 풀에서 Writer를 가져와 bw에 바인딩합니다.
func NewWriter(bw *bufio.Writer) *Writer {
	w := pool.Get().(*Writer)
	w.bufWriter = bw
	w.statusCode = http.StatusOK
	return w
}

// Release returns the Writer to the pool. The bufio.Writer is owned by the
// engine and is not returned here.
// Release는 Writer를 풀에 반환합니다. bufio.Writer는 엔진이 소유하므로
// 여기서 반환하지 않습니다.
func (w *Writer) Release() {
	w.bufWriter = nil
	w.statusCode = 0
	w.headerSent = false
	w.chunked = false
	w.closing = false
	clear(w.header)
	pool.Put(w)
}

// Header returns the header map that will be sent with the status line.
// Header는 상태 라인과 함께 전송될 헤더 맵을 반환합니다.
func (w *Writer) Header() header.Headers {
	return w.header
}

// WriteHeader records the status code. It has no effect after the header
// block has been written to the wire.
// WriteHeader는 상태 코드를 기록합니다. 헤더 블록이 전송된 후에는 효과가
// 없습니다.
func (w *Writer) WriteHeader(statusCode int) {
	if w.headerSent {
		return
	}
	w.statusCode = statusCode
}

// SetClose marks the response with Connection: close.
// SetClose는 응답을 Connection: close로 표시합니다.
func (w *Writer) SetClose() {
	w.closing = true
}

// HeaderSent returns whether the headers have already been sent.
// HeaderSent는 헤더가 이미 전송되었는지 여부를 반환합니다.
func (w *Writer) HeaderSent() bool {
	return w.headerSent
}

// Write writes body bytes. When no Content-Length was set, the body is
// framed with the chunked transfer coding.
// Write는 바디 바이트를 씁니다. Content-Length가 설정되지 않았다면 바디는
// 청크 전송 코딩으로 프레이밍됩니다.
func (w *Writer) Write(p []byte) (int, error) {
	// Prevent sending "0\r\n\r\n" which closes the chunked stream prematurely.
	// 청크 스트림이 조기에 종료되는 것을 방지하기 위해 데이터 길이가 0이면 반환합니다.
	if len(p) == 0 {
		return 0, nil
	}

	if !w.headerSent {
		// Sniff Content-Type if not set
		// Content-Type이 설정되지 않았다면 첫 512바이트를 기반으로 감지합니다.
		if _, ok := w.header["Content-Type"]; !ok {
			sniffLen := len(p)
			if sniffLen > 512 {
				sniffLen = 512
			}
			w.header["Content-Type"] = http.DetectContentType(p[:sniffLen])
		}
		if err := w.ensureHeaderSent(); err != nil {
			return 0, err
		}
	}

	if w.chunked {
		return w.writeChunk(p)
	}
	return w.bufWriter.Write(p)
}

// WriteString implements io.StringWriter.
// WriteString은 io.StringWriter를 구현합니다.
func (w *Writer) WriteString(s string) (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	if !w.headerSent {
		if err := w.ensureHeaderSent(); err != nil {
			return 0, err
		}
	}
	if w.chunked {
		if err := w.writeChunkHeader(len(s)); err != nil {
			return 0, err
		}
		n, err := w.bufWriter.WriteString(s)
		if err != nil {
			return n, err
		}
		_, err = w.bufWriter.Write(crlf)
		return n, err
	}
	return w.bufWriter.WriteString(s)
}

// writeChunk frames p as one chunk.
func (w *Writer) writeChunk(p []byte) (int, error) {
	if err := w.writeChunkHeader(len(p)); err != nil {
		return 0, err
	}
	n, err := w.bufWriter.Write(p)
	if err != nil {
		return n, err
	}
	_, err = w.bufWriter.Write(crlf)
	return n, err
}

// writeChunkHeader writes the hex size line for one chunk.
func (w *Writer) writeChunkHeader(n int) error {
	var sizeBuf [20]byte // Small buffer on stack
	hexLen := strconv.AppendInt(sizeBuf[:0], int64(n), 16)
	if _, err := w.bufWriter.Write(hexLen); err != nil {
		return err
	}
	_, err := w.bufWriter.Write(crlf)
	return err
}

// ensureHeaderSent sends the status line and header block if they haven't
// been sent yet. Without a Content-Length the response switches to chunked
// framing, since the body length is unknown while streaming.
// ensureHeaderSent는 상태 라인과 헤더 블록이 아직 전송되지 않았다면 전송합니다.
// Content-Length가 없으면 스트리밍 중 바디 길이를 알 수 없으므로 청크
// 프레이밍으로 전환합니다.
func (w *Writer) ensureHeaderSent() error {
	if w.headerSent {
		return nil
	}

	statusText := http.StatusText(w.statusCode)
	if statusText == "" {
		statusText = "status code " + strconv.Itoa(w.statusCode)
	}
	statusLine := "HTTP/1.1 " + strconv.Itoa(w.statusCode) + " " + statusText + "\r\n"
	if _, err := w.bufWriter.WriteString(statusLine); err != nil {
		return err
	}

	// Optimization: Write Date header directly to buffer if not present in map.
	// 최적화: 맵에 없다면 Date 헤더를 버퍼에 직접 씁니다.
	if _, ok := w.header["Date"]; !ok {
		if _, err := w.bufWriter.Write(dateKey); err != nil {
			return err
		}
		if _, err := w.bufWriter.WriteString(currentDate.Load().(string)); err != nil {
			return err
		}
		if _, err := w.bufWriter.Write(crlf); err != nil {
			return err
		}
	}

	_, hasLength := w.header[header.ContentLength]
	w.chunked = !hasLength

	if w.closing {
		w.header[header.Connection] = "close"
	}

	for key, value := range w.header {
		if _, err := w.bufWriter.WriteString(key); err != nil {
			return err
		}
		if _, err := w.bufWriter.Write(colonSP); err != nil {
			return err
		}
		if _, err := w.bufWriter.WriteString(value); err != nil {
			return err
		}
		if _, err := w.bufWriter.Write(crlf); err != nil {
			return err
		}
	}

	// Fast Path: Write Transfer-Encoding directly
	if w.chunked {
		if _, err := w.bufWriter.Write(teChunk); err != nil {
			return err
		}
	}

	if _, err := w.bufWriter.Write(crlf); err != nil {
		return err
	}
	w.headerSent = true
	return nil
}

// Flush sends any buffered data to the client.
// Flush는 버퍼링된 모든 데이터를 클라이언트로 전송합니다.
func (w *Writer) Flush() error {
	if err := w.ensureHeaderSent(); err != nil {
		return err
	}
	return w.bufWriter.Flush()
}

// EndResponse finishes the response: a bodiless response gets
// Content-Length: 0, a chunked response gets its terminating chunk, and the
// buffer is flushed.
// EndResponse는 응답을 마무리합니다: 바디 없는 응답은 Content-Length: 0을,
// 청크 응답은 종료 청크를 받으며 버퍼가 플러시됩니다.
func (w *Writer) EndResponse() error {
	// If headers not sent yet, it means no body was written.
	// 헤더가 아직 전송되지 않았다면 바디가 없었다는 의미입니다.
	if !w.headerSent {
		w.header[header.ContentLength] = "0"
		if err := w.ensureHeaderSent(); err != nil {
			return err
		}
	}

	if w.chunked {
		if _, err := w.bufWriter.Write(chunkEnd); err != nil {
			return err
		}
	}

	return w.bufWriter.Flush()
}
