// Package engine drives HTTP/1.1 request handling over netpoll connections:
// it frames complete requests out of the poller's buffer, parses and
// validates them, decodes the body exactly once, and dispatches to the
// application handler.
// engine 패키지는 netpoll 연결 위에서 HTTP/1.1 요청 처리를 주도합니다:
// 폴러 버퍼에서 완전한 요청을 프레이밍하고, 파싱과 검증을 거쳐 바디를 정확히
// 한 번 디코딩한 뒤 애플리케이션 핸들러로 디스패치합니다.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DevNewbie1826/maru/pkg/body"
	"github.com/DevNewbie1826/maru/pkg/engine/probe"
	"github.com/DevNewbie1826/maru/pkg/header"
	"github.com/DevNewbie1826/maru/pkg/request"
	"github.com/DevNewbie1826/maru/pkg/response"
	"github.com/DevNewbie1826/maru/pkg/scanner"
	"github.com/cloudwego/netpoll"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBodyLength bounds decoded request bodies unless overridden.
// Oversized bodies are rejected with 413 before they can exhaust memory.
// DefaultMaxBodyLength는 재정의되지 않는 한 디코딩되는 요청 바디를 제한합니다.
// 초과 바디는 메모리를 고갈시키기 전에 413으로 거부됩니다.
const DefaultMaxBodyLength = 4 * 1024 * 1024 // 4MB

// Handler processes one fully-decoded request. body holds the decoded body
// bytes; the framing headers on req have already been rewritten, so a
// chunked request looks exactly like a fixed-length one.
// Handler는 완전히 디코딩된 요청 하나를 처리합니다. body는 디코딩된 바디
// 바이트이며, req의 프레이밍 헤더는 이미 다시 작성되어 청크 요청도 고정 길이
// 요청과 똑같이 보입니다.
type Handler interface {
	Serve(ctx context.Context, w *response.Writer, req *request.Request, body []byte)
}

// HandlerFunc adapts a function to the Handler interface.
// HandlerFunc는 함수를 Handler 인터페이스에 맞게 변환합니다.
type HandlerFunc func(ctx context.Context, w *response.Writer, req *request.Request, body []byte)

// Serve calls f.
func (f HandlerFunc) Serve(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
	f(ctx, w, req, body)
}

// connectionStatePool recycles ConnectionState objects to reduce GC pressure.
// connectionStatePool은 가비지 컬렉션(GC) 부하를 줄이기 위해 ConnectionState 객체를 재활용합니다.
var connectionStatePool = sync.Pool{
	New: func() any {
		return &ConnectionState{src: new(bytes.Reader)}
	},
}

// ConnectionState holds the per-connection resources: the request scanner,
// the buffered writer and the processing lock.
// ConnectionState는 연결별 리소스를 보유합니다: 요청 스캐너, 버퍼링된 라이터,
// 처리 잠금입니다.
type ConnectionState struct {
	Scanner     *scanner.Scanner   // Reusable request scanner. // 재사용 가능한 요청 스캐너입니다.
	Writer      *bufio.Writer      // Reusable bufio.Writer for the connection. // 연결을 위한 재사용 가능한 버퍼 라이터입니다.
	CancelFunc  context.CancelFunc // Function to cancel the connection context. // 연결 컨텍스트를 취소하는 함수입니다.
	ReadTimeout time.Duration      // The configured read timeout for the connection. // 연결에 설정된 읽기 타임아웃입니다.
	Processing  atomic.Bool        // Atomic flag to prevent concurrent processing of the same connection. // 동일 연결의 동시 처리를 방지하는 원자적 플래그입니다.

	src *bytes.Reader // Backs the scanner with one framed request. // 프레이밍된 요청 하나로 스캐너를 뒷받침합니다.
}

// NewConnectionState retrieves a ConnectionState from the pool and initializes it.
// NewConnectionState는 풀에서 ConnectionState를 가져와 초기화합니다.
func NewConnectionState(readTimeout time.Duration, cancel context.CancelFunc) *ConnectionState {
	s := connectionStatePool.Get().(*ConnectionState)
	s.ReadTimeout = readTimeout
	s.CancelFunc = cancel
	return s
}

// Reset resets the state object. (Scanner and Writer are handled by Engine)
// Reset은 상태 객체를 초기화합니다. (Scanner와 Writer는 Engine이 관리합니다)
func (s *ConnectionState) Reset() {
	s.Scanner = nil
	s.Writer = nil
	s.CancelFunc = nil
	s.ReadTimeout = 0
	s.Processing.Store(false)
	s.src.Reset(nil)
}

// CtxKeyConnectionState is the context key for retrieving ConnectionState.
// CtxKeyConnectionState는 ConnectionState를 검색하기 위한 컨텍스트 키입니다.
var CtxKeyConnectionState = struct{}{}

// Option is a function type for configuring the Engine.
// Option은 Engine 설정을 위한 함수 타입입니다.
type Option func(*Engine)

// WithRequestTimeout sets the request processing timeout.
// WithRequestTimeout은 요청 처리 타임아웃을 설정합니다.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.requestTimeout = d
	}
}

// WithMaxBodyLength bounds decoded request bodies. Negative means unbounded.
// WithMaxBodyLength는 디코딩되는 요청 바디를 제한합니다. 음수는 무제한입니다.
func WithMaxBodyLength(n int64) Option {
	return func(e *Engine) {
		e.maxBodyLength = n
	}
}

// WithBufferSize sets the size of the response write buffers.
// WithBufferSize는 응답 쓰기 버퍼의 크기를 설정합니다.
func WithBufferSize(size int) Option {
	return func(e *Engine) {
		e.bufferSize = size
	}
}

// WithLogger replaces the engine's logger.
// WithLogger는 엔진의 로거를 교체합니다.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine is the core structure for processing HTTP requests.
// Engine은 HTTP 요청을 처리하는 핵심 구조체입니다.
type Engine struct {
	Handler        Handler        // The handler to process requests. // 요청을 처리하는 핸들러입니다.
	requestTimeout time.Duration  // Timeout for processing individual requests. // 개별 요청 처리 타임아웃입니다.
	maxBodyLength  int64          // Max decoded body length. // 디코딩되는 바디의 최대 길이입니다.
	bufferSize     int            // Size of the write buffers. // 쓰기 버퍼의 크기입니다.
	log            *logrus.Logger // Structured logger. // 구조화된 로거입니다.

	scannerPool sync.Pool // Pool for scanner.Scanner
	writerPool  sync.Pool // Pool for bufio.Writer
}

// NewEngine creates a new Engine.
// NewEngine은 새로운 Engine을 생성합니다.
func NewEngine(handler Handler, opts ...Option) *Engine {
	e := &Engine{
		Handler:       handler,
		maxBodyLength: DefaultMaxBodyLength,
		bufferSize:    4096, // Default 4KB
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.scannerPool = sync.Pool{
		New: func() any {
			return scanner.New(nil)
		},
	}
	e.writerPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(nil, e.bufferSize)
		},
	}

	return e
}

// ReleaseConnectionState returns buffers to the engine's pools and the state to the global pool.
// ReleaseConnectionState는 버퍼를 엔진 풀로 반환하고 상태 객체를 글로벌 풀로 반환합니다.
func (e *Engine) ReleaseConnectionState(s *ConnectionState) {
	if s.Scanner != nil {
		e.scannerPool.Put(s.Scanner)
	}
	if s.Writer != nil {
		e.writerPool.Put(s.Writer)
	}
	s.Reset()
	connectionStatePool.Put(s)
}

// ServeConn is used as netpoll's OnRequest callback.
// ServeConn은 netpoll의 OnRequest 콜백으로 사용됩니다.
func (e *Engine) ServeConn(ctx context.Context, conn netpoll.Connection) error {
	stateVal := ctx.Value(CtxKeyConnectionState)
	if stateVal == nil {
		return errors.New("connection state not found")
	}
	state := stateVal.(*ConnectionState)

	// Try to acquire processing lock
	// 처리 잠금을 획득하려고 시도합니다.
	if !state.Processing.CompareAndSwap(false, true) {
		// If already processing, return nil to tell netpoll to try again later
		// 이미 처리 중이라면, 나중에 다시 시도하도록 netpoll에 nil을 반환합니다.
		return nil
	}

	// Initialize buffers if they are not already set (reused from state)
	// 버퍼가 아직 설정되지 않았다면 초기화합니다 (상태에서 재사용됨).
	if state.Scanner == nil {
		state.Scanner = e.scannerPool.Get().(*scanner.Scanner)
	}
	if state.Writer == nil {
		state.Writer = e.writerPool.Get().(*bufio.Writer)
		state.Writer.Reset(conn)
	}

	e.serveHTTP(ctx, conn, state)
	return nil
}

// serveHTTP frames and handles requests until the poller buffer runs dry.
// serveHTTP는 폴러 버퍼가 빌 때까지 요청을 프레이밍하고 처리합니다.
func (e *Engine) serveHTTP(ctx context.Context, conn netpoll.Connection, state *ConnectionState) {
	// Loop to handle pipelined requests or buffered data
	// 파이프라인된 요청 또는 버퍼링된 데이터를 처리하기 위한 루프입니다.
	for {
		// Check if connection is closed before processing
		// 처리 전에 연결이 닫혔는지 확인합니다.
		if !conn.IsActive() {
			state.Processing.Store(false)
			return
		}

		reader := conn.Reader()
		if reader == nil || reader.Len() == 0 {
			if e.yield(conn, state) {
				continue
			}
			return
		}

		// Frame one complete request out of the poller buffer without
		// advancing it; an incomplete request yields the worker instead of
		// blocking it.
		// 폴러 버퍼를 전진시키지 않고 완전한 요청 하나를 프레이밍합니다.
		// 불완전한 요청은 워커를 블로킹하는 대신 양보합니다.
		peekBuf, _ := reader.Peek(reader.Len())
		res := probe.Probe(peekBuf)

		if res.Err != nil {
			status := http.StatusBadRequest
			if errors.Is(res.Err, probe.ErrHeaderTooLarge) {
				status = http.StatusRequestHeaderFieldsTooLarge
			}
			e.reject(conn, state, status)
			return
		}

		if !res.Complete {
			// A request that can never fit the body bound is rejected while
			// still partial, before it buffers its whole body.
			// 바디 제한에 결코 들어맞을 수 없는 요청은 바디 전체가 버퍼링되기
			// 전, 부분 상태에서 거부됩니다.
			if e.maxBodyLength >= 0 && int64(reader.Len()) > e.maxBodyLength+probe.MaxHeaderBytes {
				e.reject(conn, state, http.StatusRequestEntityTooLarge)
				return
			}
			// Netpoll will call ServeConn again when more data arrives.
			// 더 많은 데이터가 도착하면 netpoll이 ServeConn을 다시 호출합니다.
			state.Processing.Store(false)
			return
		}

		raw, err := reader.Next(res.Len)
		if err != nil {
			conn.Close()
			state.Processing.Store(false)
			return
		}

		closing := e.handleRequest(ctx, state, raw)
		_ = reader.Release()

		if closing {
			conn.Close()
			state.Processing.Store(false)
			return
		}

		// Restore ReadTimeout for the next request (Keep-Alive)
		// 다음 요청(Keep-Alive)을 위해 ReadTimeout을 복원합니다.
		if state.ReadTimeout > 0 {
			if err := conn.SetReadTimeout(state.ReadTimeout); err != nil {
				e.log.WithError(err).Warn("failed to restore read timeout")
			}
		}
	}
}

// yield releases the processing lock, then re-checks the poller buffer:
// data that arrived between the check and the release must not be lost.
// Returns true when the caller should continue processing.
// yield는 처리 잠금을 해제한 뒤 폴러 버퍼를 다시 확인합니다. 확인과 해제
// 사이에 도착한 데이터가 유실되어서는 안 됩니다. 호출자가 처리를 계속해야
// 하면 true를 반환합니다.
func (e *Engine) yield(conn netpoll.Connection, state *ConnectionState) bool {
	// Double-Check Locking logic to prevent event loss
	// 이벤트 손실을 방지하기 위한 이중 확인 잠금 로직입니다.
	// 1. Release the lock tentatively
	// 1. 잠금을 잠정적으로 해제합니다.
	state.Processing.Store(false)

	// 2. Check buffer again immediately
	// 2. 즉시 버퍼를 다시 확인합니다.
	if r := conn.Reader(); r != nil && r.Len() > 0 {
		// New data arrived right after we checked! Try to re-acquire lock.
		// 확인 직후 새 데이터가 도착했습니다! 잠금을 다시 획득하려고 시도합니다.
		if state.Processing.CompareAndSwap(false, true) {
			return true
		}
		// Failed to acquire: another goroutine (ServeConn) picked it up. Safe to exit.
		// 획득 실패: 다른 고루틴(ServeConn)이 이를 처리했습니다. 안전하게 종료합니다.
	}
	return false
}

// reject answers status with Connection: close and tears the connection down.
// reject는 Connection: close와 함께 status로 응답하고 연결을 정리합니다.
func (e *Engine) reject(conn netpoll.Connection, state *ConnectionState, status int) {
	w := response.NewWriter(state.Writer)
	w.WriteHeader(status)
	w.SetClose()
	if err := w.EndResponse(); err != nil {
		e.log.WithError(err).Debug("failed to write rejection")
	}
	w.Release()
	conn.Close()
	state.Processing.Store(false)
}

// handleRequest parses, validates, decodes and dispatches one framed
// request. raw holds exactly the bytes of this request, so the body
// decoder's end-of-stream is the end of the request, never the next
// pipelined request. Returns whether the connection must close.
// handleRequest는 프레이밍된 요청 하나를 파싱, 검증, 디코딩, 디스패치합니다.
// raw는 정확히 이 요청의 바이트만 담으므로, 바디 디코더의 스트림 끝은 다음
// 파이프라인 요청이 아니라 이 요청의 끝입니다. 연결을 닫아야 하는지 반환합니다.
func (e *Engine) handleRequest(ctx context.Context, state *ConnectionState, raw []byte) (closing bool) {
	state.src.Reset(raw)
	state.Scanner.Reset(state.src)

	w := response.NewWriter(state.Writer)
	defer w.Release()

	req, err := request.ReadRequest(state.Scanner)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.SetClose()
		_ = w.EndResponse()
		return true
	}
	defer req.Release()

	// Framing rules: mandatory Host, Transfer-Encoding/Content-Length
	// conflict resolution. Failure is always 400.
	// 프레이밍 규칙: Host 필수, Transfer-Encoding/Content-Length 충돌 해결.
	// 실패는 항상 400입니다.
	if !req.Validate() {
		w.WriteHeader(http.StatusBadRequest)
		w.SetClose()
		_ = w.EndResponse()
		return true
	}

	// Decode only when the request declares a body. A bodiless request must
	// not be answered 411 just because it carries no Content-Length.
	// 요청이 바디를 선언한 경우에만 디코딩합니다. 바디 없는 요청이
	// Content-Length가 없다는 이유로 411을 받아서는 안 됩니다.
	var data []byte
	_, hasLength := req.Headers[header.ContentLength]
	if hasLength || req.Headers.Chunked() {
		var derr body.Error
		data, derr = req.Body(e.maxBodyLength)
		if derr != body.None {
			e.log.WithFields(logrus.Fields{
				"error":  derr.String(),
				"target": req.Target,
			}).Debug("body decode failed")
			w.WriteHeader(derr.Status())
			w.SetClose()
			_ = w.EndResponse()
			return true
		}
	}

	// Apply Request Timeout.
	// 요청 타임아웃 적용.
	hctx := ctx
	if e.requestTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()
	}

	// Panic Recovery
	// 패닉 복구
	var panicked bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				e.log.WithField("panic", r).Errorf("recovered in handler\n%s", debug.Stack())
				if !w.HeaderSent() {
					w.WriteHeader(http.StatusInternalServerError)
					w.SetClose()
					_ = w.EndResponse()
				}
			}
		}()
		e.Handler.Serve(hctx, w, req, data)
	}()
	if panicked {
		return true
	}

	// Keep-alive logic
	// Keep-alive 로직입니다.
	if strings.EqualFold(req.Headers[header.Connection], "close") || req.Proto == "HTTP/1.0" {
		closing = true
		w.SetClose()
	}

	if err := w.EndResponse(); err != nil {
		return true
	}
	return closing
}
