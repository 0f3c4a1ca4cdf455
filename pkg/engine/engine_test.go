package engine

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/DevNewbie1826/maru/pkg/header"
	"github.com/DevNewbie1826/maru/pkg/request"
	"github.com/DevNewbie1826/maru/pkg/response"
	"github.com/DevNewbie1826/maru/pkg/scanner"
	"github.com/sirupsen/logrus"
)

// newTestState builds a ConnectionState whose writes land in the returned
// buffer, so handleRequest can be exercised without a poller connection.
// newTestState는 쓰기가 반환된 버퍼에 기록되는 ConnectionState를 만들어,
// 폴러 연결 없이 handleRequest를 테스트할 수 있게 합니다.
func newTestState() (*ConnectionState, *bytes.Buffer) {
	var out bytes.Buffer
	state := NewConnectionState(0, nil)
	state.Scanner = scanner.New(nil)
	state.Writer = bufio.NewWriter(&out)
	return state, &out
}

func quietEngine(h Handler, opts ...Option) *Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(h, append(opts, WithLogger(log))...)
}

func TestHandleRequestEcho(t *testing.T) {
	var gotMethod, gotTarget string
	var gotBody []byte
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		gotMethod = req.Method
		gotTarget = req.Target
		gotBody = body
		w.Header()["Content-Length"] = "2"
		w.WriteString("ok") // nolint:errcheck
	}))

	state, out := newTestState()
	raw := "POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello"
	closing := e.handleRequest(context.Background(), state, []byte(raw))

	if closing {
		t.Error("keep-alive request reported closing")
	}
	if gotMethod != "POST" || gotTarget != "/echo" {
		t.Errorf("request line = %s %s", gotMethod, gotTarget)
	}
	if string(gotBody) != "hello" {
		t.Errorf("body = %q, want %q", gotBody, "hello")
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("response = %q", out.String())
	}
}

func TestHandleRequestChunkedRewrite(t *testing.T) {
	var seen header.Headers
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		seen = header.Headers{}
		for k, v := range req.Headers {
			seen[k] = v
		}
		if string(body) != "hello" {
			t.Errorf("body = %q, want %q", body, "hello")
		}
	}))

	state, _ := newTestState()
	raw := "POST / HTTP/1.1\r\nHost: x\r\nTrailer: X-Checksum\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\n\r\nX-Checksum: abc\r\n\r\n"
	if closing := e.handleRequest(context.Background(), state, []byte(raw)); closing {
		t.Error("keep-alive request reported closing")
	}

	if seen[header.ContentLength] != "5" {
		t.Errorf("Content-Length = %q, want %q", seen[header.ContentLength], "5")
	}
	if _, ok := seen[header.TransferEncoding]; ok {
		t.Error("Transfer-Encoding survived rewriting")
	}
	if _, ok := seen[header.Trailer]; ok {
		t.Error("Trailer survived rewriting")
	}
	if seen["X-Checksum"] != "abc" {
		t.Errorf("trailer not merged: %q", seen["X-Checksum"])
	}
}

func TestHandleRequestMalformedRequestLine(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		t.Error("handler reached for malformed request")
	}))
	state, out := newTestState()
	if closing := e.handleRequest(context.Background(), state, []byte("GARBAGE\r\n\r\n")); !closing {
		t.Error("malformed request must close the connection")
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 400 ") {
		t.Errorf("response = %q, want 400", out.String())
	}
}

func TestHandleRequestMissingHost(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		t.Error("handler reached without Host")
	}))
	state, out := newTestState()
	if closing := e.handleRequest(context.Background(), state, []byte("GET / HTTP/1.1\r\n\r\n")); !closing {
		t.Error("invalid request must close the connection")
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 400 ") {
		t.Errorf("response = %q, want 400", out.String())
	}
}

func TestHandleRequestBodyErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		status string
	}{
		{
			name:   "Bad Content-Length",
			raw:    "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: abc\r\n\r\n",
			status: "HTTP/1.1 422 ",
		},
		{
			name:   "Bad Chunk Size",
			raw:    "POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\n\r\n",
			status: "HTTP/1.1 422 ",
		},
		{
			name:   "Body Over Bound",
			raw:    "POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 100\r\n\r\n" + strings.Repeat("a", 100),
			status: "HTTP/1.1 413 ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
				t.Error("handler reached after decode failure")
			}), WithMaxBodyLength(8))
			state, out := newTestState()
			if closing := e.handleRequest(context.Background(), state, []byte(tt.raw)); !closing {
				t.Error("decode failure must close the connection")
			}
			if !strings.HasPrefix(out.String(), tt.status) {
				t.Errorf("response = %q, want prefix %q", out.String(), tt.status)
			}
		})
	}
}

func TestHandleRequestPanicRecovery(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		panic("boom")
	}))
	state, out := newTestState()
	if closing := e.handleRequest(context.Background(), state, []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); !closing {
		t.Error("panicking handler must close the connection")
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 500 ") {
		t.Errorf("response = %q, want 500", out.String())
	}
}

func TestHandleRequestConnectionClose(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {}))

	state, out := newTestState()
	raw := "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"
	if closing := e.handleRequest(context.Background(), state, []byte(raw)); !closing {
		t.Error("Connection: close not honored")
	}
	if !strings.Contains(out.String(), "Connection: close\r\n") {
		t.Errorf("response missing Connection: close: %q", out.String())
	}
}

func TestHandleRequestHTTP10Closes(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {}))
	state, _ := newTestState()
	if closing := e.handleRequest(context.Background(), state, []byte("GET / HTTP/1.0\r\nHost: x\r\n\r\n")); !closing {
		t.Error("HTTP/1.0 request must close the connection")
	}
}

func TestHandleRequestDecodesExactlyOnce(t *testing.T) {
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		if !req.Decoded() {
			t.Error("request not marked decoded before dispatch")
		}
		defer func() {
			if recover() == nil {
				t.Error("second decode did not panic")
			}
		}()
		req.Body(-1) // nolint:errcheck
	}))
	state, _ := newTestState()
	e.handleRequest(context.Background(), state, []byte("POST / HTTP/1.1\r\nHost: x\r\nContent-Length: 2\r\n\r\nhi"))
}

func TestBodilessRequestDispatchedWithEmptyBody(t *testing.T) {
	// GET with no framing headers skips body decoding entirely; it must not
	// be answered 411 for lacking a Content-Length.
	// 프레이밍 헤더가 없는 GET은 바디 디코딩을 건너뜁니다. Content-Length가
	// 없다는 이유로 411을 받아서는 안 됩니다.
	e := quietEngine(HandlerFunc(func(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
		if len(body) != 0 {
			t.Errorf("body = %q, want empty", body)
		}
	}))
	state, out := newTestState()
	if closing := e.handleRequest(context.Background(), state, []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); closing {
		t.Error("bodiless GET reported closing")
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("response = %q", out.String())
	}
}
