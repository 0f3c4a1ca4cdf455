package response

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func newTestWriter() (*Writer, *bytes.Buffer) {
	var out bytes.Buffer
	return NewWriter(bufio.NewWriter(&out)), &out
}

func TestFixedLengthResponse(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.Header()["Content-Length"] = "5"
	w.Header()["Content-Type"] = "text/plain"
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("missing status line: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 5\r\n") {
		t.Errorf("missing Content-Length: %q", got)
	}
	if !strings.Contains(got, "Date: ") {
		t.Errorf("missing Date: %q", got)
	}
	if strings.Contains(got, "Transfer-Encoding") {
		t.Errorf("fixed-length response must not be chunked: %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\nhello") {
		t.Errorf("body framing wrong: %q", got)
	}
}

func TestChunkedResponseWhenLengthUnknown(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.Header()["Content-Type"] = "text/plain"
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := w.WriteString(" world"); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Transfer-Encoding: chunked\r\n") {
		t.Errorf("missing chunked framing header: %q", got)
	}
	if !strings.Contains(got, "\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n") {
		t.Errorf("chunk framing wrong: %q", got)
	}
}

func TestEmptyResponseGetsZeroLength(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.WriteHeader(404)
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("status line wrong: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 0\r\n") {
		t.Errorf("missing Content-Length: 0: %q", got)
	}
}

func TestWriteHeaderIgnoredAfterSend(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.Header()["Content-Length"] = "2"
	if _, err := w.Write([]byte("ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	w.WriteHeader(500)
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("late WriteHeader changed the status: %q", out.String())
	}
}

func TestSetClose(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.SetClose()
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}
	if !strings.Contains(out.String(), "Connection: close\r\n") {
		t.Errorf("missing Connection: close: %q", out.String())
	}
}

func TestContentTypeSniffed(t *testing.T) {
	w, out := newTestWriter()
	defer w.Release()

	w.Header()["Content-Length"] = "15"
	if _, err := w.Write([]byte("<html></html>..")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.EndResponse(); err != nil {
		t.Fatalf("EndResponse failed: %v", err)
	}
	if !strings.Contains(out.String(), "Content-Type: text/html") {
		t.Errorf("content type not sniffed: %q", out.String())
	}
}
