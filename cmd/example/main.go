package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"syscall"
	"time"

	"github.com/DevNewbie1826/maru/pkg/engine"
	"github.com/DevNewbie1826/maru/pkg/header"
	"github.com/DevNewbie1826/maru/pkg/request"
	"github.com/DevNewbie1826/maru/pkg/response"
	"github.com/DevNewbie1826/maru/pkg/server"
	"github.com/sirupsen/logrus"
)

func SetUlimit() error {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return err
	}
	rLimit.Cur = rLimit.Max
	return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
}

func main() {
	log := logrus.New()
	_ = SetUlimit()

	// pprof for monitoring
	go func() {
		log.Info("starting pprof on localhost:6060")
		_ = http.ListenAndServe("localhost:6060", nil)
	}()

	addr := flag.String("addr", ":1826", "Listen address")
	maxBody := flag.Int64("max-body", engine.DefaultMaxBodyLength, "Max decoded body bytes")
	flag.Parse()

	eng := engine.NewEngine(
		engine.HandlerFunc(route),
		engine.WithMaxBodyLength(*maxBody),
		engine.WithRequestTimeout(30*time.Second),
		engine.WithLogger(log),
	)
	srv := server.NewServer(eng, server.WithLogger(log))

	log.WithField("addr", *addr).Info("starting server")
	if err := srv.Serve(*addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func route(ctx context.Context, w *response.Writer, req *request.Request, body []byte) {
	switch req.Target {
	case "/":
		rootHandler(w)
	case "/echo":
		echoHandler(w, req, body)
	case "/stream":
		streamHandler(ctx, w)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func rootHandler(w *response.Writer) {
	w.Header()["Content-Type"] = "text/plain; charset=utf-8"
	_, _ = w.WriteString("Maru Server Running\nEndpoints: /echo, /stream\n")
}

// echoHandler returns the decoded request body. A chunked request arrives
// here already rewritten to a fixed length, so echoing its Content-Length
// back demonstrates the decoder's header rewriting.
// echoHandler는 디코딩된 요청 바디를 반환합니다. 청크 요청은 이미 고정 길이로
// 다시 작성된 채 도착하므로, Content-Length를 그대로 반영하면 디코더의 헤더
// 재작성을 확인할 수 있습니다.
func echoHandler(w *response.Writer, req *request.Request, body []byte) {
	w.Header()["Content-Type"] = req.Headers["Content-Type"]
	w.Header()[header.ContentLength] = strconv.Itoa(len(body))
	_, _ = w.Write(body)
}

// streamHandler emits ten messages with chunked response framing.
// streamHandler는 청크 응답 프레이밍으로 열 개의 메시지를 내보냅니다.
func streamHandler(ctx context.Context, w *response.Writer) {
	w.Header()["Content-Type"] = "text/event-stream"
	w.Header()["Cache-Control"] = "no-cache"
	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, _ = w.WriteString("data: Message " + strconv.Itoa(i) + "\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		time.Sleep(1 * time.Second)
	}
}
