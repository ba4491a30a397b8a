package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/hitoshi/futari/internal/metrics"
	"github.com/hitoshi/futari/internal/middleware"
	"github.com/hitoshi/futari/internal/notification"
)

// flusherSink はSSE接続1本に対するnotification.Sinkの実装。
// 書き込みは配信ゴルーチンとハンドラーゴルーチンの両方から起きうるため
// ミューテックスで直列化する。ハンドラーのreturn後にResponseWriterへ
// 書き込んではならないので、return前にCloseで書き込みを遮断する。
type flusherSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

func newFlusherSink(w http.ResponseWriter, flusher http.Flusher) *flusherSink {
	return &flusherSink{w: w, flusher: flusher}
}

// Send はイベントをSSE形式(dataフィールドにJSON)で書き込む。
// Close済みの場合はエラーを返す。
func (s *flusherSink) Send(event notification.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Close は以降のSendを失敗させる。進行中のSendは完了を待つ。
func (s *flusherSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SSEHandler はSSEによる通知のライブ配信エンドポイント。
type SSEHandler struct {
	registry *notification.Registry
	metrics  metrics.MetricsCollector
}

// NewSSEHandler はSSEHandlerを生成する。
func NewSSEHandler(registry *notification.Registry, collector metrics.MetricsCollector) *SSEHandler {
	return &SSEHandler{registry: registry, metrics: collector}
}

// Subscribe はSSEストリームを開始し、クライアントが切断するまでブロックする。
// 同一ユーザーの既存接続は新しい接続に置き換えられる。
// GET /sse/subscribe
func (h *SSEHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := newFlusherSink(w, flusher)
	h.registry.Subscribe(userID, sink)
	h.metrics.SSEConnectionOpened()

	<-r.Context().Done()

	// ハンドラーのreturn後にDispatchが書き込まないよう、先にSinkを閉じる
	sink.Close()

	// 置き換え済みの新しい接続は解除しない(Sinkの同一性で判定される)
	h.registry.Unsubscribe(userID, sink)
	h.metrics.SSEConnectionClosed()
}
