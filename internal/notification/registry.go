// Package notification は通知の永続化とSSEライブ配信を提供する。
package notification

import (
	"sync"

	"github.com/hitoshi/futari/internal/model"
)

// Event はライブ配信される通知イベント。
type Event struct {
	Type    model.NotificationType    `json:"type"`
	Payload model.NotificationPayload `json:"payload"`
}

// Sink はイベントの配信先。SSE接続1本に対応する。
type Sink interface {
	// Send はイベントを配信する。配信できない場合はエラーを返す。
	Send(event Event) error
}

// Registry はユーザーIDとアクティブなSinkの対応を管理する。
// ユーザーごとに最大1本の接続を保持し、新しい購読は古い接続を置き換える。
// コンポジションルートが1つだけ生成して配る。
type Registry struct {
	mu    sync.Mutex
	sinks map[string]Sink
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Subscribe はユーザーのSinkを登録する。既存の登録は置き換えられる。
func (r *Registry) Subscribe(userID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[userID] = sink
}

// Unsubscribe は登録を解除する。登録中のSinkがsinkと同一の場合のみ解除し、
// 別の接続に置き換わった後の遅れた解除が新しい接続を壊さないようにする。
func (r *Registry) Unsubscribe(userID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sinks[userID]; ok && current == sink {
		delete(r.sinks, userID)
	}
}

// Deliver はユーザーのSinkにイベントを配信する。
// 配信に成功した場合はtrueを返す。Sinkが未登録の場合はfalseを返す。
// 配信に失敗したSinkは切断とみなして登録を解除する。
// 送信自体はロックの外で行い、遅いクライアントが他ユーザーを塞がないようにする。
func (r *Registry) Deliver(userID string, event Event) bool {
	r.mu.Lock()
	sink, ok := r.sinks[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	if err := sink.Send(event); err != nil {
		r.Unsubscribe(userID, sink)
		return false
	}
	return true
}

// ActiveCount は登録中のSink数を返す。
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}
