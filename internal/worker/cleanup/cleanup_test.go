package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// fakeResult はsql.Resultのテスト用実装。
type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	execCalled bool
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalled = true
	m.query = query
	m.args = args
	return m.result, m.err
}

// stubMetrics はメトリクス呼び出しを記録するテスト用実装。
type stubMetrics struct {
	sweptCounts []int
}

func (s *stubMetrics) RecordLogin(method, result string)           {}
func (s *stubMetrics) RecordTokenRefresh(result string)            {}
func (s *stubMetrics) RecordHandoffRedeem(result string)           {}
func (s *stubMetrics) RecordNotificationDispatched(delivered bool) {}
func (s *stubMetrics) SSEConnectionOpened()                        {}
func (s *stubMetrics) SSEConnectionClosed()                        {}

func (s *stubMetrics) RecordNotificationsSwept(count int) {
	s.sweptCounts = append(s.sweptCounts, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestJob(mock *mockExecutor, buf *bytes.Buffer) (*CleanupJob, *stubMetrics) {
	m := &stubMetrics{}
	return NewCleanupJob(mock, newTestLogger(buf), m), m
}

func TestNewCleanupJob_SetsDefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer

	job, _ := newTestJob(&mockExecutor{result: &fakeResult{}}, &buf)

	if job.RetentionDays != 5 {
		t.Errorf("RetentionDays = %d, want 5", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesOnlyReadNotifications(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job, _ := newTestJob(mock, &buf)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されなかった")
	}

	if !strings.Contains(mock.query, "DELETE FROM notifications") {
		t.Errorf("クエリに 'DELETE FROM notifications' が含まれていない: %s", mock.query)
	}

	// 未読を巻き込まないこと
	if !strings.Contains(mock.query, "is_read") {
		t.Errorf("クエリに 'is_read' 条件が含まれていない: %s", mock.query)
	}

	if !strings.Contains(mock.query, "created_at") {
		t.Errorf("クエリに 'created_at' 条件が含まれていない: %s", mock.query)
	}
}

func TestCleanupJob_Run_UsesIntervalParameter(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job, _ := newTestJob(mock, &buf)

	_ = job.Run(context.Background())

	if len(mock.args) < 1 {
		t.Fatal("ExecContext に引数が渡されなかった")
	}

	argStr, ok := mock.args[0].(string)
	if !ok {
		t.Fatalf("第1引数が string ではない: %T", mock.args[0])
	}
	if argStr != "5 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "5 days")
	}
}

func TestCleanupJob_Run_RecordsSweptCount(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 7}}
	job, m := newTestJob(mock, &buf)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if len(m.sweptCounts) != 1 || m.sweptCounts[0] != 7 {
		t.Errorf("swept counts = %v, want [7]", m.sweptCounts)
	}
}

func TestCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 42}}
	job, _ := newTestJob(mock, &buf)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: nil, err: sql.ErrConnDone}
	job, m := newTestJob(mock, &buf)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}

	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}

	// 失敗時はメトリクスを記録しない
	if len(m.sweptCounts) != 0 {
		t.Errorf("swept counts = %v, want empty", m.sweptCounts)
	}

	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job, _ := newTestJob(mock, &buf)

	// 削除対象がなくてもエラーにならない
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
}

func TestCleanupJob_Run_LogsZeroDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job, _ := newTestJob(mock, &buf)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(0) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

// TestCleanupJob_CustomRetentionDays はRetentionDaysをカスタマイズした場合のテスト。
func TestCleanupJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job, _ := newTestJob(mock, &buf)
	job.RetentionDays = 14

	_ = job.Run(context.Background())

	argStr, ok := mock.args[0].(string)
	if !ok {
		t.Fatalf("第1引数が string ではない: %T", mock.args[0])
	}
	if argStr != "14 days" {
		t.Errorf("interval引数 = %q, want %q", argStr, "14 days")
	}
}
