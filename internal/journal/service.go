package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mt5-bridge/internal/store"
	"mt5-bridge/internal/trade"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Service 将交易操作写入 SQLite 流水表。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ trade.Recorder = (*Service)(nil)

// NewService 初始化流水服务并建表。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS trade_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_type TEXT NOT NULL,
	operation TEXT NOT NULL,
	symbol TEXT NOT NULL DEFAULT '',
	ticket INTEGER NOT NULL DEFAULT 0,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trade_journal_type ON trade_journal(entry_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Append 写入单条流水。
func (s *Service) Append(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化流水失败: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trade_journal (entry_type, operation, symbol, ticket, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(entry.Type), entry.Operation, entry.Symbol, entry.Ticket, string(payload),
		entry.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入流水失败: %w", err)
	}
	return nil
}

// RecordTrade 实现 trade.Recorder，写入失败只记日志。
func (s *Service) RecordTrade(ctx context.Context, rec trade.Record) {
	entry := Entry{
		Type:      entryType(rec),
		Operation: string(rec.Operation),
		Symbol:    rec.Symbol,
		Ticket:    rec.Ticket,
		Timestamp: s.now(),
	}
	if rec.Outcome != nil && entry.Ticket == 0 {
		entry.Ticket = rec.Outcome.Order
	}

	if rec.Err != nil {
		entry.Payload = FailurePayload{
			Volume:    rec.Volume,
			Price:     rec.Price,
			ErrorCode: trade.Code(rec.Err),
			Kind:      trade.KindOf(rec.Err).String(),
			Error:     rec.Err.Error(),
			Outcome:   rec.Outcome,
		}
	} else {
		entry.Payload = TradePayload{Volume: rec.Volume, Price: rec.Price, Outcome: rec.Outcome}
	}

	// 请求上下文可能已取消，流水仍需落盘。
	if err := s.Append(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("记录交易流水失败",
			zap.String("operation", entry.Operation),
			zap.Error(err),
		)
	}
}

// List 按类型检索最近流水，最新的在前。
func (s *Service) List(ctx context.Context, entryType EntryType, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, entry_type, operation, symbol, ticket, payload, created_at FROM trade_journal`
	args := make([]interface{}, 0, 2)
	if entryType != "" {
		query += ` WHERE entry_type = ?`
		args = append(args, string(entryType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询流水失败: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry   Entry
			typ     string
			payload string
			created string
		)
		if err := rows.Scan(&entry.ID, &typ, &entry.Operation, &entry.Symbol, &entry.Ticket, &payload, &created); err != nil {
			return nil, fmt.Errorf("journal: 解析流水失败: %w", err)
		}
		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}
		entry.Type = EntryType(typ)
		entry.Timestamp = ts
		entry.Payload = json.RawMessage(payload)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取流水失败: %w", err)
	}

	return entries, nil
}
