package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
)

// 确保 MessageRepositoryImpl 实现了 domainWorkspace.MessageRepository 接口
var _ domainWorkspace.MessageRepository = (*MessageRepositoryImpl)(nil)

// MessageRepositoryImpl 消息日志仓储实现
type MessageRepositoryImpl struct {
	db *sql.DB
}

// NewMessageRepository 创建消息日志仓储实例
func NewMessageRepository(db *sql.DB) domainWorkspace.MessageRepository {
	return &MessageRepositoryImpl{db: db}
}

// Append 追加一条消息
// (workspace_id, seq) 上的唯一约束由调用方（Broker 的追加锁）保证不被触发
func (r *MessageRepositoryImpl) Append(msg *domainWorkspace.CollaborativeMessage) error {
	reactionsJSON, err := json.Marshal(msg.Reactions)
	if err != nil {
		return fmt.Errorf("failed to marshal reactions: %w", err)
	}

	flagged := 0
	if msg.Flagged {
		flagged = 1
	}

	query := `
		INSERT INTO messages (id, workspace_id, seq, author_id, author_name, content, type, timestamp, response_id, reactions, flagged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(
		query,
		msg.ID,
		msg.WorkspaceID,
		msg.Seq,
		msg.AuthorID,
		msg.AuthorName,
		msg.Content,
		string(msg.Type),
		msg.Timestamp.UnixNano(),
		msg.ResponseID,
		string(reactionsJSON),
		flagged,
	)
	return err
}

// MaxSeq 返回工作区当前最大序号
func (r *MessageRepositoryImpl) MaxSeq(workspaceID string) (int64, error) {
	var seq sql.NullInt64
	err := r.db.QueryRow(`SELECT MAX(seq) FROM messages WHERE workspace_id = ?`, workspaceID).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// ListBefore 返回序号小于 beforeSeq 的最近 limit 条消息（按序号升序）
func (r *MessageRepositoryImpl) ListBefore(workspaceID string, beforeSeq int64, limit int) ([]*domainWorkspace.CollaborativeMessage, error) {
	// 先按序号倒序取最近的一页，再反转成升序返回
	var rows *sql.Rows
	var err error
	if beforeSeq > 0 {
		rows, err = r.db.Query(`
			SELECT id, workspace_id, seq, author_id, author_name, content, type, timestamp, response_id, reactions, flagged
			FROM messages WHERE workspace_id = ? AND seq < ?
			ORDER BY seq DESC LIMIT ?`, workspaceID, beforeSeq, limit)
	} else {
		rows, err = r.db.Query(`
			SELECT id, workspace_id, seq, author_id, author_name, content, type, timestamp, response_id, reactions, flagged
			FROM messages WHERE workspace_id = ?
			ORDER BY seq DESC LIMIT ?`, workspaceID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []*domainWorkspace.CollaborativeMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

// Find 按消息 ID 查找
func (r *MessageRepositoryImpl) Find(messageID string) (*domainWorkspace.CollaborativeMessage, error) {
	row := r.db.QueryRow(`
		SELECT id, workspace_id, seq, author_id, author_name, content, type, timestamp, response_id, reactions, flagged
		FROM messages WHERE id = ?`, messageID)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return msg, err
}

// Update 更新消息的可变部分（表情回应、软删除标记）
func (r *MessageRepositoryImpl) Update(msg *domainWorkspace.CollaborativeMessage) error {
	reactionsJSON, err := json.Marshal(msg.Reactions)
	if err != nil {
		return fmt.Errorf("failed to marshal reactions: %w", err)
	}

	flagged := 0
	if msg.Flagged {
		flagged = 1
	}

	_, err = r.db.Exec(`UPDATE messages SET reactions = ?, flagged = ? WHERE id = ?`,
		string(reactionsJSON), flagged, msg.ID)
	return err
}

// Count 统计工作区消息数量
func (r *MessageRepositoryImpl) Count(workspaceID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE workspace_id = ?`, workspaceID).Scan(&count)
	return count, err
}

func scanMessage(row rowScanner) (*domainWorkspace.CollaborativeMessage, error) {
	var msg domainWorkspace.CollaborativeMessage
	var msgType, reactionsJSON string
	var responseID sql.NullString
	var timestamp int64
	var flagged int

	err := row.Scan(
		&msg.ID,
		&msg.WorkspaceID,
		&msg.Seq,
		&msg.AuthorID,
		&msg.AuthorName,
		&msg.Content,
		&msgType,
		&timestamp,
		&responseID,
		&reactionsJSON,
		&flagged,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan message row: %w", err)
	}

	msg.Type = domainWorkspace.MessageType(msgType)
	msg.Timestamp = time.Unix(0, timestamp).UTC()
	msg.ResponseID = responseID.String
	msg.Flagged = flagged == 1

	if reactionsJSON != "" && reactionsJSON != "null" {
		if err := json.Unmarshal([]byte(reactionsJSON), &msg.Reactions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reactions: %w", err)
		}
	}
	return &msg, nil
}
