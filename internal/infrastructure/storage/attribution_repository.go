package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domainAttr "github.com/docuchat/backend/internal/domain/attribution"
)

// 确保 AttributionRepositoryImpl 实现了 domainAttr.AttributionRepository 接口
var _ domainAttr.AttributionRepository = (*AttributionRepositoryImpl)(nil)

// AttributionRepositoryImpl 回答溯源仓储实现
type AttributionRepositoryImpl struct {
	db *sql.DB
}

// NewAttributionRepository 创建回答溯源仓储实例
func NewAttributionRepository(db *sql.DB) domainAttr.AttributionRepository {
	return &AttributionRepositoryImpl{db: db}
}

// Save 保存溯源记录
// 记录创建后只读，这里只做插入
func (r *AttributionRepositoryImpl) Save(a *domainAttr.ResponseAttribution) error {
	chunkIDsJSON, err := json.Marshal(a.ChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk ids: %w", err)
	}

	query := `
		INSERT INTO attributions (response_id, chunk_ids, confidence, created_at)
		VALUES (?, ?, ?, ?)`

	_, err = r.db.Exec(query, a.ResponseID, string(chunkIDsJSON), a.Confidence, a.CreatedAt.UnixNano())
	return err
}

// Find 按回答 ID 查找溯源记录
func (r *AttributionRepositoryImpl) Find(responseID string) (*domainAttr.ResponseAttribution, error) {
	row := r.db.QueryRow(`
		SELECT response_id, chunk_ids, confidence, created_at
		FROM attributions WHERE response_id = ?`, responseID)

	var a domainAttr.ResponseAttribution
	var chunkIDsJSON string
	var createdAt int64

	err := row.Scan(&a.ResponseID, &chunkIDsJSON, &a.Confidence, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan attribution row: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkIDsJSON), &a.ChunkIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chunk ids: %w", err)
	}
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return &a, nil
}

// Count 统计溯源记录数量
func (r *AttributionRepositoryImpl) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM attributions`).Scan(&count)
	return count, err
}
