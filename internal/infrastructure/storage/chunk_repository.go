package storage

import (
	"database/sql"
	"fmt"
	"time"

	domainAttr "github.com/docuchat/backend/internal/domain/attribution"
)

// 确保 ChunkRepositoryImpl 实现了 domainAttr.ChunkRepository 接口
var _ domainAttr.ChunkRepository = (*ChunkRepositoryImpl)(nil)

// ChunkRepositoryImpl 片段元数据仓储实现
type ChunkRepositoryImpl struct {
	db *sql.DB
}

// NewChunkRepository 创建片段元数据仓储实例
func NewChunkRepository(db *sql.DB) domainAttr.ChunkRepository {
	return &ChunkRepositoryImpl{db: db}
}

// Save 保存片段元数据
// 片段不可变，这里只做插入，不做替换
func (r *ChunkRepositoryImpl) Save(chunk *domainAttr.ChunkMetadata) error {
	query := `
		INSERT INTO chunks (id, source_file, page_number, section, extraction_method, word_count, character_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(
		query,
		chunk.ChunkID,
		chunk.SourceFile,
		chunk.PageNumber,
		chunk.Section,
		chunk.ExtractionMethod,
		chunk.WordCount,
		chunk.CharacterCount,
		chunk.CreatedAt.UnixNano(),
	)
	return err
}

// SaveBatch 批量保存片段元数据
func (r *ChunkRepositoryImpl) SaveBatch(chunks []*domainAttr.ChunkMetadata) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, source_file, page_number, section, extraction_method, word_count, character_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.Exec(
			chunk.ChunkID,
			chunk.SourceFile,
			chunk.PageNumber,
			chunk.Section,
			chunk.ExtractionMethod,
			chunk.WordCount,
			chunk.CharacterCount,
			chunk.CreatedAt.UnixNano(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Find 按 ID 查找片段
func (r *ChunkRepositoryImpl) Find(chunkID string) (*domainAttr.ChunkMetadata, error) {
	row := r.db.QueryRow(`
		SELECT id, source_file, page_number, section, extraction_method, word_count, character_count, created_at
		FROM chunks WHERE id = ?`, chunkID)

	var chunk domainAttr.ChunkMetadata
	var createdAt int64

	err := row.Scan(
		&chunk.ChunkID,
		&chunk.SourceFile,
		&chunk.PageNumber,
		&chunk.Section,
		&chunk.ExtractionMethod,
		&chunk.WordCount,
		&chunk.CharacterCount,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk row: %w", err)
	}

	chunk.CreatedAt = time.Unix(0, createdAt).UTC()
	return &chunk, nil
}

// Exists 检查片段是否已注册
func (r *ChunkRepositoryImpl) Exists(chunkID string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM chunks WHERE id = ?`, chunkID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Count 统计已注册片段数量
func (r *ChunkRepositoryImpl) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}
