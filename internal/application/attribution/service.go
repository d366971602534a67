package attribution

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	domainAttr "github.com/docuchat/backend/internal/domain/attribution"
	"github.com/docuchat/backend/internal/infrastructure/log"
)

// Service 溯源管理服务
// 负责片段元数据注册、回答溯源记录和引用的按需渲染
// 溯源（用了哪些片段）在回答产生时一次性冻结，引用的展示形式随用随算，
// 历史回放或界面改版都不需要重新推导来源
type Service struct {
	mu sync.Mutex

	chunks       domainAttr.ChunkRepository
	attributions domainAttr.AttributionRepository
	logger       *slog.Logger
}

// NewService 创建溯源管理服务
func NewService(chunks domainAttr.ChunkRepository, attributions domainAttr.AttributionRepository) *Service {
	return &Service{
		chunks:       chunks,
		attributions: attributions,
		logger:       log.NewModuleLogger("attribution", "service"),
	}
}

// RegisterChunk 注册片段元数据
// 片段 ID 由外部摄取管道提供；为空时由本服务生成
// ID 一经注册不可变更，重复注册返回 ErrDuplicateChunk
func (s *Service) RegisterChunk(meta *domainAttr.ChunkMetadata) (string, error) {
	if meta.SourceFile == "" {
		return "", fmt.Errorf("source file is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if meta.ChunkID == "" {
		meta.ChunkID = uuid.NewString()
	} else {
		exists, err := s.chunks.Exists(meta.ChunkID)
		if err != nil {
			return "", fmt.Errorf("failed to check chunk existence: %w", err)
		}
		if exists {
			return "", domainAttr.ErrDuplicateChunk
		}
	}

	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	if err := s.chunks.Save(meta); err != nil {
		return "", fmt.Errorf("failed to save chunk: %w", err)
	}

	s.logger.Debug("chunk registered",
		"chunkID", meta.ChunkID,
		"sourceFile", meta.SourceFile,
	)
	return meta.ChunkID, nil
}

// RegisterChunks 批量注册片段元数据（摄取管道按文档调用）
// 任何一个 ID 冲突都会使整批失败
func (s *Service) RegisterChunks(metas []*domainAttr.ChunkMetadata) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	ids := make([]string, 0, len(metas))
	seen := make(map[string]bool, len(metas))
	for _, meta := range metas {
		if meta.SourceFile == "" {
			return nil, fmt.Errorf("source file is required")
		}
		if meta.ChunkID == "" {
			meta.ChunkID = uuid.NewString()
		} else {
			exists, err := s.chunks.Exists(meta.ChunkID)
			if err != nil {
				return nil, fmt.Errorf("failed to check chunk existence: %w", err)
			}
			if exists || seen[meta.ChunkID] {
				return nil, fmt.Errorf("%w: %s", domainAttr.ErrDuplicateChunk, meta.ChunkID)
			}
		}
		seen[meta.ChunkID] = true
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = now
		}
		ids = append(ids, meta.ChunkID)
	}

	if err := s.chunks.SaveBatch(metas); err != nil {
		return nil, fmt.Errorf("failed to save chunks: %w", err)
	}

	s.logger.Info("chunks registered", "count", len(ids))
	return ids, nil
}

// RecordResponseAttribution 记录回答溯源
// 幂等：相同参数的重复调用是空操作；同一回答出现不同参数返回 ErrAttributionConflict
func (s *Service) RecordResponseAttribution(responseID string, chunkIDs []string, confidence float64) error {
	if responseID == "" {
		return fmt.Errorf("response id is required")
	}
	if confidence < 0 || confidence > 1 {
		return domainAttr.ErrInvalidConfidence
	}

	// 相关度排序中不允许重复片段
	seen := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		if seen[id] {
			return fmt.Errorf("duplicate chunk id in attribution: %s", id)
		}
		seen[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 所有片段必须已注册，绝不为未知片段编造来源
	for _, id := range chunkIDs {
		exists, err := s.chunks.Exists(id)
		if err != nil {
			return fmt.Errorf("failed to check chunk existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", domainAttr.ErrUnknownChunk, id)
		}
	}

	record := &domainAttr.ResponseAttribution{
		ResponseID: responseID,
		ChunkIDs:   append([]string(nil), chunkIDs...),
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}

	existing, err := s.attributions.Find(responseID)
	if err != nil {
		return fmt.Errorf("failed to load attribution: %w", err)
	}
	if existing != nil {
		if existing.SameAs(record) {
			return nil
		}
		return domainAttr.ErrAttributionConflict
	}

	if err := s.attributions.Save(record); err != nil {
		return fmt.Errorf("failed to save attribution: %w", err)
	}

	s.logger.Debug("attribution recorded",
		"responseID", responseID,
		"chunks", len(chunkIDs),
		"confidence", confidence,
	)
	return nil
}

// CitationsFor 按需生成回答的引用列表
// 渲染是确定性的：相同的 (回答, 格式) 输入永远得到相同的引用文本
func (s *Service) CitationsFor(responseID string, style domainAttr.CitationStyle) ([]domainAttr.Citation, error) {
	if _, ok := domainAttr.ParseCitationStyle(string(style)); !ok {
		return nil, domainAttr.ErrInvalidStyle
	}

	record, err := s.attributions.Find(responseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution: %w", err)
	}
	if record == nil {
		return nil, domainAttr.ErrNotFound
	}

	citations := make([]domainAttr.Citation, 0, len(record.ChunkIDs))
	for i, chunkID := range record.ChunkIDs {
		chunk, err := s.chunks.Find(chunkID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %s: %w", chunkID, err)
		}
		if chunk == nil {
			// 溯源记录引用的片段必须存在；片段不可删除，这属于数据损坏
			return nil, fmt.Errorf("%w: %s", domainAttr.ErrUnknownChunk, chunkID)
		}

		rank := i + 1
		citations = append(citations, domainAttr.Citation{
			CitationID:    fmt.Sprintf("%s-%s-%d", responseID, style, rank),
			ChunkID:       chunkID,
			Style:         style,
			RenderedText:  domainAttr.RenderCitation(chunk, style, rank),
			PageReference: domainAttr.PageReference(chunk),
		})
	}
	return citations, nil
}

// ConfidenceFor 返回回答的置信度
func (s *Service) ConfidenceFor(responseID string) (float64, error) {
	record, err := s.attributions.Find(responseID)
	if err != nil {
		return 0, fmt.Errorf("failed to load attribution: %w", err)
	}
	if record == nil {
		return 0, domainAttr.ErrNotFound
	}
	return record.Confidence, nil
}

// ExportData 溯源数据总览（供分析接口使用）
type ExportData struct {
	TotalChunks       int       `json:"total_chunks"`
	TotalAttributions int       `json:"total_attributions"`
	ExportedAt        time.Time `json:"exported_at"`
}

// Export 导出溯源数据统计
func (s *Service) Export() (*ExportData, error) {
	chunkCount, err := s.chunks.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	attrCount, err := s.attributions.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count attributions: %w", err)
	}
	return &ExportData{
		TotalChunks:       chunkCount,
		TotalAttributions: attrCount,
		ExportedAt:        time.Now().UTC(),
	}, nil
}
