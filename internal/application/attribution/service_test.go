package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainAttr "github.com/docuchat/backend/internal/domain/attribution"
	"github.com/docuchat/backend/internal/infrastructure/storage"
)

func setupService(t *testing.T) *Service {
	db, err := storage.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.InitSchema(db))
	t.Cleanup(func() { _ = db.Close() })

	return NewService(storage.NewChunkRepository(db), storage.NewAttributionRepository(db))
}

func registerTestChunk(t *testing.T, s *Service, chunkID, sourceFile string, page int) string {
	id, err := s.RegisterChunk(&domainAttr.ChunkMetadata{
		ChunkID:    chunkID,
		SourceFile: sourceFile,
		PageNumber: page,
	})
	require.NoError(t, err)
	return id
}

func TestRegisterChunk(t *testing.T) {
	s := setupService(t)

	id := registerTestChunk(t, s, "c1", "report.pdf", 3)
	assert.Equal(t, "c1", id)

	// ID 为空时由服务生成
	generated := registerTestChunk(t, s, "", "notes.txt", 0)
	assert.NotEmpty(t, generated)

	// ID 不可重复注册
	_, err := s.RegisterChunk(&domainAttr.ChunkMetadata{ChunkID: "c1", SourceFile: "other.pdf"})
	assert.ErrorIs(t, err, domainAttr.ErrDuplicateChunk)

	// 来源文件必填
	_, err = s.RegisterChunk(&domainAttr.ChunkMetadata{ChunkID: "c9"})
	assert.Error(t, err)
}

func TestRegisterChunksBatch(t *testing.T) {
	s := setupService(t)
	registerTestChunk(t, s, "c1", "report.pdf", 1)

	// 任何一个 ID 冲突整批失败
	_, err := s.RegisterChunks([]*domainAttr.ChunkMetadata{
		{ChunkID: "c2", SourceFile: "a.pdf"},
		{ChunkID: "c1", SourceFile: "b.pdf"},
	})
	assert.ErrorIs(t, err, domainAttr.ErrDuplicateChunk)

	// 批内重复同样失败
	_, err = s.RegisterChunks([]*domainAttr.ChunkMetadata{
		{ChunkID: "c3", SourceFile: "a.pdf"},
		{ChunkID: "c3", SourceFile: "b.pdf"},
	})
	assert.ErrorIs(t, err, domainAttr.ErrDuplicateChunk)

	ids, err := s.RegisterChunks([]*domainAttr.ChunkMetadata{
		{ChunkID: "c4", SourceFile: "a.pdf"},
		{SourceFile: "b.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "c4", ids[0])
	assert.NotEmpty(t, ids[1])
}

func TestRecordResponseAttribution(t *testing.T) {
	s := setupService(t)
	registerTestChunk(t, s, "c1", "report.pdf", 3)
	registerTestChunk(t, s, "c2", "notes.txt", 0)

	require.NoError(t, s.RecordResponseAttribution("r1", []string{"c1", "c2"}, 0.8))

	// 相同参数的重复调用是幂等的空操作
	require.NoError(t, s.RecordResponseAttribution("r1", []string{"c1", "c2"}, 0.8))

	// 参数不同即冲突，溯源记录创建后只读
	err := s.RecordResponseAttribution("r1", []string{"c2", "c1"}, 0.8)
	assert.ErrorIs(t, err, domainAttr.ErrAttributionConflict)
	err = s.RecordResponseAttribution("r1", []string{"c1", "c2"}, 0.9)
	assert.ErrorIs(t, err, domainAttr.ErrAttributionConflict)

	// 未注册的片段不能出现在溯源里
	err = s.RecordResponseAttribution("r2", []string{"c1", "ghost"}, 0.5)
	assert.ErrorIs(t, err, domainAttr.ErrUnknownChunk)

	// 相关度排序里不允许重复片段
	err = s.RecordResponseAttribution("r3", []string{"c1", "c1"}, 0.5)
	assert.Error(t, err)

	// 置信度必须落在 [0,1]
	err = s.RecordResponseAttribution("r4", []string{"c1"}, 1.5)
	assert.ErrorIs(t, err, domainAttr.ErrInvalidConfidence)
	err = s.RecordResponseAttribution("r4", []string{"c1"}, -0.1)
	assert.ErrorIs(t, err, domainAttr.ErrInvalidConfidence)

	// 空片段列表是合法的（回答没有引用任何来源）
	require.NoError(t, s.RecordResponseAttribution("r5", nil, 0.1))
}

func TestCitationsFor(t *testing.T) {
	s := setupService(t)
	registerTestChunk(t, s, "c1", "report.pdf", 3)
	registerTestChunk(t, s, "c2", "notes.txt", 0)
	require.NoError(t, s.RecordResponseAttribution("r1", []string{"c1", "c2"}, 0.8))

	citations, err := s.CitationsFor("r1", domainAttr.StyleIEEE)
	require.NoError(t, err)
	require.Len(t, citations, 2)

	// 顺序保持相关度排序，rank 进入引用 ID 和 IEEE 编号
	assert.Equal(t, "c1", citations[0].ChunkID)
	assert.Equal(t, "r1-ieee-1", citations[0].CitationID)
	assert.Equal(t, "[1] report.pdf, p. 3.", citations[0].RenderedText)
	assert.Equal(t, "p. 3", citations[0].PageReference)
	assert.Equal(t, "[2] notes.txt.", citations[1].RenderedText)
	assert.Empty(t, citations[1].PageReference)

	// 重复渲染结果一致
	again, err := s.CitationsFor("r1", domainAttr.StyleIEEE)
	require.NoError(t, err)
	assert.Equal(t, citations, again)

	_, err = s.CitationsFor("missing", domainAttr.StyleAPA)
	assert.ErrorIs(t, err, domainAttr.ErrNotFound)

	_, err = s.CitationsFor("r1", domainAttr.CitationStyle("harvard"))
	assert.ErrorIs(t, err, domainAttr.ErrInvalidStyle)
}

func TestConfidenceForAndExport(t *testing.T) {
	s := setupService(t)
	registerTestChunk(t, s, "c1", "report.pdf", 1)
	require.NoError(t, s.RecordResponseAttribution("r1", []string{"c1"}, 0.65))

	confidence, err := s.ConfidenceFor("r1")
	require.NoError(t, err)
	assert.Equal(t, 0.65, confidence)

	_, err = s.ConfidenceFor("missing")
	assert.ErrorIs(t, err, domainAttr.ErrNotFound)

	export, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, 1, export.TotalChunks)
	assert.Equal(t, 1, export.TotalAttributions)
	assert.False(t, export.ExportedAt.IsZero())
}
