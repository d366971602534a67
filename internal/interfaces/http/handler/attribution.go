package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appAttribution "github.com/docuchat/backend/internal/application/attribution"
	domainAttr "github.com/docuchat/backend/internal/domain/attribution"
	"github.com/docuchat/backend/internal/interfaces/http/response"
)

// AttributionHandler 溯源处理器
// 摄取协作方注册片段元数据，客户端按需拉取引用渲染结果
type AttributionHandler struct {
	service *appAttribution.Service
}

// NewAttributionHandler 创建 AttributionHandler
func NewAttributionHandler(service *appAttribution.Service) *AttributionHandler {
	return &AttributionHandler{service: service}
}

// ChunkRequest 片段注册请求
type ChunkRequest struct {
	ChunkID          string `json:"chunk_id"`
	SourceFile       string `json:"source_file" binding:"required"`
	CreatedAt        string `json:"created_at"`
	PageNumber       int    `json:"page_number"`
	Section          string `json:"section"`
	ExtractionMethod string `json:"extraction_method"`
	WordCount        int    `json:"word_count"`
	CharacterCount   int    `json:"character_count"`
}

func (r *ChunkRequest) toMetadata() (*domainAttr.ChunkMetadata, error) {
	meta := &domainAttr.ChunkMetadata{
		ChunkID:          r.ChunkID,
		SourceFile:       r.SourceFile,
		PageNumber:       r.PageNumber,
		Section:          r.Section,
		ExtractionMethod: r.ExtractionMethod,
		WordCount:        r.WordCount,
		CharacterCount:   r.CharacterCount,
	}
	if r.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, r.CreatedAt)
		if err != nil {
			return nil, err
		}
		meta.CreatedAt = t
	}
	return meta, nil
}

// RegisterChunk 注册单个片段元数据
// POST /api/v1/chunks
func (h *AttributionHandler) RegisterChunk(c *gin.Context) {
	var req ChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	meta, err := req.toMetadata()
	if err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	chunkID, err := h.service.RegisterChunk(meta)
	if err != nil {
		attributionError(c, err)
		return
	}
	response.Success(c, gin.H{"chunk_id": chunkID})
}

// RegisterChunksRequest 批量片段注册请求
type RegisterChunksRequest struct {
	Chunks []ChunkRequest `json:"chunks" binding:"required"`
}

// RegisterChunks 批量注册片段元数据，任一冲突整批失败
// POST /api/v1/chunks/batch
func (h *AttributionHandler) RegisterChunks(c *gin.Context) {
	var req RegisterChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	metas := make([]*domainAttr.ChunkMetadata, 0, len(req.Chunks))
	for i := range req.Chunks {
		meta, err := req.Chunks[i].toMetadata()
		if err != nil {
			response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		metas = append(metas, meta)
	}

	chunkIDs, err := h.service.RegisterChunks(metas)
	if err != nil {
		attributionError(c, err)
		return
	}
	response.Success(c, gin.H{"chunk_ids": chunkIDs})
}

// Citations 渲染回答的引用列表
// GET /api/v1/responses/:id/citations?style=apa
func (h *AttributionHandler) Citations(c *gin.Context) {
	styleParam := c.DefaultQuery("style", string(domainAttr.StyleAPA))
	style, ok := domainAttr.ParseCitationStyle(styleParam)
	if !ok {
		attributionError(c, domainAttr.ErrInvalidStyle)
		return
	}

	citations, err := h.service.CitationsFor(c.Param("id"), style)
	if err != nil {
		attributionError(c, err)
		return
	}
	response.Success(c, citations)
}

// Confidence 回答的置信度
// GET /api/v1/responses/:id/confidence
func (h *AttributionHandler) Confidence(c *gin.Context) {
	confidence, err := h.service.ConfidenceFor(c.Param("id"))
	if err != nil {
		attributionError(c, err)
		return
	}
	response.Success(c, gin.H{"response_id": c.Param("id"), "confidence": confidence})
}

// Export 溯源数据概览
// GET /api/v1/attribution/export
func (h *AttributionHandler) Export(c *gin.Context) {
	data, err := h.service.Export()
	if err != nil {
		attributionError(c, err)
		return
	}
	response.Success(c, data)
}

// attributionError 将溯源领域错误映射为 HTTP 响应
func attributionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainAttr.ErrNotFound), errors.Is(err, domainAttr.ErrUnknownChunk):
		response.Error(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domainAttr.ErrDuplicateChunk), errors.Is(err, domainAttr.ErrAttributionConflict):
		response.Error(c, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, domainAttr.ErrInvalidConfidence), errors.Is(err, domainAttr.ErrInvalidStyle):
		response.Error(c, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
