package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"log/slog"

	"github.com/docuchat/backend/internal/application/session"
	"github.com/docuchat/backend/internal/infrastructure/config"
	"github.com/docuchat/backend/internal/infrastructure/log"
)

// 编译时检查接口实现
var _ session.ResponseProducer = (*HTTPProducer)(nil)

// HTTPProducer 回答管道的 HTTP 客户端实现
// 检索与生成由上游文档问答服务完成，本进程只拿结果：
// 回答文本、支撑片段 ID 和置信度
type HTTPProducer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// answerRequest 问答请求
type answerRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Query       string `json:"query"`
}

// answerResponse 问答响应
type answerResponse struct {
	Text       string   `json:"text"`
	ChunkIDs   []string `json:"chunk_ids"`
	Confidence float64  `json:"confidence"`
}

// NewHTTPProducer 创建 HTTP 回答管道客户端
// 超时由调用方通过 ctx 控制，客户端本身不设超时
func NewHTTPProducer(cfg *config.ProducerConfig) *HTTPProducer {
	return &HTTPProducer{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		logger:     log.NewModuleLogger("producer", "http"),
	}
}

// Answer 调用上游问答服务
func (p *HTTPProducer) Answer(ctx context.Context, workspaceID, query string) (*session.ProducerResult, error) {
	reqBody, err := json.Marshal(answerRequest{
		WorkspaceID: workspaceID,
		Query:       query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/answer", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	p.logger.Debug("sending answer request",
		"workspaceID", workspaceID,
		"url", url,
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("answer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("answer service returned status %d: %s", resp.StatusCode, body)
	}

	var parsed answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode answer response: %w", err)
	}

	return &session.ProducerResult{
		Text:       parsed.Text,
		ChunkIDs:   parsed.ChunkIDs,
		Confidence: parsed.Confidence,
	}, nil
}
