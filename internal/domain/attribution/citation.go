package attribution

import "fmt"

// CitationStyle 引用格式
type CitationStyle string

// 支持的引用格式（封闭集合）
const (
	StyleAPA     CitationStyle = "apa"
	StyleMLA     CitationStyle = "mla"
	StyleChicago CitationStyle = "chicago"
	StyleIEEE    CitationStyle = "ieee"
)

// ParseCitationStyle 解析引用格式字符串
func ParseCitationStyle(s string) (CitationStyle, bool) {
	switch CitationStyle(s) {
	case StyleAPA, StyleMLA, StyleChicago, StyleIEEE:
		return CitationStyle(s), true
	}
	return "", false
}

// Citation 引用条目
// 由片段元数据加引用格式推导得到，可随时重新生成，不是权威状态
type Citation struct {
	CitationID    string        `json:"citation_id"`              // 引用 ID（由回答、格式、序号确定性推导）
	ChunkID       string        `json:"chunk_id"`                 // 片段 ID（反向引用）
	Style         CitationStyle `json:"style"`                    // 引用格式
	RenderedText  string        `json:"rendered_text"`            // 渲染后的引用文本
	PageReference string        `json:"page_reference,omitempty"` // 页码引用，如 "p. 3"
}

// RenderCitation 渲染单条引用
// 相同的 (chunk, style, rank) 输入永远产生相同的输出
// rank 从 1 开始，表示相关度排名（IEEE 格式用它做编号）
func RenderCitation(chunk *ChunkMetadata, style CitationStyle, rank int) string {
	switch style {
	case StyleAPA:
		if chunk.HasPage() {
			return fmt.Sprintf("%s. (p. %d).", chunk.SourceFile, chunk.PageNumber)
		}
		return fmt.Sprintf("%s.", chunk.SourceFile)
	case StyleMLA:
		if chunk.HasPage() {
			return fmt.Sprintf("%s, p. %d.", chunk.SourceFile, chunk.PageNumber)
		}
		return fmt.Sprintf("%s.", chunk.SourceFile)
	case StyleChicago:
		if chunk.Section != "" && chunk.HasPage() {
			return fmt.Sprintf("%s, \"%s,\" %d.", chunk.SourceFile, chunk.Section, chunk.PageNumber)
		}
		if chunk.Section != "" {
			return fmt.Sprintf("%s, \"%s.\"", chunk.SourceFile, chunk.Section)
		}
		if chunk.HasPage() {
			return fmt.Sprintf("%s, %d.", chunk.SourceFile, chunk.PageNumber)
		}
		return fmt.Sprintf("%s.", chunk.SourceFile)
	case StyleIEEE:
		if chunk.HasPage() {
			return fmt.Sprintf("[%d] %s, p. %d.", rank, chunk.SourceFile, chunk.PageNumber)
		}
		return fmt.Sprintf("[%d] %s.", rank, chunk.SourceFile)
	}
	return chunk.SourceFile
}

// PageReference 生成页码引用文本
func PageReference(chunk *ChunkMetadata) string {
	if !chunk.HasPage() {
		return ""
	}
	return fmt.Sprintf("p. %d", chunk.PageNumber)
}
