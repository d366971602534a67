package attribution

import "time"

// ChunkMetadata 文档片段元数据
// 描述一段可检索文本的来源位置，注册后不可变更
type ChunkMetadata struct {
	// 基础标识
	ChunkID    string    `json:"chunk_id"`   // 片段 ID（唯一且不可变）
	SourceFile string    `json:"source_file"` // 原始上传文件名
	CreatedAt  time.Time `json:"created_at"`  // 注册时间

	// 位置信息
	PageNumber int    `json:"page_number,omitempty"` // 页码（0 表示未知）
	Section    string `json:"section,omitempty"`     // 章节标题

	// 提取信息（由外部摄取管道填写）
	ExtractionMethod string `json:"extraction_method,omitempty"` // 提取方式
	WordCount        int    `json:"word_count,omitempty"`        // 单词数
	CharacterCount   int    `json:"character_count,omitempty"`   // 字符数
}

// HasPage 是否包含页码信息
func (c *ChunkMetadata) HasPage() bool {
	return c.PageNumber > 0
}

// ResponseAttribution 回答溯源记录
// 将一次生成的回答与支撑它的文档片段关联起来
// 创建后只读，片段顺序即相关度排序
type ResponseAttribution struct {
	ResponseID string    `json:"response_id"` // 回答 ID
	ChunkIDs   []string  `json:"chunk_ids"`   // 片段 ID 列表（按相关度排序，不允许重复）
	Confidence float64   `json:"confidence"`  // 置信度 [0,1]，由外部回答管道给出
	CreatedAt  time.Time `json:"created_at"`  // 记录时间
}

// SameAs 判断两条溯源记录的内容是否一致
// 用于幂等写入检查：片段列表顺序与置信度都必须相同
func (a *ResponseAttribution) SameAs(other *ResponseAttribution) bool {
	if other == nil || a.ResponseID != other.ResponseID {
		return false
	}
	if a.Confidence != other.Confidence {
		return false
	}
	if len(a.ChunkIDs) != len(other.ChunkIDs) {
		return false
	}
	for i, id := range a.ChunkIDs {
		if other.ChunkIDs[i] != id {
			return false
		}
	}
	return true
}
