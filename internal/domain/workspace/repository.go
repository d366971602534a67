package workspace

// Repository 工作区与成员仓储接口
type Repository interface {
	// SaveWorkspace 保存（插入或更新）工作区
	SaveWorkspace(ws *Workspace) error
	// FindWorkspace 按 ID 查找工作区，不存在时返回 nil
	FindWorkspace(id string) (*Workspace, error)
	// ListWorkspacesByUser 列出用户所属的全部工作区
	ListWorkspacesByUser(userID string) ([]*Workspace, error)
	// SaveMember 保存（插入或更新）成员
	SaveMember(workspaceID string, m *Member) error
	// RemoveMember 移除成员
	RemoveMember(workspaceID, userID string) error
	// FindMember 查找成员，不存在时返回 nil
	FindMember(workspaceID, userID string) (*Member, error)
	// ListMembers 列出工作区全部成员（按加入时间排序）
	ListMembers(workspaceID string) ([]*Member, error)
}

// MessageRepository 消息日志仓储接口
// 日志只追加，更新仅限表情回应与软删除标记
type MessageRepository interface {
	// Append 追加一条消息
	Append(msg *CollaborativeMessage) error
	// MaxSeq 返回工作区当前最大序号（空日志返回 0）
	MaxSeq(workspaceID string) (int64, error)
	// ListBefore 返回序号小于 beforeSeq 的最近 limit 条消息（按序号升序）
	// beforeSeq <= 0 表示从最新处读取
	ListBefore(workspaceID string, beforeSeq int64, limit int) ([]*CollaborativeMessage, error)
	// Find 按消息 ID 查找，不存在时返回 nil
	Find(messageID string) (*CollaborativeMessage, error)
	// Update 更新消息的可变部分（表情回应、软删除标记）
	Update(msg *CollaborativeMessage) error
	// Count 统计工作区消息数量
	Count(workspaceID string) (int, error)
}
