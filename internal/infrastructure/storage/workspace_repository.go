package storage

import (
	"database/sql"
	"fmt"
	"time"

	domainWorkspace "github.com/docuchat/backend/internal/domain/workspace"
)

// 确保 WorkspaceRepositoryImpl 实现了 domainWorkspace.Repository 接口
var _ domainWorkspace.Repository = (*WorkspaceRepositoryImpl)(nil)

// WorkspaceRepositoryImpl 工作区仓储实现
type WorkspaceRepositoryImpl struct {
	db *sql.DB
}

// NewWorkspaceRepository 创建工作区仓储实例
func NewWorkspaceRepository(db *sql.DB) domainWorkspace.Repository {
	return &WorkspaceRepositoryImpl{db: db}
}

// SaveWorkspace 保存工作区
func (r *WorkspaceRepositoryImpl) SaveWorkspace(ws *domainWorkspace.Workspace) error {
	isActive := 0
	if ws.IsActive {
		isActive = 1
	}

	query := `
		INSERT OR REPLACE INTO workspaces (id, name, description, owner_id, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, ws.ID, ws.Name, ws.Description, ws.OwnerID, ws.CreatedAt.UnixNano(), isActive)
	return err
}

// FindWorkspace 按 ID 查找工作区
func (r *WorkspaceRepositoryImpl) FindWorkspace(id string) (*domainWorkspace.Workspace, error) {
	query := `SELECT id, name, description, owner_id, created_at, is_active FROM workspaces WHERE id = ?`

	ws, err := scanWorkspace(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ws, err
}

// ListWorkspacesByUser 列出用户所属的全部工作区
func (r *WorkspaceRepositoryImpl) ListWorkspacesByUser(userID string) ([]*domainWorkspace.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.description, w.owner_id, w.created_at, w.is_active
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.created_at`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domainWorkspace.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ws)
	}
	return result, rows.Err()
}

// SaveMember 保存成员
func (r *WorkspaceRepositoryImpl) SaveMember(workspaceID string, m *domainWorkspace.Member) error {
	query := `
		INSERT OR REPLACE INTO workspace_members (workspace_id, user_id, username, role, joined_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, workspaceID, m.UserID, m.Username, string(m.Role), m.JoinedAt.UnixNano(), m.LastActiveAt.UnixNano())
	return err
}

// RemoveMember 移除成员
func (r *WorkspaceRepositoryImpl) RemoveMember(workspaceID, userID string) error {
	_, err := r.db.Exec(`DELETE FROM workspace_members WHERE workspace_id = ? AND user_id = ?`, workspaceID, userID)
	return err
}

// FindMember 查找成员
func (r *WorkspaceRepositoryImpl) FindMember(workspaceID, userID string) (*domainWorkspace.Member, error) {
	query := `
		SELECT user_id, username, role, joined_at, last_active_at
		FROM workspace_members WHERE workspace_id = ? AND user_id = ?`

	m, err := scanMember(r.db.QueryRow(query, workspaceID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMembers 列出工作区全部成员
func (r *WorkspaceRepositoryImpl) ListMembers(workspaceID string) ([]*domainWorkspace.Member, error) {
	query := `
		SELECT user_id, username, role, joined_at, last_active_at
		FROM workspace_members WHERE workspace_id = ?
		ORDER BY joined_at`

	rows, err := r.db.Query(query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domainWorkspace.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// rowScanner 兼容 *sql.Row 和 *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (*domainWorkspace.Workspace, error) {
	var ws domainWorkspace.Workspace
	var createdAt int64
	var isActive int

	if err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &createdAt, &isActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan workspace row: %w", err)
	}

	ws.CreatedAt = time.Unix(0, createdAt).UTC()
	ws.IsActive = isActive == 1
	return &ws, nil
}

func scanMember(row rowScanner) (*domainWorkspace.Member, error) {
	var m domainWorkspace.Member
	var role string
	var joinedAt, lastActiveAt int64

	if err := row.Scan(&m.UserID, &m.Username, &role, &joinedAt, &lastActiveAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan member row: %w", err)
	}

	m.Role = domainWorkspace.Role(role)
	m.JoinedAt = time.Unix(0, joinedAt).UTC()
	m.LastActiveAt = time.Unix(0, lastActiveAt).UTC()
	return &m, nil
}
