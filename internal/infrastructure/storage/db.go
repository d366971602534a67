package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/docuchat/backend/internal/infrastructure/config"
)

// DefaultDBPath 获取默认数据库路径
// Windows: %USERPROFILE%\.docuchat\docuchat.db
// macOS/Linux: ~/.docuchat/docuchat.db
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".docuchat", "docuchat.db"), nil
}

// ProvideDB 打开数据库连接并初始化表结构
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenDB 打开数据库连接
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在（内存库除外）
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 内存库的每条新连接都是独立的空库，必须固定在单连接上
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// InitSchema 初始化表结构
func InitSchema(db *sql.DB) error {
	// 工作区表
	createWorkspacesSQL := `
	CREATE TABLE IF NOT EXISTS workspaces (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		is_active INTEGER NOT NULL
	);`

	if _, err := db.Exec(createWorkspacesSQL); err != nil {
		return fmt.Errorf("failed to create workspaces table: %w", err)
	}

	// 成员表
	createMembersSQL := `
	CREATE TABLE IF NOT EXISTS workspace_members (
		workspace_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		joined_at INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL,
		PRIMARY KEY (workspace_id, user_id)
	);`

	if _, err := db.Exec(createMembersSQL); err != nil {
		return fmt.Errorf("failed to create workspace_members table: %w", err)
	}

	createMembersIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_members_user ON workspace_members(user_id);`

	if _, err := db.Exec(createMembersIndexSQL); err != nil {
		return fmt.Errorf("failed to create workspace_members index: %w", err)
	}

	// 消息日志表：(workspace_id, seq) 唯一保证追加序号不冲突
	createMessagesSQL := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		content TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		response_id TEXT,
		reactions TEXT NOT NULL,
		flagged INTEGER NOT NULL,
		UNIQUE(workspace_id, seq)
	);`

	if _, err := db.Exec(createMessagesSQL); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	createMessagesIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_messages_workspace_seq ON messages(workspace_id, seq);`

	if _, err := db.Exec(createMessagesIndexSQL); err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}

	// 片段元数据表
	createChunksSQL := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		section TEXT NOT NULL,
		extraction_method TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		character_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createChunksSQL); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	// 回答溯源表
	createAttributionsSQL := `
	CREATE TABLE IF NOT EXISTS attributions (
		response_id TEXT PRIMARY KEY,
		chunk_ids TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createAttributionsSQL); err != nil {
		return fmt.Errorf("failed to create attributions table: %w", err)
	}

	return nil
}
