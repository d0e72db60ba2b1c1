package digestcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/moyu-x/dataset-dedup/internal"
)

// Entry 一条摘要缓存，路径、算法、大小和修改时间都一致时才会命中
type Entry struct {
	Path      string
	Algorithm string
	Size      int64
	ModTime   int64
	Digest    internal.Digest
}

// Cache 跨运行复用的文件摘要缓存
type Cache struct {
	conn *sql.DB
}

// Open 打开（或创建）缓存数据库
func Open(dbPath string) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建缓存目录失败: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开缓存数据库失败: %w", err)
	}
	conn.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS file_digests (
		path TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		digest TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (path, algorithm)
	);
	`

	if _, err := conn.Exec(createTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}

	return &Cache{conn: conn}, nil
}

// Close 关闭数据库连接
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Lookup 查询缓存，文件大小或修改时间变化时视为未命中
func (c *Cache) Lookup(path, algorithm string, size, modTime int64) (internal.Digest, bool, error) {
	var digest string
	err := c.conn.QueryRow(
		"SELECT digest FROM file_digests WHERE path = ? AND algorithm = ? AND size = ? AND mod_time = ?",
		path, algorithm, size, modTime,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("查询缓存失败: %w", err)
	}
	return internal.Digest(digest), true, nil
}

// Store 在一个事务中批量写入缓存
func (c *Cache) Store(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.conn.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO file_digests (path, algorithm, size, mod_time, digest)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Path, e.Algorithm, e.Size, e.ModTime, string(e.Digest)); err != nil {
			tx.Rollback()
			return fmt.Errorf("写入缓存失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// Count 返回缓存条目数
func (c *Cache) Count() (int, error) {
	var count int
	if err := c.conn.QueryRow("SELECT COUNT(*) FROM file_digests").Scan(&count); err != nil {
		return 0, fmt.Errorf("统计缓存条目失败: %w", err)
	}
	return count, nil
}
