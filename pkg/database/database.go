// Package database 保存每次运行的检测报告和删除结果，供 runs 命令查询。
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

var ErrRunNotFound = errors.New("run not found")

// Run 一次检测运行
type Run struct {
	ID              string    `gorm:"primaryKey;size:36"`
	CreatedAt       time.Time `gorm:"not null;index"`
	TrainDir        string
	TestDir         string
	TrainFiles      int
	TestFiles       int
	TrainGroups     int
	TestGroups      int
	CrossDuplicates int
	Unreadable      int
	WastedBytes     int64
	Groups          []Group   `gorm:"constraint:OnDelete:CASCADE"`
	Removals        []Removal `gorm:"constraint:OnDelete:CASCADE"`
}

func (Run) TableName() string {
	return "runs"
}

// Group 一个重复组，冗余路径以换行分隔
type Group struct {
	ID        int64  `gorm:"primaryKey"`
	RunID     string `gorm:"size:36;not null;index"`
	Position  int    `gorm:"not null"`
	Kind      string `gorm:"not null"`
	Digest    string `gorm:"not null;index"`
	Size      int64
	Canonical string `gorm:"not null"`
	Redundant string
}

func (Group) TableName() string {
	return "duplicate_groups"
}

// Removal 一条删除结果
type Removal struct {
	ID        int64  `gorm:"primaryKey"`
	RunID     string `gorm:"size:36;not null;index"`
	Path      string `gorm:"not null"`
	Partition string
	Class     string
	Size      int64
	Outcome   string `gorm:"not null"`
	Reason    string
	CreatedAt time.Time
}

func (Removal) TableName() string {
	return "removals"
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	expandedPath, err := ExpandPath(dbPath)
	if err != nil {
		logger.Get().Error().Err(err).Msg("扩展数据库路径失败")
		return nil, err
	}

	logger.Get().Debug().Msgf("打开报告数据库: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		logger.Get().Error().Err(err).Msgf("创建数据库目录失败: %s", filepath.Dir(expandedPath))
		return nil, err
	}

	dsn := expandedPath + "?_journal_mode=WAL&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Get().Error().Err(err).Msg("打开数据库连接失败")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&Run{}, &Group{}, &Removal{}); err != nil {
		logger.Get().Error().Err(err).Msg("创建数据库表失败")
		return nil, err
	}

	return &Database{db: db}, nil
}

// ExpandPath 展开开头的 ~/
func ExpandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// SaveReport 保存报告，返回新生成的运行 ID
func (d *Database) SaveReport(report *internal.Report) (string, error) {
	run := Run{
		ID:              uuid.NewString(),
		CreatedAt:       report.GeneratedAt,
		TrainDir:        report.TrainDir,
		TestDir:         report.TestDir,
		TrainFiles:      report.Stats.Train.Files,
		TestFiles:       report.Stats.Test.Files,
		TrainGroups:     report.Stats.Train.DuplicateGroups,
		TestGroups:      report.Stats.Test.DuplicateGroups,
		CrossDuplicates: report.Stats.CrossDuplicates,
		Unreadable:      report.Stats.Unreadable,
		WastedBytes:     report.Stats.WastedBytes,
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	var groups []Group
	for i, g := range report.Groups() {
		paths := make([]string, len(g.Redundant))
		for j, r := range g.Redundant {
			paths[j] = r.Path
		}
		groups = append(groups, Group{
			RunID:     run.ID,
			Position:  i,
			Kind:      string(g.Kind),
			Digest:    string(g.Digest),
			Size:      g.Size,
			Canonical: g.Canonical.Path,
			Redundant: strings.Join(paths, "\n"),
		})
	}

	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(groups) == 0 {
			return nil
		}
		return tx.CreateInBatches(groups, 500).Error
	})
	if err != nil {
		logger.Get().Error().Err(err).Msg("保存报告失败")
		return "", fmt.Errorf("保存报告失败: %w", err)
	}

	logger.Get().Info().Msgf("💾 报告已保存，运行 ID: %s (%d 个重复组)", run.ID, len(groups))
	return run.ID, nil
}

// SaveRemoval 把删除结果关联到指定运行
func (d *Database) SaveRemoval(runID string, summary *internal.RemovalSummary) error {
	if len(summary.Outcomes) == 0 {
		return nil
	}
	if _, err := d.GetRun(runID); err != nil {
		return err
	}

	rows := make([]Removal, len(summary.Outcomes))
	for i, o := range summary.Outcomes {
		rows[i] = Removal{
			RunID:     runID,
			Path:      o.Path,
			Partition: string(o.Partition),
			Class:     o.Class,
			Size:      o.Size,
			Outcome:   o.Outcome.String(),
			Reason:    o.Reason,
			CreatedAt: summary.EndTime,
		}
	}

	if err := d.db.CreateInBatches(rows, 500).Error; err != nil {
		logger.Get().Error().Err(err).Msgf("保存删除结果失败: %s", runID)
		return fmt.Errorf("保存删除结果失败: %w", err)
	}
	logger.Get().Debug().Msgf("保存删除结果: %s (%d 条)", runID, len(rows))
	return nil
}

func (d *Database) GetRun(runID string) (*Run, error) {
	var run Run
	err := d.db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询运行失败: %w", err)
	}
	return &run, nil
}

// ListRuns 按时间倒序返回最近的运行，limit <= 0 表示不限制
func (d *Database) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	query := d.db.Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询运行列表失败: %w", err)
	}
	return runs, nil
}

// LoadGroups 按报告顺序返回某次运行的重复组
func (d *Database) LoadGroups(runID string) ([]Group, error) {
	var groups []Group
	if err := d.db.Where("run_id = ?", runID).Order("position").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("查询重复组失败: %w", err)
	}
	return groups, nil
}

func (d *Database) LoadRemovals(runID string) ([]Removal, error) {
	var removals []Removal
	if err := d.db.Where("run_id = ?", runID).Order("id").Find(&removals).Error; err != nil {
		return nil, fmt.Errorf("查询删除结果失败: %w", err)
	}
	return removals, nil
}

// RedundantPaths 拆分组内的冗余路径
func (g Group) RedundantPaths() []string {
	if g.Redundant == "" {
		return nil
	}
	return strings.Split(g.Redundant, "\n")
}

func (d *Database) Close() error {
	logger.Get().Debug().Msg("关闭数据库连接")
	sqlDB, err := d.db.DB()
	if err != nil {
		logger.Get().Error().Err(err).Msg("获取数据库连接失败")
		return err
	}
	return sqlDB.Close()
}
