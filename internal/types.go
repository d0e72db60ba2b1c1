package internal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPartitionNotFound 分区根目录不存在，整个运行在哈希之前终止
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrOverlappingPartitions 训练集与测试集是同一目录或互相嵌套
	ErrOverlappingPartitions = errors.New("train and test partitions overlap")
	// ErrFileUnreadable 单个文件无法打开或读取，从索引中排除
	ErrFileUnreadable = errors.New("file unreadable")
	// ErrDeletionFailed 单个文件删除失败，记录后继续
	ErrDeletionFailed = errors.New("deletion failed")
)

// 数据集分区
type Partition string

const (
	PartitionTrain Partition = "train"
	PartitionTest  Partition = "test"
)

func (p Partition) Valid() bool {
	return p == PartitionTrain || p == PartitionTest
}

// Digest 文件完整内容的十六进制指纹。
// 摘要相等即视为内容相同：这是一种工程上的近似，哈希碰撞的风险被视为可忽略。
type Digest string

// 文件记录，收集后不可修改
type FileRecord struct {
	Path      string    `json:"path" yaml:"path"`
	Partition Partition `json:"partition" yaml:"partition"`
	Category  string    `json:"category" yaml:"category"`
	Size      int64     `json:"size_bytes" yaml:"size_bytes"`
}

// 无法读取的文件
type FileFailure struct {
	Record FileRecord `json:"record" yaml:"record"`
	Reason string     `json:"reason" yaml:"reason"`
}

// 重复组类型
type GroupKind string

const (
	IntraPartition GroupKind = "intra"
	CrossPartition GroupKind = "cross"
)

// 重复组：所有成员摘要相同，Canonical 保留，Redundant 为待删除候选
type DuplicateGroup struct {
	Kind        GroupKind    `json:"kind" yaml:"kind"`
	Digest      Digest       `json:"digest" yaml:"digest"`
	Partitions  []Partition  `json:"partitions" yaml:"partitions"`
	Size        int64        `json:"size_bytes" yaml:"size_bytes"`
	Canonical   FileRecord   `json:"canonical" yaml:"canonical"`
	Redundant   []FileRecord `json:"redundant" yaml:"redundant"`
	// TrainCopies 跨分区组中训练集该摘要的全部记录，按出现顺序，第一个即 Canonical
	TrainCopies []FileRecord `json:"train_copies,omitempty" yaml:"train_copies,omitempty"`
}

// Members 返回全部成员，保留项在前
func (g DuplicateGroup) Members() []FileRecord {
	members := make([]FileRecord, 0, len(g.Redundant)+1)
	members = append(members, g.Canonical)
	return append(members, g.Redundant...)
}

// 单个分区的统计
type PartitionStats struct {
	Files           int   `json:"files" yaml:"files"`
	Indexed         int   `json:"indexed" yaml:"indexed"`
	Unique          int   `json:"unique" yaml:"unique"`
	Unreadable      int   `json:"unreadable" yaml:"unreadable"`
	DuplicateGroups int   `json:"duplicate_groups" yaml:"duplicate_groups"`
	DuplicateFiles  int   `json:"duplicate_files" yaml:"duplicate_files"`
	WastedBytes     int64 `json:"wasted_bytes" yaml:"wasted_bytes"`
}

// 报告统计
type ReportStats struct {
	Train           PartitionStats `json:"train" yaml:"train"`
	Test            PartitionStats `json:"test" yaml:"test"`
	CrossDuplicates int            `json:"cross_duplicates" yaml:"cross_duplicates"`
	SameNamePairs   int            `json:"same_name_pairs" yaml:"same_name_pairs"`
	Unreadable      int            `json:"unreadable" yaml:"unreadable"`
	WastedBytes     int64          `json:"wasted_bytes" yaml:"wasted_bytes"`
}

// 一次运行的重复检测报告
type Report struct {
	GeneratedAt   time.Time        `json:"generated_at,omitempty" yaml:"generated_at,omitempty"`
	TrainDir      string           `json:"train_dir,omitempty" yaml:"train_dir,omitempty"`
	TestDir       string           `json:"test_dir,omitempty" yaml:"test_dir,omitempty"`
	TrainInternal []DuplicateGroup `json:"train_internal_duplicates" yaml:"train_internal_duplicates"`
	TestInternal  []DuplicateGroup `json:"test_internal_duplicates" yaml:"test_internal_duplicates"`
	Cross         []DuplicateGroup `json:"cross_duplicates" yaml:"cross_duplicates"`
	Unreadable    []FileFailure    `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	Stats         ReportStats      `json:"statistics" yaml:"statistics"`
}

// Groups 按报告顺序返回全部重复组
func (r *Report) Groups() []DuplicateGroup {
	groups := make([]DuplicateGroup, 0, len(r.TrainInternal)+len(r.TestInternal)+len(r.Cross))
	groups = append(groups, r.TrainInternal...)
	groups = append(groups, r.TestInternal...)
	return append(groups, r.Cross...)
}

// 删除结果
type Outcome int

const (
	Pending Outcome = iota
	Removed
	AlreadyAbsent
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Removed:
		return "removed"
	case AlreadyAbsent:
		return "already_absent"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*o = Pending
	case "removed":
		*o = Removed
	case "already_absent":
		*o = AlreadyAbsent
	case "failed":
		*o = Failed
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// 单个路径的删除结果
type RemovalOutcome struct {
	Path      string    `json:"path" yaml:"path"`
	Partition Partition `json:"partition" yaml:"partition"`
	Class     string    `json:"class" yaml:"class"`
	Size      int64     `json:"size_bytes" yaml:"size_bytes"`
	Outcome   Outcome   `json:"outcome" yaml:"outcome"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// 删除汇总
type RemovalSummary struct {
	Outcomes      []RemovalOutcome `json:"outcomes" yaml:"outcomes"`
	Removed       int              `json:"removed" yaml:"removed"`
	AlreadyAbsent int              `json:"already_absent" yaml:"already_absent"`
	Failed        int              `json:"failed" yaml:"failed"`
	FreedBytes    int64            `json:"freed_bytes" yaml:"freed_bytes"`
	StartTime     time.Time        `json:"start_time" yaml:"start_time"`
	EndTime       time.Time        `json:"end_time" yaml:"end_time"`
}

// Record 记录一个删除结果并更新计数
func (s *RemovalSummary) Record(o RemovalOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Outcome {
	case Removed:
		s.Removed++
		s.FreedBytes += o.Size
	case AlreadyAbsent:
		s.AlreadyAbsent++
	case Failed:
		s.Failed++
	}
}

// 进度更新
type ProgressUpdate struct {
	Partition   Partition
	Processed   int
	Total       int
	Failed      int
	CurrentFile string
}
