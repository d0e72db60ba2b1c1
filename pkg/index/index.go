// Package index 按内容摘要对单个分区的文件分桶。
//
// 桶内记录保持收集时的顺序，桶本身按首次出现的顺序排列，
// 因此"第一个出现的记录"在同一输入下总是同一个。
package index

import (
	"strconv"
	"strings"

	"github.com/moyu-x/dataset-dedup/internal"
)

const sizeKeyPrefix = "size:"

// SizeKey 返回被大小预过滤跳过的文件所在桶的键。
// 大小唯一的文件不可能与任何文件内容相同，它独占一个桶；
// 真实摘要是十六进制串，永远不会与该键相等。
func SizeKey(size int64) internal.Digest {
	return internal.Digest(sizeKeyPrefix + strconv.FormatInt(size, 10))
}

func IsSizeKey(key internal.Digest) bool {
	return strings.HasPrefix(string(key), sizeKeyPrefix)
}

// Index 单个分区的摘要索引。每条记录恰好属于一个桶。
type Index struct {
	partition  internal.Partition
	order      []internal.Digest
	buckets    map[internal.Digest][]internal.FileRecord
	records    int
	unreadable []internal.FileFailure
}

func New(partition internal.Partition) *Index {
	return &Index{
		partition: partition,
		buckets:   make(map[internal.Digest][]internal.FileRecord),
	}
}

// Add 将记录追加到 key 对应的桶末尾
func (i *Index) Add(key internal.Digest, record internal.FileRecord) {
	if _, ok := i.buckets[key]; !ok {
		i.order = append(i.order, key)
	}
	i.buckets[key] = append(i.buckets[key], record)
	i.records++
}

// AddFailure 记录无法读取、未进入索引的文件
func (i *Index) AddFailure(record internal.FileRecord, err error) {
	i.unreadable = append(i.unreadable, internal.FileFailure{Record: record, Reason: err.Error()})
}

func (i *Index) Partition() internal.Partition {
	return i.partition
}

// Len 返回已索引的记录数
func (i *Index) Len() int {
	return i.records
}

// Files 返回收集到的记录总数，包括无法读取的文件
func (i *Index) Files() int {
	return i.records + len(i.unreadable)
}

// Buckets 按首次出现的顺序返回所有桶的键
func (i *Index) Buckets() []internal.Digest {
	keys := make([]internal.Digest, len(i.order))
	copy(keys, i.order)
	return keys
}

func (i *Index) Get(key internal.Digest) []internal.FileRecord {
	bucket := i.buckets[key]
	out := make([]internal.FileRecord, len(bucket))
	copy(out, bucket)
	return out
}

func (i *Index) Has(key internal.Digest) bool {
	_, ok := i.buckets[key]
	return ok
}

func (i *Index) Unreadable() []internal.FileFailure {
	out := make([]internal.FileFailure, len(i.unreadable))
	copy(out, i.unreadable)
	return out
}
