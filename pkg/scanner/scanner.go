package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

// filetype 只注册了 jpg，其余别名映射到已注册的扩展名
var extensionAliases = map[string]string{
	"jpeg": "jpg",
	"jpe":  "jpg",
	"tiff": "tif",
}

// ExtensionSet 识别的图片扩展名集合（小写，不带点）
type ExtensionSet map[string]struct{}

// NewExtensionSet 校验扩展名并构建集合，每个扩展名都必须对应 image/* 类型
func NewExtensionSet(exts []string) (ExtensionSet, error) {
	if len(exts) == 0 {
		return nil, fmt.Errorf("扩展名列表不能为空")
	}

	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}

		lookup := ext
		if alias, ok := extensionAliases[ext]; ok {
			lookup = alias
		}

		kind := filetype.GetType(lookup)
		if kind == filetype.Unknown {
			return nil, fmt.Errorf("无法识别的扩展名: %s", ext)
		}
		if kind.MIME.Type != "image" {
			return nil, fmt.Errorf("扩展名 %s 不是图片类型 (%s)", ext, kind.MIME.Value)
		}

		set[ext] = struct{}{}
	}

	return set, nil
}

// Match 判断文件名是否带有识别的扩展名
func (s ExtensionSet) Match(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s[ext]
	return ok
}

// Collector 枚举分区内每个类别目录下的图片文件
type Collector struct {
	Fs         afero.Fs
	Categories []string
	Extensions ExtensionSet
}

func NewCollector(fs afero.Fs, categories []string, extensions []string) (*Collector, error) {
	categories = uniqueCategories(categories)
	if len(categories) == 0 {
		return nil, fmt.Errorf("类别列表不能为空")
	}

	set, err := NewExtensionSet(extensions)
	if err != nil {
		return nil, err
	}

	return &Collector{
		Fs:         fs,
		Categories: categories,
		Extensions: set,
	}, nil
}

// 重复的类别会让同一文件被收集两次，只保留第一次出现
func uniqueCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	unique := make([]string, 0, len(categories))
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		category = filepath.Clean(category)
		if seen[category] {
			logger.Get().Warn().Msgf("类别重复，已忽略: %s", category)
			continue
		}
		seen[category] = true
		unique = append(unique, category)
	}
	return unique
}

// Collect 按固定的类别顺序收集分区中的文件记录。
// 类别目录内使用目录列表顺序（按文件名排序），同一次运行中结果稳定。
// 类别目录不存在时跳过；分区根目录不存在时返回 ErrPartitionNotFound。
func (c *Collector) Collect(root string, partition internal.Partition) ([]internal.FileRecord, error) {
	if !partition.Valid() {
		return nil, fmt.Errorf("未知的分区: %q", partition)
	}

	info, err := c.Fs.Stat(root)
	if err != nil || !info.IsDir() {
		logger.Get().Error().Msgf("分区目录不存在: %s (%s)", root, partition)
		return nil, fmt.Errorf("%w: %s (%s)", internal.ErrPartitionNotFound, root, partition)
	}

	logger.Get().Info().Msgf("开始收集分区文件: %s (%s)", root, partition)

	var records []internal.FileRecord
	for _, category := range c.Categories {
		dir := filepath.Join(root, category)

		exists, err := afero.DirExists(c.Fs, dir)
		if err != nil || !exists {
			logger.Get().Debug().Msgf("类别目录不存在，跳过: %s", dir)
			continue
		}

		entries, err := afero.ReadDir(c.Fs, dir)
		if err != nil {
			logger.Get().Warn().Err(err).Msgf("读取类别目录失败，跳过: %s", dir)
			continue
		}

		count := 0
		for _, entry := range entries {
			if entry.IsDir() || !c.Extensions.Match(entry.Name()) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if entry.Mode()&os.ModeSymlink != 0 {
				target, err := c.Fs.Stat(path)
				if err != nil || target.IsDir() {
					logger.Get().Debug().Msgf("跳过无效的符号链接: %s", path)
					continue
				}
				entry = target
			}

			records = append(records, internal.FileRecord{
				Path:      path,
				Partition: partition,
				Category:  category,
				Size:      entry.Size(),
			})
			count++
		}

		logger.Get().Debug().Msgf("类别 %s: %d 个文件", category, count)
	}

	logger.Get().Info().Msgf("分区 %s 收集完成，共 %d 个文件", partition, len(records))
	return records, nil
}
