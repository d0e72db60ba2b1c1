package internal

const (
	// 报告数据库默认路径
	DefaultDatabasePath = "~/.dataset-dedup/reports.db"

	// 缓冲区大小
	DefaultBufferSize = 1000

	// 默认并发哈希工作线程数
	DefaultWorkers = 8

	// 读取文件时的分块大小
	ChunkSize = 64 * 1024

	// 每处理多少个文件输出一次进度
	ProgressInterval = 1000

	// 默认哈希算法
	DefaultAlgorithm = "xxhash"
)

// DefaultCategories 数据集默认的类别子目录
var DefaultCategories = []string{"angry", "disgusted", "fearful", "happy", "neutral", "sad", "surprised"}

// DefaultExtensions 默认识别的图片扩展名
var DefaultExtensions = []string{"jpg", "jpeg", "png"}
