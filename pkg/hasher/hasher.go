package hasher

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/dataset-dedup/internal"
	"github.com/moyu-x/dataset-dedup/pkg/logger"
)

// 哈希算法
type Algorithm string

const (
	XXHash Algorithm = "xxhash"
	SHA256 Algorithm = "sha256"
	MD5    Algorithm = "md5"
)

func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", XXHash, "xxh64":
		return XXHash, nil
	case SHA256:
		return SHA256, nil
	case MD5:
		return MD5, nil
	default:
		return "", fmt.Errorf("不支持的哈希算法: %s", name)
	}
}

func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case MD5:
		return md5.New()
	default:
		return xxhash.New()
	}
}

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, internal.ChunkSize)
		return &buf
	},
}

// Calculate 分块读取文件并计算内容摘要，不会把整个文件载入内存
func Calculate(fs afero.Fs, path string, algo Algorithm) (internal.Digest, error) {
	logger.Get().Trace().Msgf("计算文件哈希: %s", path)

	file, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", internal.ErrFileUnreadable, err)
	}
	defer file.Close()

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)

	h := algo.New()
	// 包一层去掉 WriterTo，保证按固定大小的缓冲区读取
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{file}, *bufPtr); err != nil {
		return "", fmt.Errorf("%w: %w", internal.ErrFileUnreadable, err)
	}

	digest := internal.Digest(hex.EncodeToString(h.Sum(nil)))
	logger.Get().Trace().Msgf("文件哈希计算完成: %s -> %s", path, digest)
	return digest, nil
}

// Probe 只打开再关闭文件，用于确认跳过哈希的文件仍然可读
func Probe(fs afero.Fs, path string) error {
	file, err := fs.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", internal.ErrFileUnreadable, err)
	}
	return file.Close()
}

// Sum 计算内存数据的摘要
func Sum(data []byte, algo Algorithm) internal.Digest {
	h := algo.New()
	h.Write(data)
	return internal.Digest(hex.EncodeToString(h.Sum(nil)))
}
