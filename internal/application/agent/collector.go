package agent

import (
	"context"
	"sync"
)

type fileCollectorKey struct{}

// FileCollector 记录一次提交中工具写出的文件
type FileCollector struct {
	mu    sync.Mutex
	names []string
}

// WithFileCollector 在 context 中挂载收集器
func WithFileCollector(ctx context.Context) (context.Context, *FileCollector) {
	fc := &FileCollector{}
	return context.WithValue(ctx, fileCollectorKey{}, fc), fc
}

// RecordFile 记录文件名，context 中没有收集器时忽略
func RecordFile(ctx context.Context, name string) {
	fc, ok := ctx.Value(fileCollectorKey{}).(*FileCollector)
	if !ok {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for _, n := range fc.names {
		if n == name {
			return
		}
	}
	fc.names = append(fc.names, name)
}

// Files 已记录的文件名
func (fc *FileCollector) Files() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.names...)
}
