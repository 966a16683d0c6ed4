// Package storage 管理生成文件的输出目录
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"plc-agent-api/internal/config"
	"plc-agent-api/pkg/tracer"
)

var storageTracer = otel.Tracer("storage")

var (
	// ErrInvalidName 文件名为空或包含路径
	ErrInvalidName = errors.New("invalid file name")
	// ErrNotFound 文件不存在
	ErrNotFound = errors.New("file not found")
)

// FileInfo 输出文件信息
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// OutputStore 输出目录，只允许访问目录下的一级文件
type OutputStore struct {
	dir string
}

// NewOutputStore 创建输出目录
func NewOutputStore(cfg *config.Config) (*OutputStore, error) {
	return NewOutputStoreAt(cfg.Agent.OutputDir)
}

// NewOutputStoreAt 在指定目录创建
func NewOutputStoreAt(dir string) (*OutputStore, error) {
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &OutputStore{dir: dir}, nil
}

// Dir 输出目录路径
func (s *OutputStore) Dir() string {
	return s.dir
}

// ValidateName 校验文件名不含路径穿越
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}

// Save 写入文件并返回完整路径，先写临时文件再重命名
func (s *OutputStore) Save(ctx context.Context, name, content string) (path string, err error) {
	_, span := storageTracer.Start(ctx, "storage.Save")
	span.SetAttributes(attribute.String("file.name", name), attribute.Int("file.size", len(content)))
	defer func() { tracer.End(span, err) }()

	if err := ValidateName(name); err != nil {
		return "", err
	}
	path = filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to rename file: %w", err)
	}
	return path, nil
}

// List 按修改时间倒序列出文件
func (s *OutputStore) List(ctx context.Context) ([]FileInfo, error) {
	_, span := storageTracer.Start(ctx, "storage.List")
	defer span.End()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read output dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Read 读取文件内容
func (s *OutputStore) Read(ctx context.Context, name string) (string, error) {
	_, span := storageTracer.Start(ctx, "storage.Read")
	defer span.End()

	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}
