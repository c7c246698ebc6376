package utils

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FileEntry ZIP 文件条目
type FileEntry struct {
	Name     string
	Data     json.RawMessage
	Modified time.Time
}

// JSONEntry 把任意值序列化为带缩进的 JSON 条目
func JSONEntry(name string, v any, modified time.Time) (FileEntry, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return FileEntry{}, fmt.Errorf("序列化 %s 失败: %w", name, err)
	}
	return FileEntry{Name: name, Data: data, Modified: modified}, nil
}

// CreateZip 创建 ZIP 压缩包
func CreateZip(entries []FileEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, entry := range entries {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: entry.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("创建ZIP条目 %s 失败: %w", entry.Name, err)
		}
		if _, err := f.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("写入ZIP条目 %s 失败: %w", entry.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("关闭ZIP文件失败: %w", err)
	}

	return buf.Bytes(), nil
}
