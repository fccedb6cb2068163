// Package media は画像ファイルのオブジェクトストレージへのアップロードを提供する。
package media

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// File はアップロード対象の1ファイル。
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader は画像をアップロードし、公開URLを返すインターフェース。
type Uploader interface {
	Upload(ctx context.Context, folder string, f File) (string, error)
}

// objectKey はfolder配下に衝突しないオブジェクトキーを生成する。
// 元のファイル名からは拡張子のみを引き継ぐ。
func objectKey(folder string, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+ext)
}
