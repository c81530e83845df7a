// Package packager 把文档版本文件打包成zip下载
package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/bitfantasy/phase/internal/edms/entity"
)

// Format 打包哪些文件
type Format string

const (
	FormatNative   Format = "native"
	FormatRendered Format = "rendered"
	FormatBoth     Format = "both"
)

// Revisions 打包哪些版本
type Revisions string

const (
	RevisionsLatest Revisions = "latest"
	RevisionsAll    Revisions = "all"
)

var (
	ErrInvalidFormat    = errors.New("invalid download format")
	ErrInvalidRevisions = errors.New("invalid revision selector")
)

// ParseFormat 空值为 both，pdf 等同 rendered
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatBoth):
		return FormatBoth, nil
	case string(FormatNative):
		return FormatNative, nil
	case "pdf", string(FormatRendered):
		return FormatRendered, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// ParseRevisions 空值为 latest
func ParseRevisions(s string) (Revisions, error) {
	switch s {
	case "", string(RevisionsLatest):
		return RevisionsLatest, nil
	case string(RevisionsAll):
		return RevisionsAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRevisions, s)
}

// Options 打包选项
type Options struct {
	Format    Format
	Revisions Revisions
}

// FileSource 读取已存储的文件
type FileSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Failure 打包时跳过的文件
type Failure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Archive 打包结果。读取位置在开头，Size 即可读取的总字节数
type Archive struct {
	*bytes.Reader
	Size     int64
	Files    []string
	Failures []Failure
}

// Packager zip打包器
type Packager struct {
	source   FileSource
	compress bool
	logger   *zap.Logger
}

// New 创建打包器，compress=false 时以 Store 方式写入
func New(source FileSource, compress bool, logger *zap.Logger) *Packager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Packager{source: source, compress: compress, logger: logger}
}

// SelectFiles 按选项列出要打包的文件，没有版本的文档直接跳过
func SelectFiles(docs []entity.Document, opts Options) []string {
	var files []string
	for _, doc := range docs {
		var revs []entity.DocumentRevision
		switch opts.Revisions {
		case RevisionsAll:
			revs = entity.SortRevisions(doc.Revisions)
		default:
			if latest := doc.LatestRevision(); latest != nil {
				revs = []entity.DocumentRevision{*latest}
			}
		}

		for _, rev := range revs {
			if opts.Format == FormatNative || opts.Format == FormatBoth {
				if rev.NativeFile != "" {
					files = append(files, rev.NativeFile)
				}
			}
			if opts.Format == FormatRendered || opts.Format == FormatBoth {
				if rev.PDFFile != "" {
					files = append(files, rev.PDFFile)
				}
			}
		}
	}
	return files
}

// Package 打包文档文件。单个文件读取失败只记录到 Failures，不中断打包
//
// 同名文件不去重，两个条目都会写入，解压时后写入的覆盖先写入的。
func (p *Packager) Package(ctx context.Context, docs []entity.Document, opts Options) (*Archive, error) {
	method := zip.Store
	if p.compress {
		method = zip.Deflate
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	archive := &Archive{}

	for _, key := range SelectFiles(docs, opts) {
		if err := p.add(ctx, zw, key, method); err != nil {
			p.logger.Warn("skip file in archive", zap.String("file", key), zap.Error(err))
			archive.Failures = append(archive.Failures, Failure{Path: key, Err: err.Error()})
			continue
		}
		archive.Files = append(archive.Files, path.Base(key))
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	data := buf.Bytes()
	archive.Reader = bytes.NewReader(data)
	archive.Size = int64(len(data))
	return archive, nil
}

func (p *Packager) add(ctx context.Context, zw *zip.Writer, key string, method uint16) error {
	rc, err := p.source.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	// 读完再建条目，失败的文件不会留下半截条目
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     path.Base(key),
		Method:   method,
		Modified: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}
