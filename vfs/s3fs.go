package vfs

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3FS exposes an S3 bucket (optionally scoped to a key prefix) as a
// [FileSystem], so a script's file builtins (cat, >, ls, rm) transparently
// operate on object storage instead of a local disk. Directories are
// synthesized from key prefixes, same as every other S3-as-a-filesystem
// adapter; symlinks are not representable and return [ErrUnsupported].
type S3FS struct {
	Client *s3.Client
	Bucket string
	Prefix string
	Ctx    context.Context
}

// NewS3FS wraps an existing *s3.Client.
func NewS3FS(client *s3.Client, bucket, prefix string) *S3FS {
	return &S3FS{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/"), Ctx: context.Background()}
}

// NewS3FSFromEnv builds an [S3FS] using the ambient AWS credential chain
// (env vars, shared config, instance role) via config.LoadDefaultConfig,
// for embedders that want object storage without constructing an
// *s3.Client themselves.
func NewS3FSFromEnv(ctx context.Context, bucket, prefix string, optFns ...func(*awsconfig.LoadOptions) error) (*S3FS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	fsys := NewS3FS(s3.NewFromConfig(cfg), bucket, prefix)
	fsys.Ctx = ctx
	return fsys, nil
}

func (s *S3FS) key(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if s.Prefix == "" {
		return p
	}
	if p == "" {
		return s.Prefix
	}
	return s.Prefix + "/" + p
}

func (s *S3FS) ResolvePath(cwd, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Clean(p)
	}
	return path.Clean(path.Join(cwd, p))
}

func (s *S3FS) ReadFile(p string) (string, error) {
	b, err := s.ReadFileBuffer(p)
	return string(b), err
}

func (s *S3FS) ReadFileBuffer(p string) ([]byte, error) {
	out, err := s.Client.GetObject(s.Ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket), Key: aws.String(s.key(p)),
	})
	if err != nil {
		return nil, &PathError{Op: "open", Path: p, Err: err}
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3FS) WriteFile(p string, data []byte) error {
	_, err := s.Client.PutObject(s.Ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket), Key: aws.String(s.key(p)), Body: bytes.NewReader(data),
	})
	if err != nil {
		return &PathError{Op: "write", Path: p, Err: err}
	}
	return nil
}

func (s *S3FS) AppendFile(p string, data []byte) error {
	existing, err := s.ReadFileBuffer(p)
	if err != nil {
		existing = nil
	}
	return s.WriteFile(p, append(existing, data...))
}

func (s *S3FS) Stat(p string) (FileInfo, error) {
	head, err := s.Client.HeadObject(s.Ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket), Key: aws.String(s.key(p)),
	})
	if err != nil {
		if s.isDirPrefix(p) {
			return FileInfo{Name: path.Base(p), IsDir: true, Mode: fs.ModeDir | 0o755}, nil
		}
		return FileInfo{}, &PathError{Op: "stat", Path: p, Err: err}
	}
	var size int64
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	var mod time.Time
	if head.LastModified != nil {
		mod = *head.LastModified
	}
	return FileInfo{Name: path.Base(p), Size: size, Mode: 0o644, ModTime: mod}, nil
}

func (s *S3FS) Lstat(p string) (FileInfo, error) { return s.Stat(p) }

func (s *S3FS) isDirPrefix(p string) bool {
	prefix := s.key(p)
	if prefix != "" {
		prefix += "/"
	}
	out, err := s.Client.ListObjectsV2(s.Ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket), Prefix: aws.String(prefix), MaxKeys: aws.Int32(1),
	})
	return err == nil && len(out.Contents) > 0
}

func (s *S3FS) ReadDir(p string) ([]string, error) {
	entries, err := s.ReadDirWithFileTypes(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func (s *S3FS) ReadDirWithFileTypes(p string) ([]DirEntry, error) {
	prefix := s.key(p)
	if prefix != "" {
		prefix += "/"
	}
	var out []DirEntry
	var token *string
	for {
		resp, err := s.Client.ListObjectsV2(s.Ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket), Prefix: aws.String(prefix), Delimiter: aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, &PathError{Op: "readdir", Path: p, Err: err}
		}
		for _, cp := range resp.CommonPrefixes {
			out = append(out, DirEntry{Name: strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, prefix), "/"), IsDir: true})
		}
		for _, obj := range resp.Contents {
			name := strings.TrimPrefix(*obj.Key, prefix)
			if name == "" {
				continue
			}
			out = append(out, DirEntry{Name: name})
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		token = resp.NextContinuationToken
	}
	return out, nil
}

// Mkdir is a no-op and does not check the path: S3 has no real directories,
// and an empty "directory marker" object isn't needed for ReadDir to work
// since it derives directories from key prefixes.
func (s *S3FS) Mkdir(p string, all bool) error { return nil }

func (s *S3FS) Remove(p string, recursive bool) error {
	if !recursive {
		_, err := s.Client.DeleteObject(s.Ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.Bucket), Key: aws.String(s.key(p)),
		})
		if err != nil {
			return &PathError{Op: "remove", Path: p, Err: err}
		}
		return nil
	}
	entries, err := s.ReadDirWithFileTypes(p)
	if err != nil {
		return err
	}
	var ids []types.ObjectIdentifier
	for _, e := range entries {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(s.key(path.Join(p, e.Name)))})
	}
	if len(ids) == 0 {
		return nil
	}
	_, err = s.Client.DeleteObjects(s.Ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.Bucket), Delete: &types.Delete{Objects: ids},
	})
	if err != nil {
		return &PathError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

func (s *S3FS) Symlink(oldname, newname string) error { return &ErrUnsupported{Op: "symlink"} }
func (s *S3FS) Readlink(p string) (string, error)      { return "", &ErrUnsupported{Op: "readlink"} }

func (s *S3FS) Chmod(p string, mode fs.FileMode) error { return &ErrUnsupported{Op: "chmod"} }

func (s *S3FS) Realpath(p string) (string, error) { return s.ResolvePath("/", p), nil }

func (s *S3FS) Exists(p string) bool {
	_, err := s.Stat(p)
	return err == nil
}
