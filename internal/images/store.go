package images

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const MaxUploadBytes = 5 << 20

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type Info struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
}

// Validate checks the client filename and size, returning the normalized
// extension and its content type.
func Validate(filename string, size int64) (ext, contentType string, err error) {
	ext = strings.ToLower(path.Ext(filename))
	ct, ok := allowedExt[ext]
	if !ok {
		return "", "", apperr.Validation("only image files are allowed (jpg, jpeg, png, gif, webp)")
	}
	if size <= 0 {
		return "", "", apperr.Validation("image is empty")
	}
	if size > MaxUploadBytes {
		return "", "", apperr.Validation("image exceeds %d MB", MaxUploadBytes>>20)
	}
	return ext, ct, nil
}

// ValidName guards object names taken from URLs.
func ValidName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := allowedExt[strings.ToLower(path.Ext(name))]
	return ok
}

type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewStore(cfg config.MinioConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Store{client: client, bucket: cfg.Bucket, publicURL: public}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

func (s *Store) Upload(ctx context.Context, filename string, r io.Reader, size int64) (Info, error) {
	ext, ct, err := Validate(filename, size)
	if err != nil {
		return Info{}, err
	}
	name := uuid.NewString() + ext
	if _, err := s.client.PutObject(ctx, s.bucket, name, r, size, minio.PutObjectOptions{ContentType: ct}); err != nil {
		return Info{}, apperr.Upstream("store image", err)
	}
	return Info{Filename: name, URL: s.url(name), Size: size}, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if !ValidName(name) {
		return apperr.Validation("invalid filename")
	}
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return apperr.NotFound("image", name)
		}
		return apperr.Upstream("stat image", err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Upstream("remove image", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Info, error) {
	// stops the listing goroutine when we return early on an error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := []Info{}
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, apperr.Upstream("list images", obj.Err)
		}
		if !ValidName(obj.Key) {
			continue
		}
		out = append(out, Info{Filename: obj.Key, URL: s.url(obj.Key), Size: obj.Size})
	}
	return out, nil
}

func (s *Store) url(name string) string { return s.publicURL + "/" + name }
