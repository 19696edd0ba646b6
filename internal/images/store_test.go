package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		size     int64
		wantExt  string
		wantErr  bool
	}{
		{"jpeg", "photo.JPG", 1024, ".jpg", false},
		{"webp", "x.webp", MaxUploadBytes, ".webp", false},
		{"pdf rejected", "doc.pdf", 10, "", true},
		{"no extension", "README", 10, "", true},
		{"too large", "big.png", MaxUploadBytes + 1, "", true},
		{"empty", "e.gif", 0, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext, _, err := Validate(tc.filename, tc.size)
			if tc.wantErr {
				if !errors.Is(err, apperr.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil || ext != tc.wantExt {
				t.Fatalf("got %q, %v", ext, err)
			}
		})
	}
}

func TestValidName(t *testing.T) {
	for name, want := range map[string]bool{
		"0b6f.png":       true,
		"../secret.png":  false,
		"a/b.png":        false,
		".hidden.png":    false,
		"notes.txt":      false,
		"":               false,
		"UPPER.JPEG":     true,
		`dir\evil.jpg`:   false,
	} {
		if got := ValidName(name); got != want {
			t.Fatalf("%q: got %v want %v", name, got, want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	s, err := NewStore(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "product-images", AccessKey: "k", SecretKey: "s"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := s.url("a.png"); got != "http://localhost:9000/product-images/a.png" {
		t.Fatalf("got %s", got)
	}

	s, err = NewStore(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b", PublicURL: "https://cdn.example.com/img/"})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := s.url("a.png"); got != "https://cdn.example.com/img/a.png" {
		t.Fatalf("got %s", got)
	}
}

const listXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>product-images</Name><Prefix></Prefix><KeyCount>2</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>
<Contents><Key>a.png</Key><Size>12</Size></Contents>
<Contents><Key>notes.txt</Key><Size>3</Size></Contents>
</ListBucketResult>`

const deniedXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied.</Message><BucketName>product-images</BucketName></Error>`

// s3Stub answers bucket location lookups and serves body for everything else.
func s3Stub(t *testing.T, status int, body string) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		if _, ok := r.URL.Query()["location"]; ok {
			_, _ = w.Write([]byte(`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	s, err := NewStore(config.MinioConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "k",
		SecretKey: "s",
		Bucket:    "product-images",
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestListSkipsForeignObjects(t *testing.T) {
	s := s3Stub(t, http.StatusOK, listXML)
	got, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Filename != "a.png" || got[0].Size != 12 {
		t.Fatalf("got %+v", got)
	}
}

func TestListBackendError(t *testing.T) {
	s := s3Stub(t, http.StatusForbidden, deniedXML)
	if _, err := s.List(context.Background()); !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
