package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// LocalUploader keeps photos on local disk and hands out signed links that the
// API's image route serves.
type LocalUploader struct {
	storage *LocalStorage
	signer  *SignedURLSigner
	prefix  string
	baseURL string
}

// NewLocalUploader wires disk storage to a link signer. baseURL may be empty, in
// which case links are host-relative.
func NewLocalUploader(storage *LocalStorage, signer *SignedURLSigner, prefix, baseURL string) *LocalUploader {
	return &LocalUploader{storage: storage, signer: signer, prefix: prefix, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload writes the object and returns "<base>/images/<name>?token=...".
func (u *LocalUploader) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey(u.prefix, name)
	if _, err := u.storage.SaveStream(key, body); err != nil {
		return "", err
	}
	token, _, err := u.signer.Generate(key)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return fmt.Sprintf("%s/images/%s?token=%s", u.baseURL, url.PathEscape(name), url.QueryEscape(token)), nil
}

// Open returns the stored file for name when token grants access to it.
func (u *LocalUploader) Open(name, token string) (*os.File, error) {
	key, _, err := u.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	if key != ObjectKey(u.prefix, name) {
		return nil, fmt.Errorf("token does not grant %s", name)
	}
	return u.storage.Open(key)
}
