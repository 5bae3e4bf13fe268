package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// InMemory signs deterministic fake grant URLs for development and tests. The
// HMAC keeps the URL shape realistic (opaque signature, expiry parameter)
// without any external dependency.
type InMemory struct {
	bucket string
	secret []byte
	now    func() time.Time
}

func NewInMemory(bucket string) *InMemory {
	return &InMemory{bucket: bucket, secret: []byte("local-dev-signer"), now: time.Now}
}

func (s *InMemory) sign(method, key string, expires time.Duration) string {
	expiresAt := s.now().Add(expires).Unix()
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", method, key, expiresAt)
	sig := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("https://storage.local/%s/%s?method=%s&expires=%d&signature=%s",
		s.bucket, url.PathEscape(key), method, expiresAt, sig)
}

func (s *InMemory) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	return s.sign("PUT", key, expires), nil
}

func (s *InMemory) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	return s.sign("GET", key, expires), nil
}

func (s *InMemory) Bucket() string { return s.bucket }
