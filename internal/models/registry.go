package models

import (
	"context"
	"sync"
	"time"
)

const defaultAttachmentLinkTTL = time.Hour

// AttachmentSigner turns a stored object key into a temporary download link.
type AttachmentSigner interface {
	GetSignedURL(ctx context.Context, path string, duration time.Duration) (string, error)
}

var (
	signerMu         sync.RWMutex
	attachmentSigner AttachmentSigner
	attachmentTTL    = defaultAttachmentLinkTTL
)

// RegisterAttachmentSigner enables signed links on loaded research items.
// A zero ttl keeps the one hour default; a nil signer disables signing.
func RegisterAttachmentSigner(signer AttachmentSigner, ttl time.Duration) {
	signerMu.Lock()
	defer signerMu.Unlock()
	attachmentSigner = signer
	if ttl > 0 {
		attachmentTTL = ttl
	} else {
		attachmentTTL = defaultAttachmentLinkTTL
	}
}

func signAttachment(ctx context.Context, key string) (string, bool, error) {
	signerMu.RLock()
	signer, ttl := attachmentSigner, attachmentTTL
	signerMu.RUnlock()

	if signer == nil || key == "" {
		return "", false, nil
	}
	url, err := signer.GetSignedURL(ctx, key, ttl)
	return url, err == nil, err
}
