package handlers

import (
	"context"
	"sync"
	"time"
)

// AttachmentStorage stores research item attachments.
type AttachmentStorage interface {
	UploadAttachment(ctx context.Context, itemID uint64, body []byte, filename, contentType string) (string, error)
	GetSignedURL(ctx context.Context, key string, duration time.Duration) (string, error)
}

// LoginThrottle limits login attempts per handle.
type LoginThrottle interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

var (
	attachmentStorage AttachmentStorage
	handlerMu         sync.RWMutex
)

// RegisterAttachmentStorage sets the storage used by the upload handler
func RegisterAttachmentStorage(s AttachmentStorage) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	attachmentStorage = s
}

// GetAttachmentStorage returns the registered storage, nil when uploads are disabled
func GetAttachmentStorage() AttachmentStorage {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return attachmentStorage
}
