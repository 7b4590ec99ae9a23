package models

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	// MaxAttachmentSize is the per-file upload limit.
	MaxAttachmentSize int64 = 10 << 20
	// MaxAttachments caps the files one create or update request carries.
	MaxAttachments = 5
	// MaxUploadBytes bounds a whole multipart submission: every file at its
	// limit plus room for field parts and framing.
	MaxUploadBytes = MaxAttachments*MaxAttachmentSize + 1<<20
)

// AllowedExtensions are the accepted document file extensions, lowercase and without dot.
var AllowedExtensions = []string{"pdf", "jpg", "jpeg", "png", "doc", "docx"}

// Attachment is a file staged for upload but not yet persisted.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// AttachmentInfo is the metadata of a staged file, without its bytes.
type AttachmentInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

func (a Attachment) Info() AttachmentInfo {
	return AttachmentInfo{Name: a.Name, ContentType: a.ContentType, Size: a.Size}
}

// Extension returns the lowercase extension of name without its dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// CheckFile returns a message describing why a file is refused, or "" when it is accepted.
func CheckFile(name string, size int64) string {
	if strings.TrimSpace(name) == "" {
		return "file name is required"
	}
	ext := Extension(name)
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Sprintf("unsupported file type %q; allowed: %s", ext, strings.Join(AllowedExtensions, ", "))
	}
	if size > MaxAttachmentSize {
		return fmt.Sprintf("file exceeds the %dMB limit", MaxAttachmentSize>>20)
	}
	if size == 0 {
		return "file is empty"
	}
	return ""
}

// ErrFileTooLarge is returned by ReadLimited when the source exceeds the limit.
var ErrFileTooLarge = fmt.Errorf("file exceeds the %dMB limit", MaxAttachmentSize>>20)

// TooManyAttachments is the documents field error for a request or form that
// already holds MaxAttachments files.
var TooManyAttachments = fmt.Sprintf("at most %d files can be attached", MaxAttachments)

// ReadLimited reads at most max bytes from r and fails if more remain.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// NewAttachment reads r and checks the result against the file constraints.
// Files that fail the check are never returned.
func NewAttachment(name, contentType string, r io.Reader) (Attachment, error) {
	if msg := CheckFile(name, 1); msg != "" {
		return Attachment{}, NewValidationError(map[string]string{"documents": msg})
	}
	data, err := ReadLimited(r, MaxAttachmentSize)
	if err != nil {
		if err == ErrFileTooLarge {
			return Attachment{}, NewValidationError(map[string]string{"documents": err.Error()})
		}
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	if msg := CheckFile(name, int64(len(data))); msg != "" {
		return Attachment{}, NewValidationError(map[string]string{"documents": msg})
	}
	return Attachment{
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        int64(len(data)),
		Content:     data,
	}, nil
}
