package attachment

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sumano/oms/core"
)

// File categories, derived from content type.
const (
	CategoryImage        = "image"
	CategoryDocument     = "document"
	CategorySpreadsheet  = "spreadsheet"
	CategoryPresentation = "presentation"
	CategoryArchive      = "archive"
	CategoryOther        = "other"
)

// Entities attachments may be linked to.
const (
	EntityProject       = "project"
	EntityChangeRequest = "change_request"
	EntityHandover      = "handover"
	EntityIntake        = "intake"
	EntityDocument      = "document"
)

var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".csv": true, ".md": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".webp": true,
	".zip": true, ".tar": true, ".gz": true,
}

// blockedExtensions are rejected even if an allowlist entry were ever added
// for them; executables never belong in client uploads.
var blockedExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true,
	".scr": true, ".pif": true, ".vbs": true, ".js": true,
}

type Attachment struct {
	ID            string    `json:"id"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	FileName      string    `json:"file_name"`
	StoragePath   string    `json:"-"`
	ContentType   string    `json:"content_type"`
	Category      string    `json:"category"`
	SizeBytes     int64     `json:"size_bytes"`
	Checksum      string    `json:"checksum"`
	Description   string    `json:"description,omitempty"`
	UploadedByID  string    `json:"uploaded_by_id"`
	DownloadCount int       `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Categorize maps a content type to a broad file category.
func Categorize(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return CategoryImage
	case ct == "application/vnd.ms-excel",
		ct == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		ct == "text/csv":
		return CategorySpreadsheet
	case ct == "application/vnd.ms-powerpoint",
		ct == "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		ct == "application/vnd.oasis.opendocument.presentation":
		return CategoryPresentation
	case ct == "application/pdf",
		ct == "application/msword",
		ct == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		strings.HasPrefix(ct, "text/"):
		return CategoryDocument
	case ct == "application/zip",
		ct == "application/x-tar",
		ct == "application/gzip",
		ct == "application/x-gzip":
		return CategoryArchive
	default:
		return CategoryOther
	}
}

// ValidateFile checks a file name and size against the upload policy.
func ValidateFile(fileName string, size int64) error {
	var fieldErrs []core.FieldError

	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case ext == "":
		fieldErrs = append(fieldErrs, core.FieldError{Field: "file", Error: "file has no extension"})
	case blockedExtensions[ext]:
		fieldErrs = append(fieldErrs, core.FieldError{
			Field: "file", Error: fmt.Sprintf("executable files are not allowed (%s)", ext),
		})
	case !allowedExtensions[ext]:
		fieldErrs = append(fieldErrs, core.FieldError{
			Field: "file", Error: fmt.Sprintf("file type not allowed (%s)", ext),
		})
	}

	if size <= 0 {
		fieldErrs = append(fieldErrs, core.FieldError{Field: "file", Error: "file is empty"})
	} else if size > core.Conf.MaxFileSize {
		fieldErrs = append(fieldErrs, core.FieldError{
			Field: "file", Error: fmt.Sprintf("file exceeds the maximum size of %dMB", core.Conf.MaxFileSize>>20),
		})
	}

	if len(fieldErrs) > 0 {
		return core.NewValidationError(nil, fieldErrs...)
	}
	return nil
}

// NewAttachment describes an upload. Content is validated separately by
// ValidateFile before the bytes are accepted.
type NewAttachment struct {
	EntityType  string `json:"entity_type" form:"entity_type" validate:"required,oneof=project change_request handover intake document"`
	EntityID    string `json:"entity_id" form:"entity_id" validate:"required,uuid4"`
	Description string `json:"description" form:"description"`
}

func (na *NewAttachment) Validate() error {
	na.EntityType = core.CleanString(na.EntityType, true /* lower */)
	return core.Validate.Struct(na)
}

type QueryFilter struct {
	EntityType   string `query:"entity_type"`
	EntityID     string `query:"entity_id"`
	Category     string `query:"category"`
	UploadedByID string `query:"uploaded_by"`
}

// Statistics aggregates stored attachment counts and sizes.
type Statistics struct {
	Total      int            `json:"total"`
	TotalBytes int64          `json:"total_bytes"`
	ByCategory map[string]int `json:"by_category"`
}
