package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedVideoExtensions      = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm"}
	AllowedAttachmentExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".png", ".jpg", ".jpeg", ".zip"}
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)
