package domain

import "strings"

// AttachmentKind file-type family used to pick a preview
type AttachmentKind string

const (
	// KindImage image/*
	KindImage AttachmentKind = "image"
	// KindVideo video/*
	KindVideo AttachmentKind = "video"
	// KindPDF application/pdf
	KindPDF AttachmentKind = "pdf"
	// KindFile anything else, download only
	KindFile AttachmentKind = "file"
)

// Attachment describes one uploaded file. It is a value: messages hold copies.
type Attachment struct {
	FileName string `bson:"file_name" json:"file_name"`
	FilePath string `bson:"file_path" json:"file_path"`
	MimeType string `bson:"mime_type" json:"mime_type"`
	FileSize int64  `bson:"file_size" json:"file_size"`
}

// Kind maps the MIME type to its family. Parameters such as "; charset" are ignored.
func (a Attachment) Kind() AttachmentKind {
	mt := strings.ToLower(strings.TrimSpace(a.MimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	case mt == "application/pdf":
		return KindPDF
	default:
		return KindFile
	}
}

func cloneAttachments(src []Attachment) []Attachment {
	if src == nil {
		return nil
	}
	dst := make([]Attachment, len(src))
	copy(dst, src)
	return dst
}
