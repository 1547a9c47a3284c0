package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachmentKind(t *testing.T) {
	cases := map[string]AttachmentKind{
		"image/png":                 KindImage,
		"IMAGE/JPEG":                KindImage,
		"video/mp4":                 KindVideo,
		"application/pdf":           KindPDF,
		"application/pdf; qs=0.001": KindPDF,
		"application/zip":           KindFile,
		"text/plain; charset=utf-8": KindFile,
		"":                          KindFile,
	}

	for mime, want := range cases {
		assert.Equal(t, want, Attachment{MimeType: mime}.Kind(), mime)
	}
}
