package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"unimail/models"

	"gopkg.in/gomail.v2"
)

// BuildMIME renders an outbound send request into a full RFC 822 message.
// Inline attachments are embedded with their Content-ID headers so cid:
// references in the body resolve; everything else rides as a regular
// attachment part.
func BuildMIME(from string, req *models.SendRequest) ([]byte, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", req.To)
	if req.Cc != "" {
		m.SetHeader("Cc", req.Cc)
	}
	if req.Bcc != "" {
		m.SetHeader("Bcc", req.Bcc)
	}
	m.SetHeader("Subject", req.Subject)
	if req.MessageID != "" {
		// threads the reply under the original conversation
		m.SetHeader("In-Reply-To", req.MessageID)
		m.SetHeader("References", req.MessageID)
	}
	m.SetBody("text/html", req.BodyHTML)

	for _, a := range req.Attachments {
		payload, err := base64.StdEncoding.DecodeString(a.Base64Content)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment %q: %w", a.Name, err)
		}
		copyFn := gomail.SetCopyFunc(func(w io.Writer) error {
			_, werr := w.Write(payload)
			return werr
		})
		if a.Inline && a.ContentID != "" {
			m.Embed(a.Name, copyFn, gomail.SetHeader(map[string][]string{
				"Content-ID":   {"<" + a.ContentID + ">"},
				"Content-Type": {a.MimeType},
			}))
		} else {
			m.Attach(a.Name, copyFn)
		}
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("rendering MIME message: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeRawMessage wraps a rendered MIME message in the URL-safe base64 form
// raw-send endpoints expect.
func EncodeRawMessage(mime []byte) string {
	return base64.URLEncoding.EncodeToString(mime)
}
