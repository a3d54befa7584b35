package models

// ComposeMode is the state of the single open composer.
type ComposeMode string

const (
	ComposeNew      ComposeMode = "new"
	ComposeReply    ComposeMode = "reply"
	ComposeReplyAll ComposeMode = "reply_all"
	ComposeForward  ComposeMode = "forward"
)

// ComposeDraft is the one in-flight draft. Attachment staging lives here, not
// in any shared scratch state, and is dropped when the draft closes.
type ComposeDraft struct {
	ID          string       `json:"id"`
	Mode        ComposeMode  `json:"mode"`
	To          string       `json:"to"`
	Cc          string       `json:"cc"`
	Bcc         string       `json:"bcc"`
	Subject     string       `json:"subject"`
	BodyHTML    string       `json:"body_html"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty"`
	MessageID   string       `json:"message_id,omitempty"` // RFC 822 id of the message being answered
	AccountID   uint         `json:"account_id"`
	DraftID     string       `json:"draft_id,omitempty"` // provider-side id once auto-saved
}

// InlineRef maps an uploaded attachment name back to the Content-ID its body
// reference uses, so the provider can set the right MIME headers.
type InlineRef struct {
	Name      string `json:"name"`
	ContentID string `json:"cid"`
	MimeType  string `json:"mimetype"`
}

// SendRequest is the validated outbound payload handed to a provider client.
// Recipient presence is a cross-field rule (any of to/cc/bcc suffices), so it
// is enforced by the composer rather than a per-field tag here.
type SendRequest struct {
	To             string       `json:"to"`
	Cc             string       `json:"cc"`
	Bcc            string       `json:"bcc"`
	Subject        string       `json:"subject"`
	BodyHTML       string       `json:"body_html"`
	ThreadID       string       `json:"thread_id,omitempty"`
	MessageID      string       `json:"message_id,omitempty"`
	AccountID      uint         `json:"account_id" validate:"required"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	InlineManifest []InlineRef  `json:"inline_manifest,omitempty"`
}
