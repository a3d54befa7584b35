package models

// ProviderKind identifies which mail provider a message or account came from.
type ProviderKind string

const (
	ProviderGmail   ProviderKind = "gmail"
	ProviderOutlook ProviderKind = "outlook"
)

// Attachment is one file attached to a message. Inline attachments carry a
// Content-ID and are referenced from the body via cid: sources; regular
// attachments carry either a download URL or the raw payload.
type Attachment struct {
	Name          string `json:"name"`
	MimeType      string `json:"mimetype"`
	ContentID     string `json:"cid,omitempty"`
	Inline        bool   `json:"inline"`
	SourceURL     string `json:"source_url,omitempty"`
	Base64Content string `json:"content,omitempty"`
}

// Message is the canonical provider-agnostic shape every raw payload is
// normalized into. Address fields are comma-joined strings and are never
// empty-null: a missing field normalizes to "".
type Message struct {
	ID            string       `json:"id"`
	MessageID     string       `json:"message_id,omitempty"` // RFC 822 Message-Id, used for reply threading
	ThreadID      string       `json:"thread_id"`
	Sender        string       `json:"sender"` // display name, best effort
	SenderAddress string       `json:"email_sender"`
	ReplyTo       string       `json:"reply_to,omitempty"`
	To            string       `json:"email_receiver"`
	Cc            string       `json:"email_cc"`
	Bcc           string       `json:"email_bcc"`
	Subject       string       `json:"subject"`
	BodyHTML      string       `json:"body"`     // sanitized for display
	BodyRaw       string       `json:"body_raw"` // original provider HTML, kept for quoting
	DateReceived  string       `json:"date_received"` // ISO-8601, "" when the provider sent none
	DateInbox     string       `json:"date_inbox"`    // short list form: 15:04 / Jan 02 / 01/02/06
	DateDisplayed string       `json:"date_displayed"`
	IsRead        bool         `json:"is_read"`
	IsStarred     bool         `json:"is_starred_mail"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	AccountID     uint         `json:"account_id"`
	Provider      ProviderKind `json:"provider"`
}

// Pagination is scoped per (account, folder) and recomputed on every fetch.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}
