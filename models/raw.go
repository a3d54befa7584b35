package models

import "encoding/json"

// RawMessage is the tagged envelope a provider fetch yields. The variant is
// resolved once at ingestion; nothing downstream duck-types the payload.
type RawMessage struct {
	Kind    ProviderKind
	Gmail   *RawGmailMessage
	Outlook *RawOutlookMessage
}

// RawGmailMessage is the flat list shape the Gmail-side backend returns.
type RawGmailMessage struct {
	ID           string          `json:"id"`
	MessageID    string          `json:"message_id"`
	ThreadID     string          `json:"thread_id"`
	Sender       string          `json:"sender"` // display name when the backend resolved one
	From         string          `json:"from"`   // "Name <addr>" or bare address
	EmailSender  string          `json:"email_sender"`
	EmailTo      string          `json:"email_receiver"`
	EmailCc      string          `json:"email_cc"`
	EmailBcc     string          `json:"email_bcc"`
	ReplyTo      string          `json:"reply_to"`
	Subject      string          `json:"subject"`
	Body         string          `json:"body"`
	DateReceived string          `json:"date_received"`
	IsRead       bool            `json:"is_read"`
	IsStarred    bool            `json:"is_starred_mail"`
	Attachments  []RawAttachment `json:"attachments"`
}

// RawOutlookMessage is the conversation-addressed Graph-style shape. The same
// logical field shows up under several names depending on which backend route
// produced the payload, so most fields here are candidates, not certainties.
type RawOutlookMessage struct {
	ID                   string          `json:"id"`
	ThreadID             string          `json:"thread_id"`
	ConversationID       string          `json:"conversationId"`
	LegacyConversationID string          `json:"conversation_id"`
	InternetMessageID    string          `json:"internetMessageId"`
	From                 *RawRecipient   `json:"from"`
	Sender               *RawRecipient   `json:"sender"`
	SenderName           string          `json:"sender_name"`
	EmailSender          string          `json:"email_sender"`
	EmailTo              string          `json:"email_receiver"`
	EmailCc              string          `json:"email_cc"`
	EmailBcc             string          `json:"email_bcc"`
	To                   AddressField    `json:"to"`
	Cc                   AddressField    `json:"cc"`
	ToRecipients         []RawRecipient  `json:"toRecipients"`
	CcRecipients         []RawRecipient  `json:"ccRecipients"`
	ReplyTo              []RawRecipient  `json:"replyTo"`
	Subject              string          `json:"subject"`
	Body                 string          `json:"body"`
	BodyHTML             string          `json:"body_html"`
	Date                 string          `json:"date"`
	DateReceived         string          `json:"date_received"`
	ReceivedDateTime     string          `json:"receivedDateTime"`
	SentDateTime         string          `json:"sentDateTime"`
	Folder               string          `json:"folder"`
	IsRead               *bool           `json:"isRead"`
	IsReadLegacy         *bool           `json:"is_read"`
	IsStarred            bool            `json:"is_starred_mail"`
	Attachments          []RawAttachment `json:"attachments"`
}

// RawRecipient is the structured {emailAddress:{name,address}} encoding.
type RawRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

// RawAttachment is the provider-side attachment descriptor.
type RawAttachment struct {
	Name      string `json:"name"`
	MimeType  string `json:"mimetype"`
	ContentID string `json:"cid"`
	Inline    bool   `json:"inline"`
	URL       string `json:"url"`
	Content   string `json:"content"`
}

// AddressField accepts either a comma-joined string or a structured recipient
// array for the same JSON key. Some backend routes emit one, some the other.
type AddressField struct {
	Raw  string
	List []RawRecipient
}

func (f *AddressField) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &f.Raw)
	}
	return json.Unmarshal(b, &f.List)
}

func (f AddressField) MarshalJSON() ([]byte, error) {
	if f.List != nil {
		return json.Marshal(f.List)
	}
	return json.Marshal(f.Raw)
}

// IsZero reports whether neither encoding was present.
func (f AddressField) IsZero() bool {
	return f.Raw == "" && len(f.List) == 0
}
