package inbox

import (
	"fmt"
	"strings"
	"time"

	"unimail/models"

	"github.com/microcosm-cc/bluemonday"
)

// Normalizer converts raw provider payloads into the canonical Message
// shape. Malformed-but-present data never fails normalization; every field
// falls back to a safe zero ("" / false / empty list).
type Normalizer struct {
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		policy: bluemonday.UGCPolicy().AllowAttrs("style").OnElements("div", "span", "p", "img", "table", "td", "tr"),
		now:    time.Now,
	}
}

// Normalize dispatches on the envelope tag once; nothing downstream looks at
// provider-specific fields again.
func (n *Normalizer) Normalize(raw models.RawMessage, accountID uint) models.Message {
	switch raw.Kind {
	case models.ProviderOutlook:
		return n.NormalizeOutlook(raw.Outlook, accountID)
	default:
		return n.NormalizeGmail(raw.Gmail, accountID)
	}
}

// NormalizeGmail maps the flat Gmail-side list shape.
func (n *Normalizer) NormalizeGmail(raw *models.RawGmailMessage, accountID uint) models.Message {
	if raw == nil {
		return models.Message{AccountID: accountID, Provider: models.ProviderGmail}
	}

	senderAddr := raw.EmailSender
	if senderAddr == "" {
		senderAddr = ExtractEmail(raw.From)
	}
	sender := raw.Sender
	if sender == "" && raw.From != "" {
		sender = ExtractDisplayName(raw.From)
	}
	if sender == "" {
		sender = fallbackSenderName(senderAddr)
	}

	threadID := raw.ThreadID
	if threadID == "" {
		threadID = raw.ID
	}

	when, hasDate := parseWhen(raw.DateReceived)

	m := models.Message{
		ID:            raw.ID,
		MessageID:     raw.MessageID,
		ThreadID:      threadID,
		Sender:        sender,
		SenderAddress: senderAddr,
		ReplyTo:       raw.ReplyTo,
		To:            raw.EmailTo,
		Cc:            raw.EmailCc,
		Bcc:           raw.EmailBcc,
		Subject:       raw.Subject,
		BodyHTML:      n.policy.Sanitize(raw.Body),
		BodyRaw:       raw.Body,
		IsRead:        raw.IsRead,
		IsStarred:     raw.IsStarred,
		Attachments:   normalizeAttachments(raw.Attachments),
		AccountID:     accountID,
		Provider:      models.ProviderGmail,
	}
	n.applyDates(&m, when, hasDate)
	return m
}

// NormalizeOutlook maps the conversation-addressed Graph-style shape. The
// conversation key precedence is fixed: thread_id, conversationId,
// conversation_id, internetMessageId, then the message id itself.
func (n *Normalizer) NormalizeOutlook(raw *models.RawOutlookMessage, accountID uint) models.Message {
	if raw == nil {
		return models.Message{AccountID: accountID, Provider: models.ProviderOutlook}
	}

	threadID := firstNonEmpty(
		raw.ThreadID,
		raw.ConversationID,
		raw.LegacyConversationID,
		raw.InternetMessageID,
		raw.ID,
	)

	from := raw.From
	if from == nil {
		from = raw.Sender
	}
	senderAddr := raw.EmailSender
	senderName := raw.SenderName
	if from != nil {
		if senderAddr == "" {
			senderAddr = from.EmailAddress.Address
		}
		if senderName == "" {
			senderName = from.EmailAddress.Name
		}
	}
	if senderName == "" {
		senderName = fallbackSenderName(senderAddr)
	}

	to := firstNonEmpty(raw.EmailTo, JoinAddresses(ParseAddressField(raw.To)), JoinAddresses(ParseRecipientList(raw.ToRecipients)))
	cc := firstNonEmpty(raw.EmailCc, JoinAddresses(ParseAddressField(raw.Cc)), JoinAddresses(ParseRecipientList(raw.CcRecipients)))

	replyTo := ""
	if len(raw.ReplyTo) > 0 {
		replyTo = JoinAddresses(ParseRecipientList(raw.ReplyTo))
	}

	body := firstNonEmpty(raw.BodyHTML, raw.Body)
	when, hasDate := parseWhen(firstNonEmpty(raw.Date, raw.DateReceived, raw.ReceivedDateTime, raw.SentDateTime))

	isRead := false
	if raw.IsRead != nil {
		isRead = *raw.IsRead
	} else if raw.IsReadLegacy != nil {
		isRead = *raw.IsReadLegacy
	}

	m := models.Message{
		ID:            raw.ID,
		MessageID:     raw.InternetMessageID,
		ThreadID:      threadID,
		Sender:        senderName,
		SenderAddress: senderAddr,
		ReplyTo:       replyTo,
		To:            to,
		Cc:            cc,
		Bcc:           raw.EmailBcc,
		Subject:       raw.Subject,
		BodyHTML:      n.policy.Sanitize(body),
		BodyRaw:       body,
		IsRead:        isRead,
		IsStarred:     raw.IsStarred,
		Attachments:   normalizeAttachments(raw.Attachments),
		AccountID:     accountID,
		Provider:      models.ProviderOutlook,
	}
	n.applyDates(&m, when, hasDate)
	return m
}

func (n *Normalizer) applyDates(m *models.Message, when time.Time, hasDate bool) {
	if !hasDate {
		// no date, no display strings; never an error
		return
	}
	now := n.now()
	m.DateReceived = when.Format(time.RFC3339)
	m.DateInbox = FormatInboxDate(when, now)
	m.DateDisplayed = FormatDetailDate(when, now)
}

func normalizeAttachments(raw []models.RawAttachment) []models.Attachment {
	if len(raw) == 0 {
		return nil
	}
	out := make([]models.Attachment, 0, len(raw))
	for _, a := range raw {
		out = append(out, models.Attachment{
			Name:          a.Name,
			MimeType:      a.MimeType,
			ContentID:     a.ContentID,
			Inline:        a.Inline,
			SourceURL:     a.URL,
			Base64Content: a.Content,
		})
	}
	return out
}

func fallbackSenderName(addr string) string {
	if lp := localPart(addr); lp != "" {
		return lp
	}
	return "Unknown Sender"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var whenLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
}

func parseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range whenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatInboxDate is the short list-row form: today shows the clock, the
// current year shows month and day, anything older shows MM/DD/YY.
func FormatInboxDate(t, now time.Time) string {
	t, now = t.Local(), now.Local()
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}
	if ty == ny {
		return t.Format("Jan 02")
	}
	return t.Format("01/02/06")
}

// FormatDetailDate is the long reading-pane form, e.g.
// "5 Feb 2026, 14:03 (2 days ago)".
func FormatDetailDate(t, now time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%d %s, %s (%s)", t.Day(), t.Format("Jan 2006"), t.Format("15:04"), TimeAgo(t, now))
}

type agoUnit struct {
	name string
	secs int64
}

var agoUnits = []agoUnit{
	{"year", 365 * 24 * 3600},
	{"month", 30 * 24 * 3600},
	{"day", 24 * 3600},
	{"hour", 3600},
	{"minute", 60},
	{"second", 1},
}

// TimeAgo renders the largest nonzero bucket, pluralized past one.
func TimeAgo(t, now time.Time) string {
	diff := int64(now.Sub(t).Seconds())
	for _, u := range agoUnits {
		val := diff / u.secs
		if val != 0 {
			label := u.name
			if val > 1 || val < -1 {
				label += "s"
			}
			return fmt.Sprintf("%d %s ago", val, label)
		}
	}
	return "just now"
}
