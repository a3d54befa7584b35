package inbox

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"unimail/models"

	"github.com/badoux/checkmail"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

const (
	// quoteMarkerClass tags the div wrapping the quoted original so the send
	// path can find the boundary between authored text and the quote. The
	// class never leaves the composer: PrepareSend strips it.
	quoteMarkerClass = "reply-quote"

	noSubjectPlaceholder = "No Subject"
)

// DraftSaver persists a draft provider-side when the composer is replaced
// while still holding content.
type DraftSaver interface {
	SaveDraft(ctx context.Context, draft models.ComposeDraft) (draftID string, err error)
}

// Composer is the single-open-draft state machine. Opening any composer while
// one is active auto-saves the active draft first (when it has content) and
// then replaces it; there is never more than one draft in flight.
type Composer struct {
	mu        sync.Mutex
	current   *models.ComposeDraft
	harvester *Harvester
	saver     DraftSaver
	log       *logrus.Entry
	nextID    func() string
}

func NewComposer(harvester *Harvester, saver DraftSaver, nextID func() string) *Composer {
	return &Composer{
		harvester: harvester,
		saver:     saver,
		log:       logrus.WithField("component", "composer"),
		nextID:    nextID,
	}
}

// Current returns the open draft, or nil when no composer is open.
func (c *Composer) Current() *models.ComposeDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// Update replaces the editable fields of the open draft with what the user
// has typed so far.
func (c *Composer) Update(draft models.ComposeDraft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != draft.ID {
		return &ValidationError{Field: "draft", Reason: "no matching open draft"}
	}
	draft.Mode = c.current.Mode
	draft.ThreadID = c.current.ThreadID
	draft.MessageID = c.current.MessageID
	draft.AccountID = c.current.AccountID
	c.current = &draft
	return nil
}

// Close discards the open draft without saving.
func (c *Composer) Close() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// OpenNew starts a blank composer.
func (c *Composer) OpenNew(ctx context.Context, accountID uint) *models.ComposeDraft {
	return c.replace(ctx, models.ComposeDraft{
		Mode:      models.ComposeNew,
		AccountID: accountID,
	})
}

// OpenReply builds a reply to source: the sender (or Reply-To) as the only
// recipient and an empty body, the caret sitting in fresh space.
func (c *Composer) OpenReply(ctx context.Context, source *models.Message, self SelfSet) *models.ComposeDraft {
	rcpt := BuildReplyRecipients(source, self, models.ComposeReply)
	return c.replace(ctx, models.ComposeDraft{
		Mode:      models.ComposeReply,
		To:        JoinAddresses(rcpt.To),
		Subject:   rePrefix(source.Subject),
		ThreadID:  source.ThreadID,
		MessageID: source.MessageID,
		AccountID: source.AccountID,
	})
}

// OpenReplyAll builds a reply-all: the full recipient resolution plus the
// quoted original behind the quote marker.
func (c *Composer) OpenReplyAll(ctx context.Context, source *models.Message, self SelfSet) *models.ComposeDraft {
	rcpt := BuildReplyRecipients(source, self, models.ComposeReplyAll)
	return c.replace(ctx, models.ComposeDraft{
		Mode:      models.ComposeReplyAll,
		To:        JoinAddresses(rcpt.To),
		Cc:        JoinAddresses(rcpt.Cc),
		Subject:   rePrefix(source.Subject),
		BodyHTML:  quoteBlock(source),
		ThreadID:  source.ThreadID,
		MessageID: source.MessageID,
		AccountID: source.AccountID,
	})
}

// OpenForward builds a forward: fresh recipients, Fwd: subject, the original
// behind a forwarded-message header, and the original's inline images
// harvested into the draft's own attachments so the forwarded body stays
// renderable after send.
func (c *Composer) OpenForward(ctx context.Context, source *models.Message) (*models.ComposeDraft, error) {
	body, harvested, err := c.harvester.Harvest(ctx, forwardBlock(source))
	if err != nil {
		return nil, err
	}
	attachments := append(harvested, nonInlineAttachments(source.Attachments)...)
	draft := c.replace(ctx, models.ComposeDraft{
		Mode:        models.ComposeForward,
		Subject:     "Fwd: " + StripSubjectPrefixes(source.Subject),
		BodyHTML:    ApplyContentIDReferences(body),
		Attachments: attachments,
		AccountID:   source.AccountID,
	})
	return draft, nil
}

// replace auto-saves whatever draft is open, then installs the new one.
func (c *Composer) replace(ctx context.Context, draft models.ComposeDraft) *models.ComposeDraft {
	c.mu.Lock()
	prev := c.current
	draft.ID = c.nextID()
	c.current = &draft
	c.mu.Unlock()

	if prev != nil && draftHasContent(prev) && c.saver != nil {
		if draftID, err := c.saver.SaveDraft(ctx, *prev); err != nil {
			c.log.WithError(err).WithField("draft_id", prev.ID).Warn("draft auto-save failed")
		} else {
			c.log.WithFields(logrus.Fields{"draft_id": prev.ID, "provider_draft_id": draftID}).Info("draft auto-saved before replace")
		}
	}

	cp := draft
	return &cp
}

func draftHasContent(d *models.ComposeDraft) bool {
	return strings.TrimSpace(d.To) != "" ||
		strings.TrimSpace(d.Subject) != "" ||
		strings.TrimSpace(stripTags(d.BodyHTML)) != "" ||
		len(d.Attachments) > 0
}

// PrepareSend validates the open draft and turns it into the outbound
// request. Validation failures return before any network work happens:
// at least one recipient field must be non-empty and every address must be
// well-formed; at least one of subject, body, attachments must be present,
// with a blank subject auto-filled when body or attachments carry the
// content. Newly pasted inline images are harvested here, content-id
// references applied, and the quote marker stripped while the quoted text
// itself is kept verbatim.
func (c *Composer) PrepareSend(ctx context.Context) (*models.SendRequest, error) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil, &ValidationError{Field: "draft", Reason: "no open draft"}
	}
	draft := *c.current
	c.mu.Unlock()

	if err := validateRecipients(draft); err != nil {
		return nil, err
	}

	body, harvested, err := c.harvester.Harvest(ctx, draft.BodyHTML)
	if err != nil {
		return nil, err
	}
	body = ApplyContentIDReferences(body)
	body = stripQuoteMarker(body)
	if draft.Mode == models.ComposeForward {
		body = CleanForwardHTML(body)
	}

	attachments := append(append([]models.Attachment(nil), draft.Attachments...), harvested...)

	if strings.TrimSpace(draft.Subject) == "" {
		if strings.TrimSpace(stripTags(body)) == "" && len(attachments) == 0 {
			return nil, &ValidationError{Field: "subject", Reason: "subject, body or attachment required"}
		}
		draft.Subject = noSubjectPlaceholder
	}

	return &models.SendRequest{
		To:             draft.To,
		Cc:             draft.Cc,
		Bcc:            draft.Bcc,
		Subject:        draft.Subject,
		BodyHTML:       body,
		ThreadID:       draft.ThreadID,
		MessageID:      draft.MessageID,
		AccountID:      draft.AccountID,
		Attachments:    attachments,
		InlineManifest: inlineManifest(attachments),
	}, nil
}

func validateRecipients(draft models.ComposeDraft) error {
	fields := []struct {
		name  string
		value string
	}{{"to", draft.To}, {"cc", draft.Cc}, {"bcc", draft.Bcc}}

	any := false
	for _, f := range fields {
		for _, addr := range ParseAddressList(f.value) {
			any = true
			if err := checkmail.ValidateFormat(addr.Email); err != nil {
				return &ValidationError{Field: f.name, Reason: fmt.Sprintf("invalid address %q", addr.Email)}
			}
		}
	}
	if !any {
		return &ValidationError{Field: "to", Reason: "at least one recipient is required"}
	}
	return nil
}

func inlineManifest(attachments []models.Attachment) []models.InlineRef {
	var refs []models.InlineRef
	for _, a := range attachments {
		if a.Inline && a.ContentID != "" {
			refs = append(refs, models.InlineRef{Name: a.Name, ContentID: a.ContentID, MimeType: a.MimeType})
		}
	}
	return refs
}

func nonInlineAttachments(attachments []models.Attachment) []models.Attachment {
	var out []models.Attachment
	for _, a := range attachments {
		if !a.Inline {
			out = append(out, a)
		}
	}
	return out
}

var subjectPrefixRe = regexp.MustCompile(`^(?i)((re|fwd?)\s*:\s*)+`)

// StripSubjectPrefixes removes every leading Re:/Fw:/Fwd: chain in one pass,
// so "Re: RE: Fwd: hello" becomes "hello".
func StripSubjectPrefixes(subject string) string {
	return strings.TrimSpace(subjectPrefixRe.ReplaceAllString(strings.TrimSpace(subject), ""))
}

// rePrefix applies a single Re: prefix, never doubling one already there.
func rePrefix(subject string) string {
	return "Re: " + StripSubjectPrefixes(subject)
}

// quoteBlock wraps the source in the attribution line and the quote marker.
// The body quoted is the raw provider HTML, not the sanitized display copy,
// so nothing the original carried is lost in the round trip.
func quoteBlock(source *models.Message) string {
	date := source.DateDisplayed
	if date == "" {
		date = source.DateReceived
	}
	name := source.Sender
	if name == "" {
		name = source.SenderAddress
	}
	body := source.BodyRaw
	if body == "" {
		body = source.BodyHTML
	}
	return fmt.Sprintf(
		`<br/><br/><div class=%q><p>On %s, %s wrote:</p><blockquote>%s</blockquote></div>`,
		quoteMarkerClass, date, name, body,
	)
}

// forwardBlock renders the fixed forwarded-message header above the source
// body.
func forwardBlock(source *models.Message) string {
	from := source.Sender
	if addr := source.SenderAddress; addr != "" {
		if from != "" {
			from = fmt.Sprintf("%s &lt;%s&gt;", from, addr)
		} else {
			from = addr
		}
	}
	date := source.DateDisplayed
	if date == "" {
		date = source.DateReceived
	}
	body := source.BodyRaw
	if body == "" {
		body = source.BodyHTML
	}
	return fmt.Sprintf(
		`<br/><br/><div><p>---------- Forwarded message ----------</p>`+
			`<p>From: %s<br/>Date: %s<br/>Subject: %s<br/>To: %s</p></div>%s`,
		from, date, source.Subject, source.To, body,
	)
}

var quoteMarkerAttrRe = regexp.MustCompile(`\s*class="` + quoteMarkerClass + `"`)

// stripQuoteMarker removes the marker class from the outbound body. The
// quoted content stays; only the composer's own boundary tag goes.
func stripQuoteMarker(body string) string {
	return quoteMarkerAttrRe.ReplaceAllString(body, "")
}

var tagRe = regexp.MustCompile(`<[^>]*>|&nbsp;`)

func stripTags(html string) string {
	return tagRe.ReplaceAllString(html, "")
}

// CleanForwardHTML tidies a forwarded body before send: empty divs that
// editors leave behind are dropped, figure wrappers around tables are
// unwrapped, and tables get an explicit collapsed border so they survive
// clients that ignore stylesheet rules.
func CleanForwardHTML(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return body
	}
	cleanForwardNode(findBody(doc))
	return renderBody(doc)
}

func cleanForwardNode(n *html.Node) {
	if n == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		cleanForwardNode(c)
		if c.Type == html.ElementNode {
			switch c.Data {
			case "div":
				if !hasRenderableContent(c) {
					n.RemoveChild(c)
				}
			case "figure":
				if table := childElement(c, "table"); table != nil {
					c.RemoveChild(table)
					n.InsertBefore(table, c)
					n.RemoveChild(c)
				}
			case "table":
				if getAttr(c, "border") == "" {
					setAttr(c, "border", "1")
				}
				style := getAttr(c, "style")
				if !strings.Contains(style, "border-collapse") {
					if style != "" && !strings.HasSuffix(strings.TrimSpace(style), ";") {
						style += ";"
					}
					setAttr(c, "style", style+"border-collapse:collapse")
				}
			}
		}
		c = next
	}
}

func hasRenderableContent(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return true
		}
	}
	return false
}

func childElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}
