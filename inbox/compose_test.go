package inbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"unimail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSaver struct {
	saved   []models.ComposeDraft
	draftID string
	err     error
}

func (s *stubSaver) SaveDraft(_ context.Context, draft models.ComposeDraft) (string, error) {
	s.saved = append(s.saved, draft)
	return s.draftID, s.err
}

func testComposer(saver DraftSaver) *Composer {
	seq := 0
	return NewComposer(testHarvester(&stubFetcher{payload: []byte("img"), mime: "image/png"}), saver, func() string {
		seq++
		return fmt.Sprintf("draft-%d", seq)
	})
}

func sourceMessage() *models.Message {
	return &models.Message{
		ID:            "m1",
		MessageID:     "<orig@x.com>",
		ThreadID:      "t1",
		Sender:        "Bob",
		SenderAddress: "bob@x.com",
		To:            "me@x.com",
		Cc:            "carol@x.com",
		Subject:       "Quarterly numbers",
		BodyRaw:       "<p>the numbers</p>",
		BodyHTML:      "<p>the numbers</p>",
		DateDisplayed: "5 Feb 2026, 14:03 (2 days ago)",
		AccountID:     1,
	}
}

func TestStripSubjectPrefixes(t *testing.T) {
	cases := map[string]string{
		"Re: hello":            "hello",
		"RE: FWD: Fwd: hello":  "hello",
		"Fw: hello":            "hello",
		"hello":                "hello",
		"Regarding the budget": "Regarding the budget",
		"  Re:  spaced  ":      "spaced",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripSubjectPrefixes(in), "input %q", in)
	}
}

func TestOpenReply(t *testing.T) {
	c := testComposer(&stubSaver{})
	draft := c.OpenReply(context.Background(), sourceMessage(), NewSelfSet("me@x.com"))

	assert.Equal(t, models.ComposeReply, draft.Mode)
	assert.Equal(t, "bob@x.com", draft.To)
	assert.Equal(t, "", draft.Cc)
	assert.Equal(t, "Re: Quarterly numbers", draft.Subject)
	assert.Equal(t, "", draft.BodyHTML, "reply opens with an empty body")
	assert.Equal(t, "t1", draft.ThreadID)
	assert.Equal(t, "<orig@x.com>", draft.MessageID)
}

func TestOpenReplySubjectPrefixIdempotent(t *testing.T) {
	src := sourceMessage()
	src.Subject = "Re: Quarterly numbers"

	c := testComposer(&stubSaver{})
	draft := c.OpenReply(context.Background(), src, nil)
	assert.Equal(t, "Re: Quarterly numbers", draft.Subject, "never double-prefixed")
}

func TestOpenReplyAll(t *testing.T) {
	c := testComposer(&stubSaver{})
	draft := c.OpenReplyAll(context.Background(), sourceMessage(), NewSelfSet("me@x.com"))

	assert.Equal(t, models.ComposeReplyAll, draft.Mode)
	assert.Equal(t, "bob@x.com", draft.To)
	assert.Equal(t, "carol@x.com", draft.Cc)
	assert.Contains(t, draft.BodyHTML, `class="reply-quote"`)
	assert.Contains(t, draft.BodyHTML, "On 5 Feb 2026, 14:03 (2 days ago), Bob wrote:")
	assert.Contains(t, draft.BodyHTML, "<p>the numbers</p>")
}

func TestOpenForwardHarvestsInlineImages(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	src := sourceMessage()
	src.BodyRaw = fmt.Sprintf(`<p>see attached</p><img src="data:image/png;base64,%s">`, payload)

	c := testComposer(&stubSaver{})
	draft, err := c.OpenForward(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "Fwd: Quarterly numbers", draft.Subject)
	assert.Contains(t, draft.BodyHTML, "---------- Forwarded message ----------")
	assert.NotContains(t, draft.BodyHTML, `src="data:image/png`, "visible source rewritten away from data URI")
	assert.Contains(t, draft.BodyHTML, `src="cid:`)

	require.Len(t, draft.Attachments, 1)
	assert.True(t, draft.Attachments[0].Inline)
}

func TestOpenForwardStripsStackedPrefixes(t *testing.T) {
	src := sourceMessage()
	src.Subject = "Re: Fwd: Quarterly numbers"

	c := testComposer(&stubSaver{})
	draft, err := c.OpenForward(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Fwd: Quarterly numbers", draft.Subject)
}

func TestOpenSecondComposerAutoSavesFirst(t *testing.T) {
	saver := &stubSaver{draftID: "prov-1"}
	c := testComposer(saver)

	first := c.OpenReply(context.Background(), sourceMessage(), nil)
	require.NoError(t, c.Update(models.ComposeDraft{
		ID:       first.ID,
		To:       first.To,
		Subject:  first.Subject,
		BodyHTML: "<p>half-written</p>",
	}))

	c.OpenNew(context.Background(), 1)

	require.Len(t, saver.saved, 1, "open draft with content auto-saves before replace")
	assert.Equal(t, "<p>half-written</p>", saver.saved[0].BodyHTML)
	assert.Equal(t, models.ComposeNew, c.Current().Mode)
}

func TestOpenSecondComposerSkipsEmptyDraft(t *testing.T) {
	saver := &stubSaver{}
	c := testComposer(saver)

	c.OpenNew(context.Background(), 1)
	c.OpenNew(context.Background(), 1)

	assert.Empty(t, saver.saved, "an untouched draft is discarded, not saved")
}

func TestPrepareSendValidation(t *testing.T) {
	t.Run("no recipients fails before any network work", func(t *testing.T) {
		c := testComposer(&stubSaver{})
		c.OpenNew(context.Background(), 1)

		_, err := c.PrepareSend(context.Background())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "to", verr.Field)
	})

	t.Run("malformed address fails", func(t *testing.T) {
		c := testComposer(&stubSaver{})
		draft := c.OpenNew(context.Background(), 1)
		require.NoError(t, c.Update(models.ComposeDraft{ID: draft.ID, To: "not-an-address", Subject: "hi"}))

		_, err := c.PrepareSend(context.Background())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("no subject, body or attachment fails", func(t *testing.T) {
		c := testComposer(&stubSaver{})
		draft := c.OpenNew(context.Background(), 1)
		require.NoError(t, c.Update(models.ComposeDraft{ID: draft.ID, To: "a@x.com"}))

		_, err := c.PrepareSend(context.Background())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "subject", verr.Field)
	})

	t.Run("blank subject auto-fills when body present", func(t *testing.T) {
		c := testComposer(&stubSaver{})
		draft := c.OpenNew(context.Background(), 1)
		require.NoError(t, c.Update(models.ComposeDraft{ID: draft.ID, To: "a@x.com", BodyHTML: "<p>content</p>"}))

		req, err := c.PrepareSend(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "No Subject", req.Subject)
	})

	t.Run("no open draft", func(t *testing.T) {
		c := testComposer(&stubSaver{})
		_, err := c.PrepareSend(context.Background())
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestPrepareSendKeepsQuoteStripsMarker(t *testing.T) {
	c := testComposer(&stubSaver{})
	draft := c.OpenReplyAll(context.Background(), sourceMessage(), NewSelfSet("me@x.com"))
	require.NoError(t, c.Update(models.ComposeDraft{
		ID:       draft.ID,
		To:       draft.To,
		Cc:       draft.Cc,
		Subject:  draft.Subject,
		BodyHTML: "<p>my answer</p>" + draft.BodyHTML,
	}))

	req, err := c.PrepareSend(context.Background())
	require.NoError(t, err)

	assert.Contains(t, req.BodyHTML, "<p>my answer</p>")
	assert.Contains(t, req.BodyHTML, "<p>the numbers</p>", "quoted original sent verbatim")
	assert.NotContains(t, req.BodyHTML, "reply-quote", "marker class never leaves the composer")
}

func TestPrepareSendBuildsInlineManifest(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	c := testComposer(&stubSaver{})
	draft := c.OpenNew(context.Background(), 1)
	require.NoError(t, c.Update(models.ComposeDraft{
		ID:       draft.ID,
		To:       "a@x.com",
		Subject:  "pics",
		BodyHTML: fmt.Sprintf(`<img src="data:image/png;base64,%s">`, payload),
	}))

	req, err := c.PrepareSend(context.Background())
	require.NoError(t, err)

	require.Len(t, req.Attachments, 1)
	require.Len(t, req.InlineManifest, 1)
	assert.Equal(t, req.Attachments[0].ContentID, req.InlineManifest[0].ContentID)
	assert.Equal(t, req.Attachments[0].Name, req.InlineManifest[0].Name)
	assert.Contains(t, req.BodyHTML, "cid:"+req.InlineManifest[0].ContentID)
}

func TestCleanForwardHTML(t *testing.T) {
	in := `<div></div><figure><table><tbody><tr><td>x</td></tr></tbody></table></figure><p>keep</p>`
	out := CleanForwardHTML(in)

	assert.NotContains(t, out, "<figure>", "figure wrapper unwrapped")
	assert.NotContains(t, out, "<div></div>", "empty div dropped")
	assert.Contains(t, out, `border="1"`)
	assert.Contains(t, out, "border-collapse:collapse")
	assert.Contains(t, out, "<p>keep</p>")
}
