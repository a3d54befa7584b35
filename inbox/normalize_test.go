package inbox

import (
	"encoding/json"
	"testing"
	"time"

	"unimail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGmailDefaults(t *testing.T) {
	n := NewNormalizer()

	t.Run("missing address fields normalize to empty strings", func(t *testing.T) {
		raw := &models.RawGmailMessage{ID: "m1"}
		got := n.NormalizeGmail(raw, 7)

		assert.Equal(t, "", got.To)
		assert.Equal(t, "", got.Cc)
		assert.Equal(t, "", got.Bcc)
		assert.Equal(t, "", got.ReplyTo)
		assert.Equal(t, uint(7), got.AccountID)
		assert.Equal(t, models.ProviderGmail, got.Provider)
	})

	t.Run("empty thread id falls back to message id", func(t *testing.T) {
		got := n.NormalizeGmail(&models.RawGmailMessage{ID: "m1"}, 1)
		assert.Equal(t, "m1", got.ThreadID)
	})

	t.Run("sender split from combined from field", func(t *testing.T) {
		raw := &models.RawGmailMessage{ID: "m1", From: "Jane Roe <jane@x.com>"}
		got := n.NormalizeGmail(raw, 1)
		assert.Equal(t, "Jane Roe", got.Sender)
		assert.Equal(t, "jane@x.com", got.SenderAddress)
	})

	t.Run("missing date yields empty display strings, no error", func(t *testing.T) {
		got := n.NormalizeGmail(&models.RawGmailMessage{ID: "m1"}, 1)
		assert.Equal(t, "", got.DateInbox)
		assert.Equal(t, "", got.DateDisplayed)
		assert.Equal(t, "", got.DateReceived)
	})

	t.Run("nil payload yields zero message", func(t *testing.T) {
		got := n.NormalizeGmail(nil, 3)
		assert.Equal(t, uint(3), got.AccountID)
		assert.Equal(t, "", got.ID)
	})
}

func TestNormalizeGmailBodySanitized(t *testing.T) {
	n := NewNormalizer()
	raw := &models.RawGmailMessage{
		ID:   "m1",
		Body: `<div onclick="steal()">hi<script>alert(1)</script></div>`,
	}
	got := n.NormalizeGmail(raw, 1)

	assert.NotContains(t, got.BodyHTML, "script")
	assert.NotContains(t, got.BodyHTML, "onclick")
	assert.Contains(t, got.BodyRaw, "script", "raw body is preserved for quoting")
}

func TestNormalizeOutlookConversationKeyPrecedence(t *testing.T) {
	n := NewNormalizer()

	cases := []struct {
		name string
		raw  models.RawOutlookMessage
		want string
	}{
		{
			name: "thread_id wins over everything",
			raw: models.RawOutlookMessage{
				ID: "id", ThreadID: "t", ConversationID: "conv",
				LegacyConversationID: "legacy", InternetMessageID: "<imid>",
			},
			want: "t",
		},
		{
			name: "conversationId next",
			raw: models.RawOutlookMessage{
				ID: "id", ConversationID: "conv",
				LegacyConversationID: "legacy", InternetMessageID: "<imid>",
			},
			want: "conv",
		},
		{
			name: "conversation_id next",
			raw:  models.RawOutlookMessage{ID: "id", LegacyConversationID: "legacy", InternetMessageID: "<imid>"},
			want: "legacy",
		},
		{
			name: "internetMessageId next",
			raw:  models.RawOutlookMessage{ID: "id", InternetMessageID: "<imid>"},
			want: "<imid>",
		},
		{
			name: "message id as last resort",
			raw:  models.RawOutlookMessage{ID: "id"},
			want: "id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := n.NormalizeOutlook(&tc.raw, 1)
			assert.Equal(t, tc.want, got.ThreadID)
		})
	}
}

func TestNormalizeOutlookRecipients(t *testing.T) {
	n := NewNormalizer()

	t.Run("structured toRecipients flattened", func(t *testing.T) {
		raw := &models.RawOutlookMessage{
			ID:           "m1",
			ToRecipients: []models.RawRecipient{recipient("Alice", "alice@x.com")},
			CcRecipients: []models.RawRecipient{recipient("", "bob@x.com")},
		}
		got := n.NormalizeOutlook(raw, 1)
		assert.Equal(t, "Alice <alice@x.com>", got.To)
		assert.Equal(t, "bob@x.com", got.Cc)
	})

	t.Run("flat email_receiver preferred when present", func(t *testing.T) {
		raw := &models.RawOutlookMessage{
			ID:           "m1",
			EmailTo:      "flat@x.com",
			ToRecipients: []models.RawRecipient{recipient("", "structured@x.com")},
		}
		got := n.NormalizeOutlook(raw, 1)
		assert.Equal(t, "flat@x.com", got.To)
	})

	t.Run("sender from structured from object", func(t *testing.T) {
		from := recipient("Carol", "carol@x.com")
		raw := &models.RawOutlookMessage{ID: "m1", From: &from}
		got := n.NormalizeOutlook(raw, 1)
		assert.Equal(t, "Carol", got.Sender)
		assert.Equal(t, "carol@x.com", got.SenderAddress)
	})
}

func TestAddressFieldBothEncodings(t *testing.T) {
	var f models.AddressField
	require.NoError(t, json.Unmarshal([]byte(`"a@x.com, b@x.com"`), &f))
	assert.Equal(t, "a@x.com, b@x.com", f.Raw)

	var g models.AddressField
	require.NoError(t, json.Unmarshal([]byte(`[{"emailAddress":{"name":"A","address":"a@x.com"}}]`), &g))
	require.Len(t, g.List, 1)
	assert.Equal(t, "a@x.com", g.List[0].EmailAddress.Address)
}

func TestFormatInboxDate(t *testing.T) {
	now := time.Date(2026, 8, 31, 16, 30, 0, 0, time.Local)

	t.Run("today shows clock", func(t *testing.T) {
		tm := time.Date(2026, 8, 31, 9, 5, 0, 0, time.Local)
		assert.Equal(t, "09:05", FormatInboxDate(tm, now))
	})

	t.Run("same year shows month and day", func(t *testing.T) {
		tm := time.Date(2026, 2, 3, 9, 5, 0, 0, time.Local)
		assert.Equal(t, "Feb 03", FormatInboxDate(tm, now))
	})

	t.Run("older shows short numeric date", func(t *testing.T) {
		tm := time.Date(2024, 12, 25, 9, 5, 0, 0, time.Local)
		assert.Equal(t, "12/25/24", FormatInboxDate(tm, now))
	})
}

func TestFormatDetailDate(t *testing.T) {
	now := time.Date(2026, 2, 7, 14, 3, 0, 0, time.Local)
	tm := time.Date(2026, 2, 5, 14, 3, 0, 0, time.Local)
	assert.Equal(t, "5 Feb 2026, 14:03 (2 days ago)", FormatDetailDate(tm, now))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		delta time.Duration
		want  string
	}{
		{2 * 365 * 24 * time.Hour, "2 years ago"},
		{40 * 24 * time.Hour, "1 month ago"},
		{48 * time.Hour, "2 days ago"},
		{90 * time.Minute, "1 hour ago"},
		{5 * time.Minute, "5 minutes ago"},
		{30 * time.Second, "30 seconds ago"},
		{0, "just now"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeAgo(now.Add(-tc.delta), now), "delta %s", tc.delta)
	}
}

func TestParseWhenLayouts(t *testing.T) {
	for _, s := range []string{
		"2026-02-05T14:03:00Z",
		"2026-02-05 14:03:00",
		"Thu, 05 Feb 2026 14:03:00 +0000",
	} {
		_, ok := parseWhen(s)
		assert.True(t, ok, "should parse %q", s)
	}
	_, ok := parseWhen("not a date")
	assert.False(t, ok)
}
