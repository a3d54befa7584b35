package inbox

import (
	"testing"

	"unimail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddressList(t *testing.T) {
	t.Run("angle form with display name", func(t *testing.T) {
		got := ParseAddressList(`John Doe <john@example.com>`)
		require.Len(t, got, 1)
		assert.Equal(t, "John Doe", got[0].Name)
		assert.Equal(t, "john@example.com", got[0].Email)
	})

	t.Run("bare addresses joined by commas and semicolons", func(t *testing.T) {
		got := ParseAddressList("a@x.com, b@x.com; c@x.com")
		require.Len(t, got, 3)
		assert.Equal(t, "a@x.com", got[0].Email)
		assert.Equal(t, "b@x.com", got[1].Email)
		assert.Equal(t, "c@x.com", got[2].Email)
	})

	t.Run("quoted display name containing a comma stays one item", func(t *testing.T) {
		got := ParseAddressList(`"Doe, Jane" <jane@x.com>, bob@x.com`)
		require.Len(t, got, 2)
		assert.Equal(t, "Doe, Jane", got[0].Name)
		assert.Equal(t, "jane@x.com", got[0].Email)
		assert.Equal(t, "bob@x.com", got[1].Email)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, ParseAddressList(""))
		assert.Nil(t, ParseAddressList("   "))
	})
}

func TestParseRecipientList(t *testing.T) {
	list := []models.RawRecipient{
		recipient("Alice", "alice@x.com"),
		recipient("", "bob@x.com"),
		recipient("", ""),
	}
	got := ParseRecipientList(list)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "bob@x.com", got[1].Email)
}

func recipient(name, addr string) models.RawRecipient {
	var r models.RawRecipient
	r.EmailAddress.Name = name
	r.EmailAddress.Address = addr
	return r
}

func TestJoinAddresses(t *testing.T) {
	addrs := []Address{
		{Name: "Alice", Email: "alice@x.com"},
		{Email: "bob@x.com"},
	}
	assert.Equal(t, "Alice <alice@x.com>, bob@x.com", JoinAddresses(addrs))
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"User+promo@Gmail.com":      "user@gmail.com",
		"u.s.e.r@gmail.com":         "user@gmail.com",
		"user@googlemail.com":       "user@gmail.com",
		"User.Name+tag@outlook.com": "user.name+tag@outlook.com", // non-gmail keeps dots and tags
		"no-at-sign":                "no-at-sign",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeEmail(in), "input %q", in)
	}
}

func TestSelfSetContains(t *testing.T) {
	self := NewSelfSet("user@gmail.com")

	assert.True(t, self.Contains("User+promo@gmail.com"))
	assert.True(t, self.Contains("u.ser@googlemail.com"))
	assert.False(t, self.Contains("other@gmail.com"))
	assert.False(t, SelfSet(nil).Contains("user@gmail.com"))
}

func TestBuildReplyRecipientsReply(t *testing.T) {
	t.Run("prefers reply-to over sender", func(t *testing.T) {
		src := &models.Message{
			SenderAddress: "sender@x.com",
			ReplyTo:       "list@x.com",
		}
		got := BuildReplyRecipients(src, nil, models.ComposeReply)
		require.Len(t, got.To, 1)
		assert.Equal(t, "list@x.com", got.To[0].Email)
		assert.Empty(t, got.Cc)
	})

	t.Run("falls back to sender address", func(t *testing.T) {
		src := &models.Message{SenderAddress: "Bob <bob@x.com>"}
		got := BuildReplyRecipients(src, nil, models.ComposeReply)
		require.Len(t, got.To, 1)
		assert.Equal(t, "bob@x.com", got.To[0].Email)
	})
}

func TestBuildReplyRecipientsReplyAll(t *testing.T) {
	t.Run("sender prepended and self removed", func(t *testing.T) {
		// raw message {to: "", cc: "a@x.com, me@x.com", from: "b@x.com"}
		src := &models.Message{
			SenderAddress: "b@x.com",
			To:            "",
			Cc:            "a@x.com, me@x.com",
		}
		self := NewSelfSet("me@x.com")

		got := BuildReplyRecipients(src, self, models.ComposeReplyAll)
		require.Len(t, got.To, 1)
		assert.Equal(t, "b@x.com", got.To[0].Email)
		require.Len(t, got.Cc, 1)
		assert.Equal(t, "a@x.com", got.Cc[0].Email)
	})

	t.Run("cc excludes addresses already in to", func(t *testing.T) {
		src := &models.Message{
			SenderAddress: "b@x.com",
			To:            "a@x.com",
			Cc:            "a@x.com, c@x.com",
		}
		got := BuildReplyRecipients(src, nil, models.ComposeReplyAll)
		assert.Equal(t, []string{"b@x.com", "a@x.com"}, emails(got.To))
		assert.Equal(t, []string{"c@x.com"}, emails(got.Cc))
	})

	t.Run("duplicates dropped preserving first-seen order", func(t *testing.T) {
		src := &models.Message{
			SenderAddress: "b@x.com",
			To:            "b@x.com, a@x.com, a@x.com",
		}
		got := BuildReplyRecipients(src, nil, models.ComposeReplyAll)
		assert.Equal(t, []string{"b@x.com", "a@x.com"}, emails(got.To))
	})

	t.Run("self-sent with no other participants falls back to original to", func(t *testing.T) {
		src := &models.Message{
			SenderAddress: "me@x.com",
			To:            "me@x.com",
			Cc:            "me@x.com",
		}
		self := NewSelfSet("me@x.com")

		got := BuildReplyRecipients(src, self, models.ComposeReplyAll)
		require.NotEmpty(t, got.To, "reply-all to own message must not yield zero recipients")
		assert.Equal(t, "me@x.com", got.To[0].Email)
	})

	t.Run("self-sent with empty to falls back to sender", func(t *testing.T) {
		src := &models.Message{SenderAddress: "me@x.com"}
		self := NewSelfSet("me@x.com")

		got := BuildReplyRecipients(src, self, models.ComposeReplyAll)
		require.Len(t, got.To, 1)
		assert.Equal(t, "me@x.com", got.To[0].Email)
	})
}

func emails(addrs []Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Email)
	}
	return out
}

func TestExtractEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", ExtractEmail("Alice <a@x.com>"))
	assert.Equal(t, "a@x.com", ExtractEmail("a@x.com"))
	assert.Equal(t, "a@x.com", ExtractEmail("a@x.com, b@x.com"))
}

func TestExtractDisplayName(t *testing.T) {
	assert.Equal(t, "Alice", ExtractDisplayName("Alice <a@x.com>"))
	assert.Equal(t, "a", ExtractDisplayName("<a@x.com>"))
	assert.Equal(t, "bob", ExtractDisplayName("bob@x.com"))
}

func TestDisplayNames(t *testing.T) {
	got := DisplayNames("Alice <a@x.com>, me@x.com, bob@x.com", "me@x.com", true)
	assert.Equal(t, []string{"Alice", "me", "bob"}, got)
}

func TestDisplayNamesNoMeSubstitution(t *testing.T) {
	got := DisplayNames("me@x.com", "me@x.com", false)
	require.Len(t, got, 1)
	assert.Equal(t, "me", got[0]) // local part happens to be "me"
}

func TestSummarizeRecipients(t *testing.T) {
	assert.Equal(t, "", SummarizeRecipients("", "", "me@x.com"))
	assert.Equal(t, "me", SummarizeRecipients("me@x.com", "", "me@x.com"))
	assert.Equal(t, "alice, bob", SummarizeRecipients("alice@x.com, bob@x.com", "", ""))
	assert.Equal(t, "alice and 2 others", SummarizeRecipients("alice@x.com, bob@x.com", "carol@x.com", ""))
	assert.Equal(t, "me and 3 others", SummarizeRecipients("me@x.com, a@x.com, b@x.com", "c@x.com", "me@x.com"))
}
