package inbox

import (
	"fmt"
	"regexp"
	"strings"

	"unimail/models"
)

// Address is one parsed participant.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String renders the canonical wire form, "Name <addr>" or the bare address.
func (a Address) String() string {
	if a.Name != "" && a.Email != "" {
		return a.Name + " <" + a.Email + ">"
	}
	if a.Email != "" {
		return a.Email
	}
	return a.Name
}

var angleAddrRe = regexp.MustCompile(`"?(.*?)"?\s*<([^>]+)>`)

// ParseAddressList splits a comma/semicolon-joined header value into
// addresses. Accepts "Name <addr>" items and bare addresses.
func ParseAddressList(raw string) []Address {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := splitAddressItems(raw)
	out := make([]Address, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := angleAddrRe.FindStringSubmatch(part); m != nil {
			out = append(out, Address{
				Name:  strings.TrimSpace(m[1]),
				Email: strings.TrimSpace(m[2]),
			})
			continue
		}
		out = append(out, Address{Email: part})
	}
	return out
}

// splitAddressItems splits on commas and semicolons that sit outside a
// quoted display name, so `"Doe, Jane" <j@x.com>` stays one item.
func splitAddressItems(raw string) []string {
	var items []string
	var sb strings.Builder
	inQuote := false
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
			sb.WriteRune(r)
		case (r == ',' || r == ';') && !inQuote:
			items = append(items, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	items = append(items, sb.String())
	return items
}

// ParseRecipientList converts the structured {emailAddress:{name,address}}
// encoding into addresses.
func ParseRecipientList(list []models.RawRecipient) []Address {
	out := make([]Address, 0, len(list))
	for _, r := range list {
		name := strings.TrimSpace(r.EmailAddress.Name)
		addr := strings.TrimSpace(r.EmailAddress.Address)
		if name == "" && addr == "" {
			continue
		}
		out = append(out, Address{Name: name, Email: addr})
	}
	return out
}

// ParseAddressField resolves whichever of the two encodings a flexible field
// carried.
func ParseAddressField(f models.AddressField) []Address {
	if f.Raw != "" {
		return ParseAddressList(f.Raw)
	}
	return ParseRecipientList(f.List)
}

// JoinAddresses renders an address list back to the canonical comma-joined
// wire shape.
func JoinAddresses(addrs []Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if s := a.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeEmail lowercases an address and collapses Gmail's aliasing rules:
// dots in the local part are insignificant, a +tag suffix is stripped, and
// googlemail.com is the same mailbox as gmail.com. Both a candidate and the
// stored identities must go through this before any comparison.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if domain == "googlemail.com" {
		domain = "gmail.com"
	}
	if domain == "gmail.com" {
		if plus := strings.Index(local, "+"); plus >= 0 {
			local = local[:plus]
		}
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}

// SelfSet holds the normalized identities of the signed-in user.
type SelfSet map[string]struct{}

// NewSelfSet normalizes each identity on insert.
func NewSelfSet(emails ...string) SelfSet {
	s := make(SelfSet, len(emails))
	for _, e := range emails {
		if e = NormalizeEmail(e); e != "" && e != "@" {
			s[e] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the address belongs to the user, after alias
// normalization of the candidate.
func (s SelfSet) Contains(email string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[NormalizeEmail(email)]
	return ok
}

// ExtractEmail pulls the bare address out of "Name <addr>"; a bare address
// passes through.
func ExtractEmail(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[2])
	}
	// take the first item if a list slipped in
	if i := strings.IndexAny(raw, ",;"); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw
}

// ExtractDisplayName resolves a human-readable name for one address item:
// the quoted/display name when present, otherwise the local part.
func ExtractDisplayName(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
		return localPart(m[2])
	}
	return localPart(raw)
}

func localPart(email string) string {
	email = strings.TrimSpace(email)
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// ReplyRecipients is the recipient resolution result for a reply draft.
type ReplyRecipients struct {
	To []Address
	Cc []Address
}

// BuildReplyRecipients resolves who a reply or reply-all should address.
//
// reply: the sender only, preferring the Reply-To header when present.
//
// replyAll: the source To and Cc lists, with the sender (or Reply-To)
// guaranteed a spot in To unless it is the user, every self-identity removed
// from both lists, and duplicates dropped keeping first-seen order. When
// filtering empties both lists (replying-all to your own message with no
// other participants) the original To list is used face-value, and failing
// that the sender goes into To even though it is the user.
func BuildReplyRecipients(source *models.Message, self SelfSet, mode models.ComposeMode) ReplyRecipients {
	primary := strings.TrimSpace(source.ReplyTo)
	if primary != "" {
		if addrs := ParseAddressList(primary); len(addrs) > 0 {
			primary = addrs[0].Email
		}
	}
	if primary == "" {
		primary = ExtractEmail(source.SenderAddress)
	}
	if primary == "" {
		primary = ExtractEmail(source.Sender)
	}

	if mode == models.ComposeReply {
		if primary == "" {
			return ReplyRecipients{}
		}
		return ReplyRecipients{To: []Address{{Email: primary}}}
	}

	to := ParseAddressList(source.To)
	cc := ParseAddressList(source.Cc)

	if primary != "" && !containsEmail(to, primary) && !self.Contains(primary) {
		to = append([]Address{{Email: primary}}, to...)
	}

	to = dedupeAddresses(to, self, nil)
	cc = dedupeAddresses(cc, self, to)

	if len(to) == 0 && len(cc) == 0 {
		// Self-sent with nobody else on the line: reuse the original To list
		// face-value, then fall back to the sender itself.
		to = dedupeAddresses(ParseAddressList(source.To), nil, nil)
		if len(to) == 0 && primary != "" {
			to = []Address{{Email: primary}}
		}
	}

	return ReplyRecipients{To: to, Cc: cc}
}

func containsEmail(addrs []Address, email string) bool {
	norm := NormalizeEmail(email)
	for _, a := range addrs {
		if NormalizeEmail(a.Email) == norm {
			return true
		}
	}
	return false
}

// dedupeAddresses drops self-identities, repeats, and anything already in
// exclude, preserving first-seen order.
func dedupeAddresses(addrs []Address, self SelfSet, exclude []Address) []Address {
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range exclude {
		seen[NormalizeEmail(a.Email)] = struct{}{}
	}
	var out []Address
	for _, a := range addrs {
		if a.Email == "" {
			continue
		}
		norm := NormalizeEmail(a.Email)
		if _, dup := seen[norm]; dup {
			continue
		}
		if self.Contains(a.Email) {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DisplayNames maps an address string to display names, substituting "me"
// for the user's own address when allowed.
func DisplayNames(addressList, selfEmail string, allowMe bool) []string {
	addrs := ParseAddressList(addressList)
	selfNorm := NormalizeEmail(selfEmail)
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if allowMe && selfNorm != "" && NormalizeEmail(a.Email) == selfNorm {
			out = append(out, "me")
			continue
		}
		if a.Name != "" {
			out = append(out, a.Name)
		} else {
			out = append(out, localPart(a.Email))
		}
	}
	return out
}

// SummarizeRecipients builds the short list-row participant line from the To
// and Cc strings: "me", "a, b" or "a and N others".
func SummarizeRecipients(to, cc, selfEmail string) string {
	names := append(DisplayNames(to, selfEmail, true), DisplayNames(cc, selfEmail, false)...)
	switch {
	case len(names) == 0:
		return ""
	case len(names) <= 2:
		return strings.Join(names, ", ")
	default:
		return fmt.Sprintf("%s and %d others", names[0], len(names)-1)
	}
}
