package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"unimail/config"
	"unimail/inbox"
	"unimail/models"
	"unimail/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// gmailFolderLabels maps folder names to Gmail label ids.
var gmailFolderLabels = map[string]string{
	"inbox":   "INBOX",
	"starred": "STARRED",
	"snoozed": "SNOOZED",
	"sent":    "SENT",
	"drafts":  "DRAFT",
	"spam":    "SPAM",
	"trash":   "TRASH",
	"archive": "ARCHIVE",
}

// GmailClient talks to the Gmail-side sync gateway. Outbound mail goes up as
// a raw MIME blob, the way the Gmail API's raw-send endpoint expects it.
type GmailClient struct {
	cfg    *oauth2.Config
	base   string
	tokens TokenProvider
	log    *logrus.Entry
}

func NewGmailClient(tokens TokenProvider) *GmailClient {
	oc := config.AppConfig.Google
	return &GmailClient{
		cfg: &oauth2.Config{
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			RedirectURL:  oc.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://mail.google.com/"},
		},
		base:   oc.BaseURL,
		tokens: tokens,
		log:    logrus.WithField("provider", "gmail"),
	}
}

func (g *GmailClient) FetchAccounts(ctx context.Context) ([]models.Account, error) {
	token, err := g.tokens.Token(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := doJSON(ctx, g.cfg, token, http.MethodGet, g.base+"/accounts", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching gmail accounts: %w", err)
	}
	for i := range out.Accounts {
		out.Accounts[i].Type = models.ProviderGmail
	}
	return out.Accounts, nil
}

func (g *GmailClient) FetchMessages(ctx context.Context, accountID uint, folder string, page, pageSize int) (*inbox.MessagePage, error) {
	token, err := g.tokens.Token(ctx, accountID)
	if err != nil {
		return nil, err
	}

	label, ok := gmailFolderLabels[folder]
	if !ok {
		label = "INBOX"
	}
	q := url.Values{}
	q.Set("label", label)
	q.Set("page", fmt.Sprint(page))
	q.Set("page_size", fmt.Sprint(pageSize))
	endpoint := fmt.Sprintf("%s/accounts/%d/mails?%s", g.base, accountID, q.Encode())

	var out struct {
		Mails []models.RawGmailMessage `json:"mails"`
		Total int                      `json:"total"`
	}
	if err := doJSON(ctx, g.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching gmail %s page %d: %w", folder, page, err)
	}

	msgs := make([]models.RawMessage, 0, len(out.Mails))
	for i := range out.Mails {
		msgs = append(msgs, models.RawMessage{Kind: models.ProviderGmail, Gmail: &out.Mails[i]})
	}
	return &inbox.MessagePage{Messages: msgs, Total: out.Total}, nil
}

func (g *GmailClient) FetchThreadDetail(ctx context.Context, threadID string, accountID uint) ([]models.RawMessage, error) {
	token, err := g.tokens.Token(ctx, accountID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/accounts/%d/threads/%s", g.base, accountID, url.PathEscape(threadID))
	var out struct {
		Status string                   `json:"status"`
		Mails  []models.RawGmailMessage `json:"mails"`
	}
	if err := doJSON(ctx, g.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching gmail thread %s: %w", threadID, err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("gmail thread %s: status %q", threadID, out.Status)
	}

	msgs := make([]models.RawMessage, 0, len(out.Mails))
	for i := range out.Mails {
		msgs = append(msgs, models.RawMessage{Kind: models.ProviderGmail, Gmail: &out.Mails[i]})
	}
	return msgs, nil
}

func (g *GmailClient) FetchMessageDetail(ctx context.Context, messageID string) (*models.RawMessage, error) {
	token, err := g.tokens.Token(ctx, 0)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/mails/%s", g.base, url.PathEscape(messageID))
	var out models.RawGmailMessage
	if err := doJSON(ctx, g.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching gmail message %s: %w", messageID, err)
	}
	return &models.RawMessage{Kind: models.ProviderGmail, Gmail: &out}, nil
}

func (g *GmailClient) SendMessage(ctx context.Context, req *models.SendRequest) error {
	token, err := g.tokens.Token(ctx, req.AccountID)
	if err != nil {
		return err
	}

	mime, err := utils.BuildMIME(g.tokens.Email(req.AccountID), req)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"raw": utils.EncodeRawMessage(mime),
	}
	if req.ThreadID != "" {
		payload["thread_id"] = req.ThreadID
	}

	endpoint := fmt.Sprintf("%s/accounts/%d/send", g.base, req.AccountID)
	if err := doJSON(ctx, g.cfg, token, http.MethodPost, endpoint, payload, nil); err != nil {
		return fmt.Errorf("sending via gmail: %w", err)
	}
	g.log.WithField("account_id", req.AccountID).Info("message sent")
	return nil
}

func (g *GmailClient) SaveDraft(ctx context.Context, req *models.SendRequest) (string, error) {
	token, err := g.tokens.Token(ctx, req.AccountID)
	if err != nil {
		return "", err
	}

	mime, err := utils.BuildMIME(g.tokens.Email(req.AccountID), req)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/accounts/%d/drafts", g.base, req.AccountID)
	var out struct {
		DraftID string `json:"draft_id"`
	}
	payload := map[string]interface{}{"raw": utils.EncodeRawMessage(mime)}
	if err := doJSON(ctx, g.cfg, token, http.MethodPost, endpoint, payload, &out); err != nil {
		return "", fmt.Errorf("saving gmail draft: %w", err)
	}
	return out.DraftID, nil
}

func (g *GmailClient) SetStarState(ctx context.Context, messageID string, starred bool) error {
	token, err := g.tokens.Token(ctx, 0)
	if err != nil {
		return err
	}
	payload := map[string][]string{}
	if starred {
		payload["add_label_ids"] = []string{"STARRED"}
	} else {
		payload["remove_label_ids"] = []string{"STARRED"}
	}
	endpoint := fmt.Sprintf("%s/mails/%s/modify", g.base, url.PathEscape(messageID))
	if err := doJSON(ctx, g.cfg, token, http.MethodPost, endpoint, payload, nil); err != nil {
		return fmt.Errorf("updating gmail star for %s: %w", messageID, err)
	}
	return nil
}

func (g *GmailClient) DeleteMessage(ctx context.Context, messageID string) error {
	token, err := g.tokens.Token(ctx, 0)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/mails/%s", g.base, url.PathEscape(messageID))
	if err := doJSON(ctx, g.cfg, token, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting gmail message %s: %w", messageID, err)
	}
	return nil
}

// CheckNewMail asks whether mail arrived since the last fetch for the
// account. Only the Gmail side exposes this signal.
func (g *GmailClient) CheckNewMail(ctx context.Context, accountID uint) (bool, error) {
	token, err := g.tokens.Token(ctx, accountID)
	if err != nil {
		return false, err
	}
	endpoint := fmt.Sprintf("%s/accounts/%d/newmail", g.base, accountID)
	var out struct {
		NewMail bool `json:"new_mail"`
	}
	if err := doJSON(ctx, g.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return false, fmt.Errorf("checking new mail for account %d: %w", accountID, err)
	}
	return out.NewMail, nil
}
