package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"unimail/config"
	"unimail/inbox"
	"unimail/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// outlookFolderNames maps folder names to Graph well-known folder ids.
var outlookFolderNames = map[string]string{
	"inbox":   "inbox",
	"sent":    "sentitems",
	"drafts":  "drafts",
	"spam":    "junkemail",
	"trash":   "deleteditems",
	"archive": "archive",
}

// OutlookClient talks to the Graph-side gateway. Outbound mail is a JSON
// sendMail payload rather than raw MIME.
type OutlookClient struct {
	cfg    *oauth2.Config
	base   string
	tokens TokenProvider
	log    *logrus.Entry
}

func NewOutlookClient(tokens TokenProvider) *OutlookClient {
	oc := config.AppConfig.Microsoft
	return &OutlookClient{
		cfg: &oauth2.Config{
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			RedirectURL:  oc.RedirectURI,
			Endpoint:     microsoft.AzureADEndpoint("common"),
			Scopes:       []string{"offline_access", "Mail.ReadWrite", "Mail.Send"},
		},
		base:   oc.BaseURL,
		tokens: tokens,
		log:    logrus.WithField("provider", "outlook"),
	}
}

func (o *OutlookClient) FetchAccounts(ctx context.Context) ([]models.Account, error) {
	token, err := o.tokens.Token(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := doJSON(ctx, o.cfg, token, http.MethodGet, o.base+"/accounts", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching outlook accounts: %w", err)
	}
	for i := range out.Accounts {
		out.Accounts[i].Type = models.ProviderOutlook
	}
	return out.Accounts, nil
}

func (o *OutlookClient) FetchMessages(ctx context.Context, accountID uint, folder string, page, pageSize int) (*inbox.MessagePage, error) {
	token, err := o.tokens.Token(ctx, accountID)
	if err != nil {
		return nil, err
	}

	name, ok := outlookFolderNames[folder]
	if !ok {
		name = "inbox"
	}
	q := url.Values{}
	q.Set("$top", fmt.Sprint(pageSize))
	q.Set("$skip", fmt.Sprint((page-1)*pageSize))
	q.Set("$count", "true")
	endpoint := fmt.Sprintf("%s/accounts/%d/mailFolders/%s/messages?%s", o.base, accountID, name, q.Encode())

	var out struct {
		Value []models.RawOutlookMessage `json:"value"`
		Count int                        `json:"@odata.count"`
	}
	if err := doJSON(ctx, o.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching outlook %s page %d: %w", folder, page, err)
	}

	msgs := make([]models.RawMessage, 0, len(out.Value))
	for i := range out.Value {
		msgs = append(msgs, models.RawMessage{Kind: models.ProviderOutlook, Outlook: &out.Value[i]})
	}
	return &inbox.MessagePage{Messages: msgs, Total: out.Count}, nil
}

func (o *OutlookClient) FetchThreadDetail(ctx context.Context, threadID string, accountID uint) ([]models.RawMessage, error) {
	token, err := o.tokens.Token(ctx, accountID)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("conversationId eq '%s'", threadID))
	endpoint := fmt.Sprintf("%s/accounts/%d/messages?%s", o.base, accountID, q.Encode())

	var out struct {
		Value []models.RawOutlookMessage `json:"value"`
	}
	if err := doJSON(ctx, o.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching outlook conversation %s: %w", threadID, err)
	}

	msgs := make([]models.RawMessage, 0, len(out.Value))
	for i := range out.Value {
		msgs = append(msgs, models.RawMessage{Kind: models.ProviderOutlook, Outlook: &out.Value[i]})
	}
	return msgs, nil
}

func (o *OutlookClient) FetchMessageDetail(ctx context.Context, messageID string) (*models.RawMessage, error) {
	token, err := o.tokens.Token(ctx, 0)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/messages/%s", o.base, url.PathEscape(messageID))
	var out models.RawOutlookMessage
	if err := doJSON(ctx, o.cfg, token, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, fmt.Errorf("fetching outlook message %s: %w", messageID, err)
	}
	return &models.RawMessage{Kind: models.ProviderOutlook, Outlook: &out}, nil
}

// sendMailPayload is the Graph sendMail shape.
type sendMailPayload struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphRecipient  `json:"toRecipients"`
		CcRecipients []graphRecipient  `json:"ccRecipients,omitempty"`
		BccRecipients []graphRecipient `json:"bccRecipients,omitempty"`
		Attachments  []graphAttachment `json:"attachments,omitempty"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	ContentID    string `json:"contentId,omitempty"`
	IsInline     bool   `json:"isInline"`
}

func graphRecipients(list string) []graphRecipient {
	addrs := inbox.ParseAddressList(list)
	out := make([]graphRecipient, 0, len(addrs))
	for _, a := range addrs {
		var r graphRecipient
		r.EmailAddress.Address = a.Email
		out = append(out, r)
	}
	return out
}

func buildSendPayload(req *models.SendRequest) sendMailPayload {
	var p sendMailPayload
	p.Message.Subject = req.Subject
	p.Message.Body.ContentType = "HTML"
	p.Message.Body.Content = req.BodyHTML
	p.Message.ToRecipients = graphRecipients(req.To)
	p.Message.CcRecipients = graphRecipients(req.Cc)
	p.Message.BccRecipients = graphRecipients(req.Bcc)
	for _, a := range req.Attachments {
		p.Message.Attachments = append(p.Message.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Name,
			ContentType:  a.MimeType,
			ContentBytes: a.Base64Content,
			ContentID:    a.ContentID,
			IsInline:     a.Inline,
		})
	}
	p.SaveToSentItems = true
	return p
}

func (o *OutlookClient) SendMessage(ctx context.Context, req *models.SendRequest) error {
	token, err := o.tokens.Token(ctx, req.AccountID)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/accounts/%d/sendMail", o.base, req.AccountID)
	if err := doJSON(ctx, o.cfg, token, http.MethodPost, endpoint, buildSendPayload(req), nil); err != nil {
		return fmt.Errorf("sending via outlook: %w", err)
	}
	o.log.WithField("account_id", req.AccountID).Info("message sent")
	return nil
}

func (o *OutlookClient) SaveDraft(ctx context.Context, req *models.SendRequest) (string, error) {
	token, err := o.tokens.Token(ctx, req.AccountID)
	if err != nil {
		return "", err
	}
	payload := buildSendPayload(req).Message
	endpoint := fmt.Sprintf("%s/accounts/%d/messages", o.base, req.AccountID)
	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(ctx, o.cfg, token, http.MethodPost, endpoint, payload, &out); err != nil {
		return "", fmt.Errorf("saving outlook draft: %w", err)
	}
	return out.ID, nil
}

// SetStarState maps the star concept onto the Graph message flag.
func (o *OutlookClient) SetStarState(ctx context.Context, messageID string, starred bool) error {
	token, err := o.tokens.Token(ctx, 0)
	if err != nil {
		return err
	}
	status := "notFlagged"
	if starred {
		status = "flagged"
	}
	payload := map[string]interface{}{
		"flag": map[string]string{"flagStatus": status},
	}
	endpoint := fmt.Sprintf("%s/messages/%s", o.base, url.PathEscape(messageID))
	if err := doJSON(ctx, o.cfg, token, http.MethodPatch, endpoint, payload, nil); err != nil {
		return fmt.Errorf("updating outlook flag for %s: %w", messageID, err)
	}
	return nil
}

func (o *OutlookClient) DeleteMessage(ctx context.Context, messageID string) error {
	token, err := o.tokens.Token(ctx, 0)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/messages/%s", o.base, url.PathEscape(messageID))
	if err := doJSON(ctx, o.cfg, token, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting outlook message %s: %w", messageID, err)
	}
	return nil
}
