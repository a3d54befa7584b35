package inbox

import (
	"context"
	"fmt"
	"sync"

	"unimail/models"
	"unimail/utils"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// MessagePage is one fetched page of raw payloads plus the folder total the
// provider reported.
type MessagePage struct {
	Messages []models.RawMessage
	Total    int
}

// StarFlagStore mirrors star state locally so list rows render the right
// icon before the next provider fetch confirms it.
type StarFlagStore interface {
	Set(accountID uint, messageID string, starred bool) error
}

// Mailbox is what the service needs from a provider client.
type Mailbox interface {
	FetchAccounts(ctx context.Context) ([]models.Account, error)
	FetchMessages(ctx context.Context, accountID uint, folder string, page, pageSize int) (*MessagePage, error)
	FetchThreadDetail(ctx context.Context, threadID string, accountID uint) ([]models.RawMessage, error)
	FetchMessageDetail(ctx context.Context, messageID string) (*models.RawMessage, error)
	SendMessage(ctx context.Context, req *models.SendRequest) error
	SaveDraft(ctx context.Context, req *models.SendRequest) (string, error)
	SetStarState(ctx context.Context, messageID string, starred bool) error
	DeleteMessage(ctx context.Context, messageID string) error
}

// Service orchestrates loads, selection, compose and star flows across the
// store, the normalizer and the per-provider clients.
type Service struct {
	store      *Store
	normalizer *Normalizer
	composer   *Composer
	providers  map[models.ProviderKind]Mailbox
	router     Router
	pages      *Paginator
	localStars StarFlagStore
	log        *logrus.Entry

	mu           sync.Mutex
	accountKinds map[uint]models.ProviderKind
}

func NewService(normalizer *Normalizer, providers map[models.ProviderKind]Mailbox, pages *Paginator) *Service {
	s := &Service{
		normalizer:   normalizer,
		providers:    providers,
		pages:        pages,
		log:          logrus.WithField("component", "inbox_service"),
		accountKinds: make(map[uint]models.ProviderKind),
	}
	s.store = NewStore(s)
	return s
}

// SetComposer attaches the composer after construction; the composer's draft
// saver is the service itself, so the two cannot be built in one step.
func (s *Service) SetComposer(c *Composer) {
	s.composer = c
}

// SetStarFlags attaches the optional local star mirror.
func (s *Service) SetStarFlags(f StarFlagStore) {
	s.localStars = f
}

// Store exposes the projections for the read-only rendering surface.
func (s *Service) Store() *Store { return s.store }

// Composer exposes the single-draft state machine.
func (s *Service) Composer() *Composer { return s.composer }

func (s *Service) provider(kind models.ProviderKind) (Mailbox, error) {
	p, ok := s.providers[kind]
	if !ok {
		return nil, fmt.Errorf("no client registered for provider %q", kind)
	}
	return p, nil
}

// SaveStar implements StarSaver: the store's fire-and-forget star
// persistence routes here. The local mirror is written first so a provider
// hiccup never loses the user's choice; the mirror write itself is best
// effort.
func (s *Service) SaveStar(ctx context.Context, msg models.Message) error {
	if s.localStars != nil {
		if err := s.localStars.Set(msg.AccountID, msg.ID, msg.IsStarred); err != nil {
			s.log.WithError(err).WithField("message_id", msg.ID).Warn("local star mirror update failed")
		}
	}
	p, err := s.provider(msg.Provider)
	if err != nil {
		return err
	}
	return p.SetStarState(ctx, msg.ID, msg.IsStarred)
}

// LoadForAccount populates the store for one account and folder. With a warm
// cache and no force flag the cached projection is re-assembled without any
// network call; otherwise the page is fetched, normalized and assembled. The
// loading flag clears on every path out, success or failure.
func (s *Service) LoadForAccount(ctx context.Context, account models.Account, folder Folder, force bool) error {
	folder = s.router.Route(account.Type, folder)

	s.mu.Lock()
	s.accountKinds[account.ID] = account.Type
	s.mu.Unlock()

	if !force {
		if cached, ok := s.store.CachedMessages(account.Email); ok {
			s.store.ApplyAssembly(account.Email, folder, s.assemble(folder, cached))
			return nil
		}
	}

	page := s.pages.Current(account.ID, folder).CurrentPage
	return s.loadPage(ctx, account, folder, page)
}

func (s *Service) loadPage(ctx context.Context, account models.Account, folder Folder, page int) error {
	p, err := s.provider(account.Type)
	if err != nil {
		return err
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	fetched, err := p.FetchMessages(ctx, account.ID, string(folder), page, s.pages.PageSize())
	if err != nil {
		sentry.CaptureException(err)
		s.log.WithError(err).WithFields(logrus.Fields{"account": account.Email, "folder": folder}).Error("message fetch failed")
		return fmt.Errorf("fetching %s for %s: %w", folder, account.Email, err)
	}

	msgs := make([]models.Message, 0, len(fetched.Messages))
	for _, raw := range fetched.Messages {
		msgs = append(msgs, s.normalizer.Normalize(raw, account.ID))
	}

	s.store.ApplyAssembly(account.Email, folder, s.assemble(folder, msgs))
	s.pages.Apply(account.ID, folder, page, fetched.Total)
	return nil
}

func (s *Service) assemble(folder Folder, msgs []models.Message) Assembly {
	if !folder.Threaded() {
		return AssembleFlat(msgs)
	}
	return Assemble(msgs)
}

// OpenMessage renders the clicked message's cached thread immediately, then
// fetches the full conversation and replaces the view wholesale when it
// arrives. A fetch that fails or comes back empty leaves the optimistic
// render standing rather than failing the view, and a response arriving
// after the user selected something else is dropped.
func (s *Service) OpenMessage(ctx context.Context, msg models.Message) error {
	gen := s.store.Select(msg)

	p, err := s.provider(msg.Provider)
	if err != nil {
		return err
	}

	if !s.store.ActiveFolder().Threaded() {
		return s.openSingle(ctx, p, gen, msg)
	}

	raws, err := p.FetchThreadDetail(ctx, msg.ThreadID, msg.AccountID)
	if err != nil || len(raws) == 0 {
		partial := &PartialDataError{ThreadID: msg.ThreadID, Cause: err}
		s.log.WithError(partial).WithField("thread_id", msg.ThreadID).Warn("thread detail unavailable, keeping partial view")
		return nil
	}

	full := make([]models.Message, 0, len(raws))
	for _, raw := range raws {
		full = append(full, s.normalizer.Normalize(raw, msg.AccountID))
	}
	sortByDate(full, false)
	s.store.ApplyThreadDetail(gen, msg.ThreadID, full)
	return nil
}

// openSingle resolves a message in a flat folder, where there is no
// conversation to expand. Drafts open through the single-message endpoint;
// the same partial-data rule applies.
func (s *Service) openSingle(ctx context.Context, p Mailbox, gen uint64, msg models.Message) error {
	raw, err := p.FetchMessageDetail(ctx, msg.ID)
	if err != nil || raw == nil {
		partial := &PartialDataError{ThreadID: msg.ID, Cause: err}
		s.log.WithError(partial).WithField("message_id", msg.ID).Warn("message detail unavailable, keeping partial view")
		return nil
	}
	key := msg.ThreadID
	if key == "" {
		key = msg.ID
	}
	s.store.ApplyThreadDetail(gen, key, []models.Message{s.normalizer.Normalize(*raw, msg.AccountID)})
	return nil
}

// ToggleStar flips the star on a message and pushes it through the single
// write path; provider persistence rides the store's fire-and-forget hook.
func (s *Service) ToggleStar(ctx context.Context, msg models.Message) models.Message {
	msg.IsStarred = !msg.IsStarred
	s.store.UpdateMessage(ctx, msg)
	return msg
}

// Send validates and submits the open draft, closing the composer only on
// success so a failed send keeps the user's work.
func (s *Service) Send(ctx context.Context) error {
	req, err := s.composer.PrepareSend(ctx)
	if err != nil {
		return err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return &ValidationError{Field: "payload", Reason: err.Error()}
	}

	p, err := s.provider(s.kindForAccount(req.AccountID))
	if err != nil {
		return err
	}

	if err := p.SendMessage(ctx, req); err != nil {
		sentry.CaptureException(err)
		s.log.WithError(err).Error("send failed")
		return fmt.Errorf("sending message: %w", err)
	}
	s.composer.Close()
	return nil
}

func (s *Service) kindForAccount(accountID uint) models.ProviderKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind, ok := s.accountKinds[accountID]; ok {
		return kind
	}
	return models.ProviderGmail
}

// SaveDraft implements DraftSaver for the composer's auto-save-on-replace.
func (s *Service) SaveDraft(ctx context.Context, draft models.ComposeDraft) (string, error) {
	p, err := s.provider(s.kindForAccount(draft.AccountID))
	if err != nil {
		return "", err
	}
	return p.SaveDraft(ctx, &models.SendRequest{
		To:          draft.To,
		Cc:          draft.Cc,
		Bcc:         draft.Bcc,
		Subject:     draft.Subject,
		BodyHTML:    draft.BodyHTML,
		ThreadID:    draft.ThreadID,
		MessageID:   draft.MessageID,
		AccountID:   draft.AccountID,
		Attachments: draft.Attachments,
	})
}

// Delete removes a message provider-side and reloads the open folder.
func (s *Service) Delete(ctx context.Context, account models.Account, msg models.Message) error {
	p, err := s.provider(msg.Provider)
	if err != nil {
		return err
	}
	if err := p.DeleteMessage(ctx, msg.ID); err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("deleting message %s: %w", msg.ID, err)
	}
	return s.LoadForAccount(ctx, account, s.store.ActiveFolder(), true)
}

// NextPage advances within the open folder; a step past the last page is a
// no-op.
func (s *Service) NextPage(ctx context.Context, account models.Account, folder Folder) error {
	folder = s.router.Route(account.Type, folder)
	page, ok := s.pages.Next(account.ID, folder)
	if !ok {
		return nil
	}
	return s.loadPage(ctx, account, folder, page)
}

// PrevPage steps back within the open folder; a step before page 1 is a
// no-op.
func (s *Service) PrevPage(ctx context.Context, account models.Account, folder Folder) error {
	folder = s.router.Route(account.Type, folder)
	page, ok := s.pages.Prev(account.ID, folder)
	if !ok {
		return nil
	}
	return s.loadPage(ctx, account, folder, page)
}

// Refresh re-dispatches the currently open folder, bypassing the cache.
func (s *Service) Refresh(ctx context.Context, account models.Account) error {
	return s.LoadForAccount(ctx, account, s.store.ActiveFolder(), true)
}
