package inbox

import (
	"context"
	"sync"

	"unimail/models"

	"github.com/sirupsen/logrus"
)

// StarSaver persists a star-state change provider-side. The store calls it
// fire-and-forget so toggling never blocks the in-memory update; the message
// carries everything needed to route the call (provider, account, new state).
type StarSaver interface {
	SaveStar(ctx context.Context, msg models.Message) error
}

// Store owns the five projections the UI renders: the flat list for the open
// folder, the per-account cache of that list, the grouped threads, the open
// conversation, and the selected message. Everything mutates through
// UpdateMessage or the Apply methods; nothing else writes.
type Store struct {
	mu sync.RWMutex

	messages        []models.Message
	messagesByEmail map[string][]models.Message
	threads         map[string][]models.Message
	currentThread   []models.Message
	selected        *models.Message

	activeEmail  string
	activeFolder Folder
	loading      bool

	// selectionGen increments on every selection change; a thread-detail
	// response tagged with an older generation is stale and dropped.
	selectionGen uint64

	stars StarSaver
	log   *logrus.Entry
}

func NewStore(stars StarSaver) *Store {
	return &Store{
		messagesByEmail: make(map[string][]models.Message),
		threads:         make(map[string][]models.Message),
		stars:           stars,
		log:             logrus.WithField("component", "store"),
	}
}

// UpdateMessage is the single write path for one message. Every projection
// holding a copy gets the new value in one critical section, so a renderer
// never observes a half-applied update. A star-state change additionally
// kicks off persistence without blocking, and unstarring while the starred
// view is open removes the row immediately.
func (s *Store) UpdateMessage(ctx context.Context, msg models.Message) {
	s.mu.Lock()

	prev, found := s.findLocked(msg)
	starChanged := found && prev.IsStarred != msg.IsStarred

	replaceByID(s.messages, msg)
	if cached, ok := s.messagesByEmail[s.activeEmail]; ok {
		replaceByID(cached, msg)
	}
	if group, ok := s.threads[msg.ThreadID]; ok {
		replaceByID(group, msg)
	}
	replaceByID(s.currentThread, msg)
	if s.selected != nil && s.selected.ID == msg.ID {
		cp := msg
		s.selected = &cp
	}

	if s.activeFolder == FolderStarred && !msg.IsStarred {
		filtered := removeByID(s.messages, msg.ID)
		s.messages = filtered
		s.messagesByEmail[s.activeEmail] = filtered
		s.currentThread = removeByID(s.currentThread, msg.ID)
	}

	s.mu.Unlock()

	if starChanged && s.stars != nil {
		go func() {
			if err := s.stars.SaveStar(context.WithoutCancel(ctx), msg); err != nil {
				s.log.WithError(err).WithField("message_id", msg.ID).Error("star persistence failed")
			}
		}()
	}
}

// findLocked returns the stored copy of the message from whichever projection
// still holds one. The flat list only carries the latest row per thread, so
// older conversation members live solely in the thread projections; the star
// delta has to be computed against any of them, not just the flat list.
func (s *Store) findLocked(msg models.Message) (models.Message, bool) {
	for _, set := range [][]models.Message{s.messages, s.threads[msg.ThreadID], s.currentThread} {
		for i := range set {
			if set[i].ID == msg.ID {
				return set[i], true
			}
		}
	}
	if s.selected != nil && s.selected.ID == msg.ID {
		return *s.selected, true
	}
	return models.Message{}, false
}

// replaceByID swaps the slot holding msg.ID in place.
func replaceByID(msgs []models.Message, msg models.Message) {
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = msg
			return
		}
	}
}

// removeByID allocates: projections may share a backing array, so in-place
// compaction would corrupt the others.
func removeByID(msgs []models.Message, id string) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// ApplyAssembly installs a freshly fetched and assembled folder view,
// resetting the open conversation and selection.
func (s *Store) ApplyAssembly(email string, folder Folder, asm Assembly) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeEmail = email
	s.activeFolder = folder
	s.messages = asm.LatestPerThread
	s.messagesByEmail[email] = asm.LatestPerThread
	s.threads = asm.Threads
	s.currentThread = nil
	s.selected = nil
	s.selectionGen++
}

// Select marks a message as the user's current choice, renders the cached
// portion of its thread immediately, and returns the generation token the
// thread-detail response must present to be applied.
func (s *Store) Select(msg models.Message) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := msg
	s.selected = &cp
	if group, ok := s.threads[msg.ThreadID]; ok && len(group) > 0 {
		s.currentThread = append([]models.Message(nil), group...)
	} else {
		s.currentThread = []models.Message{msg}
	}
	s.selectionGen++
	return s.selectionGen
}

// ApplyThreadDetail replaces the open conversation wholesale with the full
// fetch result. A response carrying a stale generation is discarded: the
// user has moved on and the late data must not clobber the newer selection.
func (s *Store) ApplyThreadDetail(gen uint64, threadID string, msgs []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.selectionGen {
		s.log.WithFields(logrus.Fields{"thread_id": threadID, "gen": gen, "current": s.selectionGen}).
			Debug("stale thread detail dropped")
		return false
	}
	if len(msgs) == 0 {
		return false
	}
	s.currentThread = append([]models.Message(nil), msgs...)
	s.threads[threadID] = append([]models.Message(nil), msgs...)
	if s.selected != nil {
		for i := range msgs {
			if msgs[i].ID == s.selected.ID {
				cp := msgs[i]
				s.selected = &cp
				break
			}
		}
	}
	return true
}

// CachedMessages returns the per-account projection if one exists, for the
// cache-hit load path.
func (s *Store) CachedMessages(email string) ([]models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cached, ok := s.messagesByEmail[email]
	if !ok || len(cached) == 0 {
		return nil, false
	}
	return append([]models.Message(nil), cached...), true
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) ActiveFolder() Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFolder
}

func (s *Store) ActiveEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeEmail
}

// Messages returns a copy of the open folder's list rows.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

// CurrentThread returns a copy of the open conversation.
func (s *Store) CurrentThread() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.currentThread...)
}

// Selected returns the selected message, or nil.
func (s *Store) Selected() *models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	cp := *s.selected
	return &cp
}

// ThreadFor returns the cached conversation for a thread id.
func (s *Store) ThreadFor(threadID string) ([]models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	return append([]models.Message(nil), group...), true
}

// ThreadCount reports how many conversations the open folder holds.
func (s *Store) ThreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}
