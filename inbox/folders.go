package inbox

import (
	"sync"

	"unimail/models"
)

// Folder is a mailbox view the UI can request.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderStarred Folder = "starred"
	FolderSnoozed Folder = "snoozed"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderSpam    Folder = "spam"
	FolderTrash   Folder = "trash"
	FolderArchive Folder = "archive"
)

// Threaded reports whether the folder groups messages into conversations.
// Drafts have no conversation concept and render flat.
func (f Folder) Threaded() bool {
	return f != FolderDrafts
}

// Polled reports whether the background new-mail poll should run while this
// folder is open. The starred view has no new-mail semantics.
func (f Folder) Polled() bool {
	return f != FolderStarred
}

var outlookFolders = map[Folder]struct{}{
	FolderInbox:   {},
	FolderSent:    {},
	FolderDrafts:  {},
	FolderSpam:    {},
	FolderTrash:   {},
	FolderArchive: {},
}

// Router maps a requested folder to what the account's provider can actually
// serve. Label-style views (starred, snoozed) exist only on the Gmail side;
// an unsupported request falls back to the inbox rather than erroring.
type Router struct{}

func (Router) Route(provider models.ProviderKind, folder Folder) Folder {
	if folder == "" {
		return FolderInbox
	}
	if provider == models.ProviderOutlook {
		if _, ok := outlookFolders[folder]; !ok {
			return FolderInbox
		}
		return folder
	}
	switch folder {
	case FolderInbox, FolderStarred, FolderSnoozed, FolderSent,
		FolderDrafts, FolderSpam, FolderTrash, FolderArchive:
		return folder
	default:
		return FolderInbox
	}
}

type pageKey struct {
	accountID uint
	folder    Folder
}

// Paginator tracks one Pagination per (account, folder). Totals are
// recomputed on every fetch; next/prev are bounds-checked so callers never
// dispatch a fetch for a page that cannot exist.
type Paginator struct {
	mu       sync.Mutex
	pageSize int
	pages    map[pageKey]models.Pagination
}

func NewPaginator(pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = 15
	}
	return &Paginator{pageSize: pageSize, pages: make(map[pageKey]models.Pagination)}
}

func (p *Paginator) PageSize() int { return p.pageSize }

// Current returns the pagination state for the scope, defaulting to page 1.
func (p *Paginator) Current(accountID uint, folder Folder) models.Pagination {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pg, ok := p.pages[pageKey{accountID, folder}]; ok {
		return pg
	}
	return models.Pagination{CurrentPage: 1, PageSize: p.pageSize}
}

// Apply records the total reported by a fetch and recomputes the page count.
func (p *Paginator) Apply(accountID uint, folder Folder, page, total int) models.Pagination {
	totalPages := (total + p.pageSize - 1) / p.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	pg := models.Pagination{CurrentPage: page, PageSize: p.pageSize, Total: total, TotalPages: totalPages}
	p.mu.Lock()
	p.pages[pageKey{accountID, folder}] = pg
	p.mu.Unlock()
	return pg
}

// Next returns the page number to fetch for a forward step, or false when
// already on the last page.
func (p *Paginator) Next(accountID uint, folder Folder) (int, bool) {
	pg := p.Current(accountID, folder)
	if pg.TotalPages != 0 && pg.CurrentPage >= pg.TotalPages {
		return 0, false
	}
	return pg.CurrentPage + 1, true
}

// Prev returns the page number to fetch for a backward step, or false when
// already on the first page.
func (p *Paginator) Prev(accountID uint, folder Folder) (int, bool) {
	pg := p.Current(accountID, folder)
	if pg.CurrentPage <= 1 {
		return 0, false
	}
	return pg.CurrentPage - 1, true
}

// Reset drops the scope back to page 1, used when switching accounts.
func (p *Paginator) Reset(accountID uint, folder Folder) {
	p.mu.Lock()
	delete(p.pages, pageKey{accountID, folder})
	p.mu.Unlock()
}
