package inbox

import (
	"testing"

	"unimail/models"

	"github.com/stretchr/testify/assert"
)

func TestFolderThreaded(t *testing.T) {
	assert.True(t, FolderInbox.Threaded())
	assert.True(t, FolderSent.Threaded())
	assert.False(t, FolderDrafts.Threaded(), "drafts render flat")
}

func TestFolderPolled(t *testing.T) {
	assert.True(t, FolderInbox.Polled())
	assert.False(t, FolderStarred.Polled(), "no new-mail poll on the starred view")
}

func TestRouterGmailPassesEverythingThrough(t *testing.T) {
	var r Router
	for _, f := range []Folder{FolderInbox, FolderStarred, FolderSnoozed, FolderSent,
		FolderDrafts, FolderSpam, FolderTrash, FolderArchive} {
		assert.Equal(t, f, r.Route(models.ProviderGmail, f))
	}
}

func TestRouterOutlookFallsBackForLabelViews(t *testing.T) {
	var r Router
	assert.Equal(t, FolderInbox, r.Route(models.ProviderOutlook, FolderStarred))
	assert.Equal(t, FolderInbox, r.Route(models.ProviderOutlook, FolderSnoozed))
	assert.Equal(t, FolderSent, r.Route(models.ProviderOutlook, FolderSent))
	assert.Equal(t, FolderTrash, r.Route(models.ProviderOutlook, FolderTrash))
}

func TestRouterUnknownFolderDefaultsToInbox(t *testing.T) {
	var r Router
	assert.Equal(t, FolderInbox, r.Route(models.ProviderGmail, Folder("promotions")))
	assert.Equal(t, FolderInbox, r.Route(models.ProviderOutlook, Folder("promotions")))
	assert.Equal(t, FolderInbox, r.Route(models.ProviderGmail, Folder("")))
}

func TestPaginatorDefaultsToPageOne(t *testing.T) {
	p := NewPaginator(15)
	pg := p.Current(1, FolderInbox)
	assert.Equal(t, 1, pg.CurrentPage)
	assert.Equal(t, 15, pg.PageSize)
	assert.Zero(t, pg.Total)
}

func TestPaginatorApplyRecomputesTotals(t *testing.T) {
	p := NewPaginator(15)

	pg := p.Apply(1, FolderInbox, 1, 31)
	assert.Equal(t, 3, pg.TotalPages, "31 rows at 15 per page")
	assert.Equal(t, 31, pg.Total)

	// a shrinking folder clamps the current page
	pg = p.Apply(1, FolderInbox, 3, 10)
	assert.Equal(t, 1, pg.CurrentPage)
	assert.Equal(t, 1, pg.TotalPages)
}

func TestPaginatorNextPrevBounds(t *testing.T) {
	p := NewPaginator(15)
	p.Apply(1, FolderInbox, 1, 31)

	next, ok := p.Next(1, FolderInbox)
	assert.True(t, ok)
	assert.Equal(t, 2, next)

	_, ok = p.Prev(1, FolderInbox)
	assert.False(t, ok, "no page before 1")

	p.Apply(1, FolderInbox, 3, 31)
	_, ok = p.Next(1, FolderInbox)
	assert.False(t, ok, "no page past the last")

	prev, ok := p.Prev(1, FolderInbox)
	assert.True(t, ok)
	assert.Equal(t, 2, prev)
}

func TestPaginatorScopesAreIndependent(t *testing.T) {
	p := NewPaginator(15)
	p.Apply(1, FolderInbox, 2, 31)
	p.Apply(1, FolderSent, 1, 5)
	p.Apply(2, FolderInbox, 1, 100)

	assert.Equal(t, 2, p.Current(1, FolderInbox).CurrentPage)
	assert.Equal(t, 1, p.Current(1, FolderSent).CurrentPage)
	assert.Equal(t, 7, p.Current(2, FolderInbox).TotalPages)
}

func TestPaginatorReset(t *testing.T) {
	p := NewPaginator(15)
	p.Apply(1, FolderInbox, 2, 31)
	p.Reset(1, FolderInbox)
	assert.Equal(t, 1, p.Current(1, FolderInbox).CurrentPage)
}
