package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"library-client/library"
)

// Books is the catalog screen.
type Books struct {
	api BookAPI
	who Identity
	log *zap.Logger

	mu    sync.Mutex
	page  library.Page[library.Book]
	books []library.Book
}

func NewBooks(c BookAPI, who Identity, log *zap.Logger) *Books {
	if log == nil {
		log = zap.NewNop()
	}
	return &Books{api: c, who: who, log: log, books: []library.Book{}}
}

// CanEdit reports whether add/edit/delete should be offered.
func (b *Books) CanEdit() bool { return b.who.Role().IsLibrarian() }

// Load replaces the snapshot with a fresh listing. On failure the previous
// snapshot is kept.
func (b *Books) Load(ctx context.Context) Notification {
	page, err := b.api.ListBooks(ctx)
	if err != nil {
		b.log.Warn("fetch books", zap.Error(err))
		return failure(MsgFetchBooksFailed)
	}

	b.mu.Lock()
	b.page = page
	b.books = page.Items()
	b.mu.Unlock()
	return Notification{}
}

// Save creates a book when id is nil and updates book *id otherwise.
func (b *Books) Save(ctx context.Context, id *int64, in library.BookInput) Notification {
	if !b.CanEdit() {
		return failure(MsgNotPermitted)
	}

	var err error
	msg := MsgBookAdded
	if id == nil {
		err = b.api.CreateBook(ctx, in)
	} else {
		err = b.api.UpdateBook(ctx, *id, in)
		msg = MsgBookUpdated
	}
	if err != nil {
		b.log.Warn("save book", zap.Error(err))
		return failure(MsgSaveBookFailed)
	}

	b.reload(ctx)
	return success(msg)
}

// Delete removes book id.
func (b *Books) Delete(ctx context.Context, id int64) Notification {
	if !b.CanEdit() {
		return failure(MsgNotPermitted)
	}
	if err := b.api.DeleteBook(ctx, id); err != nil {
		b.log.Warn("delete book", zap.Int64("id", id), zap.Error(err))
		return failure(MsgDeleteBookFailed)
	}

	b.reload(ctx)
	return success(MsgBookDeleted)
}

// Snapshot returns a copy of the last listing.
func (b *Books) Snapshot() []library.Book {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]library.Book(nil), b.books...)
}

// Page returns the paging counters of the last listing.
func (b *Books) Page() library.Page[library.Book] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Find looks up id in the snapshot.
func (b *Books) Find(id int64) (library.Book, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bk := range b.books {
		if bk.ID == id {
			return bk, true
		}
	}
	return library.Book{}, false
}

// Filtered applies the search term to the snapshot.
func (b *Books) Filtered(term string) []library.Book {
	return library.FilterBooks(b.Snapshot(), term)
}

func (b *Books) reload(ctx context.Context) {
	if n := b.Load(ctx); n.Failed() {
		b.log.Warn("refresh after mutation failed")
	}
}
