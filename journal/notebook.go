package journal

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/kvstore"
)

const (
	notebookPrefix = "notebooks:"
	postPrefix     = "posts:"
)

// Notebook groups a user's posts under a title.
type Notebook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Post is a single entry inside a notebook.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notebooks serves the notebook and post aggregates. Unlike the practice
// collections these read the durable store directly on every call; the
// volume does not warrant a process-local cache. Post aggregates are keyed
// per notebook, always under the owning user's id.
type Notebooks struct {
	books aggregateStore[Notebook]
	posts aggregateStore[Post]
	now   func() time.Time
}

// NewNotebooks creates the notebook service over kv.
func NewNotebooks(kv kvstore.Store) *Notebooks {
	return &Notebooks{
		books: aggregateStore[Notebook]{kv: kv, prefix: notebookPrefix},
		posts: aggregateStore[Post]{kv: kv, prefix: postPrefix},
		now:   util.Now,
	}
}

func postAggregateID(userID, notebookID string) string {
	return userID + "/" + notebookID
}

// List returns the user's notebooks, newest first.
func (n *Notebooks) List(ctx context.Context, userID string) ([]Notebook, error) {
	agg, err := n.books.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return []Notebook{}, nil
		}
		return nil, err
	}
	books := make([]Notebook, 0, len(agg.Records))
	for _, b := range agg.Records {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].CreatedAt.After(books[j].CreatedAt) })
	return books, nil
}

// Create adds a notebook and returns it.
func (n *Notebooks) Create(ctx context.Context, userID, title, description string) (*Notebook, error) {
	if title == "" {
		return nil, invalidRecord("title is required")
	}
	agg, err := n.books.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := n.now()
	book := Notebook{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	agg.Records[book.ID] = book
	agg.recompute(nil, now)
	if err := n.books.save(ctx, userID, agg); err != nil {
		return nil, err
	}
	return &book, nil
}

// Update renames a notebook.
func (n *Notebooks) Update(ctx context.Context, userID, notebookID, title, description string) (*Notebook, error) {
	if title == "" {
		return nil, invalidRecord("title is required")
	}
	agg, err := n.books.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	book, ok := agg.Records[notebookID]
	if !ok {
		return nil, ErrNotFound
	}
	book.Title = title
	book.Description = description
	book.UpdatedAt = n.now()
	agg.Records[notebookID] = book
	agg.recompute(nil, book.UpdatedAt)
	if err := n.books.save(ctx, userID, agg); err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a notebook together with its post aggregate.
func (n *Notebooks) Delete(ctx context.Context, userID, notebookID string) error {
	agg, err := n.books.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, ok := agg.Records[notebookID]; !ok {
		return ErrNotFound
	}
	delete(agg.Records, notebookID)
	agg.recompute(nil, n.now())
	if err := n.books.save(ctx, userID, agg); err != nil {
		return err
	}
	return n.posts.kv.Delete(ctx, n.posts.key(postAggregateID(userID, notebookID)))
}

// Posts returns a notebook's posts, newest first.
func (n *Notebooks) Posts(ctx context.Context, userID, notebookID string) ([]Post, error) {
	if err := n.requireNotebook(ctx, userID, notebookID); err != nil {
		return nil, err
	}
	agg, err := n.posts.load(ctx, postAggregateID(userID, notebookID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return []Post{}, nil
		}
		return nil, err
	}
	posts := make([]Post, 0, len(agg.Records))
	for _, p := range agg.Records {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

// CreatePost adds a post to a notebook.
func (n *Notebooks) CreatePost(ctx context.Context, userID, notebookID, title, body string, tags []string) (*Post, error) {
	if title == "" {
		return nil, invalidRecord("title is required")
	}
	if err := n.requireNotebook(ctx, userID, notebookID); err != nil {
		return nil, err
	}
	agg, err := n.posts.loadOrCreate(ctx, postAggregateID(userID, notebookID))
	if err != nil {
		return nil, err
	}
	now := n.now()
	post := Post{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	agg.Records[post.ID] = post
	agg.recompute(nil, now)
	if err := n.posts.save(ctx, postAggregateID(userID, notebookID), agg); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost returns a single post.
func (n *Notebooks) GetPost(ctx context.Context, userID, notebookID, postID string) (*Post, error) {
	if err := n.requireNotebook(ctx, userID, notebookID); err != nil {
		return nil, err
	}
	agg, err := n.posts.load(ctx, postAggregateID(userID, notebookID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post, ok := agg.Records[postID]
	if !ok {
		return nil, ErrNotFound
	}
	return &post, nil
}

// UpdatePost rewrites a post's content.
func (n *Notebooks) UpdatePost(ctx context.Context, userID, notebookID, postID, title, body string, tags []string) (*Post, error) {
	if title == "" {
		return nil, invalidRecord("title is required")
	}
	if err := n.requireNotebook(ctx, userID, notebookID); err != nil {
		return nil, err
	}
	agg, err := n.posts.load(ctx, postAggregateID(userID, notebookID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	post, ok := agg.Records[postID]
	if !ok {
		return nil, ErrNotFound
	}
	post.Title = title
	post.Body = body
	post.Tags = tags
	post.UpdatedAt = n.now()
	agg.Records[postID] = post
	agg.recompute(nil, post.UpdatedAt)
	if err := n.posts.save(ctx, postAggregateID(userID, notebookID), agg); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost removes a post.
func (n *Notebooks) DeletePost(ctx context.Context, userID, notebookID, postID string) error {
	if err := n.requireNotebook(ctx, userID, notebookID); err != nil {
		return err
	}
	agg, err := n.posts.load(ctx, postAggregateID(userID, notebookID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, ok := agg.Records[postID]; !ok {
		return ErrNotFound
	}
	delete(agg.Records, postID)
	agg.recompute(nil, n.now())
	return n.posts.save(ctx, postAggregateID(userID, notebookID), agg)
}

func (n *Notebooks) requireNotebook(ctx context.Context, userID, notebookID string) error {
	agg, err := n.books.load(ctx, userID)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if _, ok := agg.Records[notebookID]; !ok {
		return ErrNotFound
	}
	return nil
}
