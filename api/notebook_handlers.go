package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListNotebooks handles GET /notebooks.
func (a *API) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	books, err := a.notebooks.List(r.Context(), sc.info.UserID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NotebooksResponse{Notebooks: books})
}

// CreateNotebook handles POST /notebooks.
func (a *API) CreateNotebook(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[NotebookRequest](w, r)
	if !ok {
		return
	}
	book, err := a.notebooks.Create(r.Context(), sc.info.UserID, req.Title, req.Description)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// UpdateNotebook handles PUT /notebooks/{notebookID}.
func (a *API) UpdateNotebook(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[NotebookRequest](w, r)
	if !ok {
		return
	}
	book, err := a.notebooks.Update(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"), req.Title, req.Description)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// DeleteNotebook handles DELETE /notebooks/{notebookID}.
func (a *API) DeleteNotebook(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	if err := a.notebooks.Delete(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID")); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// ListPosts handles GET /notebooks/{notebookID}/posts.
func (a *API) ListPosts(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	posts, err := a.notebooks.Posts(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PostsResponse{Posts: posts})
}

// CreatePost handles POST /notebooks/{notebookID}/posts.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[PostRequest](w, r)
	if !ok {
		return
	}
	post, err := a.notebooks.CreatePost(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"), req.Title, req.Body, req.Tags)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// GetPost handles GET /notebooks/{notebookID}/posts/{postID}.
func (a *API) GetPost(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	post, err := a.notebooks.GetPost(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"), chi.URLParam(r, "postID"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// UpdatePost handles PUT /notebooks/{notebookID}/posts/{postID}.
func (a *API) UpdatePost(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[PostRequest](w, r)
	if !ok {
		return
	}
	post, err := a.notebooks.UpdatePost(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"), chi.URLParam(r, "postID"), req.Title, req.Body, req.Tags)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /notebooks/{notebookID}/posts/{postID}.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	if err := a.notebooks.DeletePost(r.Context(), sc.info.UserID, chi.URLParam(r, "notebookID"), chi.URLParam(r, "postID")); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
