package transport

import "net/http"

type Handler interface {
	upload(w http.ResponseWriter, r *http.Request)
	status(w http.ResponseWriter, r *http.Request)
	documents(w http.ResponseWriter, r *http.Request)
	documentByID(w http.ResponseWriter, r *http.Request)
	search(w http.ResponseWriter, r *http.Request)
	health(w http.ResponseWriter, r *http.Request)
}

type router struct {
	h Handler
}

func NewRouter(h Handler) *router {
	return &router{h: h}
}

func (r *router) MountRoutes(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("/upload", r.h.upload)
	mux.HandleFunc("/status/", r.h.status)
	mux.HandleFunc("/documents", r.h.documents)
	mux.HandleFunc("/documents/", r.h.documentByID)
	mux.HandleFunc("/search", r.h.search)
	mux.HandleFunc("/health", r.h.health)

	return mux
}
