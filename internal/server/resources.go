package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/marshallshelly/modspace/internal/app"
	"github.com/marshallshelly/modspace/pkg/orm"
)

func (s *Server) routes() {
	api := s.Router.PathPrefix(APIPrefix).Subrouter()

	api.HandleFunc("/users", s.handleFindUserByEmail()).Methods("GET").Queries("email", "{email}")
	api.HandleFunc("/catalogs/{id}/books", s.handleCatalogBooks()).Methods("GET")

	registerResource[app.User](s, api, "/users")
	registerResource[app.Book](s, api, "/books")
	registerResource[app.Catalog](s, api, "/catalogs")
	registerResource[app.Students](s, api, "/students")
	registerResource[app.ContactInfo](s, api, "/contact-infos")
}

// registerResource wires the CRUD routes of model type T under path.
func registerResource[T any](s *Server, api *mux.Router, path string) {
	api.HandleFunc(path, handleList[T](s)).Methods("GET")
	api.HandleFunc(path, handleCreate[T](s)).Methods("POST")
	api.HandleFunc(path+"/{id}", handleGet[T](s)).Methods("GET")
	api.HandleFunc(path+"/{id}", handleUpdate[T](s)).Methods("PUT")
	api.HandleFunc(path+"/{id}", handleDelete[T](s)).Methods("DELETE")
}

// load finds the model named by the {id} route variable. It writes the
// error response and returns false when there is none.
func load[T any](s *Server, w http.ResponseWriter, r *http.Request) (*T, bool) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	repo, err := orm.GetRepository[T](s.EM)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	model, err := repo.Find(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	if model == nil {
		respondWithError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return model, true
}

func handleList[T any](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo, err := orm.GetRepository[T](s.EM)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		models, err := repo.FindAll(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, models)
	}
}

func handleGet[T any](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model, ok := load[T](s, w, r)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, model)
	}
}

func handleCreate[T any](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := new(T)
		if err := decode(r, model); err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.EM.Persist(r.Context(), model); err != nil {
			s.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, model)
	}
}

func handleUpdate[T any](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, ok := load[T](s, w, r)
		if !ok {
			return
		}

		model := new(T)
		if err := decode(r, model); err != nil {
			s.fail(w, r, err)
			return
		}
		id, err := s.EM.Access(existing, "id", orm.AccessRead)
		if err == nil {
			_, err = s.EM.Access(model, "id", orm.AccessWrite, id)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.EM.Save(r.Context(), model); err != nil {
			s.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, model)
	}
}

// handleDelete removes the stored model, so relations resolved by Find
// (such as a catalog's books) take part in orphan removal.
func handleDelete[T any](s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model, ok := load[T](s, w, r)
		if !ok {
			return
		}
		if err := s.EM.Remove(r.Context(), model); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleFindUserByEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := app.Users(s.EM)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		u, err := users.FindByEmail(r.Context(), mux.Vars(r)["email"])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if u == nil {
			respondWithJSON(w, http.StatusOK, []*app.User{})
			return
		}
		respondWithJSON(w, http.StatusOK, []*app.User{u})
	}
}

func (s *Server) handleCatalogBooks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		books, err := app.Books(s.EM)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		found, err := books.FindByCatalog(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, found)
	}
}
