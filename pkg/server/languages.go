package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/transport"
)

// handleListLanguages serves the merged picker list, or the languages of a
// single flavor when ?flavor= is given.
func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if name := r.URL.Query().Get("flavor"); name != "" {
		flavor, err := judge0.ParseFlavor(name)
		if err != nil {
			transport.WriteAPIError(w, api.NewInvalidRequestError("flavor", err.Error()))
			return
		}
		langs, err := s.deps.Languages.List(ctx, flavor)
		if err != nil {
			transport.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, api.LanguageList{Object: "list", Data: langs})
		return
	}

	entries, err := s.deps.Languages.Merged(ctx)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LanguageList{Object: "list", Data: entries})
}

// handleGetLanguage serves the details of one language, including the
// source file name Judge0 compiles it under.
func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	flavor, err := judge0.ParseFlavor(r.PathValue("flavor"))
	if err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("flavor", err.Error()))
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "language id must be a positive integer"))
		return
	}

	lang, err := s.deps.Languages.Get(r.Context(), flavor, id)
	if err != nil {
		var terr *judge0.TransportError
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			transport.WriteAPIError(w, api.NewNotFoundError("language "+strconv.Itoa(id)+" not found in "+flavor.String()))
			return
		}
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lang)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
