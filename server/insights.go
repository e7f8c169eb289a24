package server

import (
	"net/http"
)

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.deps.Cards.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.deps.Advisor.Insights(r.Context(), *card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEmailSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.deps.Cards.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.deps.Advisor.EmailSuggestion(r.Context(), *card, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
