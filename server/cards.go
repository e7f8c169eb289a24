package server

import (
	"net/http"

	cardsx "github.com/tanpawarit/salesops-assistant/pkg/cards"
)

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := cardsx.ListFilter{
		AssignedTo: q.Get("assigned_to"),
		Search:     q.Get("search"),
	}
	if raw := q.Get("status"); raw != "" {
		status, err := cardsx.ParseStatus(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Page, err = queryInt(r, "page"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.PerPage, err = queryInt(r, "per_page"); err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.deps.Cards.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var card cardsx.Card
	if err := decodeJSON(w, r, &card); err != nil {
		writeError(w, r, err)
		return
	}
	card.ID = 0
	if err := s.deps.Cards.Create(r.Context(), &card); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleCardSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Cards.Summary(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch cardsx.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.deps.Cards.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type statusUpdate struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateCardStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body statusUpdate
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := cardsx.ParseStatus(body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	card, err := s.deps.Cards.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Cards.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
