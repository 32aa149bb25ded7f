package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type grantRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Amount int    `json:"amount" validate:"gt=0"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	credits, err := s.credits.Balance(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := s.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx := r.Context()
	if err := s.credits.Grant(ctx, req.UserID, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.credits.Balance(ctx, req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": req.UserID, "credits": balance})
}
