package server

import (
	"net/http"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/repository"
)

// handleHistoryList implements GET /history: paginated, team-scoped,
// optionally filtered by method/url substring.
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	limit, offset := pageParams(r)
	filter := repository.HistoryFilter{
		Method:  r.URL.Query().Get("method"),
		URLLike: r.URL.Query().Get("urlLike"),
	}

	entries, err := s.HistoryStore.ListByTeam(r.Context(), id.TeamID, filter, limit, offset)
	if err != nil {
		writeAPIErr(w, apierr.Internal("listing history", err))
		return
	}

	dtos := make([]historyEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = historyEntryToDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}
