package api

import (
	"errors"
	"net/http"

	"github.com/trailcut/trailcut/internal/session"
)

type sessionAction func(w http.ResponseWriter, r *http.Request, s *session.Session)

// withSession opens (or reuses) the editing session for the video in the
// URL before running action.
func withSession(cfg ServerConfig, action sessionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Sessions == nil {
			WriteError(w, http.StatusServiceUnavailable, "editing sessions are disabled", "UNAVAILABLE")
			return
		}
		s, err := cfg.Sessions.Get(r.Context(), videoKey(r))
		if err != nil {
			writeCatalogError(w, cfg, err)
			return
		}
		action(w, r, s)
	}
}

func writeSession(w http.ResponseWriter, status int, s *session.Session, snap session.Snapshot, hit *bool) {
	WriteJSON(w, status, SessionResponse{Snapshot: snap, Duration: s.Duration(), Hit: hit})
}

func sessionSnapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeSession(w, http.StatusOK, s, s.Snapshot(), nil)
	})
}

func clickHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req ClickRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		switch {
		case req.Cancel:
			writeSession(w, http.StatusOK, s, s.CancelDraft(), nil)
		case req.T == nil:
			WriteError(w, http.StatusBadRequest, "t is required", "VALIDATION_ERROR")
		default:
			writeSession(w, http.StatusOK, s, s.Click(*req.T), nil)
		}
	})
}

func pointerDownHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req PointerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		snap, hit := s.PointerDown(req.X, chartScale(s, req))
		writeSession(w, http.StatusOK, s, snap, &hit)
	})
}

func pointerMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req PointerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeSession(w, http.StatusOK, s, s.PointerMove(req.X, chartScale(s, req)), nil)
	})
}

func pointerUpHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeSession(w, http.StatusOK, s, s.PointerUp(), nil)
	})
}

func deleteSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req DeleteSegmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		snap, err := s.Delete(*req.Index)
		if errors.Is(err, session.ErrDragging) {
			WriteError(w, http.StatusConflict, err.Error(), "DRAGGING")
			return
		}
		writeSession(w, http.StatusOK, s, snap, nil)
	})
}

// chartScale maps the whole video onto the chart the pointer is over.
func chartScale(s *session.Session, req PointerRequest) session.Scale {
	return session.NewLinearScale(s.Duration(), req.Offset, req.Width)
}
