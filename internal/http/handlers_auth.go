package http

import (
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/services"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}

	sess, err := s.svc.Users.Register(r.Context(), in)
	if errors.Is(err, core.ErrConflict) {
		writeError(w, http.StatusConflict, "Email sudah terdaftar")
		return
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string `json:"message"`
		services.Session
	}{Message: "Registrasi berhasil", Session: sess})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in core.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, "")
		return
	}

	sess, err := s.svc.Users.Login(r.Context(), in)
	if errors.Is(err, core.ErrUnauthorized) {
		writeError(w, http.StatusUnauthorized, "Email atau password salah")
		return
	}
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Users.Get(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err, "Pengguna tidak ditemukan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.User{"user": u})
}
