package server

import (
	"bytes"
	"fmt"
	"net/http"

	"foodsaver/pkg/types"
)

// renderTemplate renders the named page into a buffer first so a template
// error never leaks a half written response.
func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) error {

	if setter, ok := data.(types.NavbarDataSetter); ok {
		navbar := types.NavbarData{}

		actor, err := s.actorFromContext(r.Context())
		if err == nil {
			navbar.IsAuthenticated = true
			navbar.Username = actor.Username
			navbar.Role = actor.Role
		}

		setter.SetNavbarData(navbar)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
