package httpserver

import "github.com/labstack/echo/v4"

func (s *Server) handleLanding(c echo.Context) error {
	return s.renderTemplate(c, "index.html", nil)
}

func (s *Server) handleAdminPage(c echo.Context) error {
	return s.renderTemplate(c, "admin.html", nil)
}
