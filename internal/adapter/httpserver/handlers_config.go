package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/rubyemotes/internal/platform/errors"
)

type saveConfigRequest struct {
	AdLink *string `json:"adLink"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleGetConfig(c echo.Context) error {
	cfg, err := s.app.GetConfig(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, cfg); err != nil {
		return fmt.Errorf("failed to write config response: %w", err)
	}
	return nil
}

func (s *Server) handleSaveConfig(c echo.Context) error {
	var req saveConfigRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("Invalid request body")
	}
	if req.AdLink == nil || strings.TrimSpace(*req.AdLink) == "" {
		return apperrors.ValidationError("adLink is required")
	}

	err := s.app.SaveConfig(c.Request().Context(), *req.AdLink)
	s.observ.Admin.Record("save_config", err)
	if err != nil {
		return err
	}

	resp := successResponse{Success: true, Message: "Ad link updated successfully."}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write config response: %w", err)
	}
	return nil
}
