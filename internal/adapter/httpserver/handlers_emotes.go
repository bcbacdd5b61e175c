package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/rubyemotes/internal/app"
	"github.com/pscheid92/rubyemotes/internal/domain"
	apperrors "github.com/pscheid92/rubyemotes/internal/platform/errors"
)

type addEmoteResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func (s *Server) handleListEmotes(c echo.Context) error {
	emotes, err := s.app.ListEmotes(c.Request().Context())
	if err != nil {
		return err
	}
	if emotes == nil {
		emotes = []domain.Emote{}
	}

	if err := c.JSON(http.StatusOK, emotes); err != nil {
		return fmt.Errorf("failed to write emotes response: %w", err)
	}
	return nil
}

func (s *Server) handleAddEmote(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &httpErr):
			return httpErr
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return apperrors.ValidationError("No file uploaded.")
		default:
			return apperrors.ValidationError("Invalid multipart form")
		}
	}

	file, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() { _ = file.Close() }()

	emote, err := s.app.AddEmote(c.Request().Context(), app.AddEmoteRequest{
		Name:        c.FormValue("name"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        file,
	})
	s.observ.Admin.Record("add_emote", err)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, addEmoteResponse{Success: true, URL: emote.URL}); err != nil {
		return fmt.Errorf("failed to write add emote response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteEmote(c echo.Context) error {
	id := c.Param("id")

	err := s.app.DeleteEmote(c.Request().Context(), id)
	s.observ.Admin.Record("delete_emote", err)
	if errors.Is(err, domain.ErrEmoteNotFound) {
		return apperrors.NotFoundError("Emote not found").WithField("emote_id", id)
	}
	if err != nil {
		return err
	}

	resp := successResponse{Success: true, Message: "Emote deleted"}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write delete response: %w", err)
	}
	return nil
}
