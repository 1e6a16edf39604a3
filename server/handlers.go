package server

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/viant/imgsim/index"
)

type searchResponse struct {
	Matches []index.Result `json:"matches"`
}

type vectorRequest struct {
	Vector []float32 `json:"vector"`
	TopK   *int      `json:"topk"`
}

type validateResponse struct {
	index.Report
	Warnings []string `json:"warnings"`
}

type rebuildResponse struct {
	Status   string `json:"status"`
	Dataset  string `json:"dataset"`
	IndexDir string `json:"index_dir"`
}

func (s *Server) search(c echo.Context) error {
	k, err := s.topK(c.FormValue("topk"))
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrapf(err, "open upload %s", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrapf(err, "read upload %s", fh.Filename)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.QueryTimeout)
	defer cancel()
	results, err := s.svc.SearchImage(ctx, data, k)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResponse{Matches: results})
}

func (s *Server) searchVector(c echo.Context) error {
	req := vectorRequest{}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	k := s.cfg.TopK
	if req.TopK != nil {
		k = *req.TopK
	}
	results, err := s.svc.Search(req.Vector, k)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, searchResponse{Matches: results})
}

func (s *Server) topK(raw string) (int, error) {
	if raw == "" {
		return s.cfg.TopK, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(index.ErrInvalidArgument, "topk %q is not an integer", raw)
	}
	return k, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.Status())
}

func (s *Server) validate(c echo.Context) error {
	report, err := index.ValidateDir(s.cfg.IndexDir)
	if err != nil && !errors.Is(err, index.ErrCorruptIndex) {
		return err
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	warnings := report.Warnings()
	if warnings == nil {
		warnings = []string{}
	}
	return c.JSON(status, validateResponse{Report: report, Warnings: warnings})
}

func (s *Server) rebuild(c echo.Context) error {
	if !s.rebuilding.CompareAndSwap(false, true) {
		return echo.NewHTTPError(http.StatusConflict, "rebuild already running")
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.rebuilding.Store(false)
		if _, err := s.svc.Reindex(context.Background(), s.cfg.Dataset, s.cfg.IndexDir); err != nil {
			s.logger.Error("rebuild failed", "dataset", s.cfg.Dataset, "error", err)
		}
	}()
	return c.JSON(http.StatusAccepted, rebuildResponse{Status: "started", Dataset: s.cfg.Dataset, IndexDir: s.cfg.IndexDir})
}

func (s *Server) builds(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(index.ErrInvalidArgument, "limit %q is not an integer", raw)
		}
		limit = n
	}
	entries, err := s.history.List(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) skips(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "build journal disabled")
	}
	skips, err := s.history.Skips(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, skips)
}
