package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/paulmach/orb"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/convert"
	"github.com/samcharles93/geodict/pkg/geodict"
)

type Server struct {
	lib   *geodict.Library
	store *ConversionStore
	clock func() time.Time
	log   logger.Logger
}

func NewServer(lib *geodict.Library, store *ConversionStore, log logger.Logger) *Server {
	if store == nil {
		store = NewConversionStore()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Server{
		lib:   lib,
		store: store,
		clock: time.Now,
		log:   log,
	}
}

func (s *Server) Register(e *echo.Echo) {
	// Dictionaries
	e.GET("/v1/dictionaries/:kind", s.handleListNames)
	e.GET("/v1/dictionaries/:kind/:name", s.handleGetRecord)
	e.PUT("/v1/dictionaries/:kind", s.handlePutRecord)
	e.DELETE("/v1/dictionaries/:kind/:name", s.handleDeleteRecord)

	// Transformation index and bridges
	e.GET("/v1/bridge", s.handleBridge)
	e.GET("/v1/transformations/covering", s.handleCovering)

	// Conversions
	e.POST("/v1/conversions", s.handleCreateConversion)
	e.GET("/v1/conversions/:id", s.handleGetConversion)
	e.POST("/v1/conversions/:id/convert", s.handleConvert)
	e.DELETE("/v1/conversions/:id", s.handleDeleteConversion)
}

// Close releases every open conversion.
func (s *Server) Close() error {
	return s.store.Close()
}

func (s *Server) handleListNames(c *echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return writeFailure(c, err, "kind")
	}
	names, err := s.lib.Catalog().Names(k)
	if err != nil {
		return writeFailure(c, err, "")
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, NameList{Object: "list", Kind: k.String(), Names: names})
}

func (s *Server) handleGetRecord(c *echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return writeFailure(c, err, "kind")
	}
	rec, err := s.lib.Catalog().Lookup(k, c.Param("name"))
	if err != nil {
		return writeFailure(c, err, "name")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handlePutRecord(c *echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return writeFailure(c, err, "kind")
	}
	rec := k.New()
	if err := decodeInto(c.Request().Body, rec); err != nil {
		return writeFailure(c, err, "")
	}
	res, err := s.lib.Update(rec)
	if err != nil {
		return writeFailure(c, err, "")
	}
	s.log.Info("record written", "kind", k.String(), "name", rec.Key(), "result", updateResult(res))
	return c.JSON(http.StatusOK, UpdateResp{
		Object: "record",
		Kind:   k.String(),
		Name:   rec.Key(),
		Result: updateResult(res),
	})
}

func (s *Server) handleDeleteRecord(c *echo.Context) error {
	k, err := kindParam(c)
	if err != nil {
		return writeFailure(c, err, "kind")
	}
	name := c.Param("name")
	if err := s.lib.Delete(k, name); err != nil {
		return writeFailure(c, err, "name")
	}
	s.log.Info("record deleted", "kind", k.String(), "name", name)
	return c.JSON(http.StatusOK, DeleteResp{ID: name, Object: "record", Deleted: true})
}

func (s *Server) handleBridge(c *echo.Context) error {
	src := strings.TrimSpace(c.QueryParam("source"))
	trg := strings.TrimSpace(c.QueryParam("target"))
	br, err := s.lib.BuildBridge(src, trg)
	if err != nil {
		return writeFailure(c, err, "")
	}
	return c.JSON(http.StatusOK, BridgeResp{
		Object:      "bridge",
		Source:      br.Source,
		Target:      br.Target,
		Description: br.String(),
		Steps:       br.Steps(),
	})
}

func (s *Server) handleCovering(c *echo.Context) error {
	lng, err := floatParam(c, "lng")
	if err != nil {
		return writeFailure(c, err, "lng")
	}
	lat, err := floatParam(c, "lat")
	if err != nil {
		return writeFailure(c, err, "lat")
	}
	ix, err := s.lib.Index()
	if err != nil {
		return writeFailure(c, err, "")
	}
	hits := ix.Covering(orb.Point{lng, lat})
	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = ix.Entry(h).Name
	}
	return c.JSON(http.StatusOK, CoveringResp{Object: "list", Lng: lng, Lat: lat, Transformations: names})
}

func (s *Server) handleCreateConversion(c *echo.Context) error {
	req, err := decodeJSON[CreateConversionReq](c.Request().Body)
	if err != nil {
		return writeFailure(c, err, "")
	}
	policy := convert.DefaultPolicy
	if req.Policy != nil {
		policy = *req.Policy
	}
	conv, err := s.lib.SetupConversion(req.Source, req.Target, policy)
	if err != nil {
		return writeFailure(c, err, "")
	}
	info := s.store.Create(conv, s.clock())
	s.log.Info("conversion created", "id", info.ID, "source", info.Source, "target", info.Target, "stages", len(info.Stages))
	return c.JSON(http.StatusCreated, info)
}

func (s *Server) handleGetConversion(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "conversion not found")
	}
	return c.JSON(http.StatusOK, rec.snapshot())
}

func (s *Server) handleConvert(c *echo.Context) error {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "conversion not found")
	}
	req, err := decodeJSON[ConvertReq](c.Request().Body)
	if err != nil {
		return writeFailure(c, err, "")
	}
	if len(req.Points) == 0 {
		return writeBadRequest(c, "points must not be empty")
	}
	points, worst := rec.convert(req)
	return c.JSON(http.StatusOK, ConvertResp{Object: "conversion.result", ID: id, Points: points, Worst: worst})
}

func (s *Server) handleDeleteConversion(c *echo.Context) error {
	id := c.Param("id")
	ok, err := s.store.Delete(id)
	if !ok {
		return writeNotFound(c, "conversion not found")
	}
	if err != nil {
		s.log.Warn("closing conversion", "id", id, "error", err)
	}
	return c.JSON(http.StatusOK, DeleteResp{ID: id, Object: "conversion", Deleted: true})
}
