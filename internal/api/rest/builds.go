package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/KevinKickass/pointc/internal/compiler"
	"github.com/KevinKickass/pointc/internal/pointtable"
	"github.com/KevinKickass/pointc/internal/storage"
	"github.com/KevinKickass/pointc/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSnapshotBytes = 8 << 20

// buildOptions are the request fields next to the snapshot itself.
type buildOptions struct {
	Settings *compiler.Overrides `json:"settings"`
	Persist  bool                `json:"persist"`
}

// POST /api/v1/builds
func (s *Server) createBuild(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("BUILD_400", "Failed to read request body", err.Error()))
		return
	}

	wb, err := s.loader.Parse(body, pointtable.FormatJSON)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("BUILD_400", "Invalid snapshot", err.Error()))
		return
	}

	var opts buildOptions
	if err := json.Unmarshal(body, &opts); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("BUILD_400", "Invalid build options", err.Error()))
		return
	}

	settings := s.lm.Settings().Apply(opts.Settings)
	if err := settings.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SETTINGS_400", "Invalid settings", err.Error()))
		return
	}

	res, err := s.lm.Compiler().Build(c.Request.Context(), *wb, settings)
	s.lm.RecordBuild(err)
	if err != nil {
		var buildErr pointtable.BuildError
		if errors.As(err, &buildErr) {
			c.JSON(http.StatusUnprocessableEntity, types.ErrorResponseFor(err, "BUILD_422"))
			return
		}
		c.JSON(http.StatusInternalServerError, types.ErrorResponseFor(err, "BUILD_500"))
		return
	}

	if opts.Persist {
		store := s.lm.BuildStore()
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("STORAGE_503", "Persistence is disabled", nil))
			return
		}
		if err := store.SaveBuild(c.Request.Context(), res); err != nil {
			s.logger.Error("Failed to save build", zap.String("build_id", res.ID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse("STORAGE_500", "Failed to save build", err.Error()))
			return
		}
	}

	c.JSON(http.StatusCreated, res)
}

// requireStore answers 503 when persistence is disabled.
func (s *Server) requireStore(c *gin.Context) {
	if s.lm.BuildStore() == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			types.NewErrorResponse("STORAGE_503", "Persistence is disabled", nil))
		return
	}
	c.Next()
}

// GET /api/v1/builds?limit=n
func (s *Server) listBuilds(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("BUILD_400", "Invalid limit", raw))
			return
		}
		limit = n
	}

	builds, err := s.lm.BuildStore().ListBuilds(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("STORAGE_500", "Failed to list builds", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"builds": builds,
		"count":  len(builds),
	})
}

// GET /api/v1/builds/:id
func (s *Server) getBuild(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("BUILD_400", "Invalid build id", c.Param("id")))
		return
	}

	res, err := s.lm.BuildStore().LoadBuild(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("BUILD_404", "Build not found", id.String()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("STORAGE_500", "Failed to load build", err.Error()))
		return
	}

	c.JSON(http.StatusOK, res)
}
