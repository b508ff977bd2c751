package ingest

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/salescontrol/pipeline/internal/datastore"
)

// handleInternalFetch implements GET /api/v1/internal/chunks/{chunk_id}/file:
// streams a chunk's blob back to W2 by id.
func (s *Server) handleInternalFetch(c echo.Context) error {
	chunkID, err := uuid.Parse(c.Param("chunk_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "chunk not found"})
	}

	chunk, err := s.chunks.GetByID(c.Request().Context(), chunkID)
	if err != nil {
		if err == datastore.ErrChunkNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "chunk not found"})
		}
		return err
	}

	stream, size, err := s.blobs.Stream(chunk.BlobPath)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "blob missing"})
	}
	defer stream.Close()

	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	return c.Stream(http.StatusOK, "audio/ogg", stream)
}
