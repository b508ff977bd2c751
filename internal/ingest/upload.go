package ingest

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/salescontrol/pipeline/internal/blobstore"
	"github.com/salescontrol/pipeline/internal/datastore"
)

type uploadResponse struct {
	Status     string    `json:"status"`
	ChunkID    uuid.UUID `json:"chunk_id"`
	StoredPath string    `json:"stored_path"`
	Queued     bool      `json:"queued"`
}

func validationError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": detail})
}

// handleUploadChunk implements POST /api/v1/chunks: authenticated
// multipart upload of one audio chunk.
func (s *Server) handleUploadChunk(c echo.Context) error {
	device := deviceFromContext(c)

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, s.settings.MaxUploadSizeBytes)

	pointID, err1 := uuid.Parse(c.FormValue("point_id"))
	registerID, err2 := uuid.Parse(c.FormValue("register_id"))
	deviceID, err3 := uuid.Parse(c.FormValue("device_id"))
	if err1 != nil || err2 != nil || err3 != nil {
		return validationError(c, "point_id, register_id, device_id must be valid UUIDs")
	}

	startTS, err1 := time.Parse(time.RFC3339, c.FormValue("start_ts"))
	endTS, err2 := time.Parse(time.RFC3339, c.FormValue("end_ts"))
	if err1 != nil || err2 != nil {
		return validationError(c, "start_ts and end_ts must be RFC3339 timestamps")
	}
	if !endTS.After(startTS) {
		return validationError(c, "end_ts must be after start_ts")
	}

	sampleRate, err1 := strconv.Atoi(c.FormValue("sample_rate"))
	channels, err2 := strconv.Atoi(c.FormValue("channels"))
	codec := c.FormValue("codec")
	if err1 != nil || err2 != nil || codec == "" {
		return validationError(c, "codec, sample_rate, channels are required")
	}

	if deviceID != device.DeviceID || pointID != device.PointID || registerID != device.RegisterID {
		return validationError(c, "device_id/point_id/register_id do not match the authenticated device")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return validationError(c, "missing file part")
	}
	if fileHeader.Size == 0 {
		return validationError(c, "file must be non-empty")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return validationError(c, "file too large or unreadable")
	}
	if len(content) == 0 {
		return validationError(c, "file must be non-empty")
	}

	chunkID := uuid.New()
	startTS = startTS.UTC()
	relPath := blobstore.RelativePath(pointID, registerID, chunkID, startTS)

	if _, err := s.blobs.Write(c.Request().Context(), relPath, content); err != nil {
		s.logger.Error("failed to write chunk blob", "error", err, "chunk_id", chunkID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "storage failure"})
	}

	chunk := &datastore.Chunk{
		ChunkID:       chunkID,
		DeviceID:      deviceID,
		PointID:       pointID,
		RegisterID:    registerID,
		StartTS:       startTS,
		EndTS:         endTS,
		DurationSec:   int(endTS.Sub(startTS).Seconds()),
		Codec:         codec,
		SampleRate:    sampleRate,
		Channels:      channels,
		BlobPath:      relPath,
		FileSizeBytes: int64(len(content)),
	}
	if err := s.chunks.Create(c.Request().Context(), nil, chunk); err != nil {
		// Row insert failed after a successful write: remove the orphan blob.
		_ = s.blobs.Delete(relPath)
		s.logger.Error("failed to insert chunk row, orphan blob removed", "error", err, "chunk_id", chunkID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database failure"})
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Status:     "ok",
		ChunkID:    chunkID,
		StoredPath: relPath,
		Queued:     true,
	})
}
