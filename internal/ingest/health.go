package ingest

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status          string `json:"status"`
	DB              string `json:"db"`
	StorageWritable bool   `json:"storage_writable"`
	Time            string `json:"time"`
}

// handleHealth implements GET /health: a liveness probe covering the
// database connection and blob-store writability, used by orchestrators
// to decide whether to route traffic to this instance.
func (s *Server) handleHealth(c echo.Context) error {
	dbStatus := "ok"
	if err := s.store.Ping(); err != nil {
		dbStatus = "unreachable"
	}

	storageWritable := s.blobs.CheckWritable()

	resp := healthResponse{
		Status:          "ok",
		DB:              dbStatus,
		StorageWritable: storageWritable,
		Time:            time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if dbStatus != "ok" || !storageWritable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, resp)
}
