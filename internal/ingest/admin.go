package ingest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/security"
)

type createDeviceRequest struct {
	PointID    uuid.UUID `json:"point_id"`
	RegisterID uuid.UUID `json:"register_id"`
}

type createDeviceResponse struct {
	DeviceID uuid.UUID `json:"device_id"`
	Secret   string    `json:"secret"`
}

type deviceResponse struct {
	DeviceID   uuid.UUID  `json:"device_id"`
	PointID    uuid.UUID  `json:"point_id"`
	RegisterID uuid.UUID  `json:"register_id"`
	IsEnabled  bool       `json:"is_enabled"`
	LastSeenAt *string    `json:"last_seen_at,omitempty"`
}

func toDeviceResponse(d datastore.Device) deviceResponse {
	resp := deviceResponse{
		DeviceID:   d.DeviceID,
		PointID:    d.PointID,
		RegisterID: d.RegisterID,
		IsEnabled:  d.IsEnabled,
	}
	if d.LastSeenAt != nil {
		s := d.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.LastSeenAt = &s
	}
	return resp
}

// handleCreateDevice implements POST /api/v1/admin/devices: registers
// a device and returns its plaintext secret once. Only the secret's
// SHA-256 hash is persisted.
func (s *Server) handleCreateDevice(c echo.Context) error {
	var req createDeviceRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, "invalid request body")
	}
	if req.PointID == uuid.Nil || req.RegisterID == uuid.Nil {
		return validationError(c, "point_id and register_id are required")
	}

	secret, err := security.GenerateDeviceToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to generate device secret"})
	}

	device := &datastore.Device{
		DeviceID:   uuid.New(),
		PointID:    req.PointID,
		RegisterID: req.RegisterID,
		TokenHash:  security.HashToken(secret),
		IsEnabled:  true,
	}
	if err := s.devices.Create(c.Request().Context(), device); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "device could not be created"})
	}

	return c.JSON(http.StatusCreated, createDeviceResponse{DeviceID: device.DeviceID, Secret: secret})
}

// handleListDevices implements GET /api/v1/admin/devices.
func (s *Server) handleListDevices(c echo.Context) error {
	devices, err := s.devices.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]deviceResponse, len(devices))
	for i, d := range devices {
		out[i] = toDeviceResponse(d)
	}
	return c.JSON(http.StatusOK, out)
}

type patchDeviceRequest struct {
	Enabled *bool `json:"enabled"`
}

// handlePatchDevice implements PATCH /api/v1/admin/devices/{device_id}:
// enable/disable toggle only.
func (s *Server) handlePatchDevice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("device_id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "device not found"})
	}

	var req patchDeviceRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return validationError(c, "enabled is required")
	}

	if err := s.devices.SetEnabled(c.Request().Context(), id, *req.Enabled); err != nil {
		if err == datastore.ErrDeviceNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "device not found"})
		}
		return err
	}

	device, err := s.devices.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDeviceResponse(*device))
}
