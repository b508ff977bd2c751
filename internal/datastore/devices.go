package datastore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceRepository persists and looks up registered devices.
type DeviceRepository struct {
	store *Store
}

func NewDeviceRepository(store *Store) *DeviceRepository {
	return &DeviceRepository{store: store}
}

// Create inserts a new device row.
func (r *DeviceRepository) Create(ctx context.Context, d *Device) error {
	return r.store.DB.WithContext(ctx).Create(d).Error
}

// GetByTokenHash looks up an enabled device by its secret hash. Returns
// ErrDeviceNotFound if no enabled device matches.
func (r *DeviceRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*Device, error) {
	var d Device
	err := r.store.DB.WithContext(ctx).
		Where("token_hash = ? AND is_enabled = ?", tokenHash, true).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetByID looks up a device regardless of enabled state, for admin use.
func (r *DeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*Device, error) {
	var d Device
	err := r.store.DB.WithContext(ctx).First(&d, "device_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns every device, newest first, for the admin listing endpoint.
func (r *DeviceRepository) List(ctx context.Context) ([]Device, error) {
	var devices []Device
	err := r.store.DB.WithContext(ctx).Order("created_at DESC").Find(&devices).Error
	return devices, err
}

// SetEnabled toggles a device's enabled flag.
func (r *DeviceRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result := r.store.DB.WithContext(ctx).Model(&Device{}).
		Where("device_id = ?", id).
		Update("is_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// TouchLastSeen stamps last_seen_at to now, fire-and-forget from the
// caller's perspective: failures are non-fatal to the upload path.
func (r *DeviceRepository) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.store.DB.WithContext(ctx).Model(&Device{}).
		Where("device_id = ?", id).
		Update("last_seen_at", now).Error
}
