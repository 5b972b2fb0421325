package auth

import (
	"context"

	"github.com/katlaang/pestscan-sub001/internal/server/models"
)

type ctxKey int

const (
	claimsKey ctxKey = iota
	deviceKey
)

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the claims put there by the transport's
// authentication step.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// WithDevice stores the calling device's description in ctx.
func WithDevice(ctx context.Context, d models.Device) context.Context {
	return context.WithValue(ctx, deviceKey, d)
}

// DeviceFromContext returns the device stored by WithDevice, or the zero
// Device.
func DeviceFromContext(ctx context.Context) models.Device {
	d, _ := ctx.Value(deviceKey).(models.Device)
	return d
}

// CanAccessFarm reports whether the token grants access to farmID. Tokens
// without a farm scope are accepted only for super admins.
func (c *Claims) CanAccessFarm(farmID string) bool {
	if c.FarmID == "" {
		return c.Role == models.RoleSuperAdmin
	}
	return c.FarmID == farmID
}
