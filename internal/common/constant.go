package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Device metadata keys sent by field devices alongside every mutation.
const (
	DeviceIDHeaderName   = "x-device-id"
	DeviceTypeHeaderName = "x-device-type"
	LocationHeaderName   = "x-device-location"
)
