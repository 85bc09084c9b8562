package device

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"opinionhub/internal/utils"
)

const (
	// KeyDeviceID and KeyFingerprint are the fixed storage keys across all
	// chain tiers.
	KeyDeviceID    = "opinionhub_device_id"
	KeyFingerprint = "opinionhub_device_fp"

	// Sentinel is returned when there is no client storage context at all.
	Sentinel = "server-side"
)

// DeviceID returns the stable per-device identifier, generating and
// persisting one on first use. Fails open: with no storage it returns the
// sentinel and never errors. The value is lost when the durable tier is
// cleared, which is why it is only one of several dedup signals.
func DeviceID(chain *Chain) string {
	if chain.Empty() {
		return Sentinel
	}
	return chain.GetOrCreate(KeyDeviceID, generateDeviceID)
}

// generateDeviceID builds "timestamp-random", both radix-36.
func generateDeviceID() string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return timestamp + "-" + utils.RandBase36(13)
}

// WebGL carries the renderer identification, when the environment exposes it.
type WebGL struct {
	Vendor   string
	Renderer string
	Version  string
}

// Environment is the set of hardware/browser traits the fingerprint is
// derived from. Zero or empty fields are simply omitted from the
// fingerprint, matching how an environment without e.g. WebGL behaves.
type Environment struct {
	ScreenWidth  int
	ScreenHeight int
	AvailWidth   int
	AvailHeight  int
	ColorDepth   int
	PixelRatio   float64
	Timezone     string
	Language     string
	Platform     string
	Cores        int
	CanvasData   string // pixel-encoded readback of the fixed canvas render
	WebGL        *WebGL
	UserAgent    string
}

// Fingerprint derives the deterministic device signature: the traits are
// concatenated in fixed order and reduced with the rolling 32-bit hash. No
// timestamp or randomness goes in, so an unchanged environment always
// produces the same value even with every storage tier empty.
func Fingerprint(env Environment) string {
	components := make([]string, 0, 12)

	components = append(components, fmt.Sprintf("screen:%dx%d", env.ScreenWidth, env.ScreenHeight))
	components = append(components, fmt.Sprintf("avail:%dx%d", env.AvailWidth, env.AvailHeight))
	components = append(components, fmt.Sprintf("color:%d", env.ColorDepth))

	pixelRatio := env.PixelRatio
	if pixelRatio == 0 {
		pixelRatio = 1
	}
	components = append(components, "pixel:"+strconv.FormatFloat(pixelRatio, 'g', -1, 64))

	components = append(components, "tz:"+env.Timezone)
	components = append(components, "lang:"+env.Language)
	components = append(components, "platform:"+env.Platform)
	components = append(components, fmt.Sprintf("cores:%d", env.Cores))

	if env.CanvasData != "" {
		components = append(components, "canvas:"+truncate(env.CanvasData, 50))
	}
	if env.WebGL != nil {
		components = append(components, fmt.Sprintf("webgl:%s-%s", env.WebGL.Vendor, env.WebGL.Renderer))
		components = append(components, "glversion:"+env.WebGL.Version)
	}

	components = append(components, "ua:"+truncate(env.UserAgent, 50))

	return utils.HashString(strings.Join(components, "|"))
}

// DeviceFingerprint is the get-or-create-and-persist entry point: a hit in
// any tier wins and is written back through the whole chain; otherwise the
// fingerprint is recomputed from the environment, which yields the same
// value as long as the traits have not changed.
func DeviceFingerprint(chain *Chain, env Environment) string {
	if chain.Empty() {
		return Sentinel
	}
	return chain.GetOrCreate(KeyFingerprint, func() string {
		return Fingerprint(env)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
