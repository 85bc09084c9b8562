package captcha

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitUprightVerifies(t *testing.T) {
	c := NewService().NewChallenge()
	defer c.Stop()
	c.Start()

	c.setRotation(0)
	require.True(t, c.Submit())
	assert.Equal(t, StateVerified, c.State())
	assert.NotEmpty(t, c.Token())
}

func TestRotateToUpright(t *testing.T) {
	c := NewService().NewChallenge()
	defer c.Stop()
	c.Start()

	// 90° clockwise start: three more rights wrap around to upright.
	c.setRotation(90)
	c.RotateRight()
	c.RotateRight()
	c.RotateRight()
	assert.Equal(t, 0, c.Rotation())
	require.True(t, c.Submit())

	c2 := NewService().NewChallenge()
	defer c2.Stop()
	c2.Start()

	// 180° start: two lefts also land upright.
	c2.setRotation(180)
	c2.RotateLeft()
	c2.RotateLeft()
	assert.Equal(t, 0, c2.Rotation())
	require.True(t, c2.Submit())
}

func TestRotationNormalization(t *testing.T) {
	c := NewService().NewChallenge()
	defer c.Stop()
	c.Start()

	c.setRotation(0)
	c.RotateLeft() // -90 wraps to 270
	assert.Equal(t, 270, c.Rotation())
	c.RotateRight()
	assert.Equal(t, 0, c.Rotation())
}

func TestMismatchEntersErrorThenAutoResets(t *testing.T) {
	errored := make(chan struct{}, 1)
	c := NewService().NewChallenge(
		WithResetDelay(10*time.Millisecond),
		OnError(func() { errored <- struct{}{} }),
	)
	defer c.Stop()
	c.Start()

	c.setRotation(90)
	require.False(t, c.Submit())
	assert.Equal(t, StateError, c.State())

	select {
	case <-errored:
	case <-time.After(time.Second):
		t.Fatal("error callback never fired")
	}

	// The auto-reset rolls a fresh puzzle.
	require.Eventually(t, func() bool {
		return c.State() == StateActive
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Token())
}

func TestRotateClearsErrorState(t *testing.T) {
	c := NewService().NewChallenge(WithResetDelay(time.Hour))
	defer c.Stop()
	c.Start()

	c.setRotation(90)
	require.False(t, c.Submit())
	require.Equal(t, StateError, c.State())

	c.RotateLeft()
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, 0, c.Rotation())
	require.True(t, c.Submit())
}

func TestExpiryRollsNewChallenge(t *testing.T) {
	expired := make(chan struct{}, 1)
	c := NewService().NewChallenge(
		WithExpiry(10*time.Millisecond),
		OnExpired(func() { expired <- struct{}{} }),
	)
	defer c.Stop()
	c.Start()

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("expiry callback never fired")
	}

	require.Eventually(t, func() bool {
		return c.State() == StateActive
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Token())
}

func TestVerifiedIsTerminal(t *testing.T) {
	c := NewService().NewChallenge(WithExpiry(20 * time.Millisecond))
	defer c.Stop()
	c.Start()

	c.setRotation(0)
	require.True(t, c.Submit())
	token := c.Token()
	require.NotEmpty(t, token)

	// Rotations, resets and the expiry timer no longer apply.
	c.RotateRight()
	assert.Equal(t, 0, c.Rotation())
	c.Reset()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, StateVerified, c.State())
	assert.Equal(t, token, c.Token())
	assert.True(t, c.Submit())
}

func TestTokenFormat(t *testing.T) {
	c := NewService().NewChallenge()
	defer c.Stop()
	c.Start()

	c.setRotation(0)
	require.True(t, c.Submit())

	raw, err := base64.StdEncoding.DecodeString(c.Token())
	require.NoError(t, err)

	parts := strings.SplitN(string(raw), "-", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, c.Icon().Name, parts[0])

	rotation, err := strconv.Atoi(parts[1])
	require.NoError(t, err)
	assert.Equal(t, 0, rotation%360)
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewService()
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		c := svc.NewChallenge()
		c.Start()
		c.setRotation(0)
		require.True(t, c.Submit())
		token := c.Token()
		assert.False(t, seen[token], "token issued twice")
		seen[token] = true
		c.Stop()
	}
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "instructions", StateInstructions.String())
	assert.Equal(t, "challenge-active", StateActive.String())
	assert.Equal(t, "verified", StateVerified.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "expired", StateExpired.String())
}
