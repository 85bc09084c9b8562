package handlers

import (
	"net/http"
	"testing"

	"opinionhub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRequestValidation(t *testing.T) {
	valid := voteRequest{
		PollID:       "some-pid",
		Vote:         "yes",
		CaptchaToken: "tok",
		DeviceID:     "dev-1",
	}
	assert.Empty(t, valid.validate())

	cases := []struct {
		name   string
		mutate func(*voteRequest)
		want   string
	}{
		{"missing poll", func(r *voteRequest) { r.PollID = "" }, "Poll ID is required"},
		{"missing vote", func(r *voteRequest) { r.Vote = "" }, "Vote is required"},
		{"bad vote value", func(r *voteRequest) { r.Vote = "maybe" }, "Vote is required"},
		{"missing token", func(r *voteRequest) { r.CaptchaToken = "" }, "CAPTCHA verification is required"},
		{"missing device", func(r *voteRequest) { r.DeviceID = "" }, "Device ID is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			assert.Equal(t, tc.want, req.validate())
		})
	}
}

// The vote endpoint must refuse before touching the database when the
// request is malformed or the captcha token is missing from the store, so
// these paths are testable without one.
func TestVoteRejectsBeforeDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := services.NewMemoryTokenStore()
	t.Cleanup(tokens.Stop)

	r := gin.New()
	r.POST("/api/polls/vote", NewVoteHandler(tokens).Vote)

	w := doJSON(t, r, http.MethodPost, "/api/polls/vote", gin.H{
		"pollId": "p", "vote": "yes", "captchaToken": "unverified", "deviceId": "d",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CAPTCHA verification failed", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/polls/vote", gin.H{
		"pollId": "p", "vote": "yes", "deviceId": "d",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CAPTCHA verification is required", decodeBody(t, w)["error"])
}

func TestCheckVoteValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := services.NewMemoryTokenStore()
	t.Cleanup(tokens.Stop)

	r := gin.New()
	r.POST("/api/polls/check-vote", NewVoteHandler(tokens).CheckVote)

	w := doJSON(t, r, http.MethodPost, "/api/polls/check-vote", gin.H{"deviceId": "d"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Poll ID is required", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/polls/check-vote", gin.H{"pollId": "p"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Device ID is required", decodeBody(t, w)["error"])
}
