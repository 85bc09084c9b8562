package integration

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"opinionhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVoteFlow walks the public path end to end: solve captcha, vote,
// re-vote, check status.
func TestVoteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.createPoll(t, "Flow Gadget")
	v := newVoter(1)

	// Vote without a stored captcha token is refused.
	resp, body := app.castVote(t, v, poll.Pid, "yes", "never-stored")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CAPTCHA verification failed", body["error"])

	// Solve the captcha, then vote.
	app.storeToken(t, "tok-flow-1")
	resp, body = app.castVote(t, v, poll.Pid, "yes", "tok-flow-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Vote recorded successfully", body["message"])

	updated := body["poll"].(map[string]interface{})
	assert.Equal(t, float64(1), updated["yesVotes"])
	assert.Equal(t, float64(0), updated["noVotes"])
	assert.Equal(t, float64(1), updated["totalVotes"])
	assert.Equal(t, float64(100), updated["yesPercentage"])
	assert.Equal(t, float64(0), updated["noPercentage"])

	// The token was consumed with the vote.
	resp, body = app.castVote(t, newVoter(2), poll.Pid, "yes", "tok-flow-1")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CAPTCHA verification failed", body["error"])

	// Same device, fresh token: still one vote per poll.
	app.storeToken(t, "tok-flow-2")
	resp, body = app.castVote(t, v, poll.Pid, "no", "tok-flow-2")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You have already voted on this poll", body["error"])

	// Status endpoint reports the recorded choice.
	resp = app.request(t, app.Client, http.MethodPost, "/api/polls/check-vote", map[string]interface{}{
		"pollId":            poll.Pid,
		"deviceId":          v.DeviceID,
		"deviceFingerprint": v.Fingerprint,
	}, v)
	body = decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["hasVoted"])
	assert.Equal(t, "yes", body["vote"])

	// A fresh device has no vote on record.
	other := newVoter(3)
	resp = app.request(t, app.Client, http.MethodPost, "/api/polls/check-vote", map[string]interface{}{
		"pollId":   poll.Pid,
		"deviceId": other.DeviceID,
	}, other)
	body = decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["hasVoted"])
	assert.Nil(t, body["vote"])
}

// TestVoteDedupSignals exercises the broad OR matching: any single shared
// signal blocks the second vote.
func TestVoteDedupSignals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.createPoll(t, "Dedup Gadget")

	first := newVoter(10)
	app.storeToken(t, "tok-d1")
	resp, _ := app.castVote(t, first, poll.Pid, "yes", "tok-d1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cases := []struct {
		name  string
		voter voter
	}{
		{"same fingerprint, new device", voter{
			DeviceID:    "dev-cleared-storage",
			Fingerprint: first.Fingerprint,
			UserAgent:   "OtherBrowser/1.0",
			IP:          "198.51.100.1",
		}},
		{"same device id only", voter{
			DeviceID:    first.DeviceID,
			Fingerprint: "fp-other",
			UserAgent:   "OtherBrowser/2.0",
			IP:          "198.51.100.2",
		}},
		{"same ip only", voter{
			DeviceID:    "dev-other",
			Fingerprint: "fp-other-2",
			UserAgent:   "OtherBrowser/3.0",
			IP:          first.IP,
		}},
		{"same user agent only", voter{
			DeviceID:    "dev-other-3",
			Fingerprint: "fp-other-3",
			UserAgent:   first.UserAgent,
			IP:          "198.51.100.3",
		}},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := fmt.Sprintf("tok-d-case-%d", i)
			app.storeToken(t, token)
			resp, body := app.castVote(t, tc.voter, poll.Pid, "no", token)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "You have already voted on this poll", body["error"])
		})
	}

	// Nothing in common: the vote goes through.
	distinct := voter{
		DeviceID:    "dev-distinct",
		Fingerprint: "fp-distinct",
		UserAgent:   "DistinctBrowser/1.0",
		IP:          "198.51.100.99",
	}
	app.storeToken(t, "tok-d-distinct")
	resp, _ = app.castVote(t, distinct, poll.Pid, "no", "tok-d-distinct")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Tallies match the two accepted votes.
	var stored models.Poll
	require.NoError(t, app.Gorm.First(&stored, poll.ID).Error)
	assert.Equal(t, 1, stored.YesVotes)
	assert.Equal(t, 1, stored.NoVotes)

	// Dedup never blocks the same voter on a different poll.
	second := app.createPoll(t, "Second Gadget")
	app.storeToken(t, "tok-d-second")
	resp, _ = app.castVote(t, first, second.Pid, "yes", "tok-d-second")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestConcurrentVotesExactTally fires distinct voters at one poll in
// parallel; the stored tallies must equal the accepted votes exactly.
func TestConcurrentVotesExactTally(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.createPoll(t, "Concurrent Gadget")

	const voters = 20
	for i := 0; i < voters; i++ {
		app.storeToken(t, fmt.Sprintf("tok-c-%d", i))
	}

	var wg sync.WaitGroup
	accepted := make(chan string, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			choice := "yes"
			if n%2 == 1 {
				choice = "no"
			}
			resp, _ := app.castVote(t, newVoter(100+n), poll.Pid, choice, fmt.Sprintf("tok-c-%d", n))
			if resp.StatusCode == http.StatusOK {
				accepted <- choice
			}
		}(i)
	}
	wg.Wait()
	close(accepted)

	wantYes, wantNo := 0, 0
	for choice := range accepted {
		if choice == "yes" {
			wantYes++
		} else {
			wantNo++
		}
	}
	require.Equal(t, voters, wantYes+wantNo, "all distinct voters must be accepted")

	var stored models.Poll
	require.NoError(t, app.Gorm.First(&stored, poll.ID).Error)
	assert.Equal(t, wantYes, stored.YesVotes)
	assert.Equal(t, wantNo, stored.NoVotes)

	var voteRows int64
	require.NoError(t, app.Gorm.Model(&models.Vote{}).Where("poll_id = ?", poll.ID).Count(&voteRows).Error)
	assert.EqualValues(t, wantYes+wantNo, voteRows)
}

// TestDuplicateRace sends the same identity twice in parallel; the unique
// index must let exactly one through.
func TestDuplicateRace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	poll := app.createPoll(t, "Race Gadget")
	v := newVoter(50)
	app.storeToken(t, "tok-r-1")
	app.storeToken(t, "tok-r-2")

	var wg sync.WaitGroup
	results := make(chan int, 2)
	for _, token := range []string{"tok-r-1", "tok-r-2"} {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			resp, _ := app.castVote(t, v, poll.Pid, "yes", tok)
			results <- resp.StatusCode
		}(token)
	}
	wg.Wait()
	close(results)

	okCount := 0
	for code := range results {
		if code == http.StatusOK {
			okCount++
		}
	}
	assert.Equal(t, 1, okCount, "exactly one of the racing duplicates may land")

	var stored models.Poll
	require.NoError(t, app.Gorm.First(&stored, poll.ID).Error)
	assert.Equal(t, 1, stored.YesVotes)
}
