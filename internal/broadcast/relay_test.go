package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRemote(t *testing.T) {
	evt := NewEvent(EventVoteCountUpdated, VoteCountUpdated{NominationID: 5, VoteCount: 9})
	evt.Origin = "node-b"
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	got, ok, err := decodeRemote(string(payload), "node-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, EventVoteCountUpdated, got.Type)
	assert.Equal(t, "node-b", got.Origin)

	raw, isRaw := got.Data.(json.RawMessage)
	require.True(t, isRaw)
	var data VoteCountUpdated
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, int64(9), data.VoteCount)
}

func TestDecodeRemoteSkipsOwnEvents(t *testing.T) {
	evt := NewEvent(EventResultsReset, ResultsReset{PositionID: 1})
	evt.Origin = "node-a"
	payload, err := json.Marshal(evt)
	require.NoError(t, err)

	_, ok, err := decodeRemote(string(payload), "node-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeRemoteRejectsMalformed(t *testing.T) {
	_, _, err := decodeRemote("{", "node-a")
	assert.Error(t, err)

	_, _, err = decodeRemote(`{"id":"x","type":"results_reset"}`, "node-a")
	assert.Error(t, err)
}
