package eventbus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"bountychain/core/events"
)

type publishedMsg struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []publishedMsg
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, publishedMsg{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func TestPublisherEmitsEnvelope(t *testing.T) {
	conn := &fakeConn{}
	pub := NewPublisher(conn, " bounty.events. ")
	fixedID := uuid.MustParse("6f1c1b1e-7f6e-4d1a-9a59-0b5f0b2c8e11")
	fixedTime := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	pub.newID = func() uuid.UUID { return fixedID }
	pub.now = func() time.Time { return fixedTime }

	pub.Emit(events.PuzzleSolved{
		Number:        15,
		A:             3,
		B:             5,
		SolverShare:   uint256.NewInt(80),
		TreasuryShare: uint256.NewInt(20),
	})

	require.Len(t, conn.msgs, 1)
	require.Equal(t, "bounty.events.puzzle.solved", conn.msgs[0].subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &env))
	require.Equal(t, fixedID, env.ID)
	require.Equal(t, events.TypePuzzleSolved, env.Type)
	require.True(t, fixedTime.Equal(env.Timestamp))
	require.Equal(t, "80", env.Attributes["solverShare"])
	require.Equal(t, "15", env.Attributes["number"])
}

func TestPublisherSwallowsPublishErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	pub := NewPublisher(conn, "")
	require.NotPanics(t, func() {
		pub.Emit(events.PuzzleCreated{Number: 15, Reward: uint256.NewInt(1)})
	})
	require.Equal(t, "bounty.events.puzzle.created", pub.Subject(events.PuzzleCreated{}))
	require.NoError(t, pub.Close())
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(Config{})
	require.Error(t, err)
}
