package ws

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topblame/ekani-crew-ai-server/internal/match"
	"github.com/topblame/ekani-crew-ai-server/internal/mbti"
)

type fakeConn struct {
	written  []interface{}
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestSendToAbsentUserIsNoOp(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	connected, err := r.Send("nobody", "hello")
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestRegisterAndSend(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &fakeConn{}

	r.Register("u1", conn)
	connected, err := r.Send("u1", "hello")
	require.NoError(t, err)
	assert.True(t, connected)
	assert.Len(t, conn.written, 1)
}

func TestReconnectReplacesAndClosesOldConnection(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	old := &fakeConn{}
	fresh := &fakeConn{}

	r.Register("u1", old)
	r.Register("u1", fresh)
	assert.True(t, old.closed)

	// Unregistering the stale connection must not evict the new one.
	r.Unregister("u1", old)
	assert.Equal(t, 1, r.Len())
	connected, err := r.Send("u1", "hello")
	require.NoError(t, err)
	assert.True(t, connected)
	assert.Len(t, fresh.written, 1)
}

func TestUnregister(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &fakeConn{}

	r.Register("u1", conn)
	r.Unregister("u1", conn)

	connected, err := r.Send("u1", "hello")
	require.NoError(t, err)
	assert.False(t, connected)
}

func TestShutdownClosesEverything(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	a := &fakeConn{}
	b := &fakeConn{}

	r.Register("a", a)
	r.Register("b", b)
	require.Equal(t, 2, r.Len())

	r.Shutdown()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.Equal(t, 0, r.Len())
}

func TestNotifierDeliversEnvelope(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &fakeConn{}
	r.Register("partner", conn)

	n := NewNotifier(r, zerolog.Nop())
	err := n.NotifyMatchSuccess(context.Background(), "partner", match.Notification{
		Type:   "match_success",
		RoomID: "room-1",
		MyMBTI: mbti.ENFJ,
	})
	require.NoError(t, err)

	require.Len(t, conn.written, 1)
	msg, ok := conn.written[0].(Message)
	require.True(t, ok)
	assert.Equal(t, MsgMatchSuccess, msg.Type)
	assert.NotEmpty(t, msg.MessageID)
}

func TestNotifierAbsentUserIsSilent(t *testing.T) {
	n := NewNotifier(NewRegistry(zerolog.Nop()), zerolog.Nop())
	err := n.NotifyMatchSuccess(context.Background(), "ghost", match.Notification{})
	assert.NoError(t, err)
}

func TestNotifierSurfacesWriteFailure(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	r.Register("partner", conn)

	n := NewNotifier(r, zerolog.Nop())
	err := n.NotifyMatchSuccess(context.Background(), "partner", match.Notification{})
	assert.Error(t, err)
}
