package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/pkg/transport"
)

func TestConnectWriteReadClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := transport.Connect(ctx, transport.Options{
		Command: "cat",
	})
	require.NoError(t, err)

	messages, err := tr.Messages()
	require.NoError(t, err)

	require.NoError(t, tr.Write(`{"type":"user","message":{"role":"user","content":"hi"}}`))

	select {
	case msg := <-messages:
		require.NoError(t, msg.Err)
		assert.JSONEq(t, `{"type":"user","message":{"role":"user","content":"hi"}}`, string(msg.Value))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed message")
	}

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "Close must be idempotent")
}

func TestMessagesAlreadyTaken(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := transport.Connect(ctx, transport.Options{Command: "cat"})
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Messages()
	require.NoError(t, err)

	_, err = tr.Messages()
	assert.ErrorIs(t, err, transport.ErrAlreadyTaken)
}

func TestConnectNotFound(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := transport.Connect(ctx, transport.Options{Command: "workflow-manager-definitely-missing-binary"})
	assert.ErrorIs(t, err, transport.ErrNotFound)
}

func TestWriteAfterCloseFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := transport.Connect(ctx, transport.Options{Command: "cat"})
	require.NoError(t, err)

	require.NoError(t, tr.Close())

	err = tr.Write("ignored")
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestParseErrorDoesNotCloseConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := transport.Connect(ctx, transport.Options{Command: "cat"})
	require.NoError(t, err)
	defer tr.Close()

	messages, err := tr.Messages()
	require.NoError(t, err)

	require.NoError(t, tr.Write("not json"))
	require.NoError(t, tr.Write(`{"type":"ok"}`))

	var sawParseErr, sawOK bool
	for i := 0; i < 2; i++ {
		select {
		case msg := <-messages:
			if msg.Err != nil {
				sawParseErr = true
				var pe *transport.ParseError
				assert.ErrorAs(t, msg.Err, &pe)
			} else {
				sawOK = true
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for messages")
		}
	}
	assert.True(t, sawParseErr)
	assert.True(t, sawOK)
}
