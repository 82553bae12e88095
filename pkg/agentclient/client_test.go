package agentclient_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molaco/workflow-manager/pkg/agentclient"
)

func TestSendMessageRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)
	defer c.Close()

	line := json.RawMessage(`{"type":"assistant","role":"assistant","content":"hi there"}`)
	require.NoError(t, c.SendMessage(line))

	msg, ok := c.NextMessage(ctx)
	require.True(t, ok)
	assert.Equal(t, "assistant", msg.Type)
	assert.Equal(t, "assistant", msg.Role)
}

func TestInterruptEmitsControlLine(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Interrupt())

	msg, ok := c.NextMessage(ctx)
	require.True(t, ok)
	assert.Equal(t, "control", msg.Type)
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestSendMessageAfterCloseFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.SendMessage(json.RawMessage(`{"type":"assistant"}`))
	assert.ErrorIs(t, err, agentclient.ErrClosed)
}

func TestTakeHookReceiverExactlyOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.TakeHookReceiver()
	require.NoError(t, err)

	_, err = c.TakeHookReceiver()
	assert.ErrorIs(t, err, agentclient.ErrReceiverAlreadyTaken)
}

func TestTakePermissionReceiverExactlyOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := agentclient.New(ctx, agentclient.Options{Command: "cat"})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.TakePermissionReceiver()
	require.NoError(t, err)

	_, err = c.TakePermissionReceiver()
	assert.ErrorIs(t, err, agentclient.ErrReceiverAlreadyTaken)
}
