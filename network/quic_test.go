package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuic(t *testing.T) {
	require := require.New(t)

	server, err := ListenQuic("127.0.0.1:0")
	require.Nil(err)
	require.NotNil(server)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := DialQuic(ctx, server.LocalAddr().String())
	require.Nil(err)
	require.NotNil(client)
	defer client.Close()

	var msg *Message
	for msg == nil {
		err = client.Send([]byte("greeting.txt"), server.LocalAddr())
		require.Nil(err)
		wait, done := context.WithTimeout(ctx, 200*time.Millisecond)
		msg, err = server.Receive(wait)
		done()
		if err != nil {
			require.ErrorIs(err, ErrTimeout)
		}
	}
	require.Equal("greeting.txt", string(msg.Data))

	err = server.Send([]byte("hello"), msg.Addr)
	require.Nil(err)
	reply, err := client.Receive(ctx)
	require.Nil(err)
	require.Equal("hello", string(reply.Data))
	require.True(SameAddr(server.LocalAddr(), reply.Addr))

	require.Nil(client.Close())
	_, err = client.Receive(ctx)
	require.ErrorIs(err, ErrClosed)
	err = client.Send([]byte("WORD1"), server.LocalAddr())
	require.ErrorIs(err, ErrClosed)
}
