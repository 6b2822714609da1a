package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wordstep/wordstep/protocol"
)

func TestMemory(t *testing.T) {
	require := require.New(t)

	hub := NewMemoryHub()
	server, err := hub.Listen("server")
	require.Nil(err)
	client, err := hub.Listen("")
	require.Nil(err)
	require.Equal("mem-1", client.LocalAddr().String())

	_, err = hub.Listen("server")
	require.ErrorIs(err, protocol.ErrTransportSetup)

	err = client.Send([]byte("greeting.txt"), hub.Addr("server"))
	require.Nil(err)
	msg, err := server.Receive(context.Background())
	require.Nil(err)
	require.Equal("greeting.txt", string(msg.Data))
	require.True(SameAddr(client.LocalAddr(), msg.Addr))

	err = client.Send([]byte("lost"), hub.Addr("nobody"))
	require.Nil(err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = server.Receive(ctx)
	require.ErrorIs(err, ErrTimeout)

	err = client.Send([]byte{}, hub.Addr("server"))
	require.ErrorIs(err, ErrMessageSize)
}

func TestMemoryFilter(t *testing.T) {
	require := require.New(t)

	hub := NewMemoryHub()
	server, _ := hub.Listen("server")
	client, _ := hub.Listen("client")

	hub.SetFilter(func(from, to net.Addr, data []byte) int {
		switch string(data) {
		case "WORD1":
			return 0
		case "WORD2":
			return 2
		}
		return 1
	})

	require.Nil(client.Send([]byte("WORD1"), server.LocalAddr()))
	require.Nil(client.Send([]byte("WORD2"), server.LocalAddr()))
	require.Nil(client.Send([]byte("WORD3"), server.LocalAddr()))

	var got []string
	for i := 0; i < 3; i++ {
		msg, err := server.Receive(context.Background())
		require.Nil(err)
		got = append(got, string(msg.Data))
	}
	require.Equal([]string{"WORD2", "WORD2", "WORD3"}, got)
}

func TestMemoryClosed(t *testing.T) {
	require := require.New(t)

	hub := NewMemoryHub()
	server, _ := hub.Listen("server")
	require.Nil(server.Close())
	require.Nil(server.Close())

	_, err := server.Receive(context.Background())
	require.ErrorIs(err, ErrClosed)
	err = server.Send([]byte("END"), hub.Addr("client"))
	require.ErrorIs(err, ErrClosed)

	again, err := hub.Listen("server")
	require.Nil(err)
	require.NotNil(again)
}
