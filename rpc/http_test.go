package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/files"
	"github.com/wordstep/wordstep/network"
	"github.com/wordstep/wordstep/server"
	"github.com/wordstep/wordstep/storage"
)

func TestRPC(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, "greeting.txt"), []byte("hello world END\n"), 0644)
	require.Nil(err)

	custom := config.Default()
	store, err := storage.NewBadgerStore(custom, t.TempDir())
	require.Nil(err)
	defer store.Close()

	hub := network.NewMemoryHub()
	endpoint, err := hub.Listen("server")
	require.Nil(err)
	srv := server.NewServer(custom, endpoint, files.NewDirSource(root), store)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	ts := httptest.NewServer(NewServer(custom, srv, store, 0).Handler)
	defer ts.Close()

	client, err := hub.Listen("client")
	require.Nil(err)
	for _, data := range []string{"greeting.txt", "WORD1"} {
		require.Nil(client.Send([]byte(data), endpoint.LocalAddr()))
		wait, stop := context.WithTimeout(context.Background(), 3*time.Second)
		_, err := client.Receive(wait)
		stop()
		require.Nil(err)
	}

	data, err := CallRPC(ts.URL, "getinfo", []any{})
	require.Nil(err)
	var info struct {
		Version   string `json:"version"`
		Transport string `json:"transport"`
		Address   string `json:"address"`
		Sessions  int    `json:"sessions"`
		Journal   bool   `json:"journal"`
		Metric    struct {
			Filename uint32 `json:"filename"`
			Request  uint32 `json:"request"`
			Data     uint32 `json:"data"`
		} `json:"metric"`
	}
	require.Nil(json.Unmarshal(data, &info))
	require.Equal(config.BuildVersion, info.Version)
	require.Equal("udp", info.Transport)
	require.Equal("server", info.Address)
	require.Equal(1, info.Sessions)
	require.True(info.Journal)
	require.Equal(uint32(1), info.Metric.Filename)
	require.Equal(uint32(1), info.Metric.Request)
	require.Equal(uint32(2), info.Metric.Data)

	data, err = CallRPC(ts.URL, "listsessions", []any{})
	require.Nil(err)
	var sessions []*server.SessionInfo
	require.Nil(json.Unmarshal(data, &sessions))
	require.Len(sessions, 1)
	require.Equal("client", sessions[0].Peer)
	require.Equal("greeting.txt", sessions[0].Filename)
	require.Equal(uint64(1), sessions[0].Requests)
	require.False(sessions[0].Done)

	_, err = CallRPC(ts.URL, "listsessions", []any{1})
	require.NotNil(err)

	data, err = CallRPC(ts.URL, "listtransfers", []any{0, 10})
	require.Nil(err)
	var transfers []*storage.Transfer
	require.Nil(json.Unmarshal(data, &transfers))
	require.Len(transfers, 0)

	cancel()
	require.ErrorIs(<-done, context.Canceled)

	data, err = CallRPC(ts.URL, "listtransfers", []any{0, 10})
	require.Nil(err)
	require.Nil(json.Unmarshal(data, &transfers))
	require.Len(transfers, 1)
	require.Equal(sessions[0].Id, transfers[0].Id)
	require.Equal(storage.TransferOutcomeAborted, transfers[0].Outcome)
	require.Equal(uint64(2), transfers[0].Words)

	_, err = CallRPC(ts.URL, "listtransfers", []any{"x", 10})
	require.NotNil(err)
	_, err = CallRPC(ts.URL, "listtransfers", []any{0})
	require.NotNil(err)
	_, err = CallRPC(ts.URL, "fetchfile", []any{})
	require.NotNil(err)
	require.Contains(err.Error(), "fetchfile")
	_, err = CallRPC(ts.URL, "listtransfers", []any{make(chan int)})
	require.NotNil(err)
	require.Contains(err.Error(), "params")
}

func TestStartHTTP(t *testing.T) {
	require := require.New(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.Nil(listener.Close())

	custom := config.Default()
	hub := network.NewMemoryHub()
	endpoint, err := hub.Listen("server")
	require.Nil(err)
	srv := server.NewServer(custom, endpoint, files.NewDirSource(t.TempDir()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- StartHTTP(ctx, custom, srv, nil, port)
	}()

	node := fmt.Sprintf("http://127.0.0.1:%d", port)
	var data []byte
	for i := 0; i < 100; i++ {
		data, err = CallRPC(node, "listsessions", []any{})
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Nil(err)
	require.Equal("[]", string(data))

	cancel()
	select {
	case err = <-done:
		require.Nil(err)
	case <-time.After(3 * time.Second):
		require.Fail("rpc server still running")
	}
}

func TestRPCWithoutJournal(t *testing.T) {
	require := require.New(t)

	custom := config.Default()
	custom.Network.Transport = "quic"
	ts := httptest.NewServer(NewServer(custom, nil, nil, 0).Handler)
	defer ts.Close()

	_, err := CallRPC(ts.URL, "getinfo", []any{})
	require.NotNil(err)
	require.Contains(err.Error(), "server not running")
	_, err = CallRPC(ts.URL, "listtransfers", []any{0, 10})
	require.NotNil(err)
	require.Contains(err.Error(), "journal disabled")

	resp, err := http.Get(ts.URL)
	require.Nil(err)
	defer resp.Body.Close()
	require.Equal(http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest("OPTIONS", ts.URL, nil)
	require.Nil(err)
	req.Header.Set("Origin", "http://localhost")
	resp, err = http.DefaultClient.Do(req)
	require.Nil(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal("http://localhost", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(ts.URL, "application/json", strings.NewReader("{"))
	require.Nil(err)
	defer resp.Body.Close()
	require.Equal(http.StatusBadRequest, resp.StatusCode)
}
