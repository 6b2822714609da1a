package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/wordstep/wordstep/client"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/files"
	"github.com/wordstep/wordstep/logger"
	"github.com/wordstep/wordstep/network"
	"github.com/wordstep/wordstep/protocol"
	"github.com/wordstep/wordstep/rpc"
	"github.com/wordstep/wordstep/server"
	"github.com/wordstep/wordstep/storage"
	"github.com/wordstep/wordstep/util"
)

func serveCmd(c *cli.Context) error {
	custom, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("root") {
		custom.Server.Root = c.String("root")
	}
	if c.IsSet("once") {
		custom.Server.Once = c.Bool("once")
	}
	if c.IsSet("journal") {
		custom.Storage.Dir = c.String("journal")
	}
	if c.IsSet("rpc") {
		custom.RPC.Port = c.Int("rpc")
	}
	err = setupLogger(custom)
	if err != nil {
		return err
	}

	endpoint, err := listen(c.Context, custom, false)
	if err != nil {
		return err
	}
	defer endpoint.Close()

	var journal server.Journal
	var store storage.Store
	if dir := custom.Storage.Dir; dir != "" {
		bs, err := storage.NewBadgerStore(custom, dir)
		if err != nil {
			return err
		}
		defer bs.Close()
		journal, store = bs, bs
	}

	srv := server.NewServer(custom, endpoint, files.NewDirSource(custom.Server.Root), journal)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if p := custom.RPC.Port; p > 0 {
		go func() {
			err := rpc.StartHTTP(ctx, custom, srv, store, p)
			if err != nil {
				logger.Errorf("rpc %v\n", err)
			}
		}()
	}
	err = srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func fetchCmd(c *cli.Context) error {
	custom, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("output") {
		custom.Client.Output = c.String("output")
	}
	err = setupLogger(custom)
	if err != nil {
		return err
	}

	filename := c.Args().First()
	if filename == "" {
		fmt.Print("Enter the file name: ")
		_, err = fmt.Fscan(os.Stdin, &filename)
		if err != nil {
			return err
		}
	}

	addr, err := network.ResolveAddr(custom.Network.Transport, custom.Address())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	endpoint, err := listen(ctx, custom, true)
	if err != nil {
		return err
	}
	defer endpoint.Close()

	policy := util.NewBackoff(custom.ClientTimeout(), custom.ClientMaxTimeout(), custom.Client.Attempts)
	sink := files.NewFileSink(custom.Client.Output)
	result, err := client.NewClient(endpoint, addr, sink, policy).Fetch(ctx, filename)
	if errors.Is(err, protocol.ErrFileNotFound) {
		fmt.Println("File not found on server.")
	}
	if err != nil {
		return err
	}
	fmt.Printf("File transfer complete. Check '%s', %d words.\n", custom.Client.Output, result.Words)
	return nil
}

func getInfoCmd(c *cli.Context) error {
	data, err := rpc.CallRPC(c.String("node"), "getinfo", []any{})
	if err == nil {
		fmt.Println(string(data))
	}
	return err
}

func listSessionsCmd(c *cli.Context) error {
	data, err := rpc.CallRPC(c.String("node"), "listsessions", []any{})
	if err == nil {
		fmt.Println(string(data))
	}
	return err
}

func listTransfersCmd(c *cli.Context) error {
	data, err := rpc.CallRPC(c.String("node"), "listtransfers", []any{
		c.Uint64("since"),
		c.Uint64("limit"),
	})
	if err == nil {
		fmt.Println(string(data))
	}
	return err
}

func loadConfig(c *cli.Context) (*config.Custom, error) {
	custom := config.Default()
	if file := c.String("config"); file != "" {
		var err error
		custom, err = config.Initialize(file)
		if err != nil {
			return nil, err
		}
	}
	if c.IsSet("host") {
		custom.Network.Host = c.String("host")
	}
	if c.IsSet("port") {
		custom.Network.Port = c.Int("port")
	}
	if c.IsSet("transport") {
		custom.Network.Transport = c.String("transport")
	}
	if c.IsSet("log") {
		custom.Log.Level = c.Int("log")
	}
	if c.IsSet("filter") {
		custom.Log.Filter = c.String("filter")
	}
	return custom, nil
}

func setupLogger(custom *config.Custom) error {
	logger.SetLevel(custom.Log.Level)
	logger.SetLimiter(custom.Log.Limiter)
	return logger.SetFilter(custom.Log.Filter)
}

// listen binds the server address, or an ephemeral one for a client. A
// QUIC client dials the server up front.
func listen(ctx context.Context, custom *config.Custom, dial bool) (network.Endpoint, error) {
	switch custom.Network.Transport {
	case "quic":
		if dial {
			return network.DialQuic(ctx, custom.Address())
		}
		return network.ListenQuic(custom.Address())
	case "udp":
		if dial {
			return network.ListenUDP("")
		}
		return network.ListenUDP(custom.Address())
	}
	return nil, fmt.Errorf("%w: unsupported transport %s", protocol.ErrTransportSetup, custom.Network.Transport)
}
