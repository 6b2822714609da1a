package rpc

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/server"
	"github.com/wordstep/wordstep/storage"
)

func getInfo(custom *config.Custom, srv *server.Server, store storage.Store) (map[string]interface{}, error) {
	info := map[string]interface{}{
		"version":   config.BuildVersion,
		"transport": custom.Network.Transport,
		"journal":   store != nil,
	}
	if srv == nil {
		return info, errors.New("server not running")
	}
	info["address"] = srv.LocalAddr().String()
	info["uptime"] = time.Since(srv.StartedAt()).Round(time.Second).String()
	info["sessions"] = srv.SessionsCount()
	info["metric"] = srv.Metric().Snapshot()
	return info, nil
}

func listSessions(srv *server.Server, params []interface{}) ([]*server.SessionInfo, error) {
	if len(params) != 0 {
		return nil, errors.New("invalid params count")
	}
	if srv == nil {
		return nil, errors.New("server not running")
	}
	sessions := srv.Sessions()
	if sessions == nil {
		sessions = []*server.SessionInfo{}
	}
	return sessions, nil
}

func listTransfers(store storage.Store, params []interface{}) ([]*storage.Transfer, error) {
	if len(params) != 2 {
		return nil, errors.New("invalid params count")
	}
	since, err := strconv.ParseUint(fmt.Sprint(params[0]), 10, 64)
	if err != nil {
		return nil, err
	}
	limit, err := strconv.ParseUint(fmt.Sprint(params[1]), 10, 64)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("journal disabled")
	}
	transfers, err := store.ListTransfers(since, int(limit))
	if transfers == nil {
		transfers = []*storage.Transfer{}
	}
	return transfers, err
}
