package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dimfeld/httptreemux"
	"github.com/gorilla/handlers"
	"github.com/unrolled/render"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/logger"
	"github.com/wordstep/wordstep/server"
	"github.com/wordstep/wordstep/storage"
)

type R struct {
	Custom *config.Custom
	Server *server.Server
	Store  storage.Store
}

type Call struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

func NewRouter(custom *config.Custom, srv *server.Server, store storage.Store) *httptreemux.TreeMux {
	router, impl := httptreemux.New(), &R{Custom: custom, Server: srv, Store: store}
	router.POST("/", impl.handle)
	registerHanders(router)
	return router
}

func registerHanders(router *httptreemux.TreeMux) {
	router.MethodNotAllowedHandler = func(w http.ResponseWriter, r *http.Request, _ map[string]httptreemux.HandlerFunc) {
		render.New().JSON(w, http.StatusNotFound, map[string]interface{}{})
	}
	router.NotFoundHandler = func(w http.ResponseWriter, r *http.Request) {
		render.New().JSON(w, http.StatusNotFound, map[string]interface{}{})
	}
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, rcv interface{}) {
		err := fmt.Errorf("%v\n%s", rcv, debug.Stack())
		logger.Errorf("rpc panic %v\n", err)
		render.New().JSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	}
}

func (impl *R) handle(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var call Call
	d := json.NewDecoder(r.Body)
	d.UseNumber()
	if err := d.Decode(&call); err != nil {
		render.New().JSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Debugf("rpc %s %v\n", call.Method, call.Params)
	switch call.Method {
	case "getinfo":
		info, err := getInfo(impl.Custom, impl.Server, impl.Store)
		renderData(w, info, err)
	case "listsessions":
		sessions, err := listSessions(impl.Server, call.Params)
		renderData(w, sessions, err)
	case "listtransfers":
		transfers, err := listTransfers(impl.Store, call.Params)
		renderData(w, transfers, err)
	default:
		render.New().JSON(w, http.StatusNotFound, map[string]interface{}{"error": "invalid method " + call.Method})
	}
}

func renderData(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		render.New().JSON(w, http.StatusOK, map[string]interface{}{"error": err.Error()})
	} else {
		render.New().JSON(w, http.StatusOK, map[string]interface{}{"data": data})
	}
}

func handleCORS(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Access-Control-Allow-Headers", "Content-Type,Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "OPTIONS,GET,POST")
		w.Header().Set("Access-Control-Max-Age", "600")
		if r.Method == "OPTIONS" {
			render.New().JSON(w, http.StatusOK, map[string]interface{}{})
		} else {
			handler.ServeHTTP(w, r)
		}
	})
}

func NewServer(custom *config.Custom, srv *server.Server, store storage.Store, port int) *http.Server {
	router := NewRouter(custom, srv, store)
	handler := handleCORS(router)
	handler = handlers.ProxyHeaders(handler)
	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler}
}

// StartHTTP serves until ctx is done, then closes the listener and returns nil.
func StartHTTP(ctx context.Context, custom *config.Custom, srv *server.Server, store storage.Store, port int) error {
	server := NewServer(custom, srv, store, port)
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	logger.Printf("rpc listening on %s\n", server.Addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
