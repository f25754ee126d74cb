// Package daemon implements a service for mediating access to the data
// store, and its client.
//
// Most RPCs exposed by the service correspond to the methods of hal.Store
// and are not documented here. The daemon exists so that several shells can
// share one state file: the bolt backend takes an exclusive file lock, so
// concurrent sessions must go through a single owner.
package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/jsonrpc2"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/hal/boltstore"
	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/prog"
)

var logger = logutil.GetLogger("[daemon] ")

// Program is the daemon subprogram.
type Program struct {
	// Used in tests.
	serveOpts ServeOpts
}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if !f.Daemon {
		return prog.ErrNotSuitable
	}
	if len(args) > 0 {
		return prog.BadUsage("arguments are not allowed with -daemon")
	}
	if f.Sock == "" || f.DB == "" {
		return prog.BadUsage("-daemon requires -sock and -db")
	}
	st, err := boltstore.Open(f.DB)
	if err != nil {
		logger.Printf("failed to open storage: %v", err)
		return prog.Exit(2)
	}
	if err := st.Init(); err != nil {
		logger.Printf("failed to initialize storage: %v", err)
		st.Close()
		return prog.Exit(2)
	}
	exit := Serve(f.Sock, st, p.serveOpts)
	if err := st.Close(); err != nil {
		logger.Printf("failed to close storage: %v", err)
	}
	return prog.Exit(exit)
}

// ServeOpts keeps options that can be passed to Serve.
type ServeOpts struct {
	// If not nil, will be closed when the daemon is ready to serve requests.
	Ready chan<- struct{}
	// Causes the daemon to abort if closed or sent any value. If nil, Serve
	// will set up its own signal channel by listening to SIGINT and SIGTERM.
	Signals <-chan os.Signal
}

// Serve runs the daemon service, listening on the socket specified by
// sockpath and serving records from st until all clients have exited. See
// doc for ServeOpts for additional options.
func Serve(sockpath string, st hal.Store, opts ServeOpts) int {
	logger.Println("pid is", syscall.Getpid())
	logger.Println("going to listen", sockpath)
	listener, err := net.Listen("unix", sockpath)
	if err != nil {
		logger.Printf("failed to listen on %s: %v", sockpath, err)
		logger.Println("aborting")
		return 2
	}

	svc := &service{st}

	connCh := make(chan net.Conn, 10)
	listenErrCh := make(chan error, 1)
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				listenErrCh <- err
				close(listenErrCh)
				return
			}
			connCh <- conn
		}
	}()

	sigCh := opts.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		sigCh = ch
	}

	conns := make(map[*jsonrpc2.Conn]struct{})
	connDoneCh := make(chan *jsonrpc2.Conn, 10)

	interrupt := func() {
		logger.Printf("going to close %v active connections", len(conns))
		for conn := range conns {
			// Ignore the error - if we can't close the connection it's
			// because the client has closed it already.
			conn.Close()
		}
	}

	if opts.Ready != nil {
		close(opts.Ready)
	}

loop:
	for {
		select {
		case sig := <-sigCh:
			logger.Printf("received signal %v", sig)
			interrupt()
			break loop
		case err := <-listenErrCh:
			logger.Println("could not listen:", err)
			if len(conns) == 0 {
				logger.Println("exiting since there are no clients")
				break loop
			}
			logger.Println("continuing to serve until all existing clients exit")
		case netConn := <-connCh:
			conn := jsonrpc2.NewConn(context.Background(),
				jsonrpc2.NewBufferedStream(netConn, jsonrpc2.PlainObjectCodec{}),
				svc.handler())
			conns[conn] = struct{}{}
			go func() {
				<-conn.DisconnectNotify()
				connDoneCh <- conn
			}()
		case conn := <-connDoneCh:
			delete(conns, conn)
			if len(conns) == 0 {
				logger.Println("all clients disconnected, exiting")
				break loop
			}
		}
	}

	err = os.Remove(sockpath)
	if err != nil {
		logger.Printf("failed to remove socket %s: %v", sockpath, err)
	}
	err = listener.Close()
	if err != nil {
		logger.Printf("failed to close listener: %v", err)
	}
	// Ensure that the listener goroutine has exited before returning.
	<-listenErrCh
	return 0
}

// service exposes a hal.Store over JSON-RPC.
type service struct {
	store hal.Store
}

var errInvalidParams = &jsonrpc2.Error{
	Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
var errMethodNotFound = &jsonrpc2.Error{
	Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}

type method func(json.RawMessage) (any, error)

func (s *service) handler() jsonrpc2.Handler {
	methods := map[string]method{
		methodVersion: s.version,
		methodLoad:    s.load,
		methodSave:    s.save,
		methodDelete:  s.delete,
		methodKeys:    s.keys,
		methodClear:   s.clear,
	}
	return jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var raw json.RawMessage
		if req.Params != nil {
			raw = *req.Params
		}
		return fn(raw)
	})
}

func (s *service) version(_ json.RawMessage) (any, error) {
	return &versionReply{Version}, nil
}

func (s *service) load(raw json.RawMessage) (any, error) {
	var args keyArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errInvalidParams
	}
	data, err := s.store.Load(args.Key)
	if err != nil {
		return nil, err
	}
	return &loadReply{data}, nil
}

func (s *service) save(raw json.RawMessage) (any, error) {
	var args saveArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errInvalidParams
	}
	return nil, s.store.Save(args.Key, args.Data)
}

func (s *service) delete(raw json.RawMessage) (any, error) {
	var args keyArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errInvalidParams
	}
	return nil, s.store.Delete(args.Key)
}

func (s *service) keys(raw json.RawMessage) (any, error) {
	var args prefixArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errInvalidParams
	}
	keys, err := s.store.Keys(args.Prefix)
	if err != nil {
		return nil, err
	}
	return &keysReply{keys}, nil
}

func (s *service) clear(_ json.RawMessage) (any, error) {
	return nil, s.store.Clear()
}
