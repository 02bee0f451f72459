package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_READ_TIMEOUT = 60 * time.Second
	// Chat replies are streamed, so responses have no write deadline;
	// upstream calls are bounded by the LLM timeout instead.
	DEFAULT_WRITE_TIMEOUT  = 0
	DEFAULT_SHUTDOWN_GRACE = 30 * time.Second
	GRACEFUL_ENVIRON_KEY   = "IS_GRACEFUL"
	GRACEFUL_ENVIRON_VALUE = GRACEFUL_ENVIRON_KEY + "=1"
	GRACEFUL_LISTENER_FD   = 3
)

// Server wraps http.Server to support graceful shutdown and restart.
type Server struct {
	*http.Server

	listener     net.Listener
	isGraceful   bool
	log          *zap.SugaredLogger
	signalChan   chan os.Signal
	shutdownChan chan struct{}
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	log := Sugar
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		isGraceful:   os.Getenv(GRACEFUL_ENVIRON_KEY) != "",
		log:          log,
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
}

// ListenAndServe starts serving on tcp and handles signals.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := srv.getNetListener(addr)
	if err != nil {
		return err
	}
	srv.listener = ln
	return srv.serve()
}

func (srv *Server) serve() error {
	go srv.handleSignals()
	err := srv.Server.Serve(srv.listener)
	// Wait until Shutdown finished
	<-srv.shutdownChan
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (srv *Server) getNetListener(addr string) (net.Listener, error) {
	if srv.isGraceful {
		file := os.NewFile(GRACEFUL_LISTENER_FD, "")
		ln, err := net.FileListener(file)
		if err != nil {
			return nil, fmt.Errorf("net.FileListener error: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.Listen error: %w", err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	signal.Notify(
		srv.signalChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGUSR2,
	)
	defer signal.Stop(srv.signalChan)

	for sig := range srv.signalChan {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			srv.log.Infof("received %s, graceful shutting down HTTP server", sig)
			srv.shutdownHTTPServer()
			return
		case syscall.SIGUSR2:
			srv.log.Info("received SIGUSR2, graceful restarting HTTP server")
			if pid, err := srv.startNewProcess(); err != nil {
				srv.log.Errorf("start new process failed: %v, continue serving", err)
			} else {
				srv.log.Infof("start new process succeeded, new pid=%d", pid)
				srv.log.Info("closing old HTTP server after new one started")
				srv.shutdownHTTPServer()
				return
			}
		}
	}
}

func (srv *Server) shutdownHTTPServer() {
	ctx, cancel := context.WithTimeout(context.Background(), DEFAULT_SHUTDOWN_GRACE)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		srv.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		srv.log.Info("HTTP server shutdown success")
	}
	close(srv.shutdownChan)
}

// start new process to handle HTTP connections
func (srv *Server) startNewProcess() (uintptr, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is not *net.TCPListener")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("get listener file: %w", err)
	}
	listenerFd := file.Fd()

	envs := []string{}
	for _, e := range os.Environ() {
		if e != GRACEFUL_ENVIRON_VALUE {
			envs = append(envs, e)
		}
	}
	envs = append(envs, GRACEFUL_ENVIRON_VALUE)

	attr := &syscall.ProcAttr{
		Env:   envs,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), listenerFd},
	}
	pid, err := syscall.ForkExec(os.Args[0], os.Args, attr)
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return uintptr(pid), nil
}

// GraceServer starts an HTTP server with graceful capabilities.
func GraceServer(addr string, handler http.Handler) error {
	return NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT).ListenAndServe()
}
