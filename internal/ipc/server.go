package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	defaultConnTimeout        = 10 * time.Second
	defaultMaxConcurrentConns = 16
	connSlotAcquireTimeout    = 2 * time.Second
)

// Server answers pipe requests against an event hub and a key source.
type Server struct {
	pipeName string
	events   Events
	keys     KeySource
	listen   func(name string) (net.Listener, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}
}

// NewServer builds a Server on pipeName, or DefaultPipeName when empty.
func NewServer(pipeName string, events Events, keySrc KeySource) *Server {
	if pipeName == "" {
		pipeName = DefaultPipeName()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		pipeName:  pipeName,
		events:    events,
		keys:      keySrc,
		listen:    listenPipe,
		ctx:       ctx,
		cancel:    cancel,
		connSlots: make(chan struct{}, defaultMaxConcurrentConns),
	}
}

// PipeName returns the listen pipe name.
func (s *Server) PipeName() string {
	return s.pipeName
}

// Start begins accepting connections. It returns ErrUnsupported on
// platforms without named pipes.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("pipe server already started")
	}
	if s.events == nil || s.keys == nil {
		return errors.New("pipe server requires events and key source")
	}
	listener, err := s.listen(s.pipeName)
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			return err
		}
		return fmt.Errorf("listen %s: %w", s.pipeName, err)
	}
	s.listener = listener
	s.started = true
	s.wg.Go(s.acceptLoop)
	slog.Info("[ipc] pipe server started", "pipe", s.pipeName)
	return nil
}

// Stop closes the listener and waits for in-flight connections.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	var closeErr error
	if listener != nil {
		closeErr = listener.Close()
	}
	s.wg.Wait()
	return closeErr
}

func (s *Server) acceptLoop() {
	consecutiveErrors := 0
	for {
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener == nil {
			return
		}

		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			consecutiveErrors++
			if consecutiveErrors > 10 {
				slog.Warn("[ipc] accept loop: repeated failures", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		if !s.acquireConnectionSlot() {
			s.writeResponse(conn, Response{Error: "server busy, try again later"})
			_ = conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer s.releaseConnectionSlot()
			s.handleConnection(conn)
		})
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		slog.Debug("[ipc] failed to set connection deadline", "error", err)
		return
	}

	raw, err := readFrame(newFrameReader(conn), maxFrameBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	if err != nil {
		s.writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	req, err := decodeRequest(raw)
	if err != nil {
		s.writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	slog.Debug("[ipc] request", "op", req.Op)
	s.writeResponse(conn, s.Handle(req))
}

// Handle executes one request.
func (s *Server) Handle(req Request) Response {
	switch req.Op {
	case OpShouldIgnore:
		if req.Fingerprint == "" {
			return Response{Error: "fingerprint is required"}
		}
		window := time.Duration(req.WindowMS) * time.Millisecond
		if window < 0 || window > maxWindow {
			return Response{Error: fmt.Sprintf("window_ms must be within 0-%d", maxWindow.Milliseconds())}
		}
		return Response{OK: true, Ignored: s.events.ShouldIgnore(req.Fingerprint, window)}
	case OpPublish:
		if req.Event == nil {
			return Response{Error: "event is required"}
		}
		ev, err := EventFromPayload(*req.Event)
		if err != nil {
			return Response{Error: err.Error()}
		}
		s.events.Publish(ev)
		return Response{OK: true}
	case OpLastPressedKey:
		return Response{OK: true, Key: s.keys.LastPressedKey().String()}
	default:
		return Response{Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	if err := writeFrame(conn, resp); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

func (s *Server) acquireConnectionSlot() bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[ipc] connection slots exhausted, rejecting client")
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *Server) releaseConnectionSlot() {
	select {
	case <-s.connSlots:
	default:
	}
}
