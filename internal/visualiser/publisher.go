// Package visualiser streams stroke snapshots to remote renderers over gRPC.
//
// The Publisher is a render.Renderer: the session's refresh loop hands it a
// snapshot on every display refresh and it fans the snapshot out to every
// connected Watch stream. Slow clients lose snapshots rather than stall the
// loop; since each snapshot is the whole stroke, the next one repairs the
// gap.
package visualiser

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// ErrAlreadyRunning is returned by Start on a running publisher.
var ErrAlreadyRunning = errors.New("publisher already running")

// Config holds configuration for the visualiser gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50061")
	ListenAddr string

	// MaxClients is the maximum number of concurrent Watch streams.
	MaxClients int

	// ClientBuffer is how many snapshots may queue per client before
	// snapshots are dropped for it.
	ClientBuffer int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "localhost:50061",
		MaxClients:   5,
		ClientBuffer: 4,
	}
}

// Publisher manages the gRPC server and snapshot fan-out.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	snapChan  chan stroke.Snapshot
	clients   map[string]*clientStream
	clientsMu sync.RWMutex
	latest    atomic.Pointer[stroke.Snapshot]

	// Stats
	published   atomic.Uint64
	dropped     atomic.Uint64
	clientCount atomic.Int32

	// Lifecycle
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

type clientStream struct {
	id     string
	snapCh chan stroke.Snapshot
}

// NewPublisher creates a new Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = DefaultConfig().ClientBuffer
	}
	return &Publisher{
		config:   cfg,
		snapChan: make(chan stroke.Snapshot, 100),
		clients:  make(map[string]*clientStream),
		stopCh:   make(chan struct{}),
	}
}

// Start listens on Config.ListenAddr and serves the Watch stream.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := p.Serve(lis); err != nil {
		lis.Close()
		return err
	}
	return nil
}

// Serve starts the gRPC server on lis. It returns once serving has begun.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterStrokeService(p.server, &Server{publisher: p})

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		diagf("gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			opsf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the listening address, or nil before Serve.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stop gracefully stops the gRPC server. It is safe to call more than once.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.stopOnce.Do(func() {
		p.running.Store(false)
		close(p.stopCh)
		if p.server != nil {
			p.server.GracefulStop()
		}
		p.wg.Wait()
		diagf("gRPC server stopped: published=%d dropped=%d", p.published.Load(), p.dropped.Load())
	})
}

// Render publishes snap to every connected client. It never blocks and
// never fails; a full queue drops the snapshot.
func (p *Publisher) Render(snap stroke.Snapshot) error {
	p.Publish(snap)
	return nil
}

// Publish queues snap for fan-out.
func (p *Publisher) Publish(snap stroke.Snapshot) {
	p.latest.Store(&snap)
	if !p.running.Load() {
		return
	}
	select {
	case p.snapChan <- snap:
		p.published.Add(1)
		tracef("queued revision %d (%d segments)", snap.Revision, len(snap.Segments))
	default:
		dropped := p.dropped.Add(1)
		tracef("dropped revision %d (total dropped: %d), channel full", snap.Revision, dropped)
	}
}

// Latest returns the most recently published snapshot.
func (p *Publisher) Latest() (stroke.Snapshot, bool) {
	s := p.latest.Load()
	if s == nil {
		return stroke.Snapshot{}, false
	}
	return *s, true
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case snap := <-p.snapChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.snapCh <- snap:
				default:
					// Client is slow; its next snapshot supersedes this one.
					p.dropped.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// addClient registers a stream, or returns false when MaxClients is reached.
func (p *Publisher) addClient() (*clientStream, bool) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		return nil, false
	}
	client := &clientStream{
		id:     uuid.NewString(),
		snapCh: make(chan stroke.Snapshot, p.config.ClientBuffer),
	}
	p.clients[client.id] = client
	n := p.clientCount.Add(1)
	diagf("client connected: %s (total: %d)", client.id, n)
	return client, true
}

func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if _, ok := p.clients[id]; ok {
		delete(p.clients, id)
		n := p.clientCount.Add(-1)
		diagf("client disconnected: %s (remaining: %d)", id, n)
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Clients   int32  `json:"clients"`
	Running   bool   `json:"running"`
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Clients:   p.clientCount.Load(),
		Running:   p.running.Load(),
	}
}
