// Package capture is the client side: it reads microphone frames and ships
// them to the relay over TCP, reconnecting on network trouble. The GUI
// concerns live elsewhere; this package only emits events.
package capture

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	SampleRate   = 16000
	FrameSamples = 4096

	DefaultHost        = "127.0.0.1"
	DefaultPort        = 5001
	DefaultDialTimeout = 10 * time.Second
	DefaultRetryDelay  = 5 * time.Second

	// handshakePause gives the server a beat to take the greeting before
	// audio bytes follow on the same stream.
	handshakePause = 100 * time.Millisecond
)

// Event is anything the streamer reports to its presentation layer.
type Event interface{ captureEvent() }

type Status struct{ Message string }

// Level is the per-frame peak, 0.0 to 1.0, reported every other frame.
type Level struct{ Value float64 }

// Fatal ends the streamer; transient network errors never surface as one.
type Fatal struct{ Err error }

type Finished struct{}

func (Status) captureEvent()   {}
func (Level) captureEvent()    {}
func (Fatal) captureEvent()    {}
func (Finished) captureEvent() {}

// Input is one open microphone stream handing out fixed-size frames.
type Input interface {
	Read() ([]int16, error)
	Close() error
}

// Config carries everything the streamer needs to reach the relay.
type Config struct {
	Host     string
	Port     int
	Name     string
	Language string

	// Device is a capture device index; negative means the system default.
	Device int

	DialTimeout time.Duration
	RetryDelay  time.Duration
}

// Streamer supervises one capture-and-send loop. Dial failures and dropped
// connections retry forever; device trouble is fatal.
type Streamer struct {
	cfg    Config
	dial   func(addr string, timeout time.Duration) (net.Conn, error)
	open   func(device int) (Input, error)
	events chan Event

	mu      sync.Mutex
	running bool
	muted   bool
	conn    net.Conn
	input   Input
}

func New(cfg Config) *Streamer {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Streamer{
		cfg:    cfg,
		dial:   dialRelay,
		open:   openInput,
		events: make(chan Event, 256),
	}
}

// Events delivers status, level, fatal and finished events. The channel is
// never closed; Finished is the last event of a run. Slow consumers lose
// events rather than stall the capture loop.
func (s *Streamer) Events() <-chan Event {
	return s.events
}

// Start launches the supervisor goroutine. Calling it on a running streamer
// does nothing.
func (s *Streamer) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.run()
}

// Stop ends the run. It closes the live socket and input so blocked reads
// and writes fall out promptly.
func (s *Streamer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cleanup()
}

// SetMute gates transmission only; capture and level events continue so the
// device buffer drains and the meter stays live.
func (s *Streamer) SetMute(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

func (s *Streamer) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Streamer) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

type sessionEnd int

const (
	endStopped sessionEnd = iota
	endTransient
	endFatal
)

func (s *Streamer) run() {
	defer func() {
		s.cleanup()
		s.emit(Finished{})
	}()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	for s.isRunning() {
		switch s.session(addr) {
		case endTransient:
			seconds := int(s.cfg.RetryDelay / time.Second)
			s.emit(Status{Message: fmt.Sprintf("Connection lost. Retrying in %ds...", seconds)})
			s.cleanup()
			time.Sleep(s.cfg.RetryDelay)
		case endFatal, endStopped:
			return
		}
	}
}

// session is one connection attempt: dial, greet, capture until something
// gives. The caller decides what happens next from the returned class.
func (s *Streamer) session(addr string) sessionEnd {
	s.emit(Status{Message: fmt.Sprintf("Connecting to %s...", addr)})

	conn, err := s.dial(addr, s.cfg.DialTimeout)
	if err != nil {
		return endTransient
	}
	s.track(conn, nil)

	greeting := s.cfg.Name + "|" + s.cfg.Language
	if _, err := conn.Write([]byte(greeting)); err != nil {
		if !s.isRunning() {
			return endStopped
		}
		return endTransient
	}
	time.Sleep(handshakePause)

	input, err := s.open(s.cfg.Device)
	if err != nil {
		s.emit(Fatal{Err: err})
		return endFatal
	}
	s.track(conn, input)

	s.emit(Status{Message: "Streaming audio"})

	counter := 0
	for s.isRunning() {
		frame, err := input.Read()
		if err != nil {
			if !s.isRunning() {
				return endStopped
			}
			s.emit(Fatal{Err: err})
			return endFatal
		}

		counter++
		if counter%2 == 0 {
			s.emit(Level{Value: peakLevel(frame)})
		}

		if s.Muted() {
			continue
		}
		if _, err := conn.Write(frameBytes(frame)); err != nil {
			if !s.isRunning() {
				return endStopped
			}
			return endTransient
		}
	}
	return endStopped
}

func (s *Streamer) track(conn net.Conn, input Input) {
	s.mu.Lock()
	s.conn = conn
	s.input = input
	s.mu.Unlock()
}

// cleanup tears down whatever is live. Safe to call twice and from Stop
// while the run goroutine is mid-session.
func (s *Streamer) cleanup() {
	s.mu.Lock()
	conn, input := s.conn, s.input
	s.conn, s.input = nil, nil
	s.mu.Unlock()

	if input != nil {
		_ = input.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Streamer) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

func dialRelay(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return conn, nil
}

func peakLevel(frame []int16) float64 {
	peak := 0
	for _, sample := range frame {
		v := int(sample)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	level := float64(peak) / 32768.0
	if level > 1 {
		level = 1
	}
	return level
}

func frameBytes(frame []int16) []byte {
	buf := make([]byte, len(frame)*2)
	for i, sample := range frame {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}
