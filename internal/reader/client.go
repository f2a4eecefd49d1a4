//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package reader controls LLRP Readers over TCP.
//
// A Client connects to a single Reader, configures it from a Config,
// starts and stops inventory, and passes tag reports and Reader events
// to registered callbacks. A ReaderGroup drives several Clients at once.
package reader

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v2/clients/logger"
	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

const readBufferSize = 4096

// Client is a connection to a single LLRP Reader.
//
// Its methods are safe for concurrent use,
// but only one request may await a response at a time;
// a second fails with ErrRequestInFlight.
// Callbacks run on the Client's read goroutine, one at a time,
// in the order the Reader sent the messages that caused them.
type Client struct {
	cfg Config
	lc  logger.LoggingClient
	dec *llrp.Decoder

	msgID uint32 // atomic; ID of the last message sent

	mu       sync.Mutex
	state    State
	sess     *session
	device   llrp.Device
	behavior llrp.Behavior
	content  llrp.ContentSelector
	tags     tagPipeline
	impinjOn bool

	pendingMu sync.Mutex
	pending   *pendingRequest

	cbMu     sync.RWMutex
	tagCBs   []TagReportCallback
	eventCBs []EventCallback
}

// session is one TCP connection's worth of Client state.
type session struct {
	conn    net.Conn
	writeMu sync.Mutex
	attempt chan llrp.ConnectionAttemptStatus
	done    chan struct{} // closed when the read loop exits

	err error // why the session ended; guarded by Client.mu
}

type pendingRequest struct {
	id       uint32
	request  string
	response string
	result   chan result
}

type result struct {
	msg *llrp.Message
	err error
}

// NewClient returns a disconnected Client for the Config.
func NewClient(cfg Config, lc logger.LoggingClient) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid reader configuration")
	}

	c := &Client{
		cfg:      cfg,
		lc:       lc,
		dec:      llrp.NewDecoder(llrp.Default),
		behavior: cfg.Behavior(),
		content:  cfg.ContentSelector,
	}
	c.dec.OnSkip = func(err *llrp.UnknownTypeError) {
		lc.Debug("Skipped unknown parameter.", "error", err.Error())
	}
	return c, nil
}

// CurrentState returns the Client's State.
func (c *Client) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsAlive reports whether the Client has a working connection to its Reader.
func (c *Client) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.state.connected()
}

// Device returns what the Client learned of the Reader's capabilities,
// or nil if it hasn't asked yet.
func (c *Client) Device() llrp.Device {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}

// Behavior returns the Behavior the Client installs on its Reader.
func (c *Client) Behavior() llrp.Behavior {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.behavior
}

// AddTagReportCallback registers fn to receive every tag report.
func (c *Client) AddTagReportCallback(fn TagReportCallback) {
	c.cbMu.Lock()
	c.tagCBs = append(c.tagCBs, fn)
	c.cbMu.Unlock()
}

// AddEventCallback registers fn to receive every Reader event.
func (c *Client) AddEventCallback(fn EventCallback) {
	c.cbMu.Lock()
	c.eventCBs = append(c.eventCBs, fn)
	c.cbMu.Unlock()
}

// Connect opens a connection to the Reader at host:port,
// waits for the Reader to accept it, then configures the Reader
// and, if the Config says so, starts inventory.
// A port of 0 means llrp.DefaultPort.
//
// If the connection can't be established, the Client moves to StateError.
// If configuration fails, the Client stays connected
// and the returned error is a *ConfigSequenceError.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	if port == 0 {
		port = llrp.DefaultPort
	}

	c.mu.Lock()
	if c.state != StateDisconnected && c.state != StateError {
		st := c.state
		c.mu.Unlock()
		return &InvalidStateError{Op: "connect", State: st}
	}
	c.state = StateConnecting
	c.mu.Unlock()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c.lc.Info("Connecting to reader.", "address", addr)

	dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.mu.Lock()
		if c.state == StateConnecting {
			c.state = StateError
		}
		c.mu.Unlock()
		return errors.Wrapf(err, "failed to connect to %s", addr)
	}

	s := &session{
		conn:    conn,
		attempt: make(chan llrp.ConnectionAttemptStatus, 1),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrCancelled
	}
	c.sess = s
	c.mu.Unlock()

	go c.readLoop(s)

	if err := c.awaitConnectionAttempt(ctx, s); err != nil {
		return err
	}
	c.lc.Info("Connected to reader.", "address", addr)

	if err := c.Configure(ctx); err != nil {
		return err
	}

	if c.cfg.StartInventory {
		return c.StartInventory(ctx)
	}
	return nil
}

// awaitConnectionAttempt waits for the Reader's ConnectionAttemptEvent.
func (c *Client) awaitConnectionAttempt(ctx context.Context, s *session) error {
	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()

	var err error
	select {
	case status := <-s.attempt:
		if status == llrp.ConnSuccess {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.sess != s {
				return s.err
			}
			c.state = StateConnected
			return nil
		}
		err = errors.Errorf("reader refused the connection: %v", status)
	case <-s.done:
		err = errors.New("connection closed before the reader accepted it")
	case <-timer.C:
		err = errors.Errorf("reader didn't accept the connection within %v", c.cfg.ConnectTimeout)
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "waiting for the reader to accept the connection")
	}

	if !c.fail(s, err) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return s.err
	}
	return err
}

// Disconnect closes the connection, politely if it can.
// It's safe to call in any State, more than once, and from callbacks.
// A request waiting on a response fails with ErrCancelled.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.sess
	prev := c.state
	c.sess = nil
	c.state = StateDisconnected
	if s != nil {
		s.err = ErrCancelled
	}
	c.mu.Unlock()

	c.cancelPending(ErrCancelled)
	if s == nil {
		return nil
	}

	if prev.connected() {
		closeMsg := llrp.NewMessage(llrp.MsgCloseConnection)
		closeMsg.ID = atomic.AddUint32(&c.msgID, 1)
		if err := c.send(s, closeMsg); err != nil {
			c.lc.Debug("Failed to send CLOSE_CONNECTION.", "error", err.Error())
		}
	}

	c.lc.Info("Disconnected from reader.", "previousState", prev.String())
	return errors.Wrap(s.conn.Close(), "failed to close reader connection")
}

// fail ends the session because of err and moves the Client to StateError.
// It returns false if the session already ended.
func (c *Client) fail(s *session, err error) bool {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return false
	}
	c.sess = nil
	c.state = StateError
	s.err = err
	c.mu.Unlock()

	_ = s.conn.Close()
	c.cancelPending(err)
	c.lc.Error("Reader connection failed.", "error", err.Error())
	return true
}

func (c *Client) readLoop(s *session) {
	defer close(s.done)

	fa := llrp.NewFrameAssembler(c.dec, c.cfg.MaxFrameSize)
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := s.conn.Read(buf)
		if n > 0 {
			_, _ = fa.Write(buf[:n])
			for {
				m, err := fa.Next()
				if err != nil {
					var fe *llrp.FramingError
					if errors.As(err, &fe) {
						c.fail(s, &ConnectionLostError{Err: err})
						return
					}
					c.lc.Warn("Dropped a message that couldn't be decoded.", "error", err.Error())
					continue
				}
				if m == nil {
					break
				}
				c.handleMessage(s, m)
			}
		}

		if readErr != nil {
			c.fail(s, &ConnectionLostError{Err: readErr})
			return
		}
	}
}

func (c *Client) handleMessage(s *session, m *llrp.Message) {
	c.lc.Trace("Received message.", "message", m.Name, "id", m.ID)

	switch m.Name {
	case llrp.MsgKeepAlive:
		ack := llrp.NewMessage(llrp.MsgKeepAliveAck)
		ack.Version = m.Version
		ack.ID = m.ID
		if err := c.send(s, ack); err != nil {
			c.lc.Warn("Failed to acknowledge keepalive.", "error", err.Error())
		}

	case llrp.MsgROAccessReport:
		c.handleTagReport(m)

	case llrp.MsgReaderEventNotification:
		c.handleEvents(s, m)

	default:
		if !c.resolvePending(m) {
			c.lc.Debug("Ignoring unexpected message.", "message", m.Name, "id", m.ID)
		}
	}
}

func (c *Client) handleTagReport(m *llrp.Message) {
	c.mu.Lock()
	reports := c.tags.process(m)
	c.mu.Unlock()

	if len(reports) == 0 {
		return
	}

	c.cbMu.RLock()
	cbs := c.tagCBs
	c.cbMu.RUnlock()

	for _, cb := range cbs {
		cb := cb
		c.safely("tag report", func() { cb(reports) })
	}
}

func (c *Client) handleEvents(s *session, m *llrp.Message) {
	events, err := splitEvents(m)
	if err != nil {
		c.lc.Warn("Failed to handle reader event notification.", "error", err.Error())
		return
	}

	closing := false
	for _, e := range events {
		switch e.Name {
		case llrp.ParamConnectionAttemptEvent:
			status, _ := e.Payload.Uint("Status")
			select {
			case s.attempt <- llrp.ConnectionAttemptStatus(status):
			default:
			}
		case llrp.ParamConnectionCloseEvent:
			closing = true
		case llrp.ParamGPIEvent:
			c.applyGPIPolicy(e)
		}
	}

	c.cbMu.RLock()
	cbs := c.eventCBs
	c.cbMu.RUnlock()

	for _, e := range events {
		for _, cb := range cbs {
			cb, e := cb, e
			c.safely("event", func() { cb(e) })
		}
	}

	if closing {
		c.fail(s, &ConnectionLostError{Err: errors.New("reader closed the connection")})
	}
}

// applyGPIPolicy starts or stops inventory in response to a GPI event.
// The request runs on its own goroutine so the read loop can deliver its response.
func (c *Client) applyGPIPolicy(e Event) {
	if c.cfg.GPIPolicy == nil {
		return
	}

	port, high := gpiState(e)
	action := c.cfg.GPIPolicy(port, high)
	var fn func(context.Context) error
	switch action {
	case ActionStart:
		fn = c.StartInventory
	case ActionStop:
		fn = c.StopInventory
	default:
		return
	}

	c.lc.Debug("GPI event triggered an inventory action.",
		"port", port, "high", high, "action", action.String())

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*c.cfg.ResponseTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.lc.Warn("GPI-triggered inventory action failed.",
				"action", action.String(), "error", err.Error())
		}
	}()
}

// safely runs a callback, recovering from and logging any panic.
func (c *Client) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.lc.Error("Recovered from a panic in a callback.",
				"callback", kind, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// send encodes and writes a message that doesn't get a response.
func (c *Client) send(s *session, m *llrp.Message) error {
	b, err := llrp.Default.EncodeMessage(m)
	if err != nil {
		return err
	}
	return c.write(s, b)
}

func (c *Client) write(s *session, b []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(c.cfg.ResponseTimeout)); err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	_, err := s.conn.Write(b)
	return errors.Wrap(err, "failed to write to reader")
}

func (c *Client) activeSession(op string) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, &InvalidStateError{Op: op, State: c.state}
	}
	return c.sess, nil
}

// request sends m and waits for its response.
//
// It returns a *ProtocolStatusError along with the response
// if the Reader reports a failure.
func (c *Client) request(ctx context.Context, m *llrp.Message) (*llrp.Message, error) {
	respName, ok := llrp.Default.ResponseName(m.Name)
	if !ok {
		return nil, errors.Errorf("%s doesn't have a response", m.Name)
	}

	s, err := c.activeSession("send " + m.Name)
	if err != nil {
		return nil, err
	}

	m.ID = atomic.AddUint32(&c.msgID, 1)
	b, err := llrp.Default.EncodeMessage(m)
	if err != nil {
		return nil, err
	}

	p := &pendingRequest{id: m.ID, request: m.Name, response: respName, result: make(chan result, 1)}
	if err := c.registerPending(s, p); err != nil {
		return nil, err
	}
	defer c.clearPending(p)

	if err := c.write(s, b); err != nil {
		lost := &ConnectionLostError{Err: err}
		c.fail(s, lost)
		return nil, lost
	}
	c.lc.Trace("Sent request.", "message", m.Name, "id", m.ID)

	timer := time.NewTimer(c.cfg.ResponseTimeout)
	defer timer.Stop()

	select {
	case r := <-p.result:
		if r.err != nil {
			return nil, r.err
		}
		return r.msg, checkStatus(m.Name, r.msg)
	case <-timer.C:
		return nil, &ResponseTimeoutError{Request: m.Name, ID: m.ID, Timeout: c.cfg.ResponseTimeout}
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "waiting for %s", respName)
	}
}

func checkStatus(request string, resp *llrp.Message) error {
	code, desc, ok := resp.Status()
	if !ok {
		return errors.Errorf("%s has no %s", resp.Name, llrp.ParamLLRPStatus)
	}
	if code != llrp.StatusSuccess {
		return &ProtocolStatusError{Request: request, Code: code, Description: desc}
	}
	return nil
}

// resolvePending delivers m to the waiting request if it's the response to it.
// Readers answer requests they can't handle with ERROR_MESSAGE.
func (c *Client) resolvePending(m *llrp.Message) bool {
	c.pendingMu.Lock()
	p := c.pending
	if p == nil || p.id != m.ID || (m.Name != p.response && m.Name != llrp.MsgErrorMessage) {
		c.pendingMu.Unlock()
		return false
	}
	c.pending = nil
	c.pendingMu.Unlock()

	p.result <- result{msg: m}
	return true
}

// registerPending makes p the pending request on s.
// It fails if another request is pending or if s closed before p was registered,
// since closing s only cancels the request pending at that time.
func (c *Client) registerPending(s *session, p *pendingRequest) error {
	c.pendingMu.Lock()
	if c.pending != nil {
		c.pendingMu.Unlock()
		return errors.Wrapf(ErrRequestInFlight, "can't send %s", p.request)
	}
	c.pending = p
	c.pendingMu.Unlock()

	c.mu.Lock()
	current := c.sess == s
	sessErr := s.err
	c.mu.Unlock()
	if current {
		return nil
	}

	c.clearPending(p)
	if sessErr == nil {
		sessErr = ErrCancelled
	}
	return errors.WithMessagef(sessErr, "can't send %s", p.request)
}

func (c *Client) cancelPending(err error) {
	c.pendingMu.Lock()
	p := c.pending
	c.pending = nil
	c.pendingMu.Unlock()

	if p != nil {
		p.result <- result{err: err}
	}
}

func (c *Client) clearPending(p *pendingRequest) {
	c.pendingMu.Lock()
	if c.pending == p {
		c.pending = nil
	}
	c.pendingMu.Unlock()
}
