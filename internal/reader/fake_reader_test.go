//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/v2/clients/logger"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/llrp/llrptest"
)

// fakeReader is an LLRP Reader on a loopback socket.
// It accepts one connection, announces it, and answers every request
// with a successful response unless told otherwise.
type fakeReader struct {
	t      *testing.T
	ln     net.Listener
	vendor llrp.VendorPEN

	mu         sync.Mutex
	conn       net.Conn
	connStatus llrp.ConnectionAttemptStatus
	received   []*llrp.Message
	status     map[string]llrp.StatusCode
	silent     map[string]bool
	before     map[string][]*llrp.Message
	writeMu    sync.Mutex
}

func newFakeReader(t *testing.T, vendor llrp.VendorPEN) *fakeReader {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fr := &fakeReader{
		t:      t,
		ln:     ln,
		vendor: vendor,
		status: map[string]llrp.StatusCode{},
		silent: map[string]bool{},
		before: map[string][]*llrp.Message{},
	}
	t.Cleanup(fr.close)
	go fr.serve()
	return fr
}

func (fr *fakeReader) hostPort() (string, int) {
	addr := fr.ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func (fr *fakeReader) address() string {
	host, port := fr.hostPort()
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (fr *fakeReader) close() {
	_ = fr.ln.Close()
	fr.mu.Lock()
	if fr.conn != nil {
		_ = fr.conn.Close()
	}
	fr.mu.Unlock()
}

// closeConn drops the current connection without any notice.
func (fr *fakeReader) closeConn() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.conn != nil {
		_ = fr.conn.Close()
	}
}

// refuse makes the fakeReader announce connections with the given status.
// It must be called before the client connects.
func (fr *fakeReader) refuse(status llrp.ConnectionAttemptStatus) {
	fr.mu.Lock()
	fr.connStatus = status
	fr.mu.Unlock()
}

// respondWith sets the status of future responses to the named request.
func (fr *fakeReader) respondWith(request string, code llrp.StatusCode) {
	fr.mu.Lock()
	fr.status[request] = code
	fr.mu.Unlock()
}

// ignore stops the fakeReader from answering the named request.
func (fr *fakeReader) ignore(request string) {
	fr.mu.Lock()
	fr.silent[request] = true
	fr.mu.Unlock()
}

// sendBefore queues m to go out just before the response to the named request.
func (fr *fakeReader) sendBefore(request string, m *llrp.Message) {
	fr.mu.Lock()
	fr.before[request] = append(fr.before[request], m)
	fr.mu.Unlock()
}

func (fr *fakeReader) serve() {
	conn, err := fr.ln.Accept()
	if err != nil {
		return
	}
	fr.mu.Lock()
	fr.conn = conn
	status := fr.connStatus
	fr.mu.Unlock()

	fr.send(llrptest.ConnectionAttempt(status))

	fa := llrp.NewFrameAssembler(llrp.NewDecoder(llrp.Default), 0)
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			_, _ = fa.Write(buf[:n])
			for {
				m, err := fa.Next()
				if err != nil {
					fr.t.Errorf("fake reader failed to decode a message: %v", err)
					return
				}
				if m == nil {
					break
				}
				fr.handle(m)
			}
		}
		if err != nil {
			return
		}
	}
}

func (fr *fakeReader) handle(m *llrp.Message) {
	fr.mu.Lock()
	fr.received = append(fr.received, m)
	silent := fr.silent[m.Name]
	code := fr.status[m.Name]
	before := fr.before[m.Name]
	delete(fr.before, m.Name)
	fr.mu.Unlock()

	if silent {
		return
	}

	for _, b := range before {
		fr.send(b)
	}

	if resp := llrptest.Response(m, code, fr.vendor); resp != nil {
		fr.send(resp)
	}
}

// send writes m to the client. A zero ID is left as-is.
func (fr *fakeReader) send(m *llrp.Message) {
	fr.sendRaw(llrptest.MustEncode(m))
}

func (fr *fakeReader) sendRaw(b []byte) {
	fr.mu.Lock()
	conn := fr.conn
	fr.mu.Unlock()
	if conn == nil {
		return
	}

	fr.writeMu.Lock()
	defer fr.writeMu.Unlock()
	_, _ = conn.Write(b)
}

// names returns the names of the messages received so far.
func (fr *fakeReader) names() []string {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	names := make([]string, len(fr.received))
	for i, m := range fr.received {
		names[i] = m.Name
	}
	return names
}

// last returns the most recent message with the given name.
func (fr *fakeReader) last(name string) *llrp.Message {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	for i := len(fr.received) - 1; i >= 0; i-- {
		if fr.received[i].Name == name {
			return fr.received[i]
		}
	}
	return nil
}

// waitFor blocks until the fakeReader has received a message with the name.
func (fr *fakeReader) waitFor(name string) *llrp.Message {
	fr.t.Helper()
	var m *llrp.Message
	require.Eventually(fr.t, func() bool {
		m = fr.last(name)
		return m != nil
	}, 2*time.Second, 5*time.Millisecond, "never received %s", name)
	return m
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ResponseTimeout = 2 * time.Second
	cfg.ConnectTimeout = 2 * time.Second
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := NewClient(cfg, logger.NewMockClient())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}
