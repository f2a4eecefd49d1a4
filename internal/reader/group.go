//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/edgexfoundry/go-mod-core-contracts/v2/clients/logger"
	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

type member struct {
	client *Client
	host   string
	port   int
}

// A ReaderGroup unites a collection of named Clients
// with a single, specific Behavior.
type ReaderGroup struct {
	mu       sync.RWMutex
	readers  map[string]member
	behavior llrp.Behavior
	lc       logger.LoggingClient
}

// NewReaderGroup returns an empty ReaderGroup that gives its Clients Behavior b.
func NewReaderGroup(b llrp.Behavior, lc logger.LoggingClient) *ReaderGroup {
	return &ReaderGroup{
		readers:  map[string]member{},
		behavior: b,
		lc:       lc,
	}
}

// Behavior returns a (shallow) copy of the ReaderGroup's current Behavior.
func (rg *ReaderGroup) Behavior() llrp.Behavior {
	rg.mu.RLock()
	b := rg.behavior
	rg.mu.RUnlock()
	return b
}

// AddReader asks the ReaderGroup to manage a Client
// for the Reader at the given address, in host:port form.
// If the address has no port, it uses llrp.DefaultPort.
// It replaces any Client previously added with the same name.
func (rg *ReaderGroup) AddReader(name, address string, cfg Config) (*Client, error) {
	host, port, err := splitAddress(address)
	if err != nil {
		return nil, err
	}

	c, err := NewClient(cfg, rg.lc)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't add %q", name)
	}

	rg.mu.Lock()
	c.behavior = rg.behavior
	old, replaced := rg.readers[name]
	rg.readers[name] = member{client: c, host: host, port: port}
	rg.mu.Unlock()

	if replaced {
		if err := old.client.Disconnect(); err != nil {
			rg.lc.Warn("Failed to disconnect replaced reader.", "name", name, "error", err.Error())
		}
	}
	rg.lc.Info("Added reader to group.", "name", name, "address", address)
	return c, nil
}

func splitAddress(address string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// no port
		return address, llrp.DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 0xFFFF {
		return "", 0, errors.Errorf("invalid port in %q", address)
	}
	return host, port, nil
}

// RemoveReader disconnects and removes the named Client, if present.
func (rg *ReaderGroup) RemoveReader(name string) error {
	rg.mu.Lock()
	m, ok := rg.readers[name]
	delete(rg.readers, name)
	rg.mu.Unlock()

	if !ok {
		return nil
	}
	return m.client.Disconnect()
}

// Reader returns the named Client.
func (rg *ReaderGroup) Reader(name string) (*Client, bool) {
	rg.mu.RLock()
	m, ok := rg.readers[name]
	rg.mu.RUnlock()
	return m.client, ok
}

// Names returns the names of the Readers in the group, sorted.
func (rg *ReaderGroup) Names() []string {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return sortedNames(rg.readers)
}

// WriteReaders writes to w a JSON-formatted list of readers in this group
// and the State of each.
func (rg *ReaderGroup) WriteReaders(w io.Writer) error {
	rg.mu.RLock()
	defer rg.mu.RUnlock()

	type status struct {
		Name  string
		State State
	}
	s := struct{ Readers []status }{Readers: make([]status, 0, len(rg.readers))}
	for _, name := range sortedNames(rg.readers) {
		s.Readers = append(s.Readers, status{Name: name, State: rg.readers[name].client.CurrentState()})
	}

	return json.NewEncoder(w).Encode(s)
}

func sortedNames(readers map[string]member) []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// forEach concurrently applies fn to every Client in the group,
// collecting any errors into a MultiErr.
func (rg *ReaderGroup) forEach(fn func(name string, m member) error) error {
	rg.mu.RLock()
	members := make(map[string]member, len(rg.readers))
	for name, m := range rg.readers {
		members[name] = m
	}
	rg.mu.RUnlock()

	errs := make(chan error, len(members))
	wg := sync.WaitGroup{}
	wg.Add(len(members))
	for name, m := range members {
		go func(name string, m member) {
			defer wg.Done()
			if err := fn(name, m); err != nil {
				errs <- errors.WithMessagef(err, "reader %q", name)
			}
		}(name, m)
	}

	// Wait for the calls to complete, then collect any errors.
	wg.Wait()
	close(errs)
	var multiErr MultiErr
	for err := range errs {
		multiErr = append(multiErr, err)
	}

	if len(multiErr) == 0 {
		return nil
	}
	return multiErr
}

// ConnectAll connects every Client in the group that isn't already connected.
func (rg *ReaderGroup) ConnectAll(ctx context.Context) error {
	return rg.forEach(func(_ string, m member) error {
		if m.client.IsAlive() {
			return nil
		}
		return m.client.Connect(ctx, m.host, m.port)
	})
}

// SetBehavior changes the ReaderGroup's Behavior.
//
// The new Behavior must be valid for every connected Client in the group.
// Before accepting it, this method generates new ROSpecs for each of them.
// If any rejects the Behavior, the ReaderGroup rejects it and returns an error,
// leaving it with the Behavior it had before it was called.
//
// Otherwise, it concurrently applies the Behavior to each Client.
// Any errors from this step are collected into a MultiErr.
// A failure to update one Client does not have an impact on others,
// and the ReaderGroup still keeps the new Behavior.
func (rg *ReaderGroup) SetBehavior(ctx context.Context, b llrp.Behavior) error {
	rg.mu.Lock()
	for name, m := range rg.readers {
		dev := m.client.Device()
		if dev == nil {
			continue
		}
		if _, err := m.client.newROSpec(dev, b); err != nil {
			rg.mu.Unlock()
			return errors.WithMessagef(err, "new behavior is invalid for %q", name)
		}
	}

	// The behavior is valid for all members of the group.
	rg.behavior = b
	rg.mu.Unlock()

	err := rg.forEach(func(_ string, m member) error {
		if m.client.Device() == nil || !m.client.IsAlive() {
			m.client.mu.Lock()
			m.client.behavior = b
			m.client.mu.Unlock()
			return nil
		}
		return m.client.SetBehavior(ctx, b)
	})
	return errors.WithMessage(err, "failed to apply behavior")
}

// StartAll starts inventory on every Client in the group.
func (rg *ReaderGroup) StartAll(ctx context.Context) error {
	return rg.forEach(func(_ string, m member) error {
		return m.client.StartInventory(ctx)
	})
}

// StopAll stops inventory on every Client in the group.
func (rg *ReaderGroup) StopAll(ctx context.Context) error {
	return rg.forEach(func(_ string, m member) error {
		return m.client.StopInventory(ctx)
	})
}

// DisconnectAll disconnects every Client in the group.
func (rg *ReaderGroup) DisconnectAll() error {
	return rg.forEach(func(_ string, m member) error {
		return m.client.Disconnect()
	})
}
