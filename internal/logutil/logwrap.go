//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package logutil wraps a LoggingClient with helpers
// for logging conditions and exiting on fatal ones.
package logutil

import (
	"os"
	"strings"

	"github.com/edgexfoundry/go-mod-core-contracts/v2/clients/logger"
	"github.com/edgexfoundry/go-mod-core-contracts/v2/models"
	"github.com/pkg/errors"
)

// ServiceName identifies this program's log lines.
const ServiceName = "llrp-client"

var levels = []string{models.TraceLog, models.DebugLog, models.InfoLog, models.WarnLog, models.ErrorLog}

type LogWrap struct {
	logger.LoggingClient

	// exit is os.Exit, except in tests.
	exit func(code int)
}

type KeyValue struct {
	Key string
	Val interface{}
}

// Wrap adds the helpers to lc.
func Wrap(lc logger.LoggingClient) LogWrap {
	return LogWrap{LoggingClient: lc, exit: os.Exit}
}

// New returns a LogWrap around a LoggingClient writing at the given level,
// which is one of TRACE, DEBUG, INFO, WARN, or ERROR in any case.
func New(level string) (LogWrap, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	for _, l := range levels {
		if l == level {
			return Wrap(logger.NewClient(ServiceName, level)), nil
		}
	}
	return LogWrap{}, errors.Errorf("unknown log level %q; use one of %s",
		level, strings.Join(levels, ", "))
}

func flatten(params []KeyValue) []interface{} {
	parts := make([]interface{}, len(params)*2)
	for i := range params {
		parts[i*2] = params[i].Key
		parts[i*2+1] = params[i].Val
	}
	return parts
}

// ErrIf logs msg at ERROR if cond is true, and returns cond.
func (lgr LogWrap) ErrIf(cond bool, msg string, params ...KeyValue) bool {
	if cond {
		lgr.Error(msg, flatten(params)...)
	}
	return cond
}

// WarnIf logs err at WARN if it isn't nil, and reports whether it did.
func (lgr LogWrap) WarnIf(err error, msg string, params ...KeyValue) bool {
	if err == nil {
		return false
	}
	lgr.Warn(msg, flatten(append(params, KeyValue{"error", err.Error()}))...)
	return true
}

func (lgr LogWrap) ExitIf(cond bool, msg string, params ...KeyValue) {
	if lgr.ErrIf(cond, msg, params...) {
		lgr.exit(1)
	}
}

func (lgr LogWrap) ExitIfErr(err error, msg string, params ...KeyValue) {
	if err == nil {
		return
	}
	lgr.ExitIf(true, msg, append(params, KeyValue{"error", err.Error()})...)
}
