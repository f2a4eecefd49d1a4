//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/llrp/llrptest"
)

func TestSplitEvents(t *testing.T) {
	m := llrptest.Notification(
		llrp.F(llrp.ParamAntennaEvent, llrp.NewParameter(llrp.ParamAntennaEvent,
			llrp.F("EventType", llrp.Uint(0)),
			llrp.F("AntennaID", llrp.Uint(2)))),
		llrp.F(llrp.ParamGPIEvent, llrp.NewParameter(llrp.ParamGPIEvent,
			llrp.F("GPIPortNumber", llrp.Uint(3)),
			llrp.F("Flags", llrp.Bits{"GPIEvent": 1}))),
		llrp.F("Custom", llrp.Parameters{
			llrp.NewParameter("ImpinjHubConfigurationEvent"),
			llrp.NewParameter("ImpinjAntennaAttemptEvent"),
		}))

	events, err := splitEvents(m)
	require.NoError(t, err)

	var names []string
	for _, e := range events {
		names = append(names, e.Name)
		require.Equal(t, time.Unix(0, 0).UTC(), e.Timestamp)
		require.Zero(t, e.Uptime)
	}
	require.Equal(t, []string{llrp.ParamAntennaEvent, llrp.ParamGPIEvent, "Custom", "Custom"}, names)

	port, high := gpiState(events[1])
	require.Equal(t, uint16(3), port)
	require.True(t, high)
	require.Equal(t, "ImpinjAntennaAttemptEvent", events[3].Payload.Name)
}

func TestSplitEvents_Uptime(t *testing.T) {
	m := llrp.NewMessage(llrp.MsgReaderEventNotification,
		llrp.F(llrp.ParamReaderEventNotificationData,
			llrp.NewParameter(llrp.ParamReaderEventNotificationData,
				llrp.F("Timestamp", llrp.NewParameter(llrp.ParamUptime,
					llrp.F("Microseconds", llrp.Uint(90_000_000)))),
				llrp.F(llrp.ParamConnectionCloseEvent,
					llrp.NewParameter(llrp.ParamConnectionCloseEvent)))))

	events, err := splitEvents(m)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.True(t, events[0].Timestamp.IsZero())
	require.Equal(t, 90*time.Second, events[0].Uptime)

	_, err = splitEvents(llrp.NewMessage(llrp.MsgReaderEventNotification))
	require.Error(t, err)
}

func TestGPIPortPolicy(t *testing.T) {
	tests := []struct {
		name        string
		startOnHigh bool
		port        uint16
		high        bool
		want        Action
	}{
		{"other port", true, 1, true, ActionNone},
		{"rising edge starts", true, 2, true, ActionStart},
		{"falling edge stops", true, 2, false, ActionStop},
		{"active low starts", false, 2, false, ActionStart},
		{"active low stops", false, 2, true, ActionStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := GPIPortPolicy(2, tt.startOnHigh)
			require.Equal(t, tt.want, policy(tt.port, tt.high))
		})
	}

	require.Equal(t, "none", ActionNone.String())
	require.Equal(t, "start", ActionStart.String())
	require.Equal(t, "stop", ActionStop.String())
}
