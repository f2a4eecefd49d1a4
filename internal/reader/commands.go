//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"

	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

// Configuration steps, in the order Configure applies them.
const (
	StepCapabilities     = "capabilities"
	StepImpinjExtensions = "impinj-extensions"
	StepFactoryReset     = "factory-reset"
	StepTransmitPower    = "transmit-power"
	StepReportSpec       = "report-spec"
	StepROSpec           = "rospec"
)

// configSequence records which steps have been applied.
type configSequence struct {
	c       *Client
	applied []string
}

func (cs *configSequence) run(step string, fn func() error) error {
	if err := fn(); err != nil {
		return &ConfigSequenceError{
			Step:    step,
			Applied: append([]string(nil), cs.applied...),
			Err:     err,
		}
	}
	cs.applied = append(cs.applied, step)
	cs.c.lc.Debug("Applied reader configuration step.", "step", step)
	return nil
}

// Configure learns the Reader's capabilities,
// then sets its transmit power, reporting, and events,
// and replaces its ROSpecs with one for the Client's Behavior.
//
// It's only allowed while connected and not inventorying.
// On failure, it returns a *ConfigSequenceError,
// and the State is unchanged.
func (c *Client) Configure(ctx context.Context) error {
	if st := c.CurrentState(); !st.configurable() {
		return &InvalidStateError{Op: "configure", State: st}
	}

	c.mu.Lock()
	b := c.behavior
	content := c.content
	c.mu.Unlock()

	seq := &configSequence{c: c}
	var dev llrp.Device

	if err := seq.run(StepCapabilities, func() error {
		resp, err := c.request(ctx, llrp.NewMessage(llrp.MsgGetReaderCapabilities,
			llrp.F("RequestedData", llrp.Uint(0))))
		if err != nil {
			return err
		}
		if dev, err = llrp.NewDevice(resp); err != nil {
			return err
		}

		c.mu.Lock()
		c.device = dev
		c.impinjOn = false
		c.mu.Unlock()

		info := dev.Info()
		c.lc.Info("Reader capabilities.",
			"manufacturer", info.Manufacturer.String(), "model", info.Model,
			"firmware", info.Firmware, "antennas", info.MaxAntennas)
		return nil
	}); err != nil {
		return err
	}

	if dev.Info().Manufacturer == llrp.PENImpinj && c.cfg.usesImpinjExtensions() {
		if err := seq.run(StepImpinjExtensions, func() error {
			return c.enableImpinjExtensions(ctx)
		}); err != nil {
			return err
		}
	}

	if c.cfg.ResetOnConnect {
		if err := seq.run(StepFactoryReset, func() error {
			_, err := c.request(ctx, llrp.NewMessage(llrp.MsgSetReaderConfig,
				llrp.F("Flags", llrp.Bits{"ResetToFactoryDefaults": 1})))
			return err
		}); err != nil {
			return err
		}
	}

	if err := seq.run(StepTransmitPower, func() error {
		antConfigs, err := dev.AntennaConfigurations(b)
		if err != nil {
			return err
		}
		return c.setAntennaConfigurations(ctx, antConfigs)
	}); err != nil {
		return err
	}

	if err := seq.run(StepReportSpec, func() error {
		events, err := c.cfg.Events.Parameter()
		if err != nil {
			return err
		}
		keepalive, _ := millisecs(c.cfg.KeepaliveInterval)

		_, err = c.request(ctx, llrp.NewMessage(llrp.MsgSetReaderConfig,
			llrp.F("ReaderEventNotificationSpec", events),
			llrp.F(llrp.ParamROReportSpec, dev.NewReportSpec(c.reportSpec(content))),
			llrp.F("KeepaliveSpec", llrp.KeepaliveSpec(keepalive))))
		if err != nil {
			return err
		}

		c.mu.Lock()
		c.tags.reset(content, dev.OmitsUnchanged())
		c.mu.Unlock()
		return nil
	}); err != nil {
		return err
	}

	return seq.run(StepROSpec, func() error {
		spec, err := c.newROSpec(dev, b)
		if err != nil {
			return err
		}
		if _, err := c.request(ctx, llrp.NewMessage(llrp.MsgDeleteAccessSpec,
			llrp.F("AccessSpecID", llrp.Uint(0)))); err != nil {
			return err
		}
		return c.replaceROSpec(ctx, spec)
	})
}

func (c *Client) reportSpec(content llrp.ContentSelector) llrp.ReportSpec {
	rs := c.cfg.ReportSpec()
	rs.Content = content
	return rs
}

func (c *Client) enableImpinjExtensions(ctx context.Context) error {
	if _, err := c.request(ctx, llrp.NewMessage(llrp.MsgImpinjEnableExtensions)); err != nil {
		return err
	}
	c.mu.Lock()
	c.impinjOn = true
	c.mu.Unlock()
	return nil
}

// newROSpec returns an ROSpec for the Behavior, using the Config's ROSpecID.
func (c *Client) newROSpec(dev llrp.Device, b llrp.Behavior) (*llrp.Parameter, error) {
	spec, err := dev.NewROSpec(b, c.cfg.Environment)
	if err != nil {
		return nil, err
	}
	spec.Set("ROSpecID", llrp.Uint(c.cfg.ROSpecID))
	return spec, nil
}

// replaceROSpec deletes every ROSpec on the Reader, then adds spec.
// It won't add spec unless the delete succeeds,
// but it's possible the delete succeeds and the add fails.
func (c *Client) replaceROSpec(ctx context.Context, spec *llrp.Parameter) error {
	if _, err := c.request(ctx, llrp.NewMessage(llrp.MsgDeleteROSpec,
		llrp.F("ROSpecID", llrp.Uint(0)))); err != nil {
		return err
	}
	_, err := c.request(ctx, llrp.NewMessage(llrp.MsgAddROSpec, llrp.F(llrp.ParamROSpec, spec)))
	return err
}

func (c *Client) setAntennaConfigurations(ctx context.Context, antConfigs llrp.Parameters) error {
	_, err := c.request(ctx, llrp.NewMessage(llrp.MsgSetReaderConfig,
		llrp.F(llrp.ParamAntennaConfiguration, antConfigs)))
	return err
}

// roSpecCommand sends one of the commands that only carry the ROSpecID.
func (c *Client) roSpecCommand(ctx context.Context, name string) error {
	_, err := c.request(ctx, llrp.NewMessage(name, llrp.F("ROSpecID", llrp.Uint(c.cfg.ROSpecID))))
	return err
}

// moveTo changes the State to `to` if it's currently `from`.
func (c *Client) moveTo(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

// StartInventory enables the Client's ROSpec,
// and starts it if its Behavior needs a manual start.
// The Client moves to StateInventorying once the Reader confirms it.
// It does nothing if the Client is already inventorying.
func (c *Client) StartInventory(ctx context.Context) error {
	c.mu.Lock()
	st := c.state
	b := c.behavior
	c.mu.Unlock()

	switch {
	case st == StateInventorying:
		return nil
	case !st.configurable():
		return &InvalidStateError{Op: "start inventory", State: st}
	}

	if err := c.roSpecCommand(ctx, llrp.MsgEnableROSpec); err != nil {
		return err
	}
	if b.ManualStart() {
		if err := c.roSpecCommand(ctx, llrp.MsgStartROSpec); err != nil {
			return err
		}
	}

	if !c.moveTo(st, StateInventorying) {
		return &InvalidStateError{Op: "finish starting inventory", State: c.CurrentState()}
	}
	c.lc.Info("Inventory started.")
	return nil
}

// StopInventory disables the Client's ROSpec,
// which also stops it if it's running.
// The Client moves to StateDisabled once the Reader confirms it;
// reports the Reader sent before confirming have already been delivered by then.
// It does nothing if the Client is connected but not inventorying.
func (c *Client) StopInventory(ctx context.Context) error {
	st := c.CurrentState()
	switch {
	case st.configurable():
		return nil
	case st != StateInventorying:
		return &InvalidStateError{Op: "stop inventory", State: st}
	}

	if err := c.roSpecCommand(ctx, llrp.MsgDisableROSpec); err != nil {
		return err
	}

	if !c.moveTo(StateInventorying, StateDisabled) {
		return &InvalidStateError{Op: "finish stopping inventory", State: c.CurrentState()}
	}
	c.lc.Info("Inventory stopped.")
	return nil
}

// connectedDevice returns the Device if the Client is connected and configured.
func (c *Client) connectedDevice(op string) (llrp.Device, State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.connected() || c.device == nil {
		return nil, c.state, &InvalidStateError{Op: op, State: c.state}
	}
	return c.device, c.state, nil
}

// SetBehavior replaces the Reader's ROSpec with one for the new Behavior.
//
// If the Reader can't satisfy the Behavior, it returns an error
// without changing anything. If the Client was inventorying,
// it stops inventory while it replaces the ROSpec, then starts it again.
func (c *Client) SetBehavior(ctx context.Context, b llrp.Behavior) error {
	dev, st, err := c.connectedDevice("set behavior")
	if err != nil {
		return err
	}

	spec, err := c.newROSpec(dev, b)
	if err != nil {
		return errors.WithMessage(err, "behavior is invalid for this reader")
	}
	return c.applyBehavior(ctx, st, b, spec)
}

// applyBehavior installs a ROSpec already generated for b
// and records b as the Client's Behavior.
func (c *Client) applyBehavior(ctx context.Context, st State, b llrp.Behavior, spec *llrp.Parameter) error {
	wasRunning := st == StateInventorying
	if wasRunning {
		if err := c.StopInventory(ctx); err != nil {
			return err
		}
	}

	if err := c.replaceROSpec(ctx, spec); err != nil {
		return errors.WithMessage(err, "failed to replace ROSpec")
	}

	c.mu.Lock()
	c.behavior = b
	c.mu.Unlock()

	if wasRunning {
		return c.StartInventory(ctx)
	}
	return nil
}

// SetAntennaPower changes transmit power, in dBm, per antenna ID.
// Antenna ID 0 sets the power for antennas without their own setting,
// and a power of 0 asks for the Reader's maximum.
// Since ROSpecs carry their own antenna settings,
// this also replaces the ROSpec, as SetBehavior does.
func (c *Client) SetAntennaPower(ctx context.Context, power map[uint16]float64) error {
	dev, st, err := c.connectedDevice("set antenna power")
	if err != nil {
		return err
	}

	b := c.Behavior()
	antPower := make(map[uint16]llrp.PowerTarget, len(b.AntennaPower)+len(power))
	for id, p := range b.AntennaPower {
		antPower[id] = p
	}
	for id, p := range power {
		if id == 0 {
			b.Power = powerTarget(p)
		} else {
			antPower[id] = powerTarget(p)
		}
	}
	if len(antPower) > 0 {
		b.AntennaPower = antPower
	}

	// Check everything before the Reader sees any of it.
	antConfigs, err := dev.AntennaConfigurations(b)
	if err != nil {
		return errors.WithMessage(err, "antenna power is invalid for this reader")
	}
	spec, err := c.newROSpec(dev, b)
	if err != nil {
		return errors.WithMessage(err, "antenna power is invalid for this reader")
	}

	if err := c.setAntennaConfigurations(ctx, antConfigs); err != nil {
		return err
	}
	return c.applyBehavior(ctx, st, b, spec)
}

// SetReportContentSelector changes which fields the Reader includes in tag reports.
// Tag reports delivered after it returns only carry the newly enabled fields.
func (c *Client) SetReportContentSelector(ctx context.Context, cs llrp.ContentSelector) error {
	dev, _, err := c.connectedDevice("set report content")
	if err != nil {
		return err
	}

	c.mu.Lock()
	impinjOn := c.impinjOn
	c.mu.Unlock()

	if cs.ImpinjEnabled() && !impinjOn && dev.Info().Manufacturer == llrp.PENImpinj {
		if err := c.enableImpinjExtensions(ctx); err != nil {
			return err
		}
	}

	if _, err := c.request(ctx, llrp.NewMessage(llrp.MsgSetReaderConfig,
		llrp.F(llrp.ParamROReportSpec, dev.NewReportSpec(c.reportSpec(cs))))); err != nil {
		return err
	}

	c.mu.Lock()
	c.content = cs
	c.tags.reset(cs, dev.OmitsUnchanged())
	c.mu.Unlock()
	return nil
}
