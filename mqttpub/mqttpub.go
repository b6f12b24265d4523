// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mqttpub publishes voltmeter readings to an MQTT broker.
package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"
)

// Reading is the JSON payload of a published message.
type Reading struct {
	Voltage float64   `json:"voltage"`
	Digit   int       `json:"digit"`
	Time    time.Time `json:"time"`
}

// Opts configures a Publisher.
type Opts struct {
	ClientID string
	Topic    string
	Username string
	Password string
	// Timeout bounds the connection handshake and each publish on network
	// connections.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	ClientID: "segdisplay-voltmeter",
	Topic:    "segdisplay/voltage",
	Timeout:  5 * time.Second,
}

// connectPolls bounds the packets read while waiting for CONNACK.
const connectPolls = 50

// Publisher sends readings at QoS 0.
type Publisher struct {
	client  *mqtt.Client
	rwc     io.ReadWriteCloser
	flags   mqtt.PacketFlags
	vars    mqtt.VariablesPublish
	timeout time.Duration
	log     *slog.Logger
}

// Dial connects to the broker at addr over TCP.
func Dial(ctx context.Context, addr string, opts *Opts) (*Publisher, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mqttpub: dialing %s: %w", addr, err)
	}
	p, err := Connect(conn, opts)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

// Connect runs the MQTT handshake over rwc. rwc is owned by the Publisher
// from then on.
func Connect(rwc io.ReadWriteCloser, opts *Opts) (*Publisher, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Topic == "" || opts.ClientID == "" {
		return nil, errors.New("mqttpub: topic and client id are required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return nil, fmt.Errorf("mqttpub: %w", err)
	}
	cfg := mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 1500)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			log.Debug("mqtt: ignoring message", "topic", string(varPub.TopicName))
			return nil
		},
	}
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(opts.ClientID))
	if opts.Username != "" {
		varconn.Username = []byte(opts.Username)
		if opts.Password != "" {
			varconn.Password = []byte(opts.Password)
		}
	}

	p := &Publisher{
		client:  mqtt.NewClient(cfg),
		rwc:     rwc,
		flags:   flags,
		vars:    mqtt.VariablesPublish{TopicName: []byte(opts.Topic)},
		timeout: opts.Timeout,
		log:     log,
	}
	p.deadline()
	if err := p.client.StartConnect(rwc, &varconn); err != nil {
		return nil, fmt.Errorf("mqttpub: connect: %w", err)
	}
	for i := 0; i < connectPolls && !p.client.IsConnected(); i++ {
		if err := p.client.HandleNext(); err != nil {
			return nil, fmt.Errorf("mqttpub: waiting for CONNACK: %w", err)
		}
	}
	if !p.client.IsConnected() {
		return nil, fmt.Errorf("mqttpub: broker did not accept the connection: %v", p.client.Err())
	}
	log.Info("mqtt connected", "client", opts.ClientID, "topic", opts.Topic)
	return p, nil
}

// Publish sends one reading. It is not safe for concurrent use.
func (p *Publisher) Publish(r Reading) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("mqttpub: not connected: %v", p.client.Err())
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("mqttpub: %w", err)
	}
	// The identifier is not sent at QoS 0 but the client rejects zero.
	p.vars.PacketIdentifier++
	if p.vars.PacketIdentifier == 0 {
		p.vars.PacketIdentifier = 1
	}
	p.deadline()
	if err := p.client.PublishPayload(p.flags, p.vars, payload); err != nil {
		return fmt.Errorf("mqttpub: publish: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	return p.rwc.Close()
}

func (p *Publisher) deadline() {
	if c, ok := p.rwc.(net.Conn); ok && p.timeout > 0 {
		_ = c.SetDeadline(time.Now().Add(p.timeout))
	}
}
