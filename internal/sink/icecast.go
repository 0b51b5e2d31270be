/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// IcecastConfig describes one Icecast mount to source.
type IcecastConfig struct {
	// Addr is host:port of the Icecast server.
	Addr     string
	Mount    string
	User     string
	Password string

	// Admin credentials for metadata updates; the source credentials are
	// used when empty.
	AdminUser     string
	AdminPassword string

	Name        string
	Description string
	Genre       string
	URL         string
	Public      bool
	Bitrate     int
	ContentType string

	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c IcecastConfig) withDefaults() IcecastConfig {
	if c.User == "" {
		c.User = "source"
	}
	if c.AdminUser == "" {
		c.AdminUser = c.User
		if c.AdminPassword == "" {
			c.AdminPassword = c.Password
		}
	}
	if c.ContentType == "" {
		c.ContentType = "audio/mpeg"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if !strings.HasPrefix(c.Mount, "/") {
		c.Mount = "/" + c.Mount
	}
	return c
}

// Icecast is a source client for an Icecast 2 server.
type Icecast struct {
	cfg    IcecastConfig
	pacer  *Pacer
	client *http.Client
	logger zerolog.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewIcecast creates an unconnected source client.
func NewIcecast(cfg IcecastConfig, logger zerolog.Logger) *Icecast {
	cfg = cfg.withDefaults()
	return &Icecast{
		cfg:    cfg,
		pacer:  NewPacer(cfg.Bitrate),
		client: &http.Client{Timeout: cfg.WriteTimeout},
		logger: logger.With().Str("component", "icecast").Str("mount", cfg.Mount).Logger(),
	}
}

// Open connects and performs the source handshake.
func (ic *Icecast) Open(ctx context.Context) error {
	dialer := net.Dialer{Timeout: ic.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ic.cfg.Addr)
	if err != nil {
		return transportErr("dial", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()
	_ = conn.SetDeadline(time.Now().Add(ic.cfg.DialTimeout))

	if _, err := conn.Write(ic.handshake()); err != nil {
		_ = conn.Close()
		return transportErr("handshake", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		_ = conn.Close()
		return transportErr("handshake", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = conn.Close()
		return transportErr("handshake", fmt.Errorf("server replied %s", resp.Status))
	}
	_ = conn.SetDeadline(time.Time{})

	ic.mu.Lock()
	ic.conn = conn
	ic.mu.Unlock()

	ic.logger.Info().Str("addr", ic.cfg.Addr).Msg("connected to icecast")
	return nil
}

func (ic *Icecast) handshake() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "PUT %s HTTP/1.1\r\n", ic.cfg.Mount)
	fmt.Fprintf(&b, "Host: %s\r\n", ic.cfg.Addr)
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", basicAuth(ic.cfg.User, ic.cfg.Password))
	fmt.Fprintf(&b, "User-Agent: stationloop\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", ic.cfg.ContentType)
	header := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	header("Ice-Name", ic.cfg.Name)
	header("Ice-Description", ic.cfg.Description)
	header("Ice-Genre", ic.cfg.Genre)
	header("Ice-URL", ic.cfg.URL)
	if ic.cfg.Public {
		header("Ice-Public", "1")
	} else {
		header("Ice-Public", "0")
	}
	if ic.cfg.Bitrate > 0 {
		header("Ice-Bitrate", strconv.Itoa(ic.cfg.Bitrate))
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

func basicAuth(user, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
}

// Send writes p to the source connection.
func (ic *Icecast) Send(ctx context.Context, p []byte) error {
	ic.mu.Lock()
	conn := ic.conn
	ic.mu.Unlock()
	if conn == nil {
		return transportErr("send", net.ErrClosed)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetWriteDeadline(time.Unix(1, 0)) })
	defer stop()
	_ = conn.SetWriteDeadline(time.Now().Add(ic.cfg.WriteTimeout))

	if _, err := conn.Write(p); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportErr("send", err)
	}
	ic.pacer.Add(len(p))
	return nil
}

// Sync paces output to the configured bitrate.
func (ic *Icecast) Sync(ctx context.Context) error {
	return ic.pacer.Wait(ctx)
}

// SetMetadata updates the mount's song title through the admin interface.
func (ic *Icecast) SetMetadata(ctx context.Context, title string) error {
	q := url.Values{}
	q.Set("mode", "updinfo")
	q.Set("mount", ic.cfg.Mount)
	q.Set("song", title)
	u := url.URL{Scheme: "http", Host: ic.cfg.Addr, Path: "/admin/metadata", RawQuery: q.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.SetBasicAuth(ic.cfg.AdminUser, ic.cfg.AdminPassword)
	req.Header.Set("User-Agent", "stationloop")

	resp, err := ic.client.Do(req)
	if err != nil {
		return transportErr("metadata", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportErr("metadata", fmt.Errorf("server replied %s", resp.Status))
	}
	return nil
}

// Close drops the source connection. It is safe to call when not open.
func (ic *Icecast) Close() error {
	ic.mu.Lock()
	conn := ic.conn
	ic.conn = nil
	ic.mu.Unlock()
	if conn == nil {
		return nil
	}
	ic.logger.Debug().Msg("closing icecast connection")
	return conn.Close()
}
