package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/connstate/internal/config"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/protocol/wire"
	"github.com/danmuck/connstate/internal/testutil/testlog"
	"github.com/danmuck/connstate/internal/testutil/tlstest"
	"github.com/danmuck/connstate/internal/transport"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin != nil {
		root.SetIn(stdin)
	}
	err := root.Execute()
	return out.String(), err
}

func TestExampleConfigLoads(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.ID != "living-room" || len(cfg.Buttons.MediaButtonPreferences) != 3 {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
}

func TestEncodeThenDecode(t *testing.T) {
	testlog.Start(t)
	frameOut, err := run(t, nil, "encode", "--config", "ex.config.toml", "--interface-version", "5")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	summary, err := run(t, strings.NewReader(frameOut), "decode")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, want := range []string{
		"interface version",
		"Previous[back], Next[forward], Like[overflow]",
		"media button preferences  -",
		"Intro (track-1)",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestEncodeKeepsPreferencesForCurrentControllers(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	var buf bytes.Buffer
	req := connstate.ConnectionRequest{PackageName: "com.example.controller", ControllerInterfaceVersion: 7}
	if err := encodeState(&buf, cfg, req); err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := wire.ReadBundle(&buf, wire.DefaultOptions())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	state, err := connstate.FromBundle(msg.Body)
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state.MediaButtonPreferences()) != 3 || len(state.CustomLayout()) != 0 {
		t.Fatalf("unexpected button lists: prefs=%d layout=%d",
			len(state.MediaButtonPreferences()), len(state.CustomLayout()))
	}
}

func TestDecodeRejectedFrame(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	if err := wire.WriteRejected(&buf, 3, "not allowed", wire.DefaultOptions()); err != nil {
		t.Fatalf("write rejected: %v", err)
	}
	out, err := run(t, &buf, "decode")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "connection rejected: not allowed") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "session.toml")
	if _, err := run(t, nil, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := run(t, nil, "config", "init", path); err == nil {
		t.Fatalf("expected second init to fail")
	}
	if _, err := run(t, nil, "config", "init", "--force", path); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	if out, err := run(t, nil, "config", "validate", path); err != nil || !strings.Contains(out, "validated") {
		t.Fatalf("validate: %q %v", out, err)
	}
}

func TestRouterServesHealthMetricsAndConnect(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	session, _, err := cfg.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv := httptest.NewServer(newRouter(session, wire.DefaultOptions(), cfg.Authenticator(), cfg.CorsOrigins, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req := connstate.ConnectionRequest{PackageName: "com.example.controller", ControllerInterfaceVersion: 8}
	state, err := transport.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/connect", req, wire.DefaultOptions())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if state.SessionInterfaceVersion() != 8 {
		t.Fatalf("unexpected interface version: %d", state.SessionInterfaceVersion())
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "connstate_session_connection_requests_total") {
		t.Fatalf("metrics missing accept counter")
	}
}

func TestRouterHonorsCorsOrigins(t *testing.T) {
	testlog.Start(t)
	cfg, err := config.Load("ex.config.toml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	session, _, err := cfg.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv := httptest.NewServer(newRouter(session, wire.DefaultOptions(), cfg.Authenticator(), cfg.CorsOrigins, zerolog.Nop()))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allowed origin not echoed: %q", got)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/connect"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		conn.Close()
		t.Fatalf("foreign origin should not upgrade")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign origin, got %v", resp)
	}

	conn, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:3000"}})
	if err != nil {
		t.Fatalf("allowed origin should upgrade: %v", err)
	}
	conn.Close()
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, http.NotFoundHandler())
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestServeOverTLSWithAuth(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir, "connstate-ca")
	certFile, keyFile := ca.IssueServerCert(t, dir, "session", []string{"localhost"}, []net.IP{net.IPv4(127, 0, 0, 1)})
	path := filepath.Join(dir, "session.toml")
	body := "listen = \"127.0.0.1:0\"\nauth_token = \"s3cret\"\n\n[tls]\nenabled = true\n" +
		"cert_file = \"" + filepath.ToSlash(certFile) + "\"\nkey_file = \"" + filepath.ToSlash(keyFile) + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	session, _, err := cfg.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	ln, err := openListener(cfg)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, newRouter(session, wire.DefaultOptions(), cfg.Authenticator(), cfg.CorsOrigins, zerolog.Nop()))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	url := "wss://" + ln.Addr().String() + "/connect"
	out, err := run(t, nil, "connect", url, "--ca", ca.CAFile(), "--interface-version", "5")
	if err == nil || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("expected unauthorized without token, got %q %v", out, err)
	}
	out, err = run(t, nil, "connect", url, "--ca", ca.CAFile(), "--token", "s3cret", "--interface-version", "5")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !strings.Contains(out, "session handle") || !strings.Contains(out, "interface version") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}
