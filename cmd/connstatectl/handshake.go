package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/connstate/internal/command"
	"github.com/danmuck/connstate/internal/config"
	"github.com/danmuck/connstate/internal/connstate"
	"github.com/danmuck/connstate/internal/protocol/wire"
	"github.com/danmuck/connstate/internal/transport"
	"github.com/spf13/cobra"
)

type requestFlags struct {
	packageName      string
	interfaceVersion int
	libraryVersion   int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.packageName, "package", "com.example.controller", "controller package name")
	cmd.Flags().IntVar(&f.interfaceVersion, "interface-version", connstate.MediaButtonPreferencesMinVersion, "controller interface version")
	cmd.Flags().IntVar(&f.libraryVersion, "library-version", 0, "controller library version")
}

func (f requestFlags) request() connstate.ConnectionRequest {
	return connstate.ConnectionRequest{
		LibraryVersion:             f.libraryVersion,
		ControllerInterfaceVersion: f.interfaceVersion,
		PackageName:                f.packageName,
		PID:                        os.Getpid(),
	}
}

func encodeCmd() *cobra.Command {
	var (
		configPath string
		output     string
		req        requestFlags
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Accept a request against the configured session and write the state frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return encodeState(w, cfg, req.request())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "session config path (default session.toml when present)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "frame output path")
	req.register(cmd)
	return cmd
}

func encodeState(w io.Writer, cfg config.SessionConfig, req connstate.ConnectionRequest) error {
	opts, err := cfg.WireOptions()
	if err != nil {
		return err
	}
	session, _, err := cfg.NewSession()
	if err != nil {
		return err
	}
	d, err := session.Accept(req, false)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if err := wire.WriteDelivery(bw, 1, d, opts); err != nil {
		return err
	}
	return bw.Flush()
}

func decodeCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Read one frame and print what it carries",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := cmd.InOrStdin()
			if input != "" && input != "-" {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			return decodeFrame(cmd.OutOrStdout(), bufio.NewReader(r), wire.DefaultOptions())
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "-", "frame input path")
	return cmd
}

func decodeFrame(w io.Writer, r io.Reader, opts wire.Options) error {
	msg, err := wire.ReadBundle(r, opts)
	if err != nil {
		return err
	}
	switch msg.Type {
	case wire.MsgConnectionState:
		state, err := connstate.FromBundle(msg.Body)
		if err != nil {
			return err
		}
		return describeState(w, state)
	case wire.MsgConnectionRequest:
		req, err := connstate.RequestFromBundle(msg.Body)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "connection request from %s (interface %d, library %d, pid %d)\n",
			req.PackageName, req.ControllerInterfaceVersion, req.LibraryVersion, req.PID)
		return err
	case wire.MsgConnectionRejected:
		_, err := fmt.Fprintf(w, "connection rejected: %s\n", wire.RejectReason(msg))
		return err
	default:
		return fmt.Errorf("%w: %s", wire.ErrUnexpectedMessage, msg.Type)
	}
}

func connectCmd() *cobra.Command {
	var (
		format   string
		token    string
		retries  int
		timeout  time.Duration
		tlsFlags transport.TLSConfig
		req      requestFlags
	)
	cmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Connect to a serving session and print the state it returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := wire.DefaultOptions()
			f, err := wire.ParseFormat(format)
			if err != nil {
				return err
			}
			opts.Format = f
			if token != "" {
				opts.Auth = []byte(token)
			}
			tlsFlags.Enabled = strings.HasPrefix(args[0], "wss://")
			tlsFlags.Mutual = tlsFlags.CertFile != ""
			tlsCfg, err := tlsFlags.ClientConfig()
			if err != nil {
				return err
			}
			d := transport.Dialer{
				Options:  opts,
				TLS:      tlsCfg,
				Backoff:  transport.DefaultBackoff(),
				Attempts: retries + 1,
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			state, err := d.Dial(ctx, args[0], req.request())
			if err != nil {
				return err
			}
			return describeState(cmd.OutOrStdout(), state)
		},
	}
	cmd.Flags().StringVar(&format, "format", "tlv", "request encoding: tlv|cbor")
	cmd.Flags().StringVar(&token, "token", "", "auth token sent with the request")
	cmd.Flags().IntVar(&retries, "retries", 0, "redials while the session is unavailable")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall handshake timeout")
	cmd.Flags().StringVar(&tlsFlags.CAFile, "ca", "", "CA file for wss:// urls")
	cmd.Flags().StringVar(&tlsFlags.CertFile, "cert", "", "client certificate for mutual TLS")
	cmd.Flags().StringVar(&tlsFlags.KeyFile, "key", "", "client key for mutual TLS")
	cmd.Flags().BoolVar(&tlsFlags.InsecureSkipVerify, "insecure", false, "skip server certificate verification")
	req.register(cmd)
	return cmd
}

func describeState(w io.Writer, s *connstate.ConnectionState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session handle\t%s\n", s.SessionHandle())
	fmt.Fprintf(tw, "library version\t%d\n", s.LibraryVersion())
	fmt.Fprintf(tw, "interface version\t%d\n", s.SessionInterfaceVersion())
	if h, ok := s.ActivityHandle(); ok {
		fmt.Fprintf(tw, "activity handle\t%s\n", h)
	}
	if _, ok := s.PlatformToken(); ok {
		fmt.Fprintf(tw, "platform token\tpresent\n")
	}
	fmt.Fprintf(tw, "session commands\t%d\n", s.SessionCommands().Len())
	fmt.Fprintf(tw, "player commands\t%v\n", s.EffectivePlayerCommands().List())
	fmt.Fprintf(tw, "custom layout\t%s\n", describeButtons(s.CustomLayout()))
	fmt.Fprintf(tw, "media button preferences\t%s\n", describeButtons(s.MediaButtonPreferences()))
	fmt.Fprintf(tw, "buttons for media items\t%s\n", describeButtons(s.CommandButtonsForMediaItems()))
	info := s.PlayerInfo()
	fmt.Fprintf(tw, "playback\t%s playing=%t\n", info.PlaybackState, info.IsPlaying)
	if !info.CurrentMediaItem.IsZero() {
		fmt.Fprintf(tw, "current item\t%s (%s)\n", info.CurrentMediaItem.Title, info.CurrentMediaItem.MediaID)
	}
	return tw.Flush()
}

func describeButtons(buttons []command.Button) string {
	if len(buttons) == 0 {
		return "-"
	}
	parts := make([]string, len(buttons))
	for i, b := range buttons {
		parts[i] = fmt.Sprintf("%s%v", b.DisplayName, b.Slots)
	}
	return strings.Join(parts, ", ")
}
