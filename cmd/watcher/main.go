// Command watcher joins a room from the terminal with a simulated player.
// It reads play, pause, seek N, speed S, mute and quit from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Watch/internal/client"
	"github.com/dkeye/Watch/internal/logging"
)

var errQuit = errors.New("quit")

func main() {
	server := pflag.StringP("server", "s", "http://localhost:8080", "relay server base url")
	room := pflag.StringP("room", "r", "", "room id to join")
	media := pflag.StringP("url", "u", "", "media url the room was created with")
	heartbeat := pflag.Duration("heartbeat", 5*time.Second, "syncVideo interval while playing, 0 disables")
	level := pflag.String("log-level", "info", "log level")
	pflag.Parse()

	logging.Setup(*level, true)

	if *room == "" {
		fmt.Fprintln(os.Stderr, "--room is required")
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := client.Dial(ctx, *server)
	if err != nil {
		log.Error().Err(err).Msg("connect")
		os.Exit(1)
	}

	dev := client.NewSimDevice()
	dev.OnStateChange(func(st client.DeviceState) {
		fmt.Printf("[player] %s at %.1fs\n", st, dev.CurrentTime())
	})
	ctl := client.NewSyncController(*room, dev, conn)

	if err := watch(ctx, conn, ctl, os.Stdin, *heartbeat, *media); err != nil {
		log.Error().Err(err).Msg("watcher stopped")
		os.Exit(1)
	}
}

type roomConn interface {
	Run(ctx context.Context, handle func([]byte) error) error
}

// watch joins the room and runs until the user quits, stdin ends or the
// server goes away. Whichever happens first stops the rest.
func watch(ctx context.Context, conn roomConn, ctl *client.SyncController, in io.Reader, heartbeat time.Duration, mediaRef string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := conn.Run(gctx, func(data []byte) error {
			before := len(ctl.Members())
			err := ctl.HandleMessage(data)
			if n := len(ctl.Members()); n != before {
				fmt.Printf("[room] %d watching: %s\n", n, strings.Join(ctl.Members(), ", "))
			}
			return err
		})
		if err == nil && ctx.Err() == nil {
			log.Info().Msg("server closed the connection")
		}
		return err
	})
	if heartbeat > 0 {
		g.Go(func() error { return ctl.Heartbeat(gctx, heartbeat) })
	}
	g.Go(func() error {
		err := readCommands(gctx, in, ctl)
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			cancel()
			return nil
		}
		return err
	})

	if err := ctl.Join(mediaRef); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("join: %w", err)
	}
	return g.Wait()
}

func readCommands(ctx context.Context, in io.Reader, ctl *client.SyncController) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			scanErr <- err
			return
		}
		scanErr <- io.EOF
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if err := runCommand(ctl, line); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				fmt.Fprintln(os.Stderr, err)
			}
		}
	}
}

func runCommand(ctl *client.SyncController, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := func() (float64, error) {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%s needs a number", fields[0])
		}
		return strconv.ParseFloat(fields[1], 64)
	}

	switch fields[0] {
	case "play":
		return ctl.Play()
	case "pause":
		return ctl.Pause()
	case "seek":
		t, err := arg()
		if err != nil {
			return err
		}
		return ctl.SeekTo(t)
	case "speed":
		s, err := arg()
		if err != nil {
			return err
		}
		return ctl.SetSpeed(s)
	case "mute":
		return ctl.ToggleMute()
	case "leave":
		return ctl.Leave()
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (play, pause, seek N, speed S, mute, leave, quit)", fields[0])
	}
}
