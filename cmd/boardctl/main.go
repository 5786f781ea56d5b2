package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/park285/cheese-hopboard/internal/boardclient"
	"github.com/park285/cheese-hopboard/internal/obslog"
	"github.com/park285/cheese-hopboard/pkg/boarddto"
	"go.uber.org/zap"
)

const usage = `usage: boardctl [-url URL] [-timeout D] <command> [args]

commands:
  state              print the session snapshot
  health             print server health
  key <k>            press a key: 0-9 camera, r reset, space toggle
  pick <x> <y>       hover a pixel and print the square under it
  pick <square>      hover a square by name, e.g. e4
  resize <w> <h>     change the output size
  frame [-o FILE]    save the current frame as PNG (default frame.png)
  watch              stream events until interrupted`

func main() {
	baseURL := flag.String("url", getenv("HOPBOARD_URL", "http://localhost:8080"), "server base URL")
	timeout := flag.Duration("timeout", 8*time.Second, "request timeout")
	origin := flag.String("origin", os.Getenv("HOPBOARD_ORIGIN"), "Origin header for watch")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := boardclient.NewClient(*baseURL, boardclient.WithTimeout(*timeout))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out any
	var err error
	switch args[0] {
	case "state":
		out, err = client.State(ctx)
	case "health":
		out, err = client.Health(ctx)
	case "key":
		need(args, 2)
		out, err = client.Key(ctx, keyArg(args[1]))
	case "pick":
		if len(args) == 2 {
			out, err = client.PickSquare(ctx, args[1])
			break
		}
		need(args, 3)
		out, err = client.Pick(ctx, parseFloat(args[1]), parseFloat(args[2]))
	case "resize":
		need(args, 3)
		out, err = client.Resize(ctx, parseInt(args[1]), parseInt(args[2]))
	case "frame":
		err = saveFrame(ctx, client, args[1:])
	case "watch":
		cancel()
		err = watch(*baseURL, *origin)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	}
}

func saveFrame(ctx context.Context, client *boardclient.Client, args []string) error {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	path := fs.String("o", "frame.png", "output file")
	_ = fs.Parse(args)
	b, err := client.Frame(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*path, b, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s (%d bytes)", *path, len(b))
	return nil
}

func watch(baseURL, origin string) error {
	if err := obslog.InitFromEnv(); err != nil {
		return err
	}
	logger := obslog.Named("watch")

	ws := boardclient.NewWebSocket(wsURL(baseURL), 10)
	ws.SetOrigin(origin)
	ws.OnStateChange(func(state boardclient.WebSocketState) {
		logger.Info("ws_state", zap.Stringer("state", state))
	})
	ws.OnMessage(func(msg *boarddto.ServerMessage) {
		switch {
		case msg.Event != nil:
			text := msg.Event.Summary
			if text == "" {
				text = msg.Event.Type
			}
			fmt.Printf("%s  %-16s %s\n", msg.Event.At.Local().Format("15:04:05.000"), msg.Event.Type, text)
		case msg.Snapshot != nil:
			st := msg.Snapshot.State
			fmt.Printf("session %s  %s to move  running=%v  moves=%d\n", st.SessionID, st.ActiveColor, st.Running, st.Moves)
		case msg.Error != nil:
			fmt.Printf("error %s: %s\n", msg.Error.Code, msg.Error.Error())
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := ws.Connect(cctx)
	cancel()
	if err != nil {
		logger.Warn("ws_connect_failed", zap.Error(err))
	}
	<-ctx.Done()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCancel()
	return ws.Close(closeCtx)
}

func wsURL(base string) string {
	u := strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

// keyArg lets "space" stand in for a literal space on the command line.
func keyArg(k string) string {
	if strings.EqualFold(k, "space") {
		return " "
	}
	return k
}

func need(args []string, n int) {
	if len(args) < n {
		flag.Usage()
		os.Exit(2)
	}
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Fatalf("not a number: %q", s)
	}
	return f
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("not an integer: %q", s)
	}
	return n
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
