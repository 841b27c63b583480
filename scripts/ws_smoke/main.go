package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8081/ws", "admin WebSocket address")
	user := flag.String("user", "tester", "name to request with /username")
	text := flag.String("text", "hello from smoke test", "chat line to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(line string) error {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line+"\n")); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
		return nil
	}
	// expect prints server lines until one contains want.
	expect := func(want string) error {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			line := strings.TrimSuffix(string(data), "\n")
			fmt.Printf("< %s\n", line)
			if strings.Contains(line, want) {
				return nil
			}
		}
	}

	if _, data, err := conn.Read(ctx); err != nil {
		return fmt.Errorf("read welcome: %w", err)
	} else {
		fmt.Printf("< %s", data)
	}

	if err := send("/username " + *user); err != nil {
		return err
	}
	if err := expect("changed name to (" + *user + ")"); err != nil {
		return err
	}

	if err := send("/connected"); err != nil {
		return err
	}
	if err := expect("(" + *user + ")"); err != nil {
		return err
	}

	if err := send(*text); err != nil {
		return err
	}
	fmt.Printf("> %s\n", *text)

	return send("/disconnect")
}
