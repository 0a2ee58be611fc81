package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/chatclient"
	pkglog "github.com/weiawesome/wes-io-chat/pkg/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", envOr("CHAT_SERVER", "http://localhost:5000"), "chat server base URL")
	username := flag.String("user", os.Getenv("CHAT_USER"), "display name to register and join as")
	logFile := flag.String("log", "", "write client logs to this file")
	flag.Parse()

	if *username == "" {
		return errors.New("a username is required (-user or CHAT_USER)")
	}

	opts := []chatclient.Option{}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer f.Close()
		opts = append(opts, chatclient.WithLogger(pkglog.New(pkglog.Config{
			Level:       "debug",
			ServiceName: "chatcli",
			Output:      f,
		})))
	}

	client := chatclient.New(*server, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Register(ctx, *username); err != nil && !errors.Is(err, chatclient.ErrUsernameTaken) {
		return fmt.Errorf("register: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.Join(ctx, *username); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	app := NewApp(client)
	if err := app.RefreshContacts(ctx); err != nil {
		return fmt.Errorf("contacts: %w", err)
	}
	app.WriteSystem("CONNECTED as " + *username)

	go app.Listen()

	if err := app.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
