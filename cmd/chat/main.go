package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/zhouzirui/opencode-chat/internal/client"
	"github.com/zhouzirui/opencode-chat/internal/config"
	"github.com/zhouzirui/opencode-chat/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "backend base URL")
	flag.StringVar(&cfg.PrefsPath, "prefs", cfg.PrefsPath, "preferences file")
	exportPath := flag.String("html", "", "write the chat log as HTML to this file on exit")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var prefs client.Prefs = client.NewMemoryPrefs()
	if filePrefs, err := client.OpenFilePrefs(cfg.PrefsPath); err != nil {
		log.Printf("warning: %v, preferences will not persist", err)
	} else {
		prefs = filePrefs
	}

	api := transport.NewAPI(cfg.ServerURL, cfg.RequestTimeout)
	tr := transport.New(api, transport.ChannelDialer(cfg.WebSocketURL()))
	view := newTerminalView(os.Stdout, 80)

	loop := client.NewLoop()
	ctrl := client.NewController(loop, api, tr, prefs, view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fmt.Println(promptStyle.Render("opencode-chat") + " " + cfg.ServerURL + "  (type :help for commands)")
	loop.Post(ctrl.CheckStatus)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	loadHistory(line, cfg.HistoryPath)

	repl(line, loop, ctrl)

	saveHistory(line, cfg.HistoryPath)
	line.Close()

	loop.Call(func() {
		tr.Disconnect()
		if *exportPath != "" {
			if err := writeExport(*exportPath, ctrl.Entries()); err != nil {
				log.Printf("export failed: %v", err)
			}
		}
	})
}

func repl(line *liner.State, loop *client.Loop, ctrl *client.Controller) {
	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C 或 EOF 均视为退出
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !runInput(loop, ctrl, input) {
			return
		}
	}
}

func loadHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

func writeExport(path string, entries []client.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := client.ExportHTML(f, "opencode-chat", entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
