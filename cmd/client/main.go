package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"thoughtgraph/application/session"
	syncer "thoughtgraph/application/sync"
	"thoughtgraph/domain/layout"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/persistence/local"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	snapshot, err := local.NewSnapshot(cfg.LocalDataDir)
	if err != nil {
		logger.Fatal("Failed to open local data directory", zap.Error(err))
	}

	client := syncer.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	coordinator := syncer.NewCoordinator(client, snapshot,
		cfg.SaveDebounce, cfg.PollInterval, prometheus.DefaultRegisterer, logger, nil)

	sess := session.New(coordinator, logger)
	coordinator.SetOnRemote(sess.AdoptRemote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess.Start(ctx)
	defer sess.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		os.Exit(0)
	}()

	fmt.Printf("thoughtgraph connected to %s (%d thoughts)\n", cfg.APIBaseURL, len(sess.Thoughts()))
	fmt.Println(`Type "help" for commands.`)
	repl(ctx, sess)
}

func repl(ctx context.Context, sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest := splitCommand(line)

		switch cmd {
		case "help":
			printHelp()
		case "quit", "exit":
			return
		case "list":
			for _, t := range sess.Thoughts() {
				fmt.Printf("%s  %-30s  %d connections\n", t.ID, t.Title, len(t.Connections))
			}
		case "create":
			title, content := splitCommand(rest)
			t := sess.Create(title, content)
			fmt.Printf("created %s (%s)\n", t.Title, t.ID)
		case "capture":
			t, err := sess.QuickCapture(rest)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("captured %s (%s) with %d connections\n", t.Title, t.ID, len(t.Connections))
		case "update":
			id, text := splitCommand(rest)
			title, content := splitCommand(text)
			t, err := sess.Update(id, title, content)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("updated %s, now %d connections\n", t.Title, len(t.Connections))
		case "connect":
			a, b := splitCommand(rest)
			if err := sess.ToggleConnection(a, b); err != nil {
				fmt.Println("error:", err)
			}
		case "delete":
			if err := sess.Delete(rest); err != nil {
				fmt.Println("error:", err)
			}
		case "select":
			if err := sess.Select(rest); err != nil {
				fmt.Println("error:", err)
			}
		case "layout":
			switch layout.Kind(rest) {
			case layout.KindForce, layout.KindTree, layout.KindCircular, layout.KindTimeline:
				sess.SetLayout(layout.Kind(rest))
			default:
				fmt.Println("layouts: force, tree, circular, timeline")
			}
		case "viewport":
			w, h := splitCommand(rest)
			width, werr := strconv.ParseFloat(w, 64)
			height, herr := strconv.ParseFloat(h, 64)
			if werr != nil || herr != nil || width <= 0 || height <= 0 {
				fmt.Println("usage: viewport <width> <height>")
				continue
			}
			sess.SetViewport(layout.Viewport{Width: width, Height: height})
		case "view":
			printJSON(sess.GraphData())
		case "minimap":
			printJSON(sess.MinimapData())
		case "search":
			for _, m := range sess.Search(rest) {
				fmt.Printf("%4d  %s  %s\n", m.Score, m.Thought.ID, m.Thought.Title)
			}
		case "suggest":
			s, ok := sess.Suggest(rest, len(rest))
			if !ok {
				fmt.Println("no suggestions")
				continue
			}
			for _, c := range s.Candidates {
				fmt.Println(" ", c.Title)
			}
		case "export":
			data, err := sess.Export()
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if rest == "" {
				fmt.Println(string(data))
				continue
			}
			if err := os.WriteFile(rest, data, 0o644); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println("exported to", rest)
		case "import":
			data, err := os.ReadFile(rest)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			count, problems, err := sess.Import(data)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("imported %d thoughts\n", count)
			for _, p := range problems {
				fmt.Println("skipped:", p)
			}
		case "sync":
			sess.Sync(ctx)
			server, save := sess.Status()
			fmt.Printf("server: %s  save: %s\n", server, save)
		case "status":
			server, save := sess.Status()
			fmt.Printf("server: %s  save: %s\n", server, save)
		default:
			fmt.Println("unknown command; type \"help\"")
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  list                           show all thoughts
  create <title> [content]       add a thought
  capture <text>                 quick capture with @mentions
  update <id> <title> [content]  rewrite a thought
  connect <id> <id>              toggle a connection
  delete <id>                    remove a thought
  select <id>                    highlight a thought (empty to clear)
  layout <kind>                  force | tree | circular | timeline
  viewport <w> <h>               set drawing area
  view                           print positioned graph data
  minimap                        print minimap graph data
  search <query>                 fuzzy search titles and content
  suggest <text>                 mention completions for text
  export [file]                  dump the collection as JSON
  import <file>                  replace the collection from JSON
  sync                           push pending edits and refresh now
  status                         server and save state
  quit
`)
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(string(data))
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	// Keep interactive output clean; structured logs go to a file.
	zcfg := zap.NewDevelopmentConfig()
	zcfg.OutputPaths = []string{"thoughtgraph-client.log"}
	zcfg.ErrorOutputPaths = []string{"thoughtgraph-client.log"}
	return zcfg.Build()
}
