package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/bootstrap"
	"gopherai-docqa/internal/config"
	"gopherai-docqa/internal/pkg/logger"
	"gopherai-docqa/internal/tui"
)

func main() {
	var (
		sessionID string
		question  string
		nResults  int
	)
	flag.StringVar(&sessionID, "session", "", "Session to link the document to (a new one is created when empty)")
	flag.StringVar(&question, "q", "", "Ask one question, print the answer and exit")
	flag.IntVar(&nResults, "n", 0, "Number of chunks to retrieve (0 uses the configured default)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: docqa [-session=id] [-q=question] [-n=3] file.pdf|file.txt")
		os.Exit(1)
	}
	path := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		color.Red("load config failed: %v", err)
		os.Exit(1)
	}
	// only warnings reach the terminal while the chat screen is up
	log := logger.New(cfg.App.LogFile, true).WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	a, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		color.Red("startup failed: %v", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if !a.Credentials.Status().HasAPIKey {
		color.Yellow("No LLM api key configured. Set LLM_API_KEY or call POST /api/v1/api-key first.")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("read %s failed: %v", path, err)
		os.Exit(1)
	}
	color.Cyan("Processing %s ...", filepath.Base(path))
	res, err := a.RAG.Upload(ctx, app.UploadInput{Filename: filepath.Base(path), Data: data, SessionID: sessionID})
	if err != nil {
		color.Red("upload failed: %v", err)
		os.Exit(1)
	}
	color.Green("%s (%d chunks, session %s)", res.Message, res.ChunkCount, res.SessionID)

	if question != "" {
		answer, err := a.RAG.Ask(ctx, app.AskInput{SessionID: res.SessionID, Question: question, NResults: nResults})
		if err != nil {
			color.Red("query failed: %v", err)
			os.Exit(1)
		}
		fmt.Println(answer.Answer)
		for i, src := range answer.Sources {
			color.HiBlack("[%d] %s", i+1, src)
		}
		return
	}

	m := tui.New(a.RAG, res.SessionID, res.Filename, nResults)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		color.Red("chat failed: %v", err)
		os.Exit(1)
	}
}
