package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"treecheck/internal/corpus"
	"treecheck/internal/session"
	"treecheck/internal/ui"
)

type corpusOutcome struct {
	result *session.CorpusResult
	err    error
}

type fuzzOutcome struct {
	result *session.FuzzResult
	err    error
}

func entryKeys(entries []corpus.Entry, defaultLang string) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		lang := e.Language
		if lang == "" {
			lang = defaultLang
		}
		keys = append(keys, ui.EntryKey(lang, e.Name))
	}
	return keys
}

func runCorpusWithUI(ctx context.Context, entries []corpus.Entry, opts session.CorpusOptions) (*session.CorpusResult, error) {
	events := make(chan session.Event, 256)
	outcomeCh := make(chan corpusOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = session.ChannelSink{Ch: events}
		res, err := session.RunCorpus(ctx, optsCopy)
		outcomeCh <- corpusOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("corpus", entryKeys(entries, opts.Language), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func runFuzzWithUI(ctx context.Context, entries []corpus.Entry, opts session.FuzzOptions) (*session.FuzzResult, error) {
	events := make(chan session.Event, 256)
	outcomeCh := make(chan fuzzOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = session.ChannelSink{Ch: events}
		res, err := session.RunFuzz(ctx, optsCopy)
		outcomeCh <- fuzzOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("fuzz", entryKeys(entries, opts.Language), events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
