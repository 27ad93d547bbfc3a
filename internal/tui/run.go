package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTUI starts the bubbletea program in alt-screen mode and runs fn
// concurrently. ctx passed to fn is cancelled when the user quits. It
// blocks until both have finished.
func RunTUI(ctx context.Context, cfg TUIConfig, fn func(ctx context.Context, ui IO) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputCh := make(chan inputResult, 1)
	model := NewModel(inputCh, cfg)

	tuiIO := &TuiIO{inputCh: inputCh}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	tuiIO.program = p

	var (
		fnErr error
		wg    sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		fnErr = fn(ctx, tuiIO)
		// Signal the TUI that the shell is done
		p.Send(doneMsg{err: fnErr})
	}()

	_, err := p.Run()
	// Unblock a pending ReadInput and stop in-flight requests.
	cancel()
	select {
	case inputCh <- inputResult{err: context.Canceled}:
	default:
	}
	wg.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return fnErr
}
