package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/scicomp/clusterstor-tools/internal/schema"
)

// ErrAborted is an error that occurs when the operator aborted a prompt.
var ErrAborted = errors.New("prompt aborted")

type confirmKeyMap struct {
	Yes   key.Binding
	No    key.Binding
	Abort key.Binding
}

func defaultConfirmKeys() confirmKeyMap {
	return confirmKeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "enter", "esc"),
			key.WithHelp("n/enter", "no"),
		),
		Abort: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "abort"),
		),
	}
}

// confirmModel is the [tea.Model] of a yes/no question, defaulting to no.
type confirmModel struct {
	question string
	keys     confirmKeyMap
	styles   styles
	answer   bool
	aborted  bool
	done     bool
}

func newConfirmModel(question string, s styles) confirmModel {
	return confirmModel{
		question: question,
		keys:     defaultConfirmKeys(),
		styles:   s,
	}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

//nolint:ireturn
func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answer = true
	case key.Matches(keyMsg, m.keys.No):
		m.answer = false
	case key.Matches(keyMsg, m.keys.Abort):
		m.aborted = true
	default:
		return m, nil
	}
	m.done = true

	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		if m.answer {
			return m.question + " yes\n"
		}

		return m.question + " no\n"
	}

	help := fmt.Sprintf("%s: %s • %s: %s",
		m.keys.Yes.Help().Key, m.keys.Yes.Help().Desc,
		m.keys.No.Help().Key, m.keys.No.Help().Desc,
	)

	return m.styles.title.Render(m.question) + " [y/N] " + m.styles.au.Faint(help).String()
}

// Prompt asks the operator yes/no questions, interactively on a terminal
// and line-based otherwise.
type Prompt struct {
	in  io.Reader
	out io.Writer
}

// NewPrompt returns a pointer to a new [Prompt].
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		in:  in,
		out: out,
	}
}

// Confirm asks a question, anything but an explicit yes is a no. A canceled
// context ends a pending question with [schema.ErrInterrupted].
func (p *Prompt) Confirm(ctx context.Context, question string) (bool, error) {
	if isTerminal(p.in) && isTerminal(p.out) {
		return p.confirmInteractive(ctx, question)
	}

	return p.confirmLine(ctx, question)
}

func (p *Prompt) confirmInteractive(ctx context.Context, question string) (bool, error) {
	program := tea.NewProgram(newConfirmModel(question, newStyles(p.out)),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := program.Run()
	if ctx.Err() != nil {
		return false, fmt.Errorf("(ui-confirm) %w: %w", schema.ErrInterrupted, ctx.Err())
	}
	if err != nil {
		return false, fmt.Errorf("(ui-confirm) %w", err)
	}

	m, ok := final.(confirmModel)
	if !ok || m.aborted {
		return false, ErrAborted
	}

	return m.answer, nil
}

type lineResult struct {
	line string
	err  error
}

// confirmLine reads the answer in the background, as a blocking read cannot
// be canceled. The reader is left behind on an interrupt, which ends the run.
func (p *Prompt) confirmLine(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N] ", question)

	result := make(chan lineResult, 1)
	go func() {
		line, err := bufio.NewReader(p.in).ReadString('\n')
		result <- lineResult{line: line, err: err}
	}()

	var res lineResult
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)

		return false, fmt.Errorf("(ui-confirm) %w: %w", schema.ErrInterrupted, ctx.Err())
	case res = <-result:
	}

	if res.err != nil && !errors.Is(res.err, io.EOF) {
		return false, fmt.Errorf("(ui-confirm) %w", res.err)
	}

	switch strings.ToLower(strings.TrimSpace(res.line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
