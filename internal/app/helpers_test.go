package app

import (
	"context"
	"sync"

	"github.com/TanaroSch/whisper-lead/internal/ui"
)

// pressDevice reports one press (held for a single poll) per press() call,
// or keeps pressing and releasing forever when repeat is set.
type pressDevice struct {
	mu      sync.Mutex
	pending int
	repeat  bool
	down    bool
	closed  bool
}

func (d *pressDevice) press() {
	d.mu.Lock()
	d.pending++
	d.mu.Unlock()
}

func (d *pressDevice) Pressed() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		d.down = false
		return false, nil
	}
	if d.repeat || d.pending > 0 {
		if d.pending > 0 {
			d.pending--
		}
		d.down = true
		return true, nil
	}
	return false, nil
}

func (d *pressDevice) Name() string { return "test device" }

func (d *pressDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *pressDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeUI answers setup dialogs from scripted lists. An exhausted list reads
// as the user canceling the dialog.
type fakeUI struct {
	mu       sync.Mutex
	methods  []ui.InputMethod
	combos   []string
	tokens   []string
	locals   []bool
	prefills []string
	warnings []string
	progress []string
}

func (f *fakeUI) ChooseInput(ctx context.Context) (ui.InputMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.methods) == 0 {
		return 0, ui.ErrCanceled
	}
	m := f.methods[0]
	f.methods = f.methods[1:]
	return m, nil
}

func (f *fakeUI) AskKeyboardCombo(ctx context.Context, current string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.combos) == 0 {
		return "", ui.ErrCanceled
	}
	c := f.combos[0]
	f.combos = f.combos[1:]
	return c, nil
}

func (f *fakeUI) AskToken(ctx context.Context, prefill string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefills = append(f.prefills, prefill)
	if len(f.tokens) == 0 {
		return "", ui.ErrCanceled
	}
	tok := f.tokens[0]
	f.tokens = f.tokens[1:]
	return tok, nil
}

func (f *fakeUI) AskLocalInstance(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.locals) == 0 {
		return false, ui.ErrCanceled
	}
	l := f.locals[0]
	f.locals = f.locals[1:]
	return l, nil
}

func (f *fakeUI) Progress(ctx context.Context, text string) (ui.ProgressDialog, error) {
	f.mu.Lock()
	f.progress = append(f.progress, text)
	f.mu.Unlock()
	return &fakeProgress{done: make(chan struct{})}, nil
}

func (f *fakeUI) Warn(text string) {
	f.mu.Lock()
	f.warnings = append(f.warnings, text)
	f.mu.Unlock()
}

type fakeProgress struct {
	done chan struct{}
	once sync.Once
}

func (p *fakeProgress) Text(string) error { return nil }

func (p *fakeProgress) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

func (p *fakeProgress) Done() <-chan struct{} { return p.done }
