package display

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

const (
	Title     = "STOCK'S ANALYZER"
	Signature = "[ .P.N. ]"
)

// ErrReadOnly is returned by Write while the box is at rest.
var ErrReadOnly = errors.New("result box is read-only")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(1, 2).
			Width(80)

	signatureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Italic(true).
			Align(lipgloss.Right).
			Width(80)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#EF4444")).
			Padding(0, 1)
)

// ResultBox is the output region. It only accepts text through Replace and
// Append; both lift the read-only flag for the duration of the write.
type ResultBox struct {
	mu       sync.Mutex
	buf      strings.Builder
	editable bool
}

func NewResultBox() *ResultBox {
	return &ResultBox{}
}

// Replace clears the box and writes text.
func (b *ResultBox) Replace(text string) {
	b.scoped(func(w io.Writer) {
		b.buf.Reset()
		io.WriteString(w, text)
	})
}

// Append writes text after the current contents.
func (b *ResultBox) Append(text string) {
	b.scoped(func(w io.Writer) {
		io.WriteString(w, text)
	})
}

func (b *ResultBox) scoped(fn func(w io.Writer)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.editable = true
	defer func() { b.editable = false }()
	fn(writerFunc(b.writeLocked))
}

// Write implements io.Writer. It fails outside a scoped write.
func (b *ResultBox) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeLocked(p)
}

func (b *ResultBox) writeLocked(p []byte) (int, error) {
	if !b.editable {
		return 0, ErrReadOnly
	}
	return b.buf.Write(p)
}

// Editable reports whether a scoped write is in progress.
func (b *ResultBox) Editable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.editable
}

// Text returns the current contents.
func (b *ResultBox) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Render draws the box with its title and signature.
func (b *ResultBox) Render() string {
	body := strings.Trim(b.Text(), "\n")
	if body == "" {
		body = " "
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(Title),
		boxStyle.Render(body),
		signatureStyle.Render(Signature),
	)
}

// Print writes the rendered box to w.
func (b *ResultBox) Print(w io.Writer) error {
	_, err := fmt.Fprintln(w, b.Render())
	return err
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

// Alerter raises a modal message.
type Alerter interface {
	Alert(message string)
}

// WriterAlerter prints alerts as a highlighted block.
type WriterAlerter struct {
	w io.Writer
}

func NewWriterAlerter(w io.Writer) *WriterAlerter {
	return &WriterAlerter{w: w}
}

func (a *WriterAlerter) Alert(message string) {
	fmt.Fprintln(a.w, alertStyle.Render("⚠️  "+message))
}
