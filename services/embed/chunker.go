package embed

import "github.com/sirupsen/logrus"

// Window is a chunk size and the overlap carried into the next chunk, both in characters.
type Window struct {
	Size    int
	Overlap int
}

const (
	// Texts longer than this many characters use the large window.
	largeTextThreshold = 20000

	// Safety limit on the number of chunks produced for one text.
	maxChunks = 1000
)

var (
	smallWindow = Window{Size: 500, Overlap: 50}
	largeWindow = Window{Size: 1000, Overlap: 100}
)

// Chunker splits raw text into overlapping character windows.
type Chunker struct {
	Small     Window
	Large     Window
	Threshold int
	MaxChunks int
}

// NewChunker returns a chunker with the default window policy.
func NewChunker() *Chunker {
	return &Chunker{
		Small:     smallWindow,
		Large:     largeWindow,
		Threshold: largeTextThreshold,
		MaxChunks: maxChunks,
	}
}

// WindowFor returns the window used for a text of n characters.
func (c *Chunker) WindowFor(n int) Window {
	if n > c.Threshold {
		return c.Large
	}
	return c.Small
}

// Split chunks text with the window chosen by its length.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	w := c.WindowFor(len(runes))
	chunks := slide(runes, w, c.MaxChunks)

	logrus.WithFields(logrus.Fields{
		"characters": len(runes),
		"chunk_size": w.Size,
		"overlap":    w.Overlap,
		"chunks":     len(chunks),
	}).Debug("chunker: text split")
	return chunks
}

// slide produces windows where each window starts overlap characters before the
// previous one ended. It stops at the end of the text, at maxCount chunks, or
// as soon as the next start would not move forward.
func slide(runes []rune, w Window, maxCount int) []string {
	n := len(runes)
	if n == 0 || w.Size <= 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < n && len(chunks) < maxCount {
		end := start + w.Size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}

		next := end - w.Overlap
		if next < 0 {
			next = 0
		}
		if next <= start {
			break
		}
		start = next
	}
	return chunks
}
