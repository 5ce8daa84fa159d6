// Package prompt provides sources for named prompt templates.
//
// A Source is read fully into memory when the registry loads it. Templates
// are stored verbatim; placeholder substitution is the caller's concern.
package prompt

import (
	"fmt"
	"io"
	"os"
)

// Source yields the text of one prompt template.
type Source interface {
	Text() (string, error)
}

// String returns a Source holding s.
func String(s string) Source {
	return stringSource(s)
}

type stringSource string

func (s stringSource) Text() (string, error) {
	return string(s), nil
}

// File returns a Source that reads the file at path.
func File(path string) Source {
	return fileSource(path)
}

type fileSource string

func (f fileSource) Text() (string, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	return string(data), nil
}

// Reader returns a Source that drains r on the first Text call.
func Reader(r io.Reader) Source {
	return readerSource{r: r}
}

type readerSource struct {
	r io.Reader
}

func (s readerSource) Text() (string, error) {
	data, err := io.ReadAll(s.r)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	return string(data), nil
}
