package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// messager is implemented by zerr errors: Message returns the text of one
// layer without its causes.
type messager interface {
	Message() string
}

type metadater interface {
	Metadata() map[string]any
}

// ErrorEntry is one layer of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks zerr layers from the outside in. The first error
// that is not a zerr error ends the walk with its full text.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error()})
			break
		}
		entry := ErrorEntry{Message: m.Message()}
		if md, ok := current.(metadater); ok {
			entry.Metadata = md.Metadata()
		}
		entries = append(entries, entry)
		current = errors.Unwrap(current)
	}
	return entries
}

const (
	mainIndent  = "       "
	causeIndent = "      "
)

func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string
	for i, e := range entries {
		text := strings.Split(e.Message, "\n")
		if i == 0 {
			lines = append(lines, "Error: "+text[0])
			for _, l := range text[1:] {
				lines = append(lines, mainIndent+l)
			}
			lines = append(lines, metadataLines(e.Metadata, mainIndent)...)
			continue
		}
		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+text[0])
		for _, l := range text[1:] {
			lines = append(lines, causeIndent+l)
		}
		lines = append(lines, metadataLines(e.Metadata, causeIndent)...)
	}
	return strings.Join(lines, "\n")
}

func metadataLines(md map[string]any, indent string) []string {
	out := make([]string, 0, len(md))
	for _, k := range slices.Sorted(maps.Keys(md)) {
		out = append(out, fmt.Sprintf("%s%s: %v", indent, k, md[k]))
	}
	return out
}
