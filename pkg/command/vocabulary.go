package command

import (
	"sort"
	"strings"
)

var baseVocabulary = []string{
	"go to kitchen",
	"go to bathroom",
	"go outside",
	"go forward",
	"go backward",
	"turn left",
	"turn right",
	"stop",
	"help",
	"kitchen",
	"bathroom",
	"outside",
}

// Vocabulary returns the phrases the recognizer should listen for,
// including "go to <room>" for every learned room.
func Vocabulary(rooms []string) []string {
	out := make([]string, 0, len(baseVocabulary)+len(rooms))
	out = append(out, baseVocabulary...)
	seen := make(map[string]bool, len(out))
	for _, p := range out {
		seen[p] = true
	}
	for _, r := range sortedRooms(rooms) {
		p := "go to " + r
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// HelpText lists the available commands as a spoken sentence.
func HelpText(rooms []string) string {
	var b strings.Builder
	b.WriteString("You can say: go to kitchen, go to bathroom, go outside, go forward, go backward, turn left, turn right, or stop.")
	if names := sortedRooms(rooms); len(names) > 0 {
		b.WriteString(" I also know these rooms: ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func sortedRooms(rooms []string) []string {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		if n := Normalize(r); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
