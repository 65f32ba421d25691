package color

import (
	"fmt"
	"hash/fnv"

	"github.com/fatih/color"
)

// Status colors are fixed so a report reads the same across runs. User
// colors are hashed so each user keeps one consistent color without any
// registry.

var statusColors = map[string]*color.Color{
	"UNAVAILABLE": color.New(color.Faint),
	"AVAILABLE":   color.New(color.FgGreen),
	"PENDING":     color.New(color.FgYellow),
	"EXECUTING":   color.New(color.FgCyan),
	"FINISHED":    color.New(color.FgHiGreen, color.Bold),
	"FAILED":      color.New(color.FgHiRed, color.Bold),
}

var userPalette = []*color.Color{
	color.New(color.FgHiRed),
	color.New(color.FgHiGreen),
	color.New(color.FgHiYellow),
	color.New(color.FgHiBlue),
	color.New(color.FgHiMagenta),
	color.New(color.FgHiCyan),
	color.New(color.FgRed),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgMagenta),
	color.New(color.FgCyan),
}

// Status renders a task status with its fixed color.
func Status(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

// User renders a user name with its hash-assigned color.
func User(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	c := userPalette[int(h.Sum32())%len(userPalette)]
	return c.Sprint(name)
}

// UserPrefix renders a bracketed, colored user prefix for report lines.
func UserPrefix(name string) string {
	return fmt.Sprintf("[%s]", User(name))
}

// Disable turns off all color output, for dumb terminals and piped output.
func Disable() {
	color.NoColor = true
}
