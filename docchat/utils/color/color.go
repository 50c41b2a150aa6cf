// docchat/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor  = color.New(color.FgCyan, color.Bold)
	infoColor    = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	userColor    = color.New(color.FgHiBlue, color.Bold)
	botColor     = color.New(color.FgHiYellow)
	voiceColor   = color.New(color.FgMagenta)
)

func ColorPrompt(s string) string {
	return promptColor.Sprint(s)
}

func ColorInfo(s string) string {
	return infoColor.Sprint(s)
}

func ColorWarning(s string) string {
	return warningColor.Sprint(s)
}

func ColorError(s string) string {
	return errorColor.Sprint(s)
}

func ColorUser(s string) string {
	return userColor.Sprint(s)
}

func ColorBot(s string) string {
	return botColor.Sprint(s)
}

func ColorVoice(s string) string {
	return voiceColor.Sprint(s)
}

// Disable turns colors off, e.g. when output is piped.
func Disable() {
	color.NoColor = true
}
