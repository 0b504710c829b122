package server

import "fmt"

// ANSI colours for DEV route and request logs.
const (
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	red     = "\033[31m"
	gray    = "\033[90m"

	resetColour = "\033[0m"
)

var methodColours = map[string]string{
	"GET":     green,
	"POST":    blue,
	"PUT":     cyan,
	"DELETE":  yellow,
	"PATCH":   magenta,
	"OPTIONS": gray,
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColours[method]; ok {
		return colour + paddedMethod + resetColour
	}
	return gray + paddedMethod + resetColour
}

// colourStatus marks client errors yellow and server errors red.
func colourStatus(status int) string {
	switch {
	case status >= 500:
		return fmt.Sprintf("%s%d%s", red, status, resetColour)
	case status >= 400:
		return fmt.Sprintf("%s%d%s", yellow, status, resetColour)
	default:
		return fmt.Sprintf("%s%d%s", green, status, resetColour)
	}
}
