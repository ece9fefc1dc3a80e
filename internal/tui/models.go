package tui

type View int

const (
	ViewHome View = iota
	ViewOpenFile
	ViewResults
	ViewContext
	ViewInfo
	ViewHelp
)

func (v View) String() string {
	switch v {
	case ViewOpenFile:
		return "open"
	case ViewResults:
		return "results"
	case ViewContext:
		return "context"
	case ViewInfo:
		return "info"
	case ViewHelp:
		return "help"
	default:
		return "home"
	}
}
