package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/chatlens/internal/config"
)

// keyMap holds the configurable bindings. Search and OpenFile are global
// and take the modifier; the rest are plain keys that only apply while no
// text input is focused.
type keyMap struct {
	Search     key.Binding
	OpenFile   key.Binding
	ToggleView key.Binding
	LoadMore   key.Binding
	Context    key.Binding
	Copy       key.Binding
	OpenMedia  key.Binding
	Info       key.Binding
	Remove     key.Binding
	Back       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap(cfg *config.Config) keyMap {
	b := cfg.Keys.Bindings
	mod := cfg.Keys.Modifier + "+"
	bind := func(desc string, keys ...string) key.Binding {
		return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], desc))
	}
	return keyMap{
		Search:     bind("search", mod+b.Search),
		OpenFile:   bind("open file", mod+b.OpenFile),
		ToggleView: bind("card/list", b.ToggleView),
		LoadMore:   bind("load more", b.LoadMore),
		Context:    bind("context", b.Context),
		Copy:       bind("copy", b.Copy),
		OpenMedia:  bind("open media", b.OpenMedia),
		Info:       bind("file info", b.Info),
		Remove:     bind("remove", mod+"x"),
		Back:       bind("back", b.Back),
		Help:       bind("help", b.Help),
		Quit:       bind("quit", b.Quit, "ctrl+c"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.OpenFile, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.OpenFile, k.Search, k.Info, k.Remove},
		{k.ToggleView, k.LoadMore, k.Context},
		{k.Copy, k.OpenMedia},
		{k.Back, k.Help, k.Quit},
	}
}

// helpEntry renders a binding as "key: desc" for the status bar.
func helpEntry(b key.Binding) string {
	h := b.Help()
	return h.Key + ": " + h.Desc
}
