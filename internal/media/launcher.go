package media

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/config"
	"github.com/pders01/chatlens/internal/debuglog"
)

var (
	ErrNoAttachment = errors.New("message has no attachments")
	ErrMissingFile  = errors.New("attachment file not found")
)

// Launcher opens message attachments with the configured external programs.
type Launcher struct {
	openers       map[Type]string
	defaultOpener string
	registry      *PlayerRegistry
	detector      *TypeDetector

	// start runs a prepared command. Tests replace it.
	start func(*exec.Cmd) error
	// lookPath resolves an opener on PATH. Tests replace it.
	lookPath func(string) (string, error)
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewPlayerRegistry()
	if err != nil {
		debuglog.Warnf("Player definitions unavailable: %v", err)
		registry = &PlayerRegistry{players: make(map[string]PlayerDefinition), goos: runtime.GOOS}
	}

	detector, err := NewTypeDetector()
	if err != nil {
		debuglog.Warnf("Media type tables unavailable: %v", err)
		detector = &TypeDetector{config: &TypesConfig{}}
	}

	l := &Launcher{
		registry: registry,
		detector: detector,
		start:    startDetached,
		lookPath: exec.LookPath,
	}
	l.configure(cfg.Media, runtime.GOOS)
	return l
}

func (l *Launcher) configure(cfg config.MediaConfig, goos string) {
	l.defaultOpener = cfg.DefaultOpener
	if l.defaultOpener == "" {
		l.defaultOpener = l.detector.GetDefaultOpener()
	}

	var openers config.MediaOpeners
	switch goos {
	case "darwin":
		openers = cfg.Darwin
	case "linux":
		openers = cfg.Linux
	case "windows":
		openers = cfg.Windows
	default:
		openers = cfg.Linux
	}

	l.openers = map[Type]string{
		TypeVideo:    l.findCommand(openers.Video...),
		TypeImage:    l.findCommand(openers.Image...),
		TypeAudio:    l.findCommand(openers.Audio...),
		TypeDocument: l.findCommand(openers.Document...),
	}
	for t, name := range l.openers {
		if name == "" {
			l.openers[t] = l.defaultOpener
		}
	}
}

// Detector exposes the attachment classifier.
func (l *Launcher) Detector() *TypeDetector {
	return l.detector
}

// OpenerFor returns the program used for attachments of type t.
func (l *Launcher) OpenerFor(t Type) string {
	if name := l.openers[t]; name != "" {
		return name
	}
	return l.defaultOpener
}

// Resolve turns an attachment path into an absolute path. Exports store
// paths relative to the export file's directory.
func Resolve(baseDir, file string) string {
	if filepath.IsAbs(file) || baseDir == "" {
		return file
	}
	return filepath.Join(baseDir, filepath.FromSlash(file))
}

// OpenMessage opens the first attachment of msg. baseDir is the directory
// holding the export file.
func (l *Launcher) OpenMessage(baseDir string, msg *chat.Message) error {
	if msg == nil || len(msg.Media) == 0 {
		return ErrNoAttachment
	}
	return l.Open(baseDir, msg.Media[0])
}

// Open starts the opener for one attachment without waiting for it.
func (l *Launcher) Open(baseDir string, a chat.Attachment) error {
	path := Resolve(baseDir, a.File)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingFile, path)
	}

	mediaType := l.detector.Classify(a)
	opener := l.OpenerFor(mediaType)
	if opener == "" {
		return fmt.Errorf("no application found to open %s", path)
	}

	cmd, err := l.registry.Command(opener, mediaType, path)
	if err != nil {
		debuglog.Debugf("Using %s without arguments: %v", opener, err)
		cmd = exec.Command(opener, path)
	}

	debuglog.Infof("Opening %s attachment with %s: %s", mediaType, opener, path)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", opener, err)
	}
	return nil
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := l.lookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
