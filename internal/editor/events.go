package editor

// EventKind names what changed in a session.
type EventKind int

const (
	FilesChanged EventKind = iota
	RejectedChanged
	PagesChanged
	SettingsChanged
	PreviewReady
)

func (k EventKind) String() string {
	switch k {
	case FilesChanged:
		return "files"
	case RejectedChanged:
		return "rejected"
	case PagesChanged:
		return "pages"
	case SettingsChanged:
		return "settings"
	case PreviewReady:
		return "preview"
	}
	return "unknown"
}

// Event is a change notification. Generation is set for PreviewReady only.
type Event struct {
	Kind       EventKind
	Generation uint64
}

// Subscribe registers fn for every change event and returns a function that
// removes it. Events are delivered synchronously after the change completed.
// A PreviewReady handler must not request another preview refresh.
func (e *Editor) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()
	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Editor) emit(ev Event) {
	e.subsMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
