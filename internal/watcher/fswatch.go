package watcher

import "github.com/fsnotify/fsnotify"

// fsWatcher is the subset of fsnotify used by the Watcher
type fsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type notifyWatcher struct {
	w *fsnotify.Watcher
}

func newNotifyWatcher() (fsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &notifyWatcher{w: w}, nil
}

func (n *notifyWatcher) Add(name string) error         { return n.w.Add(name) }
func (n *notifyWatcher) Remove(name string) error      { return n.w.Remove(name) }
func (n *notifyWatcher) Close() error                  { return n.w.Close() }
func (n *notifyWatcher) Events() <-chan fsnotify.Event { return n.w.Events }
func (n *notifyWatcher) Errors() <-chan error          { return n.w.Errors }
