package domain

// Notifier delivers operator messages. Implementations must not block the
// caller and must swallow delivery failures.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Notify(string) {}
