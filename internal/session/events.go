// Package session orchestrates verification runs: the static corpus check,
// the (grammar × entry × seed) fuzz matrix with a bounded worker pool, and
// replay/minimization of failing trials.
//
// Назначение: оба входа ядра — Corpus Runner и Fuzz Session. Все счётчики и
// списки сбоев передаются явными аккумуляторами и сливаются после Wait;
// общего изменяемого состояния между воркерами нет.
package session

// EventStatus is the lifecycle state of one matrix cell, as reported to a
// progress sink.
type EventStatus string

const (
	StatusRunning EventStatus = "running"
	StatusPass    EventStatus = "pass"
	StatusFail    EventStatus = "fail"
	StatusSkip    EventStatus = "skip"
)

// Event is one progress notification.
type Event struct {
	Language string
	Entry    string
	Seed     uint64
	Status   EventStatus
	Detail   string
}

// Sink receives progress events. Emit must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// ChannelSink forwards events into a channel, dropping them when the
// channel is full so a stalled UI never blocks workers.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) Emit(ev Event) {
	select {
	case s.Ch <- ev:
	default:
	}
}

func emit(sink Sink, ev Event) {
	if sink != nil {
		sink.Emit(ev)
	}
}
