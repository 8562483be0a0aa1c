package session

import (
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/openmarket-sim/matchcore/internal/repository"
)

type fakeEngine struct {
	id       uint64
	notified int32
}

func (f *fakeEngine) InstrumentID() uint64 { return f.id }
func (f *fakeEngine) Execute(task func()) { task() }
func (f *fakeEngine) NotifyClientDisconnected(sessionID string) {
	atomic.AddInt32(&f.notified, 1)
}

func TestTerminateWithCancelOnDisconnectBroadcasts(t *testing.T) {
	repo := repository.New()
	eng := &fakeEngine{id: 1}
	_ = repo.AddEngine(eng)
	repo.Seal()

	reg := NewRegistry(repository.NewAccessor(repo))
	s := &Session{ID: uuid.New(), CancelOnDisconnect: true}
	reg.Register(s)

	reg.Terminate(s.ID.String())

	if atomic.LoadInt32(&eng.notified) != 1 {
		t.Fatal("expected engine to be notified of disconnect")
	}
	if _, ok := reg.Get(s.ID.String()); ok {
		t.Fatal("expected session removed from registry")
	}
}

func TestTerminateWithoutCancelOnDisconnectSkipsBroadcast(t *testing.T) {
	repo := repository.New()
	eng := &fakeEngine{id: 1}
	_ = repo.AddEngine(eng)
	repo.Seal()

	reg := NewRegistry(repository.NewAccessor(repo))
	s := &Session{ID: uuid.New(), CancelOnDisconnect: false}
	reg.Register(s)

	reg.Terminate(s.ID.String())

	if atomic.LoadInt32(&eng.notified) != 0 {
		t.Fatal("expected no disconnect notification")
	}
}
