package netwatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dvasilkov/catalogsync/internal/logging"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func newWatcher(p Pinger) *Watcher {
	log := logging.NewTextLogger(io.Discard, slog.LevelError)
	return New(p, time.Minute, log)
}

func TestWatcher_StartsOffline(t *testing.T) {
	w := newWatcher(&fakePinger{})
	assert.False(t, w.Online())
}

func TestWatcher_OfflineToOnlineEmitsEvent(t *testing.T) {
	pinger := &fakePinger{err: errors.New("unreachable")}
	w := newWatcher(pinger)
	ctx := context.Background()

	w.Probe(ctx)
	assert.False(t, w.Online())
	select {
	case <-w.Changes():
		t.Fatal("no event expected while offline")
	default:
	}

	pinger.err = nil
	w.Probe(ctx)
	assert.True(t, w.Online())
	select {
	case <-w.Changes():
	default:
		t.Fatal("expected became-online event")
	}
}

func TestWatcher_NoEventWhileStayingOnline(t *testing.T) {
	w := newWatcher(&fakePinger{})
	ctx := context.Background()

	w.Probe(ctx)
	<-w.Changes()

	w.Probe(ctx)
	w.Probe(ctx)
	select {
	case <-w.Changes():
		t.Fatal("no event expected without an offline interval")
	default:
	}
}

func TestWatcher_EventsAreCoalesced(t *testing.T) {
	pinger := &fakePinger{}
	w := newWatcher(pinger)
	ctx := context.Background()

	// Two full offline/online cycles with nobody draining the channel.
	for i := 0; i < 2; i++ {
		pinger.err = nil
		w.Probe(ctx)
		pinger.err = errors.New("down")
		w.Probe(ctx)
	}
	pinger.err = nil
	w.Probe(ctx)

	<-w.Changes()
	select {
	case <-w.Changes():
		t.Fatal("events should coalesce into one pending notification")
	default:
	}
}

func TestWatcher_OnlineToOffline(t *testing.T) {
	pinger := &fakePinger{}
	w := newWatcher(pinger)
	ctx := context.Background()

	w.Probe(ctx)
	assert.True(t, w.Online())

	pinger.err = errors.New("down")
	w.Probe(ctx)
	assert.False(t, w.Online())
}
