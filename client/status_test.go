package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFeedReplaysCurrent(t *testing.T) {
	feed := newStatusFeed()

	ch := feed.subscribe()
	st := <-ch
	assert.Equal(t, StatusInitializing, st.State)

	feed.set(Status{State: StatusReady})
	select {
	case st = <-ch:
		assert.Equal(t, StatusReady, st.State)
	case <-time.After(time.Second):
		t.Fatal("Transition never delivered")
	}
}

func TestStatusFeedLateSubscriberSeesOnlyLatest(t *testing.T) {
	feed := newStatusFeed()
	feed.set(Status{State: StatusReady})

	ch := feed.subscribe()
	st := <-ch
	assert.Equal(t, StatusReady, st.State)

	select {
	case extra := <-ch:
		t.Fatalf("Unexpected extra status %s", extra.State)
	default:
	}
}

func TestStatusFeedTerminal(t *testing.T) {
	feed := newStatusFeed()
	feed.set(Status{State: StatusError, Err: "init failed"})

	// Terminal states are final; later transitions are ignored.
	feed.set(Status{State: StatusReady})

	st := feed.load()
	require.Equal(t, StatusError, st.State)
	assert.Equal(t, "init failed", st.Err)
}

func TestStatusFeedSlowSubscriberNeverBlocks(t *testing.T) {
	feed := newStatusFeed()
	ch := feed.subscribe()
	_ = ch // never drained

	done := make(chan struct{})
	go func() {
		feed.set(Status{State: StatusReady})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("set blocked on a slow subscriber")
	}
}
