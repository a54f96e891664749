package events

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storysnap/pkg/logger"
	"storysnap/pkg/traversal"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs       []published
	flushes    int
	closed     bool
	publishErr error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakeConn) Flush() error { f.flushes++; return nil }
func (f *fakeConn) Close()       { f.closed = true }

func TestSubject(t *testing.T) {
	assert.Equal(t, "storysnap.slides.saved", Subject("", traversal.EventSaved))
	assert.Equal(t, "team.a.done", Subject("team.a.", traversal.EventDone))
	assert.Equal(t, "storysnap.slides.*", Subject(DefaultSubject, "*"))
}

func TestNotifyPublishesJSON(t *testing.T) {
	nc := &fakeConn{}
	p := newNATSPublisher(nc, "", logger.NewTestLogger())

	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	p.Notify(traversal.Event{Kind: traversal.EventSaved, Time: at, Slide: 3, Path: "pics/2026-10-19/003.png", Method: "element"})
	p.Notify(traversal.Event{Kind: traversal.EventDone, Time: at, Slide: 3, Result: &traversal.Result{Attempted: 3, Saved: 3, Reason: traversal.ReasonLeftStory}})

	require.Len(t, nc.msgs, 2)
	assert.Equal(t, "storysnap.slides.saved", nc.msgs[0].subject)
	assert.Equal(t, "storysnap.slides.done", nc.msgs[1].subject)
	assert.Equal(t, 1, nc.flushes, "done events are flushed")

	e, err := Decode(nc.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Slide)
	assert.Equal(t, "pics/2026-10-19/003.png", e.Path)
	assert.True(t, e.Time.Equal(at))

	done, err := Decode(nc.msgs[1].data)
	require.NoError(t, err)
	require.NotNil(t, done.Result)
	assert.Equal(t, traversal.ReasonLeftStory, done.Result.Reason)
}

func TestNotifyErrorIsLogged(t *testing.T) {
	nc := &fakeConn{publishErr: stderrors.New("nats: connection closed")}
	log := logger.NewTestLogger()
	p := newNATSPublisher(nc, "x", log)

	p.Notify(traversal.Event{Kind: traversal.EventSkipped})
	assert.True(t, log.HasMessage("Failed to publish event"))
}

func TestClose(t *testing.T) {
	nc := &fakeConn{}
	require.NoError(t, newNATSPublisher(nc, "", nil).Close())
	assert.True(t, nc.closed)
	assert.Equal(t, 1, nc.flushes)
}

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New("", "", nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	p.Notify(traversal.Event{Kind: traversal.EventDone})
	assert.NoError(t, p.Close())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
