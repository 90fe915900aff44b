package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gwillem/vectorpad/pkg/teleop"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []teleop.Command
	fail  map[teleop.Subsystem]bool
	block chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, cmd teleop.Command) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	if f.fail[cmd.Subsystem] {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeSender) commands() []teleop.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]teleop.Command(nil), f.sent...)
}

func runDispatcher(t *testing.T, d *Dispatcher) chan error {
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	return done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not finish")
	}
	return nil
}

func TestDispatcher_SendsInOrder(t *testing.T) {
	snd := &fakeSender{}
	d := NewDispatcher(snd, 8, zaptest.NewLogger(t))
	done := runDispatcher(t, d)

	cmds := []teleop.Command{
		teleop.WheelCommand(140, 140),
		teleop.WheelCommand(0, 0),
		teleop.WheelCommand(0, 0),
		teleop.SpeedCommand(teleop.Lift, 2),
		teleop.SpeedCommand(teleop.Head, -2),
	}
	for _, cmd := range cmds {
		require.NoError(t, d.Deliver(context.Background(), cmd))
	}
	d.Close()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, cmds, snd.commands())
	assert.Equal(t, Stats{Sent: 5}, d.Stats())
}

func TestDispatcher_FailuresAreNotRetried(t *testing.T) {
	snd := &fakeSender{fail: map[teleop.Subsystem]bool{teleop.Lift: true}}
	d := NewDispatcher(snd, 0, zaptest.NewLogger(t))
	done := runDispatcher(t, d)

	require.NoError(t, d.Deliver(context.Background(), teleop.SpeedCommand(teleop.Lift, 2)))
	require.NoError(t, d.Deliver(context.Background(), teleop.SpeedCommand(teleop.Head, 2)))
	d.Close()
	require.NoError(t, waitDone(t, done))

	assert.Len(t, snd.commands(), 2)
	assert.Equal(t, Stats{Sent: 1, Failed: 1}, d.Stats())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	snd := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(snd, 2, zaptest.NewLogger(t))

	// Without a running worker the queue fills up.
	require.NoError(t, d.Deliver(context.Background(), teleop.WheelCommand(1, 1)))
	require.NoError(t, d.Deliver(context.Background(), teleop.WheelCommand(2, 2)))
	err := d.Deliver(context.Background(), teleop.WheelCommand(3, 3))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), d.Stats().Dropped)

	close(snd.block)
	done := runDispatcher(t, d)
	d.Close()
	require.NoError(t, waitDone(t, done))
	assert.Equal(t, []teleop.Command{teleop.WheelCommand(1, 1), teleop.WheelCommand(2, 2)}, snd.commands())
}

func TestDispatcher_Closed(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, 1, nil)
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Deliver(context.Background(), teleop.WheelCommand(0, 0)), ErrClosed)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)
}

// The dispatcher drives a real client end to end.
func TestDispatcher_WithClient(t *testing.T) {
	s, srv := newRobotServer(t)
	c := newTestClient(t, srv.URL, "vec1")
	require.NoError(t, c.Claim(context.Background()))
	s.takeRequests()

	d := NewDispatcher(c, 4, zaptest.NewLogger(t))
	done := runDispatcher(t, d)
	require.NoError(t, d.Deliver(context.Background(), teleop.WheelCommand(-150, 150)))
	require.NoError(t, d.Deliver(context.Background(), teleop.WheelCommand(999, 0)))
	d.Close()
	require.NoError(t, waitDone(t, done))

	assert.Equal(t, []string{
		"GET /robots/vec1/move_wheels?left=-150&right=150",
		"GET /robots/vec1/move_wheels?left=999&right=0",
	}, s.takeRequests())
	assert.Equal(t, Stats{Sent: 1, Failed: 1}, d.Stats())
}
