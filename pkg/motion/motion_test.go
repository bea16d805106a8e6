package motion

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/internal/log"
)

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-20, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampSpeed(tt.in), "ClampSpeed(%d)", tt.in)
	}
}

func TestDriveFor(t *testing.T) {
	tests := []struct {
		action Action
		speed  int
		want   Drive
	}{
		{MoveForward, 50, Drive{50, 50}},
		{MoveBackward, 40, Drive{-40, -40}},
		{TurnLeft, 50, Drive{-50, 50}},
		{TurnRight, 50, Drive{50, -50}},
		{MoveForward, 250, Drive{100, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			got, err := DriveFor(tt.action, tt.speed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := DriveFor(Action(99), 10)
	assert.Error(t, err)
}

type fakeBackend struct {
	drives []Drive
	closed int
	err    error
}

func (f *fakeBackend) SetDrive(d Drive) error {
	if f.err != nil {
		return f.err
	}
	f.drives = append(f.drives, d)
	return nil
}

func (f *fakeBackend) Close() error {
	f.closed++
	return nil
}

func TestDriver_StopIsIdempotent(t *testing.T) {
	fb := &fakeBackend{}
	d, err := NewDriver(fb, log.Discard())
	require.NoError(t, err)

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop())
	assert.Equal(t, []Drive{Stopped}, fb.drives, "repeat stops are not resent")

	require.NoError(t, d.MoveForward(60))
	require.NoError(t, d.Stop())
	assert.Equal(t, []Drive{Stopped, {60, 60}, Stopped}, fb.drives)
	assert.Equal(t, Stopped, d.Current())
}

func TestDriver_Cleanup(t *testing.T) {
	fb := &fakeBackend{}
	d, err := NewDriver(fb, log.Discard())
	require.NoError(t, err)

	require.NoError(t, d.TurnLeft(30))
	require.NoError(t, d.Cleanup())
	require.NoError(t, d.Cleanup())

	assert.Equal(t, 1, fb.closed)
	assert.Equal(t, Stopped, fb.drives[len(fb.drives)-1])
	assert.ErrorIs(t, d.MoveForward(10), ErrClosed)
	assert.NoError(t, d.Stop(), "stop after cleanup is a no-op")
}

func TestDriver_BackendError(t *testing.T) {
	fb := &fakeBackend{}
	d, err := NewDriver(fb, log.Discard())
	require.NoError(t, err)

	fb.err = errors.New("bus fault")
	assert.Error(t, d.MoveBackward(20))
	assert.Equal(t, Stopped, d.Current())
}

type bufPort struct {
	bytes.Buffer
	closed bool
}

func (p *bufPort) Close() error {
	p.closed = true
	return nil
}

func TestSerialBackend_Protocol(t *testing.T) {
	port := &bufPort{}
	d, err := NewDriver(NewSerialBackend(port), log.Discard())
	require.NoError(t, err)

	require.NoError(t, d.TurnRight(45))
	require.NoError(t, d.Cleanup())

	assert.Equal(t, "D 0 0\nD 45 -45\nD 0 0\nX\n", port.String())
	assert.True(t, port.closed)
}

func TestSerialOptions_Mode(t *testing.T) {
	assert.Equal(t, 115200, SerialOptions{}.Mode().BaudRate)
	assert.Equal(t, 9600, SerialOptions{BaudRate: 9600}.Mode().BaudRate)

	_, err := OpenSerial(SerialOptions{})
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, Apply(r, MoveForward, 50))
	require.NoError(t, Apply(r, TurnLeft, 120))
	require.NoError(t, r.Stop())

	assert.Equal(t, []Call{
		{Method: "MoveForward", Speed: 50},
		{Method: "TurnLeft", Speed: 100},
		{Method: "Stop"},
	}, r.Calls())
	assert.Equal(t, 1, r.CallCount("Stop"))
	assert.Equal(t, "Stop", r.LastCall().String())

	r.Reset()
	assert.Nil(t, r.LastCall())
}
