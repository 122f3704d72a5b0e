package transfer

import (
	"bytes"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/swiftshare/file"
	"github.com/opd-ai/swiftshare/session"
)

type pair struct {
	rx      *Receiver
	tx      *Sender
	rxState *session.Session
	txState *session.Session
	rxObs   *recordingObserver
	txObs   *recordingObserver
	inbox   string
	outbox  string
}

func newPair(t *testing.T) *pair {
	t.Helper()
	p := &pair{
		rxState: session.New(),
		txState: session.New(),
		rxObs:   newRecordingObserver(),
		txObs:   newRecordingObserver(),
		inbox:   t.TempDir(),
		outbox:  t.TempDir(),
	}
	p.rx = NewReceiver(p.rxState, file.NewDirResolver(p.inbox), testConfig())
	p.rx.SetObserver(p.rxObs)
	p.tx = NewSender(p.txState, testConfig())
	p.tx.SetObserver(p.txObs)

	require.True(t, p.rx.Start(0))
	t.Cleanup(func() {
		p.tx.Close()
		p.rx.Stop()
	})
	return p
}

func TestEndToEndTransfer(t *testing.T) {
	p := newPair(t)
	content := writeRandomFile(t, p.outbox, testFileName, testLargeSize)

	var sawName atomic.Bool
	stopWatch := make(chan struct{})
	go func() {
		for {
			select {
			case <-stopWatch:
				return
			default:
			}
			if p.rxState.FileName() == testFileName {
				sawName.Store(true)
			}
			time.Sleep(time.Millisecond)
		}
	}()

	require.True(t, p.tx.Start(filepath.Join(p.outbox, testFileName), testLoopback, p.rx.Port()))

	rxRes := p.rxObs.wait(t)
	require.NoError(t, rxRes.Err)
	assert.Zero(t, rxRes.Offset)
	assert.Equal(t, uint64(testLargeSize), rxRes.Transferred)
	assert.Equal(t, 1.0, p.rxState.Progress())

	txRes := p.txObs.wait(t)
	require.NoError(t, txRes.Err)
	assert.Zero(t, txRes.Offset)

	got, err := os.ReadFile(filepath.Join(p.inbox, testFileName))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "received file differs from source")

	require.Eventually(t, func() bool { return p.rxState.FileName() == "" }, testWaitTimeout, testPollEvery)
	close(stopWatch)
	assert.True(t, sawName.Load(), "file name should be visible during the transfer")
	assert.Equal(t, 0.0, p.rxState.Progress())
	assert.True(t, p.rx.Running(), "receiver keeps listening after a transfer")
}

func TestEndToEndResume(t *testing.T) {
	p := newPair(t)
	content := writeRandomFile(t, p.outbox, "movie.mkv", 3*1024*1024+17)

	const have = 1024*1024 + 5
	require.NoError(t, os.WriteFile(filepath.Join(p.inbox, "movie.mkv"), content[:have], 0o644))

	require.True(t, p.tx.Start(filepath.Join(p.outbox, "movie.mkv"), testLoopback, p.rx.Port()))

	rxRes := p.rxObs.wait(t)
	require.NoError(t, rxRes.Err)
	assert.Equal(t, uint64(have), rxRes.Offset)

	txRes := p.txObs.wait(t)
	require.NoError(t, txRes.Err)
	assert.Equal(t, uint64(have), txRes.Offset)

	got, err := os.ReadFile(filepath.Join(p.inbox, "movie.mkv"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestEndToEndEmptyFile(t *testing.T) {
	p := newPair(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.outbox, "empty.txt"), nil, 0o644))

	require.True(t, p.tx.Start(filepath.Join(p.outbox, "empty.txt"), testLoopback, p.rx.Port()))

	rxRes := p.rxObs.wait(t)
	assert.Equal(t, OutcomeCompleted, rxRes.Outcome)
	assert.Equal(t, 0.0, p.rxState.Progress())

	info, err := os.Stat(filepath.Join(p.inbox, "empty.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestEndToEndSequentialTransfers(t *testing.T) {
	p := newPair(t)
	names := []string{"one.txt", "two.txt", "three.txt"}

	for i, name := range names {
		content := writeRandomFile(t, p.outbox, name, 1000*(i+1))

		require.Eventually(t, func() bool { return !p.tx.Active() }, testWaitTimeout, testPollEvery)
		require.True(t, p.tx.Start(filepath.Join(p.outbox, name), testLoopback, p.rx.Port()))
		require.Equal(t, OutcomeCompleted, p.rxObs.wait(t).Outcome)
		require.Equal(t, OutcomeCompleted, p.txObs.wait(t).Outcome)

		got, err := os.ReadFile(filepath.Join(p.inbox, name))
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestEndToEndParentRelativeSource(t *testing.T) {
	p := newPair(t)
	content := writeRandomFile(t, p.outbox, "up.bin", 64*1024)

	sub := filepath.Join(p.outbox, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	chdir(t, sub)

	require.True(t, p.tx.Start("../up.bin", testLoopback, p.rx.Port()))

	txRes := p.txObs.wait(t)
	require.NoError(t, txRes.Err)
	assert.Equal(t, "up.bin", txRes.FileName)

	rxRes := p.rxObs.wait(t)
	require.NoError(t, rxRes.Err)

	got, err := os.ReadFile(filepath.Join(p.inbox, "up.bin"))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got), "received file differs from source")
}
