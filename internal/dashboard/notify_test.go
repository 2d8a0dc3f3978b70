package dashboard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NewestReplacesCurrent(t *testing.T) {
	var changes atomic.Int32
	n := NewNotifier(time.Hour, func() { changes.Add(1) })
	defer n.Stop()

	first := n.Show(KindSuccess, MsgCreated)
	second := n.Show(KindError, MsgDeleteFailed)

	cur, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, second, cur)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int32(2), changes.Load())
}

func TestNotifier_AutoDismiss(t *testing.T) {
	n := NewNotifier(20*time.Millisecond, nil)

	n.Show(KindInfo, "hello")

	assert.Eventually(t, func() bool {
		_, ok := n.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestNotifier_OldTimerLeavesNewerAlone(t *testing.T) {
	n := NewNotifier(time.Hour, nil)
	defer n.Stop()

	first := n.Show(KindSuccess, MsgCreated)
	second := n.Show(KindSuccess, MsgUpdated)

	n.dismiss(first.ID)

	cur, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, cur.ID)
}

func TestNotifier_Dismiss(t *testing.T) {
	n := NewNotifier(time.Hour, nil)

	n.Dismiss()
	n.Show(KindError, MsgUpdateFailed)
	n.Dismiss()

	_, ok := n.Current()
	assert.False(t, ok)
}

func TestNotifier_DefaultTimeout(t *testing.T) {
	n := NewNotifier(0, nil)
	assert.Equal(t, DefaultNotifyTimeout, n.timeout)
}
