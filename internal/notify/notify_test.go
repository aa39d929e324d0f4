package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier(t *testing.T) {
	var got []string
	n := New(false)
	n.send = func(title, message, _ string) error {
		got = append(got, title+": "+message)
		return nil
	}

	require.NoError(t, n.Notify("SOSAI", "무시됨"))
	assert.Empty(t, got)

	n.SetEnabled(true)
	require.NoError(t, n.Notify("SOSAI", "오디오 재생에 실패했습니다!"))
	assert.Equal(t, []string{"SOSAI: 오디오 재생에 실패했습니다!"}, got)
}

func TestTruncateKeepsRunes(t *testing.T) {
	long := strings.Repeat("화", maxRunes+10)
	out := truncate(long)
	assert.Equal(t, maxRunes+3, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "짧음", truncate("짧음"))
}
