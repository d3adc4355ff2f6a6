package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNoticeStampsIdentity(t *testing.T) {
	a := NewNotice(LevelInfo, "Cache warmed", "")
	b := NewNotice(LevelInfo, "Cache warmed", "")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestLogNotifierUsesSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	n := NewNotice(LevelWarning, "Low stock", "2 variants")
	n.Meta = map[string]string{"range": "week"}

	require.NoError(t, LogNotifier{Logger: logger}.Notify(context.Background(), n))
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="Low stock"`)
	assert.Contains(t, out, "range=week")
}

func TestMultiJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	boom := errors.New("smtp down")
	multi := Multi{rec, nil, Func(func(context.Context, Notice) error { return boom }), rec}

	err := multi.Notify(context.Background(), NewNotice(LevelError, "Export failed", ""))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Notices(), 2)
	assert.NoError(t, Discard.Notify(context.Background(), Notice{}))
}
