package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateCompleted))
	assert.True(t, IsTerminal(StateCanceled))
	assert.False(t, IsTerminal(StateInit))
	assert.False(t, IsTerminal(StateUploading))
	assert.False(t, IsTerminal(StateFailed))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StateInit, StateUploading, true},
		{StateInit, StateCanceled, true},
		{StateInit, StateCompleted, false},
		{StateUploading, StateCompleted, true},
		{StateUploading, StateFailed, true},
		{StateUploading, StateCanceled, true},
		{StateUploading, StateInit, false},
		{StateFailed, StateUploading, true},
		{StateFailed, StateCanceled, true},
		{StateFailed, StateCompleted, false},
		{StateCompleted, StateCanceled, false},
		{StateCompleted, StateUploading, false},
		{StateCanceled, StateUploading, false},
		{StateCanceled, StateCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestObjectKey(t *testing.T) {
	u := UploadSession{S3KeyPrefix: "uploads/abc/", Filename: "report.pdf"}
	assert.Equal(t, "uploads/abc/report.pdf", u.ObjectKey())
}
