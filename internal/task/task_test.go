package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestClassify(t *testing.T) {
	require.Nil(t, Classify("lint:js", nil))

	plain := Classify("lint:js", errBoom)
	require.Equal(t, ErrorFatal, plain.Kind)
	require.Equal(t, Name("lint:js"), plain.Task)
	require.ErrorIs(t, plain, errBoom)

	warn := Classify("compress", fmt.Errorf("wrapped: %w", Warning("", errBoom)))
	require.Equal(t, ErrorWarning, warn.Kind)
	require.Equal(t, Name("compress"), warn.Task)

	canceled := Classify("bundle", fmt.Errorf("tool: %w", context.Canceled))
	require.Equal(t, ErrorCanceled, canceled.Kind)

	kept := Fatal("other", errBoom)
	require.Same(t, kept, Classify("bundle", kept))
}

func TestResultFor(t *testing.T) {
	require.Equal(t, ResultWarning, ResultFor(ErrorWarning))
	require.Equal(t, ResultCanceled, ResultFor(ErrorCanceled))
	require.Equal(t, ResultFailed, ResultFor(ErrorFatal))
}

func TestError_Message(t *testing.T) {
	err := Fatal("compile", errBoom)
	require.Equal(t, "fatal task compile: boom", err.Error())
}
