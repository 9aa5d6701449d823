package cyton

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	err := NewError(CodeTransportIO, "read frame", io.EOF)
	require.Equal(t, "read frame: transport io: EOF", err.Error())
	require.True(t, errors.Is(err, io.EOF))
	require.True(t, IsCode(err, CodeTransportIO))
	require.False(t, IsCode(err, CodeProtocolTimeout))
	require.False(t, IsCode(io.EOF, CodeTransportIO))
	require.Equal(t, "await prompt: protocol timeout", NewError(CodeProtocolTimeout, "await prompt", nil).Error())
	require.Equal(t, "code(99)", ErrCode(99).String())
}

func TestCancelled(t *testing.T) {
	err := cancelled(context.Canceled)
	require.True(t, errors.Is(err, ErrCancelled))
	require.True(t, errors.Is(err, context.Canceled))
}
