package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecificErrorMatchesKind(t *testing.T) {
	errRole := New(NotFound, "bastion: role not found")
	wrapped := fmt.Errorf("load role: %w", errRole)

	assert.ErrorIs(t, wrapped, errRole)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrForbidden)
	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, NotFound))
}

func TestSentinelKind(t *testing.T) {
	assert.Equal(t, Forbidden, KindOf(ErrForbidden))
	assert.Nil(t, ErrForbidden.Unwrap())
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, NotFound))
}

func TestWrapKeepsChain(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := Wrap(Unavailable, base)

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, base.Error(), err.Error())
	assert.NoError(t, Wrap(Unavailable, nil))
}

func TestClassify(t *testing.T) {
	err := Classify(fmt.Errorf("query: %w", context.DeadlineExceeded))
	require.Error(t, err)
	assert.Equal(t, Unavailable, KindOf(err))

	plain := errors.New("syntax error")
	assert.Equal(t, plain, Classify(plain))

	nf := fmt.Errorf("x: %w", ErrNotFound)
	assert.Equal(t, nf, Classify(nf))
	assert.NoError(t, Classify(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invalid_argument", InvalidArgument.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
