//go:build !gocv
// +build !gocv

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoCVStub(t *testing.T) {
	assert.False(t, GoCVAvailable())

	_, err := NewGoCVModel("model.onnx")
	require.Error(t, err)

	var m GoCVModel
	_, err = m.Predict(context.Background(), nil)
	require.Error(t, err)
	assert.NoError(t, m.Close())
}
