package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketURL(t *testing.T) {
	got, err := socketURL("http://localhost:8375", "abc")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8375/api/ws?ticket=abc", got)

	got, err = socketURL("https://foodgram.example/", "a b")
	require.NoError(t, err)
	assert.Equal(t, "wss://foodgram.example/api/ws?ticket=a+b", got)

	_, err = socketURL("ftp://foodgram.example", "abc")
	assert.Error(t, err)
}
