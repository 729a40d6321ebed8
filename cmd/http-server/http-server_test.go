package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/livepeer/catalyst-api/api"
	"github.com/livepeer/catalyst-api/handlers"
)

func TestInitServer(t *testing.T) {
	require := require.New(t)

	router := api.NewRouter(&handlers.HighlightAPIHandlers{})

	handle, _, _ := router.Lookup("GET", "/ok")
	require.NotNil(handle)

	handle, _, _ = router.Lookup("POST", "/api/cut")
	require.NotNil(handle)
}
