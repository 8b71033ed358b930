package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"audient.app/internal/session"
)

func TestTerminalPrompterWaitsForEnter(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPrompter(strings.NewReader("\n"), &out)
	require.NoError(t, p.ConfirmForcedLogout(context.Background(), session.ForcedLogoutMessage))
	require.Contains(t, out.String(), "Work hours have started")
}

func TestTerminalPrompterHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := newTerminalPrompter(r, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.ConfirmForcedLogout(ctx, "bye"), context.DeadlineExceeded)

	// The line typed after the abandoned prompt answers the next one.
	go func() { _, _ = w.Write([]byte("\n")) }()
	require.NoError(t, p.ConfirmForcedLogout(context.Background(), "again"))
}

func TestTerminalPrompterClosedInput(t *testing.T) {
	p := newTerminalPrompter(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, p.ConfirmForcedLogout(context.Background(), "one"))
	require.NoError(t, p.ConfirmForcedLogout(context.Background(), "two"))
}

func TestStaticLocator(t *testing.T) {
	c, err := staticLocator{coords: session.Coordinates{Latitude: 1, Longitude: 2}}.Locate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.0, c.Longitude)

	_, err = staticLocator{deny: true}.Locate(context.Background())
	require.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags("login", []string{"-email", "a@b.c", "-lat", "12.5", "-deny-location"}, true)
	require.NoError(t, err)
	require.Equal(t, "a@b.c", o.email)
	require.Equal(t, 12.5, o.lat)
	require.True(t, o.denyLocation)
	require.True(t, o.remember)
	require.Equal(t, session.DefaultWatchdogInterval, o.interval)

	_, err = parseFlags("status", []string{"-email", "x"}, false)
	require.Error(t, err)
}
