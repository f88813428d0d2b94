package main

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		want    Args
		wantErr string
	}{
		{
			name: "long config flag",
			argv: []string{"--config", "/etc/journeyid/server_config.yaml"},
			want: Args{ConfigPath: "/etc/journeyid/server_config.yaml"},
		},
		{
			name: "short config flag",
			argv: []string{"-c", "server.yaml"},
			want: Args{ConfigPath: "server.yaml"},
		},
		{
			name: "version without config",
			argv: []string{"--version"},
			want: Args{ShowVersion: true},
		},
		{
			name:    "missing config",
			argv:    nil,
			wantErr: "config flag",
		},
		{
			name:    "stray argument",
			argv:    []string{"-c", "server.yaml", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:    "unknown flag",
			argv:    []string{"--listen", ":9000"},
			wantErr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			args, err := parseArgs(tt.argv, &out)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := parseArgs([]string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "SIGHUP")
}
