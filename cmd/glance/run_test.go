package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/glance/internal/dispatcher/handler"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"3", []int{3}, false},
		{"3,5-7", []int{3, 5, 6, 7}, false},
		{" 2 , 4 ", []int{2, 4}, false},
		{"7-5", nil, true},
		{"x", nil, true},
		{"1-", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSelection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := askYesNo(bufio.NewReader(strings.NewReader(tt.input)), &out, "Delete it?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Delete it? [y/N]")
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, handler.Succeeded("done").WithOutput("line one"))
	assert.Equal(t, "line one\n"+colorize(handler.MessageSuccess, "done")+"\n", out.String())
}
