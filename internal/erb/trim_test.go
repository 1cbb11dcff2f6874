package erb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTrimMode(t *testing.T) {
	tests := []struct {
		in      string
		mode    TrimMode
		percent bool
		wantErr bool
	}{
		{in: "", mode: TrimNone},
		{in: "0", mode: TrimNone},
		{in: "1", mode: TrimAfterClose},
		{in: "2", mode: TrimSymmetric},
		{in: ">", mode: TrimAfterClose},
		{in: "<>", mode: TrimSymmetric},
		{in: "-", mode: TrimExplicit},
		{in: "%", mode: TrimNone, percent: true},
		{in: "%>", mode: TrimAfterClose, percent: true},
		{in: "%<>", mode: TrimSymmetric, percent: true},
		{in: "<>-", mode: TrimExplicit},
		{in: "%-", mode: TrimExplicit, percent: true},
		{in: "<", wantErr: true},
		{in: "x", wantErr: true},
		{in: "3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mode, percent, err := ParseTrimMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
			assert.Equal(t, tt.percent, percent)
		})
	}
}

func TestTrimMode_String(t *testing.T) {
	for _, s := range []string{"", ">", "<>", "-"} {
		mode, _, err := ParseTrimMode(s)
		assert.NoError(t, err)
		assert.Equal(t, s, mode.String())
	}
}
