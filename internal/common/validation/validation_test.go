package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidGameID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "six_digits_minimum", id: "123456", want: true},
		{name: "ten_digits_maximum", id: "1234567890", want: true},
		{name: "five_digits_too_short", id: "12345", want: false},
		{name: "eleven_digits_too_long", id: "12345678901", want: false},
		{name: "non_digit_rejected", id: "123456789a", want: false},
		{name: "empty", id: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidGameID(tt.id))
		})
	}
}

func TestValidServerID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "three_digits_minimum", id: "123", want: true},
		{name: "five_digits_maximum", id: "12345", want: true},
		{name: "two_digits_too_short", id: "12", want: false},
		{name: "six_digits_too_long", id: "123456", want: false},
		{name: "non_digit_rejected", id: "12a", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidServerID(tt.id))
		})
	}
}

func TestBannedAccountFilter(t *testing.T) {
	f := NewBannedAccountFilter(DefaultDenyList)

	tests := []struct {
		name   string
		gameID string
		want   bool
	}{
		{name: "deny_list_member", gameID: "123456789", want: true},
		{name: "all_same_digits", gameID: "7777777", want: true},
		{name: "triple_zero_prefix", gameID: "000123456", want: true},
		{name: "triple_zero_suffix", gameID: "123456000", want: true},
		{name: "ordinary_account", gameID: "482915637", want: false},
		{name: "double_zero_is_fine", gameID: "001234500", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsBanned(tt.gameID))
		})
	}
}

func TestBannedAccountFilter_CustomDenyList(t *testing.T) {
	f := NewBannedAccountFilter([]string{"555123456"})
	assert.True(t, f.IsBanned("555123456"))
	assert.False(t, f.IsBanned("123456789"))
}
