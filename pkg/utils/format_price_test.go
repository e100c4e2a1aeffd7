package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.043549549", "0.04354"},
		{"0.0043549549", "0.004354"},
		{"0.00043549549", "0.0004354"},
		{"0.000043549549", "0.0{4}4354"},
		{"0.000000123456", "0.0{6}1234"},
		{"123.000456789", "123.0004567"},
		{"21.00000000000000000000000", "21"},
		{"0", "0"},
		{"", ""},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.in), tt.in)
	}
}

func TestFormatAmountWithDecimals(t *testing.T) {
	assert.Equal(t, "0", FormatAmountWithDecimals("0", 9))
	assert.Equal(t, "1.50M", FormatAmountWithDecimals("1500000000000", 6))
	assert.Equal(t, "12.34", FormatAmountWithDecimals("12345678", 6))
	assert.Equal(t, "0.5", FormatAmountWithDecimals("500000000", 9))
}

func TestConvertToPercentage(t *testing.T) {
	assert.Equal(t, "50.00%", ConvertToPercentage("0.5"))
	assert.Equal(t, "-30.00%", ConvertToPercentage("-0.3"))
	assert.Equal(t, "", ConvertToPercentage("x"))
}

func TestGetDisplayWalletAddress(t *testing.T) {
	assert.Equal(t, "So1111...1112", GetDisplayWalletAddress("So11111111111111111111111111111111111111112"))
	assert.Equal(t, "short", GetDisplayWalletAddress("short"))
}
