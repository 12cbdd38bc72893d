package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"100.00", nil},
		{"0.01", nil},
		{"999999.99", nil},
		{"999999.990", nil},
		{"0", ErrAmountNotPositive},
		{"0.00", ErrAmountNotPositive},
		{"-5.00", ErrAmountNotPositive},
		{"1000000.00", ErrAmountTooLarge},
		{"999999.991", ErrAmountTooLarge},
		{"10.001", ErrAmountPrecision},
		{"0.005", ErrAmountPrecision},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		err := ValidateAmount(d)
		if tc.want == nil {
			require.NoError(t, err, "input %s", tc.in)
		} else {
			require.ErrorIs(t, err, tc.want, "input %s", tc.in)
		}
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("150.00")
	require.NoError(t, err)
	require.True(t, d.Equal(decimal.RequireFromString("150.00")))

	_, err = ParseAmount("abc")
	require.ErrorIs(t, err, ErrAmountInvalid)

	_, err = ParseAmount("99.999")
	require.ErrorIs(t, err, ErrAmountPrecision)
}
