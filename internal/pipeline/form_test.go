package pipeline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleForm_SubmitGolden(t *testing.T) {
	p := New(testArtifacts(t, nil))

	res, err := p.HandleForm(ActionSubmit, intPtr(1), floatPtr(100.0))
	require.NoError(t, err)
	assert.Equal(t, "Predicted Car Price: $400,312.19", res.Message)
	require.NotNil(t, res.Transmission)
	require.NotNil(t, res.MaxPower)
	assert.Equal(t, 1, *res.Transmission)
	assert.Equal(t, 100.0, *res.MaxPower)
	require.NotNil(t, res.Estimate)
}

func TestHandleForm_SubmitWithNothing(t *testing.T) {
	p := New(testArtifacts(t, nil), WithSeed(11))

	res, err := p.HandleForm(ActionSubmit, nil, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, "Predicted Car Price: $"), res.Message)
	require.NotNil(t, res.Transmission)
	require.NotNil(t, res.MaxPower)
	assert.Contains(t, []int{0, 1}, *res.Transmission)
	assert.Equal(t, 91.5, *res.MaxPower)
}

func TestHandleForm_SubmitFailureBecomesMessage(t *testing.T) {
	p := New(testArtifacts(t, nil))

	res, err := p.HandleForm(ActionSubmit, intPtr(1), floatPtr(math.MaxFloat64))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, "Error: "), res.Message)
	assert.Nil(t, res.Estimate)
	require.NotNil(t, res.MaxPower)
	assert.Equal(t, math.MaxFloat64, *res.MaxPower)

	// The pipeline keeps serving after a failure.
	res, err = p.HandleForm(ActionSubmit, intPtr(0), floatPtr(50))
	require.NoError(t, err)
	assert.Equal(t, "Predicted Car Price: $162,754.79", res.Message)
}

func TestHandleForm_Reset(t *testing.T) {
	p := New(testArtifacts(t, nil))

	res, err := p.HandleForm(ActionReset, intPtr(1), floatPtr(100))
	require.NoError(t, err)
	assert.Nil(t, res.Transmission)
	assert.Nil(t, res.MaxPower)
	assert.Empty(t, res.Message)
	assert.Nil(t, res.Estimate)
}

func TestHandleForm_UnknownAction(t *testing.T) {
	p := New(testArtifacts(t, nil))

	_, err := p.HandleForm(Action("explode"), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{400312.1913298826, "Predicted Car Price: $400,312.19"},
		{1234.5, "Predicted Car Price: $1,234.50"},
		{999, "Predicted Car Price: $999.00"},
		{0, "Predicted Car Price: $0.00"},
		{12345678.9, "Predicted Car Price: $12,345,678.90"},
		{0.125, "Predicted Car Price: $0.12"},
		{2.675, "Predicted Car Price: $2.67"},
		{1e19, "Predicted Car Price: $10,000,000,000,000,000,000.00"},
		{1e21, "Predicted Car Price: $1,000,000,000,000,000,000,000.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.price))
	}
}

func TestFormatAmountSign(t *testing.T) {
	assert.Equal(t, "-1,234.50", FormatAmount(-1234.5))
	assert.Equal(t, "NaN", FormatAmount(math.NaN()))
}

func TestHandleFormHugePrice(t *testing.T) {
	p := New(testArtifacts(t, nil))

	res, err := p.HandleForm(ActionSubmit, intPtr(1), floatPtr(3300))
	require.NoError(t, err)
	require.NotNil(t, res.Estimate)
	assert.Greater(t, res.Estimate.Price, 1e19)

	assert.True(t, strings.HasPrefix(res.Message, "Predicted Car Price: $31,"), res.Message)
	assert.NotContains(t, res.Message, "-")
	assert.True(t, strings.HasSuffix(res.Message, ".00"), res.Message)
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
}
