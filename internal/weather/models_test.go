package weather

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Lat: 40.7128, Lon: -74.0060, Units: UnitsMetric}, "40.7128_-74.006_metric"},
		{Key{Lat: 0, Lon: 0, Units: UnitsStandard}, "0_0_standard"},
		{Key{Lat: -33.8688, Lon: 151.2093, Units: UnitsImperial}, "-33.8688_151.2093_imperial"},
		{Key{Lat: 90, Lon: -180, Units: UnitsMetric}, "90_-180_metric"},
		{Key{Lat: math.Copysign(0, -1), Lon: 10, Units: UnitsMetric}, "0_10_metric"},
		{Key{Lat: 10, Lon: math.Copysign(0, -1), Units: UnitsMetric}, "10_0_metric"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestKey_String_NegativeZeroSharesKey(t *testing.T) {
	negZero, err := strconv.ParseFloat("-0", 64)
	require.NoError(t, err)
	require.True(t, math.Signbit(negZero))

	zero := Key{Lat: 0, Lon: 10, Units: UnitsMetric}
	assert.Equal(t, zero.String(), Key{Lat: negZero, Lon: 10, Units: UnitsMetric}.String())
}

func TestKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{"valid", Key{Lat: 40.7128, Lon: -74.006, Units: UnitsMetric}, false},
		{"boundaries", Key{Lat: -90, Lon: 180, Units: UnitsImperial}, false},
		{"lat too high", Key{Lat: 90.0001, Lon: 0, Units: UnitsMetric}, true},
		{"lon too low", Key{Lat: 0, Lon: -180.5, Units: UnitsMetric}, true},
		{"unknown units", Key{Lat: 0, Lon: 0, Units: "kelvin"}, true},
		{"empty units", Key{Lat: 0, Lon: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	u, err := ParseUnits("")
	require.NoError(t, err)
	assert.Equal(t, UnitsMetric, u)

	u, err = ParseUnits("imperial")
	require.NoError(t, err)
	assert.Equal(t, UnitsImperial, u)

	_, err = ParseUnits("Metric")
	assert.Error(t, err)
}

func TestParseParts(t *testing.T) {
	parts, err := ParseParts("")
	require.NoError(t, err)
	assert.Nil(t, parts)

	parts, err = ParseParts(" minutely, alerts ,")
	require.NoError(t, err)
	assert.Equal(t, []Part{PartMinutely, PartAlerts}, parts)

	_, err = ParseParts("hourly,weekly")
	assert.ErrorContains(t, err, `"weekly"`)
}

func TestPayload_JSON(t *testing.T) {
	doc := `{"lat":40.7128,"current":{"temp":20.50}}`

	wrapped, err := json.Marshal(struct {
		Data Payload `json:"data"`
	}{Data: Payload(doc)})
	require.NoError(t, err)
	assert.Equal(t, `{"data":`+doc+`}`, string(wrapped))

	var back struct {
		Data Payload `json:"data"`
	}
	require.NoError(t, json.Unmarshal(wrapped, &back))
	assert.Equal(t, doc, string(back.Data))

	empty, err := json.Marshal(struct {
		Data Payload `json:"data"`
	}{})
	require.NoError(t, err)
	assert.Equal(t, `{"data":null}`, string(empty))
}

func TestResult(t *testing.T) {
	assert.True(t, Hit(Payload(`{}`)).OK())
	assert.False(t, Miss().OK())
	assert.False(t, Failure(assert.AnError).OK())
	assert.Equal(t, "failure", Failure(assert.AnError).Outcome.String())
	assert.Equal(t, "miss", Miss().Outcome.String())
}
