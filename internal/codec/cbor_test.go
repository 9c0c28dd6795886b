package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerItem struct {
	TransactionID int64  `cbor:"1,keyasint"`
	Accept        bool   `cbor:"2,keyasint"`
	Note          string `cbor:"3,keyasint,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := ledgerItem{TransactionID: 42, Accept: true, Note: "inbox"}

	data, err := Marshal(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var decoded ledgerItem
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMarshalDeterministic(t *testing.T) {
	items := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := Marshal(items)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(items)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshal_RejectsGarbage(t *testing.T) {
	var decoded ledgerItem
	assert.Error(t, Unmarshal([]byte{0xff, 0x00, 0x13}, &decoded))
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(ledgerItem{TransactionID: 7})
	require.NoError(t, err)

	out, err := Diagnose(data)
	require.NoError(t, err)
	assert.Contains(t, out, "7")
}
