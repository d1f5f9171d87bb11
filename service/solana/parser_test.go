package solana

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireSignatureStatus_ToDomain(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantConf ConfirmationStatus
		wantErr  bool
	}{
		{
			name:     "finalized success",
			raw:      `{"slot":100,"confirmations":null,"err":null,"confirmationStatus":"finalized"}`,
			wantConf: ConfirmationFinalized,
		},
		{
			name:     "processed",
			raw:      `{"slot":101,"confirmations":0,"err":null,"confirmationStatus":"processed"}`,
			wantConf: ConfirmationProcessed,
		},
		{
			name:     "failed with instruction error",
			raw:      `{"slot":102,"confirmations":3,"err":{"InstructionError":[0,{"Custom":1}]},"confirmationStatus":"confirmed"}`,
			wantConf: ConfirmationConfirmed,
			wantErr:  true,
		},
		{
			name:     "legacy node without confirmationStatus, rooted",
			raw:      `{"slot":103,"confirmations":null,"err":null}`,
			wantConf: ConfirmationFinalized,
		},
		{
			name:     "legacy node without confirmationStatus, not rooted",
			raw:      `{"slot":104,"confirmations":5,"err":null}`,
			wantConf: ConfirmationConfirmed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w wireSignatureStatus
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &w))

			st := w.toDomain()
			assert.True(t, st.Found)
			assert.Equal(t, tt.wantConf, st.ConfirmationStatus)
			if tt.wantErr {
				require.NotNil(t, st.Err)
				assert.Contains(t, *st.Err, "InstructionError")
			} else {
				assert.Nil(t, st.Err)
			}
		})
	}
}

func TestParseContextResult_AccountValue(t *testing.T) {
	raw := json.RawMessage(`{
		"context": {"slot": 250000000},
		"value": {
			"lamports": 1000000000,
			"owner": "11111111111111111111111111111111",
			"data": ["", "base64"],
			"executable": false,
			"rentEpoch": 18446744073709551615,
			"space": 0
		}
	}`)

	value, err := parseContextResult[*wireAccount](raw, true)
	require.NoError(t, err)
	require.NotNil(t, value)

	addr := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	acc := value.toDomain(addr)
	assert.Equal(t, addr, acc.Address)
	assert.Equal(t, uint64(1_000_000_000), acc.Lamports)
	assert.Equal(t, SystemProgramID, acc.Owner)
	assert.Equal(t, ^uint64(0), acc.RentEpoch)
	assert.Empty(t, acc.Data)
}

func TestParseContextResult_NullValue(t *testing.T) {
	value, err := parseContextResult[*wireAccount](json.RawMessage(`{"context":{"slot":1},"value":null}`), true)
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = parseContextResult[[]wireKeyedAccount](json.RawMessage(`{"context":{"slot":1},"value":null}`), false)
	assert.Error(t, err, "null value is only accepted where it means not found")
}

func TestParseContextResult_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "wrong value type", raw: `{"context":{"slot":1},"value":"lots"}`},
		{name: "null result", raw: `null`},
		{name: "empty result", raw: ``},
		{name: "missing value", raw: `{"context":{"slot":1}}`},
		{name: "missing context", raw: `{"value":5}`},
		{name: "not an object", raw: `42`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseContextResult[*wireAccount](json.RawMessage(tt.raw), true)
			assert.Error(t, err)
		})
	}
}
