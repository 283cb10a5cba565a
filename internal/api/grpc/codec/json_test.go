package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"github.com/dtroode/regicide-accounts/internal/model"
)

func TestJSON_Registered(t *testing.T) {
	c := encoding.GetCodec(Name)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestJSON_WireFieldNames(t *testing.T) {
	data, err := JSON{}.Marshal(&model.LoginResponse{Result: model.LoginSuccess, AuthToken: "a.b.c"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Result":"Success","AuthToken":"a.b.c"}`, string(data))

	var req model.RegisterRequest
	require.NoError(t, JSON{}.Unmarshal([]byte(`{"Username":"alice","DispName":"Alice W"}`), &req))
	assert.Equal(t, model.RegisterRequest{Username: "alice", DispName: "Alice W"}, req)
}

func TestJSON_Unmarshal(t *testing.T) {
	var req model.VerifyRequest
	assert.NoError(t, JSON{}.Unmarshal(nil, &req), "empty messages decode to zero values")

	err := JSON{}.Unmarshal([]byte("{"), &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}
