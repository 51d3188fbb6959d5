package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool(WithInterceptor(BearerToken("t")))

	a, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	again, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	b, err := p.GetConnection("passthrough:///ledger-b")
	require.NoError(t, err)

	assert.Same(t, a, again)
	assert.NotSame(t, a, b)

	require.NoError(t, p.Close())

	// 關閉後重新建立
	fresh, err := p.GetConnection("passthrough:///ledger-a")
	require.NoError(t, err)
	assert.NotSame(t, a, fresh)
	require.NoError(t, p.Close())
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(map[string]string{"amount": "1.5"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, "1.5", out["amount"])
}
