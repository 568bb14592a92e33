package mongocodec

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type priced struct {
	Price decimal.Decimal `bson:"price"`
}

func TestDecimalStoredAsDecimal128(t *testing.T) {
	reg := Registry()

	raw, err := bson.MarshalWithRegistry(reg, priced{Price: decimal.RequireFromString("249.99")})
	require.NoError(t, err)

	var generic bson.M
	require.NoError(t, bson.Unmarshal(raw, &generic))
	assert.Equal(t, "249.99", generic["price"].(interface{ String() string }).String())

	var back priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, back.Price.Equal(decimal.RequireFromString("249.99")))
}

func TestDecimalDecodesLegacyDoubles(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"price": 100.5})
	require.NoError(t, err)

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(Registry(), raw, &out))
	assert.Equal(t, "100.5", out.Price.String())
}
