package mirror

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerwatch/internal/offer"
)

func sample() offer.Offer {
	o, _ := offer.Build(offer.Fields{Title: "Data Scientist", Salary: "45–50k€"},
		"https://x/jobs/1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	return o
}

func TestTableName(t *testing.T) {
	assert.Equal(t, `"public".offers`, tableName(""))
	assert.Equal(t, `"jobs".offers`, tableName(" jobs "))
	assert.Equal(t, `"a""b".offers`, tableName(`a"b`))
}

func TestRowArgs(t *testing.T) {
	o := sample()
	args := rowArgs(o)
	require.Len(t, args, 18)
	assert.Equal(t, o.BusinessKey(), args[0])
	day, ok := args[1].(*time.Time)
	require.True(t, ok)
	require.NotNil(t, day)
	assert.Equal(t, "2024-01-02", day.Format(offer.DateLayout))
	assert.Equal(t, "Data Scientist", args[2])
	assert.Equal(t, "45–50k€", args[5])
	assert.Equal(t, "https://x/jobs/1", args[14])
}

func TestRowArgs_BadDate(t *testing.T) {
	o := sample()
	o.CollectedOn = "02/01/2024"
	day := rowArgs(o)[1].(*time.Time)
	assert.Nil(t, day)
}

// Runs against a real database when OFFERWATCH_TEST_PG_DSN is set.
func TestPostgres_PutIsIdempotent(t *testing.T) {
	dsn := os.Getenv("OFFERWATCH_TEST_PG_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("OFFERWATCH_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	p, err := Open(ctx, Config{DSN: dsn})
	require.NoError(t, err)
	defer p.Close()

	o := sample()
	o.Title = "mirror test " + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, p.Put(ctx, o))
	require.NoError(t, p.Put(ctx, o))

	n, err := p.Backfill(ctx, []offer.Offer{o})
	require.NoError(t, err)
	assert.Zero(t, n)
}
