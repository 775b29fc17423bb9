package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFields() Fields {
	return Fields{
		Title:       "Data Scientist H/F",
		Location:    "Paris",
		Salary:      "45–50k€",
		CompanyName: "Acme",
		CompanyURL:  "https://www.welcometothejungle.com/fr/companies/acme",
		Description: "Build models.",
	}
}

func TestBuild_RowMatchesSchema(t *testing.T) {
	collected := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	o, schema := Build(sampleFields(), "https://example.com/jobs/1", collected)

	row := o.Row()
	require.Len(t, row, len(schema.Names))
	assert.Equal(t, 2, schema.Version)
	assert.Equal(t, "2024-01-02", row[0])
	assert.Equal(t, "Date", schema.Names[0])

	idx := map[string]int{}
	for i, n := range schema.Names {
		idx[n] = i
	}
	assert.Equal(t, "Data Scientist H/F", row[idx["Titre"]])
	assert.Equal(t, "45–50k€", row[idx["Salaire"]])
	assert.Equal(t, "https://example.com/jobs/1", row[idx["Lien_offre"]])
	assert.Equal(t, "", row[idx["Contrat"]])
}

func TestFromRow_RoundTrip(t *testing.T) {
	o, schema := Build(sampleFields(), "https://example.com/jobs/1", time.Now())

	back, err := FromRow(schema.Names, o.Row())
	require.NoError(t, err)
	assert.Equal(t, o, back)
}

func TestFromRow_UsesHeaderOrder(t *testing.T) {
	header := []string{"Lien_offre", "Titre", "Colonne_inconnue"}
	row := []string{"https://example.com/jobs/9", "Analyst", "ignored"}

	o, err := FromRow(header, row)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/jobs/9", o.OfferURL)
	assert.Equal(t, "Analyst", o.Title)
}

func TestFromRow_ColumnCountMismatch(t *testing.T) {
	_, err := FromRow([]string{"Titre", "Date"}, []string{"only one"})
	assert.Error(t, err)
}

func TestBusinessKey_IgnoresDateAndURL(t *testing.T) {
	a, _ := Build(sampleFields(), "https://example.com/jobs/1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b, _ := Build(sampleFields(), "https://example.com/jobs/1?o=2", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, a.BusinessKey(), b.BusinessKey())

	f := sampleFields()
	f.Description = "Build models. Edited."
	c, _ := Build(f, "https://example.com/jobs/1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.NotEqual(t, a.BusinessKey(), c.BusinessKey())
}

func TestKeyHash_FieldBoundaries(t *testing.T) {
	s := Schema{Names: []string{"A", "B"}}
	assert.NotEqual(t, s.KeyHash([]string{"ab", "c"}), s.KeyHash([]string{"a", "bc"}))
}

func TestValidate(t *testing.T) {
	o, _ := Build(Fields{}, "", time.Now())
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "offer_url")

	o, _ = Build(sampleFields(), "https://example.com/jobs/1", time.Now())
	assert.NoError(t, o.Validate())
}
