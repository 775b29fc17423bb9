package offer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// DateLayout is the collection date format written to the store.
const DateLayout = "2006-01-02"

// Fields is what the extractor pulls from one offer page.
type Fields struct {
	Title              string
	ContractType       string
	Location           string
	Salary             string
	StartDate          string
	RemotePolicy       string
	EducationLevel     string
	Experience         string
	CompanyName        string
	Sector             string
	EmployeeCount      string
	CompanyURL         string
	CompanyDescription string
	Description        string
	ProfileText        string
}

// Offer is one row of the store.
type Offer struct {
	CollectedOn string // YYYY-MM-DD
	Fields
	OfferURL string
}

// Schema is the header paired with Offer.Row.
type Schema struct {
	Version int
	Names   []string
}

const (
	colDate     = "Date"
	colOfferURL = "Lien_offre"
)

// Columns is the current store header, in Row order.
var Columns = Schema{
	Version: 2,
	Names: []string{
		colDate,
		"Titre",
		"Contrat",
		"Localisation",
		"Salaire",
		"Début",
		"Télétravail",
		"Etudes",
		"Expérience",
		"Entreprise",
		"Domaine",
		"Employés",
		"Lien_entreprise",
		colOfferURL,
		"Description_entreprise",
		"Offre",
		"Profil",
	},
}

// Row returns the record values in Columns order.
func (o Offer) Row() []string {
	return []string{
		o.CollectedOn,
		o.Title,
		o.ContractType,
		o.Location,
		o.Salary,
		o.StartDate,
		o.RemotePolicy,
		o.EducationLevel,
		o.Experience,
		o.CompanyName,
		o.Sector,
		o.EmployeeCount,
		o.CompanyURL,
		o.OfferURL,
		o.CompanyDescription,
		o.Description,
		o.ProfileText,
	}
}

// FromRow maps a stored row back to an Offer using the header names
// declared by the file. Unknown columns are ignored.
func FromRow(header, row []string) (Offer, error) {
	if len(header) != len(row) {
		return Offer{}, fmt.Errorf("row has %d fields, header has %d", len(row), len(header))
	}
	var o Offer
	dst := map[string]*string{
		colDate:                  &o.CollectedOn,
		"Titre":                  &o.Title,
		"Contrat":                &o.ContractType,
		"Localisation":           &o.Location,
		"Salaire":                &o.Salary,
		"Début":                  &o.StartDate,
		"Télétravail":            &o.RemotePolicy,
		"Etudes":                 &o.EducationLevel,
		"Expérience":             &o.Experience,
		"Entreprise":             &o.CompanyName,
		"Domaine":                &o.Sector,
		"Employés":               &o.EmployeeCount,
		"Lien_entreprise":        &o.CompanyURL,
		colOfferURL:              &o.OfferURL,
		"Description_entreprise": &o.CompanyDescription,
		"Offre":                  &o.Description,
		"Profil":                 &o.ProfileText,
	}
	for i, name := range header {
		if p, ok := dst[name]; ok {
			*p = row[i]
		}
	}
	return o, nil
}

// Equal reports whether the schema has the same column names in the same order.
func (s Schema) Equal(names []string) bool {
	if len(names) != len(s.Names) {
		return false
	}
	for i := range names {
		if names[i] != s.Names[i] {
			return false
		}
	}
	return true
}

// KeyIndexes returns the positions of the business key columns: every
// column except the collection date and the offer URL.
func (s Schema) KeyIndexes() []int {
	out := make([]int, 0, len(s.Names))
	for i, n := range s.Names {
		if n == colDate || n == colOfferURL {
			continue
		}
		out = append(out, i)
	}
	return out
}

// DateIndex returns the position of the collection date column, or -1.
func (s Schema) DateIndex() int {
	for i, n := range s.Names {
		if n == colDate {
			return i
		}
	}
	return -1
}

// KeyHash hashes the business key of a row laid out per s.
func (s Schema) KeyHash(row []string) string {
	h := sha256.New()
	for _, i := range s.KeyIndexes() {
		// length prefix keeps ("ab","c") and ("a","bc") apart
		fmt.Fprintf(h, "%d:", len(row[i]))
		h.Write([]byte(row[i]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BusinessKey hashes the offer identity used for deduplication.
func (o Offer) BusinessKey() string {
	return Columns.KeyHash(o.Row())
}

// Validate checks the two fields that are always populated.
func (o Offer) Validate() error {
	var missing []string
	if strings.TrimSpace(o.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(o.OfferURL) == "" {
		missing = append(missing, "offer_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("offer missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
