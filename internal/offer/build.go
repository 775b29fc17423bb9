package offer

import "time"

// Build assembles the stored record from extracted fields and the run
// context. The returned schema always matches Row order.
func Build(f Fields, offerURL string, collected time.Time) (Offer, Schema) {
	o := Offer{
		CollectedOn: collected.Format(DateLayout),
		Fields:      f,
		OfferURL:    offerURL,
	}
	return o, Columns
}
