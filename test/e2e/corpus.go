// Package e2e provides end-to-end tests that build a knowledge base from files and query it.
package e2e

import (
	"fmt"
	"strings"
)

// Entry is one reference document in the E2E corpus. Answer is a single paragraph that
// fits in one fragment, so a query with the same text must retrieve it first.
type Entry struct {
	Name   string
	Title  string
	Answer string
}

// QueryTestCase is a query and the fragment text expected as the nearest hit.
type QueryTestCase struct {
	Query    string
	Expected string
}

// Corpus holds entries and their query test cases.
type Corpus struct {
	Entries   []Entry
	TestCases []QueryTestCase
}

var topics = []struct {
	title  string
	answer string
}{
	{"Opening hours", "The support desk is open Monday to Friday from nine to five, and closed on public holidays."},
	{"Returns", "Unused items can be returned within thirty days of delivery for a full refund."},
	{"Shipping", "Standard shipping takes three to five business days and is free for orders over fifty euros."},
	{"Express delivery", "Express delivery arrives the next business day when ordered before two in the afternoon."},
	{"Payment methods", "We accept credit cards, bank transfers and invoices for registered business customers."},
	{"Invoices", "Invoices are emailed as PDF files on the day an order ships."},
	{"Warranty", "Every device carries a two year warranty that covers manufacturing defects."},
	{"Repairs", "Repairs outside warranty are quoted before any work starts."},
	{"Account deletion", "Accounts can be deleted from the privacy page, and all personal data is erased within a week."},
	{"Password reset", "A password reset link is valid for one hour and can only be used once."},
	{"Two factor login", "Two factor login can be enabled with any authenticator app that supports time based codes."},
	{"Data export", "Customers can export their order history as a spreadsheet from the account page."},
	{"Gift cards", "Gift cards never expire and can be combined with other payment methods."},
	{"Discount codes", "Only one discount code can be applied per order."},
	{"Price match", "We match the price of authorised resellers within fourteen days of purchase."},
	{"Student pricing", "Students receive ten percent off with a valid university email address."},
	{"Bulk orders", "Orders of more than one hundred units are handled by the business sales team."},
	{"International orders", "International orders may be subject to import duties payable by the recipient."},
	{"Order tracking", "A tracking number is sent by text message once the parcel leaves the warehouse."},
	{"Lost parcels", "Parcels that have not arrived within ten days are reported to the carrier and replaced."},
	{"Damaged goods", "Photos of damaged goods must be sent within forty eight hours of delivery."},
	{"Newsletter", "The newsletter is sent on the first Tuesday of each month and can be cancelled at any time."},
	{"Store locations", "Our flagship store is next to the central station and has free parking for customers."},
	{"Accessibility", "All stores have step free access and staff trained to help visitors with reduced mobility."},
}

// BuildCorpus returns one entry per topic and one query test case per entry.
func BuildCorpus() *Corpus {
	c := &Corpus{Entries: make([]Entry, 0, len(topics))}
	for i, t := range topics {
		c.Entries = append(c.Entries, Entry{
			Name:   fmt.Sprintf("kb-%02d-%s", i+1, slug(t.title)),
			Title:  t.title,
			Answer: t.answer,
		})
		c.TestCases = append(c.TestCases, QueryTestCase{Query: t.answer, Expected: t.answer})
	}
	return c
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}
