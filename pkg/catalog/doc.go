// Package catalog is the clinic domain: doctors, check-up programs and
// laboratory analyses served by the clinic REST API, plus the text helpers
// the public site uses to present them.
//
// Doctors are paginated and exposed as a pager.Fetcher so they can drive a
// pager.Controller or a pagination.BatchFetcher. Check-ups and analyses are
// small unpaged collections.
package catalog
