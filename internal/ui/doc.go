// Package ui provides a Bubble Tea doctors browser. It drives a
// pager.Controller and renders its View: loading, error with retry, empty
// and the visible doctors with a show-more action.
package ui
