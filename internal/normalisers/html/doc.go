// Package html provides a Normaliser for saved web pages.
// It extracts readable article text and picks up the page title,
// canonical URL and publication date from head metadata.
package html
