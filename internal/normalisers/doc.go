// Package normalisers turns files on disk into indexable text.
// Each sub-package extracts text from one family of formats; the
// Registry picks the best match for a file's MIME type.
package normalisers
