// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ingest

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	sigilerr "github.com/sigil-dev/docintel/pkg/errors"
)

// Extract returns the plain text of the document at path. PDFs are decoded;
// .txt and .md files are read as-is.
func Extract(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", sigilerr.New(sigilerr.CodeIngestSourceNotFound, "source not found: "+path)
		}
		return "", sigilerr.Wrapf(err, sigilerr.CodeIngestExtractFailure, "stat %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ExtractPDF(path)
	case ".txt", ".md", ".text":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", sigilerr.Wrapf(err, sigilerr.CodeIngestExtractFailure, "reading %s", path)
		}
		return string(b), nil
	default:
		return "", sigilerr.Errorf(sigilerr.CodeIngestUnsupportedInput,
			"unsupported source type %q (want .pdf, .txt or .md): %s", filepath.Ext(path), path)
	}
}

// ExtractPDF concatenates the plain text of every page.
func ExtractPDF(path string) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", sigilerr.Errorf(sigilerr.CodeIngestExtractFailure, "decoding pdf %s: %v", path, r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", sigilerr.Wrapf(err, sigilerr.CodeIngestExtractFailure, "opening pdf %s", path)
	}
	defer f.Close() //nolint:errcheck // read-only

	plain, err := rdr.GetPlainText()
	if err != nil {
		return "", sigilerr.Wrapf(err, sigilerr.CodeIngestExtractFailure, "reading pdf text %s", path)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", sigilerr.Wrapf(err, sigilerr.CodeIngestExtractFailure, "reading pdf buffer %s", path)
	}
	return buf.String(), nil
}
