// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package format renders fetched files into the single text document and
// parses such a document back into records.
//
// Every record is written as
//
//	File: <path>
//	================================================================================
//	<content>
//	================================================================================
//
// followed by one blank line.
package format

import (
	"bufio"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

const (
	// Header prefixes the path line of every record.
	Header = "File: "
	// Separator is the line that fences record content.
	Separator = "================================================================================"
)

var (
	openFence  = "\n" + Separator + "\n"
	closeFence = "\n" + Separator + "\n\n"
)

// 📄 Record is one file in a document
type Record struct {
	Path    string
	Content string
	// Deselected records are kept in the list but left out of the output.
	Deselected bool
}

// Format renders records in order. Deselected records are skipped.
func Format(records []Record) string {
	var sb strings.Builder
	_ = write(&sb, records)
	return sb.String()
}

// Write streams the same bytes Format returns.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if err := write(bw, records); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return errors.Errorf("flushing document: %w", err)
	}
	return nil
}

func write(w io.StringWriter, records []Record) error {
	for _, r := range records {
		if r.Deselected {
			continue
		}
		for _, s := range []string{Header, r.Path, openFence, r.Content, closeFence} {
			if _, err := w.WriteString(s); err != nil {
				return errors.Errorf("writing record %q: %w", r.Path, err)
			}
		}
	}
	return nil
}

// Parse recovers the records of a document. A header line that is not followed
// by a separator line is skipped and scanning resumes just after it. Content
// runs up to the next closing fence, or to the end of the document when none
// follows.
func Parse(doc string) []Record {
	var records []Record

	pos := 0
	for pos < len(doc) {
		i := strings.Index(doc[pos:], Header)
		if i < 0 {
			break
		}
		start := pos + i

		nl := strings.IndexByte(doc[start+len(Header):], '\n')
		if nl < 0 {
			break
		}
		pathEnd := start + len(Header) + nl
		if !strings.HasPrefix(doc[pathEnd:], openFence) {
			pos = start + 1
			continue
		}

		contentStart := pathEnd + len(openFence)
		contentEnd := len(doc)
		next := len(doc)
		if j := strings.Index(doc[contentStart:], closeFence); j >= 0 {
			contentEnd = contentStart + j
			// the closing fence is left for the next search
			next = contentEnd
		}

		records = append(records, Record{
			Path:    doc[start+len(Header) : pathEnd],
			Content: doc[contentStart:contentEnd],
		})
		pos = next
	}

	return records
}
