// Package fixture loads the XML query/data fixtures used by the command-line
// harness.
//
// The expected layout is:
//
//	<lucene-tests>
//	  <lang lang="Sa-Ltn">
//	    <test><query>...</query></test>
//	    <data>...</data>
//	  </lang>
//	</lucene-tests>
package fixture

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrLangNotFound is returned when the fixture has no section for the
// requested language.
var ErrLangNotFound = errors.New("fixture language not found")

// Fixture is one language section: the queries to run and the documents to
// index, both in file order.
type Fixture struct {
	Lang    string
	Queries []string
	Data    []string
}

type xmlRoot struct {
	XMLName xml.Name  `xml:"lucene-tests"`
	Langs   []xmlLang `xml:"lang"`
}

type xmlLang struct {
	Lang  string    `xml:"lang,attr"`
	Tests []xmlTest `xml:"test"`
	Data  []string  `xml:"data"`
}

type xmlTest struct {
	Queries []string `xml:"query"`
}

// Load reads the fixture at path and returns the section for lang.
func Load(path, lang string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture %s: %w", path, err)
	}
	defer f.Close()

	fx, err := Parse(f, lang)
	if err != nil {
		return nil, fmt.Errorf("loading fixture %s: %w", path, err)
	}
	return fx, nil
}

// Parse decodes a fixture document and returns the section for lang. Entries
// are trimmed; blank entries are skipped.
func Parse(r io.Reader, lang string) (*Fixture, error) {
	var root xmlRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}
	for _, section := range root.Langs {
		if section.Lang != lang {
			continue
		}
		fx := &Fixture{Lang: lang}
		for _, test := range section.Tests {
			fx.Queries = appendTrimmed(fx.Queries, test.Queries)
		}
		fx.Data = appendTrimmed(fx.Data, section.Data)
		return fx, nil
	}
	return nil, fmt.Errorf("lang %q: %w", lang, ErrLangNotFound)
}

func appendTrimmed(dst, src []string) []string {
	for _, s := range src {
		if s = strings.TrimSpace(s); s != "" {
			dst = append(dst, s)
		}
	}
	return dst
}
