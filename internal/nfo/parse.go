package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"media-watcher/internal/filesystem"
	"media-watcher/internal/logging"
	"media-watcher/internal/metrics"
)

// IDType is the uniqueid type attribute that carries the catalog id.
const IDType = "tmdb"

// Outcome describes how a sidecar was read.
type Outcome string

const (
	// OutcomeStructured means the document parsed as XML and yielded data.
	OutcomeStructured Outcome = "structured"
	// OutcomeHeuristic means XML parsing failed but the text search found data.
	OutcomeHeuristic Outcome = "heuristic"
	// OutcomeEmpty means neither stage found an id or a synopsis.
	OutcomeEmpty Outcome = "empty"
	// OutcomeUnreadable means the file could not be read.
	OutcomeUnreadable Outcome = "unreadable"
)

// Result is the metadata taken from a sidecar. Empty strings mean absent.
type Result struct {
	ID       string
	Synopsis string
	Outcome  Outcome
	Source   string
}

// Found reports whether any metadata was extracted.
func (r Result) Found() bool {
	return r.ID != "" || r.Synopsis != ""
}

// Extract reads the sidecar at path. Malformed documents never produce an
// error: a structural parse failure falls back to a plain text search.
func Extract(path string) Result {
	res := Result{Source: path}

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Cannot read sidecar %s: %v", path, err)
		res.Outcome = OutcomeUnreadable
		metrics.SidecarParsesTotal.WithLabelValues(string(res.Outcome)).Inc()
		return res
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	id, synopsis, err := tryStructuredParse(data)
	if err == nil {
		res.ID, res.Synopsis = id, synopsis
		res.Outcome = OutcomeStructured
	} else {
		logging.Warn("Sidecar %s is not well-formed XML (%v), falling back to text search", path, err)
		res.ID, res.Synopsis = tryHeuristicParse(data)
		res.Outcome = OutcomeHeuristic
	}

	if !res.Found() {
		logging.Warn("No id or synopsis in sidecar %s", path)
		res.Outcome = OutcomeEmpty
	} else {
		logging.Info("Sidecar %s: id=%q synopsis=%t (%s)", path, res.ID, res.Synopsis != "", res.Outcome)
	}
	metrics.SidecarParsesTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// tryStructuredParse walks the whole document, taking the first uniqueid of
// type IDType and the first plot element at any depth. Any syntax error in
// the document fails the stage.
func tryStructuredParse(data []byte) (id, synopsis string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		depth    int
		rootDone bool
		haveID   bool
		havePlot bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && rootDone {
				return "", "", fmt.Errorf("content after root element <%s>", t.Name.Local)
			}
			switch {
			case t.Name.Local == "uniqueid" && !haveID && attrValue(t, "type") == IDType:
				var v struct {
					Text string `xml:",chardata"`
				}
				if err := dec.DecodeElement(&v, &t); err != nil {
					return "", "", err
				}
				id, haveID = strings.TrimSpace(v.Text), true
				if depth == 0 {
					rootDone = true
				}
				continue
			case t.Name.Local == "plot" && !havePlot:
				var v struct {
					Text string `xml:",chardata"`
				}
				if err := dec.DecodeElement(&v, &t); err != nil {
					return "", "", err
				}
				synopsis, havePlot = strings.TrimSpace(v.Text), true
				if depth == 0 {
					rootDone = true
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootDone = true
			}
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return "", "", errors.New("text outside root element")
			}
		}
	}

	if !rootDone {
		return "", "", errors.New("no root element")
	}
	return id, synopsis, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// Markers used by the text search. Matching is ASCII case-insensitive.
const (
	idOpen    = `<uniqueid type="` + IDType + `">`
	idClose   = `</uniqueid>`
	plotOpen  = `<plot>`
	plotClose = `</plot>`
)

// tryHeuristicParse pulls the id and synopsis out of a document that is not
// well-formed XML by searching for the literal tags.
func tryHeuristicParse(data []byte) (id, synopsis string) {
	content := string(data)
	lower := asciiLower(content)
	return between(content, lower, idOpen, idClose), between(content, lower, plotOpen, plotClose)
}

// between returns the trimmed text between the first open marker and the
// next close marker. lower must be asciiLower(content) so indexes line up.
func between(content, lower, open, close string) string {
	start := strings.Index(lower, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	end := strings.Index(lower[start:], close)
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(content[start : start+end])
}

// asciiLower lowercases A-Z only, keeping byte offsets identical.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
