// Deepstrings
// Copyright (c) 2026, DCSO GmbH

package patterns

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/xi2/xz"
)

// LoadExtra merges supplementary patterns into the matcher. If path is
// non-empty the file is read locally, otherwise the pattern file is
// downloaded from uri. With isXz set the input is decompressed first.
//
// The file format is one pattern per line: an indicator type, white
// space, and a regular expression. Empty lines and lines starting with
// '#' are skipped.
func (m *Matcher) LoadExtra(path string, uri string, isXz bool) error {
	var reader io.Reader

	if path != "" {
		log.Info("loading extra pattern file ", path)
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		reader = f
	} else {
		log.Debug("retrieving pattern file via HTTP from: ", uri)
		response, err := http.Get(uri)
		if err != nil {
			return err
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("pattern file download failed: %s", response.Status)
		}
		reader = response.Body
	}

	if isXz {
		var err error
		reader, err = xz.NewReader(reader, 0)
		if err != nil {
			return err
		}
	}

	n, err := m.merge(reader)
	if err != nil {
		return err
	}
	log.Infof("loaded [%d] extra patterns", n)
	return nil
}

func (m *Matcher) merge(reader io.Reader) (int, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			fields = strings.SplitN(line, " ", 2)
		}
		if len(fields) != 2 {
			return n, fmt.Errorf("malformed pattern line %d", lineNo)
		}
		expr := strings.TrimSpace(fields[1])
		re, err := regexp.Compile(expr)
		if err != nil {
			return n, fmt.Errorf("pattern line %d: %v", lineNo, err)
		}
		m.mu.Lock()
		m.patterns = append(m.patterns, &Pattern{Type: fields[0], Regex: re})
		m.mu.Unlock()
		n++
	}
	return n, scanner.Err()
}
