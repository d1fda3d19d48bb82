// cdcsanitize normalizes upstream extractor quirks in a decoded binlog
// text stream before it reaches cdcconsolidate: stripping a leading
// UTF-8 BOM, normalizing CRLF line endings, and dropping vendor banner
// lines (any line starting with "--" or "#", wherever it appears).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// bannerLine matches the vendor noise some extractors prepend, e.g.
// "-- decoded binlog events --" or "# mysqlbinlog VERSION".
var bannerLine = regexp.MustCompile(`^(--|#)`)

func main() {
	var (
		inFile      = kingpin.Flag("in", "Input file (default stdin).").Short('i').String()
		outFile     = kingpin.Flag("out", "Output file (default stdout).").Short('o').String()
		keepBanners = kingpin.Flag("keep-banners", "Keep lines starting with '--' or '#'.").Bool()
		debug       = kingpin.Flag("debug", "Enable debug-level logging.").Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate)
	kingpin.CommandLine.Help = "Normalizes a decoded binlog text stream ahead of cdcconsolidate.\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	in, closeIn, err := openIn(*inFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer closeIn()

	out, closeOut, err := openOut(*outFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	defer closeOut()

	n, err := sanitize(in, out, *keepBanners)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Debugf("wrote %d lines", n)
}

func openIn(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func openOut(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// sanitize copies in to out, stripping a leading BOM, normalizing CRLF
// to LF, and (unless keepBanners) dropping vendor banner lines. It
// returns the number of lines written.
func sanitize(in io.Reader, out io.Writer, keepBanners bool) (int, error) {
	bw := bufio.NewWriter(out)
	defer bw.Flush()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := 0
	first := true
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if first {
			line = strings.TrimPrefix(line, "﻿")
			first = false
		}
		if !keepBanners && bannerLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return lines, err
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("reading input: %w", err)
	}
	return lines, bw.Flush()
}
