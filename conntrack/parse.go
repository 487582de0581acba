package conntrack

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse streams conntrack entries out of r, calling onEntry for each
// directional tuple discovered. Per-line parse failures are reported to
// onError (which may be nil) and otherwise skipped; the scan continues with
// the remaining lines.
func Parse(r io.Reader, onEntry func(Entry), onError func(lineNo int, err error)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries, err := parseLine(line)
		if err != nil {
			if onError != nil {
				onError(lineNo, err)
			}
			continue
		}
		for _, e := range entries {
			onEntry(e)
		}
	}
	return scanner.Err()
}

// parseLine parses one conntrack line into its directional entries. The
// fixed header is "<transport> <proto_num> <proto_name> <proto_num>
// <timeout>"; everything after is a run of "key=value" tokens. A duplicate
// "src=" starts a new entry (a line typically carries the original and
// reply tuples back to back). Unrecognized keys are ignored.
func parseLine(line string) ([]Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return nil, fmt.Errorf("conntrack: short line: %q", line)
	}

	transport := fields[0]
	protocol := fields[2]
	timeout, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("conntrack: bad timeout %q: %w", fields[4], err)
	}

	fresh := func() Entry {
		return Entry{Transport: transport, Protocol: protocol, Timeout: timeout}
	}

	var entries []Entry
	current := fresh()
	for _, kv := range fields[5:] {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key, val := kv[:idx], kv[idx+1:]
		switch key {
		case "src":
			if current.Src != "" {
				entries = append(entries, current)
				current = fresh()
			}
			current.Src = val
		case "dst":
			current.Dst = val
		case "sport":
			current.Sport = val
		case "dport":
			current.Dport = val
		case "bytes":
			current.Bytes, _ = strconv.ParseUint(val, 10, 64)
		case "packets":
			current.Packets, _ = strconv.ParseUint(val, 10, 64)
		}
	}
	entries = append(entries, current)

	return entries, nil
}
