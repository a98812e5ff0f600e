// Package loader reads memory access traces for the simulator.
//
// A trace is a CSV file with one access per line:
//
//	context,thread,pc,address,op[,size[,value]]
//
// Numbers may be decimal or 0x-prefixed hex. The op is R (load) or W
// (store). Lines starting with # are comments, and a first line starting
// with "context" is treated as a header.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/sarchlab/pfsim/timing/prefetch"
)

// DefaultAccessSize is the size in bytes of an access whose size column is
// omitted.
const DefaultAccessSize = 4

// AddressSpace is the size in bytes of the simulated address space. Every
// access of a trace lies below it.
const AddressSpace = 1 << 48

// Record is one demand access of a trace.
type Record struct {
	prefetch.Access

	// Store is true for a write.
	Store bool
	// Value is the data written by a store.
	Value uint64
}

// Trace is an ordered list of accesses.
type Trace struct {
	Records []Record
}

// Len returns the number of records in the trace.
func (t *Trace) Len() int {
	return len(t.Records)
}

// Contexts returns the distinct context IDs in the trace in ascending order.
func (t *Trace) Contexts() []int {
	var ids []int
	for _, r := range t.Records {
		if !slices.Contains(ids, r.ContextID) {
			ids = append(ids, r.ContextID)
		}
	}
	slices.Sort(ids)
	return ids
}

// ForContext returns the records of one context, in trace order.
func (t *Trace) ForContext(contextID int) []Record {
	var records []Record
	for _, r := range t.Records {
		if r.ContextID == contextID {
			records = append(records, r)
		}
	}
	return records
}

// Load reads a trace file.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	trace, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trace %s: %w", path, err)
	}
	return trace, nil
}

// Parse reads a trace from r.
func Parse(r io.Reader) (*Trace, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	trace := &Trace{}
	first := true
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(fields[0]), "context") {
				continue
			}
		}

		record, err := parseRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trace.Records = append(trace.Records, record)
	}

	return trace, nil
}

func parseRecord(fields []string) (Record, error) {
	if len(fields) < 5 || len(fields) > 7 {
		return Record{}, fmt.Errorf("expected 5 to 7 fields, got %d", len(fields))
	}

	contextID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 0, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid context: %w", err)
	}
	if contextID < 0 {
		return Record{}, fmt.Errorf("invalid context: %d is negative", contextID)
	}

	threadID, err := parseUint(fields[1], 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid thread: %w", err)
	}

	pc, err := parseUint(fields[2], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid pc: %w", err)
	}

	address, err := parseUint(fields[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid address: %w", err)
	}

	record := Record{
		Access: prefetch.Access{
			Address:   address,
			PC:        pc,
			ThreadID:  uint32(threadID),
			ContextID: int(contextID),
			ByteSize:  DefaultAccessSize,
		},
	}

	switch strings.ToUpper(strings.TrimSpace(fields[4])) {
	case "R", "L", "LOAD":
	case "W", "S", "STORE":
		record.Store = true
	default:
		return Record{}, fmt.Errorf("unknown op %q", fields[4])
	}

	if len(fields) > 5 && strings.TrimSpace(fields[5]) != "" {
		size, err := parseUint(fields[5], 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid size: %w", err)
		}
		if size == 0 || size > 8 {
			return Record{}, fmt.Errorf("invalid size: %d is not in [1, 8]", size)
		}
		record.ByteSize = size
	}

	if len(fields) > 6 {
		value, err := parseUint(fields[6], 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid value: %w", err)
		}
		record.Value = value
	}

	if record.Address >= AddressSpace || AddressSpace-record.Address < record.ByteSize {
		return Record{}, fmt.Errorf(
			"invalid address: 0x%x is outside the 48-bit address space", record.Address)
	}

	return record, nil
}

func parseUint(s string, bits int) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, bits)
}
