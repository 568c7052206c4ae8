package exclusion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ListSource serves an exclusion list held in memory, such as a downloaded
// LEIE export. Replace swaps the whole list atomically.
type ListSource struct {
	name string

	mu     sync.RWMutex
	byNPI  map[string][]Entry
	byName map[string][]Entry
}

func NewListSource(name string, entries []Entry) *ListSource {
	s := &ListSource{name: name}
	s.Replace(entries)
	return s
}

func (s *ListSource) Name() string { return s.name }

// Replace installs a new list.
func (s *ListSource) Replace(entries []Entry) {
	byNPI := make(map[string][]Entry)
	byName := make(map[string][]Entry)
	for _, e := range entries {
		if e.NPI != "" {
			byNPI[e.NPI] = append(byNPI[e.NPI], e)
		}
		for _, n := range e.names() {
			byName[n] = append(byName[n], e)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byNPI, s.byName = byNPI, byName
}

func (s *ListSource) Query(ctx context.Context, q Query) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	if q.NPI != "" {
		out = append(out, s.byNPI[q.NPI]...)
	}
	if n := NormalizeName(q.Name); n != "" {
		out = append(out, s.byName[n]...)
	}
	return out, nil
}

// leieColumns are the header names used by the OIG LEIE CSV export.
var leieColumns = []string{"LASTNAME", "FIRSTNAME", "MIDNAME", "BUSNAME", "NPI", "EXCLDATE"}

// ParseLEIE reads the OIG LEIE CSV export. Individuals are listed as
// "FIRST MIDDLE LAST" with a "FIRST LAST" alias; businesses by BUSNAME. The all-zero NPI placeholder
// used by the export is dropped.
func ParseLEIE(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read leie header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, col := range leieColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("leie export missing column %s", col)
		}
	}
	field := func(row []string, col string) string {
		if i := idx[col]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var entries []Entry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read leie line %d: %w", line, err)
		}
		name := field(row, "BUSNAME")
		var aliases []string
		if last := field(row, "LASTNAME"); last != "" {
			first, mid := field(row, "FIRSTNAME"), field(row, "MIDNAME")
			name = joinFields(first, mid, last)
			if mid != "" {
				aliases = append(aliases, joinFields(first, last))
			}
		}
		npi := field(row, "NPI")
		if strings.Trim(npi, "0") == "" {
			npi = ""
		}
		if name == "" && npi == "" {
			continue
		}
		entries = append(entries, Entry{
			ID:      fmt.Sprintf("leie-%d-%s", line, field(row, "EXCLDATE")),
			Name:    name,
			Aliases: aliases,
			NPI:     npi,
		})
	}
	return entries, nil
}

func joinFields(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
